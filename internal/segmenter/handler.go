package segmenter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Job *Job
}

func NewHandler(job *Job) *Handler {
	return &Handler{Job: job}
}

// RegisterRoutes mounts POST /:slug/:volume. Callers put it behind auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:slug/:volume", h.run) // POST /segment/:slug/:volume?force=true
}

func (h *Handler) run(c *gin.Context) {
	volume, err := strconv.Atoi(c.Param("volume"))
	if err != nil || volume < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid volume"})
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	stats, err := h.Job.Run(c.Request.Context(), c.Param("slug"), volume, force)
	switch {
	case errors.Is(err, ErrNoBlocks):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case errors.Is(err, ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "segmentation service unavailable"})
		return
	case err != nil:
		h.Job.logger().Error("segmentation run", "manga_slug", c.Param("slug"), "volume", volume, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "segmentation failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
