package anki

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Exporter *Exporter
}

func NewHandler(e *Exporter) *Handler {
	return &Handler{Exporter: e}
}

// RegisterRoutes mounts the read route on rg and the write route on write,
// which callers protect with auth.
func (h *Handler) RegisterRoutes(rg, write *gin.RouterGroup) {
	rg.GET("/:slug/:volume/:page/:block", h.canAdd)              // GET /anki/:slug/:volume/:page/:block
	write.POST("/:slug/:volume/:page/:block/words/:word", h.add) // POST /anki/.../words/:word
}

func parseRef(c *gin.Context) (BlockRef, bool) {
	ref := BlockRef{MangaSlug: c.Param("slug")}
	var err error
	for _, p := range []struct {
		name string
		dst  *int
	}{{"volume", &ref.Volume}, {"page", &ref.Page}, {"block", &ref.BlockNum}} {
		*p.dst, err = strconv.Atoi(c.Param(p.name))
		if err != nil || *p.dst < 0 {
			return ref, false
		}
	}
	return ref, true
}

func (h *Handler) canAdd(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block reference"})
		return
	}
	flags, err := h.Exporter.CanAdd(c.Request.Context(), ref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_add": flags})
}

func (h *Handler) add(c *gin.Context) {
	ref, ok := parseRef(c)
	word, err := strconv.Atoi(c.Param("word"))
	if !ok || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid word reference"})
		return
	}
	id, err := h.Exporter.Add(c.Request.Context(), ref, word)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note_id": id})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrWordIndex), errors.Is(err, ErrPunctuation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.Exporter.logger().Error("anki request", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "anki request failed"})
	}
}
