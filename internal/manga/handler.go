package manga

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                              // GET /manga
	rg.GET("/:slug", h.getBySlug)                   // GET /manga/:slug
	rg.GET("/:slug/volumes", h.volumes)             // GET /manga/:slug/volumes
	rg.GET("/:slug/volumes/:volume/pages", h.pages) // GET /manga/:slug/volumes/:volume/pages
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getBySlug(c *gin.Context) {
	m, err := h.Repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) volumes(c *gin.Context) {
	slug := c.Param("slug")
	vols, err := h.Repo.ListVolumes(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list volumes failed"})
		return
	}
	if len(vols) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"manga_slug": slug, "volumes": vols})
}

func (h *Handler) pages(c *gin.Context) {
	slug := c.Param("slug")
	volume := parseInt(c.Param("volume"), -1)
	if volume < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid volume"})
		return
	}

	pages, err := h.Repo.ListPages(c.Request.Context(), slug, volume)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list pages failed"})
		return
	}
	if len(pages) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"manga_slug": slug, "volume": volume, "pages": pages})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
