package ocr

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
	rg.GET("/:slug/volumes/:volume/pages/:page", h.getPage)                      // GET /manga/:slug/volumes/:volume/pages/:page
	rg.GET("/:slug/volumes/:volume/pages/:page/blocks/:block/words", h.getWords) // GET .../blocks/:block/words
}

func (h *Handler) getPage(c *gin.Context) {
	volume, ok1 := parseNonNegative(c.Param("volume"))
	page, ok2 := parseNonNegative(c.Param("page"))
	if !ok1 || !ok2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume and page must be non-negative integers"})
		return
	}

	res, err := h.Repo.GetPageOcr(c.Request.Context(), c.Param("slug"), volume, page)
	if err != nil {
		h.Repo.Log.Error("get page ocr", "manga_slug", c.Param("slug"), "volume", volume, "page", page, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get page failed"})
		return
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getWords(c *gin.Context) {
	volume, ok1 := parseNonNegative(c.Param("volume"))
	page, ok2 := parseNonNegative(c.Param("page"))
	blockNum, ok3 := parseNonNegative(c.Param("block"))
	if !ok1 || !ok2 || !ok3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume, page and block must be non-negative integers"})
		return
	}

	b, err := h.Repo.GetBlock(c.Request.Context(), c.Param("slug"), volume, page, blockNum)
	if err != nil {
		h.Repo.Log.Error("get block", "manga_slug", c.Param("slug"), "volume", volume, "page", page, "block_num", blockNum, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get page failed"})
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	words := BlockWords(b)
	body := gin.H{
		"block_num": b.BlockNum,
		"lines":     b.Lines,
		"words":     words,
	}
	if b.SegmentationError != "" {
		body["segmentation_error"] = b.SegmentationError
	}
	c.JSON(http.StatusOK, body)
}

func parseNonNegative(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
