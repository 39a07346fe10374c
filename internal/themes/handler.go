package themes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Suggester *Suggester
}

func NewHandler(s *Suggester) *Handler {
	return &Handler{Suggester: s}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/suggestions", h.suggestions)
}

func (h *Handler) suggestions(c *gin.Context) {
	count := DefaultCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 20 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be 1-20"})
			return
		}
		count = n
	}

	items := h.Suggester.Suggest(c.Request.Context(), count)
	c.JSON(http.StatusOK, gin.H{
		"count": len(items),
		"items": items,
	})
}
