package workflow

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"picbook/internal/auth"
	"picbook/internal/generate"
	"picbook/internal/provider"
	"picbook/internal/story"
	"picbook/pkg/models"
)

type Handler struct {
	Manager *Manager
}

func NewHandler(m *Manager) *Handler {
	return &Handler{Manager: m}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/workflow", h.snapshot)
	rg.GET("/workflow/options", h.options)
	rg.POST("/workflow/story", h.generateStory)
	rg.POST("/workflow/advance", h.advance)
	rg.POST("/workflow/back", h.back)
	rg.POST("/workflow/illustrations", h.generateIllustrations)
	rg.POST("/workflow/save", h.save)
	rg.POST("/workflow/reset", h.reset)
}

func (h *Handler) snapshot(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, h.Manager.Snapshot(claims.UserID))
}

// options feeds the illustration-settings step: the style catalog and
// supported aspect ratios.
func (h *Handler) options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"styles":        models.Styles,
		"aspect_ratios": models.AspectRatios(),
	})
}

type storyReq struct {
	Theme string `json:"theme"`
}

func (h *Handler) generateStory(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req storyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	pages, err := h.Manager.GenerateStory(c.Request.Context(), claims.UserID, req.Theme)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

func (h *Handler) advance(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.Manager.Advance(claims.UserID); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Manager.Snapshot(claims.UserID))
}

func (h *Handler) back(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.Manager.Back(claims.UserID); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Manager.Snapshot(claims.UserID))
}

type illustrationsReq struct {
	StyleID     string `json:"style_id"`
	AspectRatio string `json:"aspect_ratio"`
}

func (h *Handler) generateIllustrations(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req illustrationsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	cfg := models.IllustrationConfig{StyleID: req.StyleID, AspectRatio: req.AspectRatio}
	pages, failed, err := h.Manager.GenerateIllustrations(c.Request.Context(), claims.UserID, cfg)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	// partial failure is a normal response, not an error status
	c.JSON(http.StatusOK, gin.H{
		"pages":        pages,
		"failed_pages": failed,
	})
}

type saveReq struct {
	Title string `json:"title"`
}

func (h *Handler) save(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	saved, err := h.Manager.Save(c.Request.Context(), claims.UserID, req.Title)
	if err != nil {
		if errors.Is(err, ErrWrongStage) || errors.Is(err, ErrNoPages) || errors.Is(err, story.ErrNoOwner) {
			writeWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) reset(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	h.Manager.Reset(claims.UserID)
	c.JSON(http.StatusOK, h.Manager.Snapshot(claims.UserID))
}

// writeWorkflowError maps domain errors onto HTTP statuses. Raw provider
// errors never reach here; the orchestrators convert them first.
func writeWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrWrongStage), errors.Is(err, ErrBatchInFlight), errors.Is(err, ErrNoPages):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, story.ErrNoOwner):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	var ce *provider.ConfigError
	if errors.As(err, &ce) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ce.Error()})
		return
	}

	if ge, ok := generate.AsGenerationError(err); ok {
		switch ge.Kind {
		case generate.KindEmptyTheme:
			c.JSON(http.StatusBadRequest, gin.H{"error": "theme must not be empty"})
		case generate.KindTimeout:
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "story generation timed out, please retry"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "story generation failed, please retry"})
		}
		return
	}

	// config validation from Normalize and anything unexpected
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
