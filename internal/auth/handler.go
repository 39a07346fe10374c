package auth

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"picbook/pkg/utils"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	Cfg    utils.AuthConfig
}

func NewHandler(repo *Repo, tokens TokenService, cfg utils.AuthConfig) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/send-code", h.sendCode)
	rg.POST("/verify", h.verify)
	rg.POST("/logout", AuthMiddleware(h.Tokens, h.Repo), h.logout)
}

var phoneRe = regexp.MustCompile(`^\+?\d{5,20}$`)

type sendCodeReq struct {
	Phone string `json:"phone"`
}

func (h *Handler) sendCode(c *gin.Context) {
	var req sendCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	phone := strings.TrimSpace(req.Phone)
	if !phoneRe.MatchString(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	code := h.Cfg.DevCode
	if code == "" {
		code = randomCode()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	lc := LoginCode{
		Phone:     phone,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(h.Cfg.CodeTTL),
	}
	if err := h.Repo.UpsertLoginCode(c.Request.Context(), lc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store code failed"})
		return
	}

	// There is no real SMS gateway; the code goes to the server log,
	// same as the mock the product shipped with.
	log.Printf("[auth] verification code for %s: %s", phone, code)

	c.JSON(http.StatusOK, gin.H{
		"status":     "code sent",
		"expires_in": int(h.Cfg.CodeTTL.Seconds()),
	})
}

type verifyReq struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	phone := strings.TrimSpace(req.Phone)
	code := strings.TrimSpace(req.Code)
	if phone == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone and code required"})
		return
	}

	lc, err := h.Repo.GetLoginCode(c.Request.Context(), phone)
	if err != nil || lc == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	if time.Now().After(lc.ExpiresAt) {
		_ = h.Repo.DeleteLoginCode(c.Request.Context(), phone)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "code expired"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(lc.CodeHash), []byte(code)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	// single use
	_ = h.Repo.DeleteLoginCode(c.Request.Context(), phone)

	u, err := h.Repo.GetByPhone(c.Request.Context(), phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if u == nil {
		// first login creates the account
		created := User{ID: uuid.NewString(), Phone: phone}
		if err := h.Repo.CreateUser(c.Request.Context(), created); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
			return
		}
		u = &created
	}

	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    u.ID,
			"phone": u.Phone,
		},
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// crypto/rand failing means something is badly wrong; still
		// return a valid (if weak) code rather than crash a login.
		return "0000"
	}
	return fmt.Sprintf("%04d", n.Int64())
}
