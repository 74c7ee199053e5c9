package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// ScopeWrite allows segmentation runs and flashcard export.
const ScopeWrite = "write"

type Handler struct {
	// PasswordHash is a bcrypt hash of the operator password. Empty disables
	// token issuing.
	PasswordHash string
	Tokens       TokenService
}

func NewHandler(passwordHash string, tokens TokenService) *Handler {
	return &Handler{PasswordHash: passwordHash, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token", h.token)                // POST /auth/token
	rg.GET("/me", Middleware(h.Tokens), h.me) // GET /auth/me
}

var ErrPasswordLength = errors.New("password must be 8-72 chars")

type tokenReq struct {
	Password string `json:"password"`
}

func (h *Handler) token(c *gin.Context) {
	if h.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token issuing disabled"})
		return
	}

	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := h.Tokens.Sign(ScopeWrite)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subject":    claims.Subject,
		"scope":      claims.Scope,
		"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// HashPassword returns the bcrypt hash to store in auth.password_hash.
func HashPassword(password string) (string, error) {
	if len(password) < 8 || len(password) > 72 {
		return "", ErrPasswordLength
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
