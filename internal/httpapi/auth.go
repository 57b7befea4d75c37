package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webcalc/internal/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login exchanges the back-office credentials for an admin token.
func (s *Server) login(c *gin.Context) {
	if s.opts.AdminEmail == "" || len(s.opts.AdminPasswordHash) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "password login is disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(strings.ToLower(s.opts.AdminEmail))) == 1
	// Always run bcrypt so a wrong e-mail costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(s.opts.AdminPasswordHash, []byte(req.Password))
	if !emailOK || passErr != nil {
		s.Logger.Warn("Admin login failed", zap.String("email", email), zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := middleware.GenerateToken(s.opts.JWTSecret, email, middleware.RoleAdmin, s.opts.TokenTTL)
	if err != nil {
		s.Logger.Error("Failed to issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	s.Logger.Info("Admin logged in", zap.String("email", email))
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresIn": int(s.opts.TokenTTL.Seconds())})
}
