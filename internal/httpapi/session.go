package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionCookieName = "calc_sid"

// browserSession returns the visitor's session id, issuing a session cookie
// on first use.
func (s *Server) browserSession(c *gin.Context) string {
	if sid, err := c.Cookie(sessionCookieName); err == nil && sid != "" {
		return sid
	}
	sid := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, sid, 0, "/", "", s.opts.SecureCookies, true)
	return sid
}

// exitIntent answers whether the exit popup may open. It says yes once per
// browser session.
func (s *Server) exitIntent(c *gin.Context) {
	show, err := s.Popups.ShowExitIntent(c.Request.Context(), s.browserSession(c))
	if err != nil {
		s.Logger.Warn("Exit intent flag unavailable", zap.Error(err))
		show = false
	}
	c.JSON(http.StatusOK, gin.H{"show": show})
}

func (s *Server) barState(c *gin.Context) {
	dismissed, err := s.Popups.BarDismissed(c.Request.Context(), s.browserSession(c))
	if err != nil {
		s.Logger.Warn("Bar flag unavailable", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"visible": !dismissed})
}

func (s *Server) dismissBar(c *gin.Context) {
	if err := s.Popups.DismissBar(c.Request.Context(), s.browserSession(c)); err != nil {
		s.Logger.Warn("Failed to store bar dismissal", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"visible": false})
}
