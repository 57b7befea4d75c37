package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"

	MsgCSRF = "Platnost formuláře vypršela. Obnovte prosím stránku."
)

// CSRF implements the double submit cookie check. Safe requests receive a
// token cookie when they do not carry one yet; unsafe requests must echo the
// cookie value in the X-CSRF-Token header.
func CSRF(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(CSRFCookieName)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if err != nil || cookie == "" {
				c.SetSameSite(http.SameSiteStrictMode)
				// Readable by scripts so the frontend can copy it into the header.
				c.SetCookie(CSRFCookieName, uuid.NewString(), 0, "/", "", secureCookies, false)
			}
			c.Next()
			return
		}

		header := c.GetHeader(CSRFHeaderName)
		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": MsgCSRF})
			return
		}
		c.Next()
	}
}
