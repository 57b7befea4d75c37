package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var botUserAgent = regexp.MustCompile(`(?i)(bot|crawler|spider|slurp|curl|wget|python-requests|httpclient|headless|phantomjs|scrapy)`)

// IsBotUserAgent reports whether ua is empty or looks like an automated client.
func IsBotUserAgent(ua string) bool {
	return ua == "" || botUserAgent.MatchString(ua)
}

// BlockBots refuses unsafe requests from automated user agents. Crawlers may
// still read.
func BlockBots(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		ua := c.Request.UserAgent()
		if IsBotUserAgent(ua) {
			logger.Info("Blocked automated request",
				zap.String("ip", c.ClientIP()),
				zap.String("user_agent", ua),
				zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
			return
		}
		c.Next()
	}
}
