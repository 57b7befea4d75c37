// Package httpapi exposes the calculator, the server side wizard, the
// session flags and the lead administration over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webcalc/internal/bot"
	"webcalc/internal/calculator"
	"webcalc/internal/leads"
	"webcalc/internal/middleware"
	"webcalc/internal/session"
	"webcalc/internal/wizard"
)

// LeadStore is the admin view of stored leads.
type LeadStore interface {
	bot.LeadStore
	Ping(ctx context.Context) error
}

// Archiver uploads a workbook and returns where it can be downloaded.
type Archiver interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type Options struct {
	AllowedOrigins []string
	TrustedProxies []string
	SecureCookies  bool
	JWTSecret      []byte
	TokenTTL       time.Duration

	// Back-office password login. Disabled when either is empty.
	AdminEmail        string
	AdminPasswordHash []byte
}

// Deps are the services behind the handlers. Archive may be nil.
type Deps struct {
	Engine  *calculator.Engine
	Leads   *leads.Service
	Wizard  *wizard.Service
	Popups  *session.Popups
	Store   LeadStore
	Archive Archiver
	Logger  *zap.Logger
}

type Server struct {
	Deps
	opts Options
}

func NewRouter(deps Deps, opts Options) (*gin.Engine, error) {
	s := &Server{Deps: deps, opts: opts}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(middleware.Recovery(s.Logger), middleware.RequestLogger(s.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.CSRFHeaderName},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.Use(middleware.BlockBots(s.Logger), middleware.CSRF(opts.SecureCookies))
	{
		api.GET("/calculator/catalog", s.catalog)
		api.POST("/calculator/estimate", s.estimate)
		api.POST("/calculator", s.submitLead)

		wz := api.Group("/wizard")
		wz.POST("", s.startWizard)
		wz.GET("/:id", s.getWizard)
		wz.DELETE("/:id", s.discardWizard)
		wz.PATCH("/:id", s.updateWizard)
		wz.PUT("/:id/project-type", s.selectProjectType)
		wz.POST("/:id/addons/:addon", s.toggleAddon)
		wz.POST("/:id/next", s.nextStep)
		wz.POST("/:id/back", s.previousStep)
		wz.POST("/:id/submit", s.submitWizard)

		api.POST("/session/exit-intent", s.exitIntent)
		api.GET("/session/bar", s.barState)
		api.POST("/session/bar/dismiss", s.dismissBar)
	}

	r.POST("/admin/login", middleware.BlockBots(s.Logger), s.login)

	admin := r.Group("/admin")
	admin.Use(middleware.Auth(opts.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.GET("/leads", s.listLeads)
		admin.GET("/leads/export", s.exportLeads)
		admin.POST("/leads/archive", s.archiveLeads)
		admin.GET("/leads/:id", s.getLead)
		admin.PATCH("/leads/:id/status", s.updateLeadStatus)
		admin.GET("/stats", s.stats)
	}

	return r, nil
}

func (s *Server) health(c *gin.Context) {
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			s.Logger.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestMeta(c *gin.Context) leads.Meta {
	return leads.Meta{
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Referer:    c.Request.Referer(),
		ReceivedAt: time.Now(),
	}
}
