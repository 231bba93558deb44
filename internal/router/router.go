package router

import (
	"net/http"
	"time"

	"salescrm/internal/apierror"
	"salescrm/internal/config"
	"salescrm/internal/handler"
	"salescrm/internal/middleware"
	"salescrm/internal/repository"
	"salescrm/internal/service"
	"salescrm/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// notifier may be nil when entry notifications are off; rdb may be nil when
// no Redis is configured.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sessions *session.Manager, notifier service.EntryNotifier) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		r.Use(middleware.CORS(origins))
	}
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apierror.New("Not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, apierror.New("Method not allowed"))
	})

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	entryRepo := repository.NewCRMEntryRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, sessions, cfg.BcryptCost, cfg.LoginRedirect)
	crmSvc := service.NewCRMService(entryRepo, notifier)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc, handler.CookieSettings{
		Name:   cfg.SessionCookieName,
		Secure: cfg.SessionCookieSecure,
		MaxAge: sessions.TTL(),
	})
	crmH := handler.NewCRMHandler(crmSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.POST("/register", authH.Register)
	r.POST("/login", middleware.LoginRateLimiter(20, time.Minute), authH.Login)

	optional := middleware.OptionalSession(sessions, cfg.SessionCookieName)
	r.GET("/logout", optional, authH.Logout)
	r.POST("/logout", optional, authH.Logout)

	// Protected routes
	authed := r.Group("/", middleware.RequireSession(sessions, cfg.SessionCookieName))
	{
		authed.POST("/submit_crm", crmH.SubmitCRM)
		authed.GET("/get_crm_entries", crmH.GetCRMEntries)
		authed.DELETE("/clear_crm_entries", crmH.ClearCRMEntries)
		authed.GET("/crm_entries/report.pdf", crmH.Report)

		// Destructive; absent (404) unless explicitly enabled.
		if cfg.AdminResetEnabled {
			authed.GET("/reset_users", authH.ResetUsers)
		}
	}

	return r
}
