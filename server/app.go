package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warden/config"
	"warden/internal/access"
	"warden/internal/alerts"
	"warden/internal/auth"
	"warden/internal/db"
	"warden/internal/devices"
	"warden/internal/health"
	"warden/internal/intrusion"
	"warden/internal/logs"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/rules"
	"warden/internal/stats"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	db       *gorm.DB
	sessions *auth.Manager
	engine   *access.Engine
	ctx      context.Context
	cancel   context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	// 1) Логи
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	// 2) БД
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if d == nil {
		log.Fatalf("database is required (set database.driver)")
	}
	a.db = d

	// ---- DB migrations ----
	if err := a.db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.Device{},
		&models.DeviceLog{},
		&models.SecurityAlert{},
		&models.BlockedAttempt{},
		&models.SecurityRule{},
		&models.SystemMetric{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}
	if err := db.MigrateAuditIndexes(a.db); err != nil {
		logs.Logger.Warnf("audit indexes migration: %v", err)
	}

	// bootstrap-админ (только на пустой базе)
	if err := auth.EnsureAdmin(a.db, a.cfg.Auth.AdminUser, a.cfg.Auth.AdminPassword); err != nil {
		logs.Logger.Errorf("ensure admin: %v", err)
	}

	// 3) Роутер + middleware
	a.Router = mux.NewRouter()
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(middleware.LoggerMW)

	a.RegisterWebUI("/ui/")
	health.RegisterRoutesWithDB(a.Router, a.db)

	// 4) Сессии и аутентификация
	a.sessions = auth.NewManager(a.db, a.cfg.Auth.SessionTTL)
	auth.NewHTTP(a.db, a.sessions, a.cfg.Auth.CookieSecure).RegisterRoutes(a.Router)

	// 5) Движок доступа к устройствам
	recorders := access.NewRecorders(a.db)
	resolver := access.NewRoleResolver(a.db)
	a.engine = access.NewEngine(a.db, resolver, recorders, access.NewTracker())
	access.NewHTTP(a.engine, a.sessions).RegisterRoutes(a.Router)

	// 6) API дашборда
	devices.NewHTTP(devices.NewRepo(a.db), a.sessions).RegisterRoutes(a.Router)
	alerts.NewHTTP(alerts.NewRepo(a.db), a.sessions).RegisterRoutes(a.Router)
	intrusion.NewHTTP(intrusion.NewRepo(a.db), a.sessions).RegisterRoutes(a.Router)
	stats.NewService(a.db, a.sessions).RegisterRoutes(a.Router)
	rules.NewHTTP(a.db, a.sessions).RegisterRoutes(a.Router)

	a.Router.Walk(func(rt *mux.Route, r *mux.Router, ancestors []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; a.cancel() }()

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(ctx)
	return nil
}

var ErrNotInitialized = &initError{"server not initialized (call Initialize(cfg) first)"}

type initError struct{ s string }

func (e *initError) Error() string { return e.s }
