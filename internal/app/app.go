package app

import (
	"net/http"
	"time"

	"bulkcert-backend/internal/bulk"
	"bulkcert-backend/internal/config"
	"bulkcert-backend/internal/database"
	"bulkcert-backend/internal/emails"
	"bulkcert-backend/internal/health"
	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/middleware"
	"bulkcert-backend/internal/objectives"
	"bulkcert-backend/internal/pdf"
	"bulkcert-backend/internal/storage"
	"bulkcert-backend/internal/template"
	"bulkcert-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. The returned DB may be nil when DATABASE_URL is unset
// (tests); in that state only the health routes respond.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedSuffix: cfg.CORSSuffix}))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
	}

	store := &storage.DiskStore{Root: cfg.StorageDir}

	var dbPinger health.DBPinger
	if db != nil {
		dbPinger = &database.Pinger{DB: db}
	}
	healthHandlers := &health.Handlers{DB: dbPinger, Store: store}
	app.Get("/health", healthHandlers.Live)
	app.Get("/health/json", healthHandlers.JSON)

	if db == nil {
		return app, nil, nil
	}

	mail := &emails.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}
	renderer := &pdf.Writer{}

	objectiveService := &objectives.Service{DB: db, CodeRule: cfg.ObjectiveCodeRule}
	groupResolver := &objectives.GroupResolver{
		URI:      cfg.WSURI,
		User:     cfg.WSUser,
		Password: cfg.WSPassword,
		Client:   &http.Client{Timeout: 20 * time.Second},
	}
	userService := &users.Service{DB: db, Mail: mail, DefaultEmail: cfg.DefaultEmail}
	templateService := &template.Service{DB: db, Store: store}
	issueStore := &issues.Store{DB: db, Blobs: store}

	orchestrator := &bulk.Orchestrator{
		DB:         db,
		Log:        log.Logger,
		Templates:  templateService,
		Users:      userService,
		Issues:     issueStore,
		Renderer:   renderer,
		Mail:       mail,
		VerifyBase: cfg.VerifyBaseURL,
		DateFormat: cfg.CertDateFormat,
	}
	rebuilder := &bulk.Rebuilder{
		DB:         db,
		Log:        log.Logger,
		Templates:  templateService,
		Issues:     issueStore,
		Renderer:   renderer,
		VerifyBase: cfg.VerifyBaseURL,
		DateFormat: cfg.CertDateFormat,
	}
	archiver := &bulk.Archiver{DB: db, Log: log.Logger, Issues: issueStore}
	queries := &bulk.Queries{DB: db, Issues: issueStore}

	// Objectives module
	objectiveHandlers := &objectives.Handlers{Service: objectiveService, Groups: groupResolver}
	objectiveGroup := app.Group("/api/v1/objectives")
	objectiveGroup.Post("/", objectiveHandlers.Add)
	objectiveGroup.Get("/", objectiveHandlers.List)
	objectiveGroup.Post("/import", objectiveHandlers.Import)
	objectiveGroup.Get("/:id/group", objectiveHandlers.Group)
	objectiveGroup.Delete("/:id", objectiveHandlers.Delete)

	// Templates module
	templateHandlers := &template.Handlers{Service: templateService}
	templateGroup := app.Group("/api/v1/templates")
	templateGroup.Get("/", templateHandlers.List)
	templateGroup.Get("/:id", templateHandlers.Get)

	// Bulk module
	bulkHandlers := &bulk.Handlers{
		Orchestrator: orchestrator,
		Rebuilder:    rebuilder,
		Archiver:     archiver,
		Queries:      queries,
		Objectives:   objectiveService,
		Groups:       groupResolver,
		Users:        userService,
	}
	bulkGroup := app.Group("/api/v1/bulk")
	bulkGroup.Post("/issue", bulkHandlers.Issue)
	bulkGroup.Get("/", bulkHandlers.Search)
	bulkGroup.Post("/rebuild", bulkHandlers.Rebuild)
	bulkGroup.Get("/users/:username/issues", bulkHandlers.UserHistory)
	bulkGroup.Get("/:id/certified", bulkHandlers.Certified)
	bulkGroup.Get("/:id", bulkHandlers.Get)
	bulkGroup.Get("/:id/archive", bulkHandlers.Archive)
	bulkGroup.Delete("/issues/:id", bulkHandlers.DeleteIssue)
	bulkGroup.Delete("/:id", bulkHandlers.Delete)

	// Issues module: downloads plus the public verification endpoint
	issueHandlers := &issues.Handlers{Store: issueStore, DB: db, Rebuild: rebuilder}
	app.Get("/verify", issueHandlers.Verify)
	app.Get("/api/v1/issues/:id/download", issueHandlers.Download)

	return app, db, nil
}

// Handler returns the Fiber app as a net/http handler.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
