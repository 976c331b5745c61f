package bootstrap

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kiwimarket/backend-go/internal/auth"
	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/database"
	"github.com/kiwimarket/backend-go/internal/di"
	"github.com/kiwimarket/backend-go/internal/interfaces"
	"github.com/kiwimarket/backend-go/internal/knowledge"
	"github.com/kiwimarket/backend-go/internal/logger"
	"github.com/kiwimarket/backend-go/internal/services"
)

// App encapsulates the wired services and the resources that need to be
// closed on shutdown.
type App struct {
	Config        *config.Config
	Loader        *config.ConfigLoader
	KnowledgeBase *services.KnowledgeBaseService
	Support       *services.SupportService
	JWT           *auth.JWTService
	Health        *database.HealthChecker
	Readiness     Readiness

	cleanup *di.Cleanup
	log     interfaces.LoggerInterface
	cancel  context.CancelFunc
}

// Readiness exposes provider readiness for the health endpoint.
type Readiness struct {
	Embedder  knowledge.Embedder
	Store     knowledge.VectorStore
	Generator knowledge.Generator
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// Init loads .env and configuration, initializes the logger and builds every
// component through the DI container.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	loader := config.NewConfigLoader()
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if err := logger.InitLogger(cfg.Log.Level); err != nil {
		return nil, err
	}

	app, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	app.Loader = loader
	return app, nil
}

// Build wires the application from an already loaded configuration.
func Build(cfg *config.Config) (*App, error) {
	container := di.InitContainer()
	if err := di.RegisterProviders(container, cfg); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	err := container.Invoke(func(
		cleanup *di.Cleanup,
		appLogger interfaces.LoggerInterface,
		kb *services.KnowledgeBaseService,
		support *services.SupportService,
		jwtService *auth.JWTService,
		health *database.HealthChecker,
		embedder knowledge.Embedder,
		store knowledge.VectorStore,
		generator knowledge.Generator,
	) {
		app.cleanup = cleanup
		app.log = appLogger
		app.KnowledgeBase = kb
		app.Support = support
		app.JWT = jwtService
		app.Health = health
		app.Readiness = Readiness{Embedder: embedder, Store: store, Generator: generator}
	})
	if err != nil {
		// 部分组件可能已经打开
		if app.cleanup != nil {
			app.cleanup.Run(app.log)
		} else {
			_ = container.Invoke(func(cleanup *di.Cleanup) { cleanup.Run(nil) })
		}
		return nil, err
	}

	if app.Health != nil {
		ctx, cancel := context.WithCancel(context.Background())
		app.cancel = cancel
		go app.Health.Start(ctx)
		app.cleanup.Add("health-checker", func() error {
			app.Health.Stop()
			return nil
		})
	}

	logger.Info("Application initialized",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("vector_provider", cfg.Vector.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.Bool("admin_auth", app.JWT != nil),
		zap.Strings("resources", app.cleanup.Names()))

	return app, nil
}

// Shutdown closes resources in reverse order of opening and flushes the logger.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.cleanup != nil {
		for _, err := range a.cleanup.Run(a.log) {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
