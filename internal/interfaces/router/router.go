package router

import (
	"context"
	"errors"
	"net/http"

	authsvc "stayloft-backend/internal/application/auth"
	healthsvc "stayloft-backend/internal/application/health"
	"stayloft-backend/internal/application/inventory"
	"stayloft-backend/internal/application/notify"
	propsvc "stayloft-backend/internal/application/properties"
	reportsvc "stayloft-backend/internal/application/reports"
	usersvc "stayloft-backend/internal/application/users"
	"stayloft-backend/internal/config"
	"stayloft-backend/internal/infrastructure/cache"
	"stayloft-backend/internal/infrastructure/database"
	"stayloft-backend/internal/infrastructure/messaging"
	authhandler "stayloft-backend/internal/interfaces/handlers/auth"
	healthhandler "stayloft-backend/internal/interfaces/handlers/health"
	prophandler "stayloft-backend/internal/interfaces/handlers/properties"
	reporthandler "stayloft-backend/internal/interfaces/handlers/reports"
	userhandler "stayloft-backend/internal/interfaces/handlers/users"
	"stayloft-backend/internal/middleware"
	"stayloft-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const cachePrefix = "stayloft"

// Deps are the connections the app is built on.
type Deps struct {
	DB        *gorm.DB
	Rdb       *redis.Client
	Publisher messaging.Publisher
}

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateApp opens the database, Redis and the broker named by cfg and builds the app on them.
func CreateApp(cfg *config.Config) (*fiber.App, Deps, error) {
	if cfg.DatabaseURL == "" {
		return nil, Deps{}, errors.New("router: DATABASE_URL is required")
	}
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, Deps{}, err
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return nil, Deps{}, err
		}
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, Deps{}, err
	}
	deps := Deps{DB: db, Rdb: redis.NewClient(opt), Publisher: messaging.Nop{}}
	if cfg.AMQPURL != "" {
		deps.Publisher = messaging.NewAMQPPublisher(cfg.AMQPURL)
	} else {
		log.Info().Msg("AMQP_URL not set; inventory events are not published")
	}
	return New(cfg, deps), deps, nil
}

// New wires services and handlers on deps. deps.DB and deps.Rdb must be set.
func New(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	timeout := cfg.PersistenceTimeout
	store := cache.New(deps.Rdb, cachePrefix, cfg.CacheTTL)
	notifier := &notify.Notifier{Cache: store, Publisher: deps.Publisher}
	users := &usersvc.Service{DB: deps.DB, Timeout: timeout}
	inv := &inventory.Service{DB: deps.DB, Timeout: timeout, Notifier: notifier}
	props := &propsvc.Service{DB: deps.DB, Timeout: timeout, Inventory: inv, Cache: store, Notifier: notifier}
	reports := &reportsvc.Service{DB: deps.DB, Timeout: timeout}

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.SessionWithClient(deps.Rdb))
	if cfg.JWTSecret != "" {
		app.Use(middleware.BearerIdentity(authsvc.NewTokenVerifier(cfg.JWTSecret), users))
	}
	app.Use(middleware.HealthMarker(deps.Rdb))

	healthDeps := healthsvc.Dependencies{Database: &gormDBPinger{db: deps.DB}}
	if p, ok := deps.Publisher.(healthsvc.Pinger); ok {
		healthDeps.Broker = p
	}
	hh := &healthhandler.Handlers{Rdb: deps.Rdb, Deps: healthDeps, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	ah := &authhandler.Handlers{
		UserFinder: &authsvc.GormUserFinder{DB: deps.DB},
		Users:      users,
		Rdb:        deps.Rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	uh := &userhandler.Handlers{Service: users, Rdb: deps.Rdb, Config: sessionCfg}
	app.Post("/api/v1/users/register", uh.Register)
	ug := app.Group("/api/v1/users/me", middleware.RequireAuth())
	ug.Get("/", uh.Me)
	ug.Get("/role", uh.Role)
	ug.Patch("/role", uh.UpdateRole)
	ug.Put("/profile", uh.UpdateProfile)

	ph := &prophandler.Handlers{Properties: props, Inventory: inv}
	rh := &reporthandler.Handlers{Service: reports}
	manage := middleware.AuthorizePermission(constants.ManageProperties)
	pg := app.Group("/api/v1/properties")
	pg.Get("/", ph.Search)
	pg.Get("/nearby", ph.Nearby)
	pg.Get("/mine", middleware.RequireAuth(), ph.Mine)
	pg.Get("/:id", ph.Get)
	pg.Post("/", manage, ph.Create)
	pg.Put("/:id", manage, ph.Update)
	pg.Delete("/:id", manage, ph.Delete)
	pg.Get("/:id/rooms/availability", manage, ph.RoomAvailability)
	pg.Patch("/:id/rooms/availability", manage, ph.UpdateRoomAvailability)
	pg.Put("/:id/rooms", manage, ph.ReplaceRooms)
	pg.Patch("/:id/rooms/:roomId/toggle-active", manage, ph.ToggleRoomActive)
	pg.Patch("/:id/rooms/:roomId/available-beds", manage, ph.SetAvailableBeds)
	pg.Patch("/:id/rooms/:roomId/capacity", manage, ph.SetCapacity)
	pg.Get("/:id/inventory-events", manage, ph.Events)
	pg.Get("/:id/inventory/export", middleware.AuthorizePermission(constants.ExportInventory), rh.InventoryExport)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
