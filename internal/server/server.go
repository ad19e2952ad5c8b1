package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/yuuki2014/white-map/internal/auth"
	"github.com/yuuki2014/white-map/internal/config"
	"github.com/yuuki2014/white-map/internal/footprint"
	"github.com/yuuki2014/white-map/internal/geometry"
	"github.com/yuuki2014/white-map/internal/mymap"
	"github.com/yuuki2014/white-map/internal/recorder"
	"github.com/yuuki2014/white-map/internal/stream"
	"github.com/yuuki2014/white-map/internal/trip"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	mymapSvc := mymap.NewService(s.DB, s.Redis, time.Duration(s.Cfg.MyMapCacheTTLSec)*time.Second)
	footprintSvc := footprint.NewService(s.DB, mymapSvc, s.Cfg.FootprintPrecision)
	tripSvc := trip.NewService(s.DB)

	recorderCfg := recorder.Config{
		MinDistanceMeters:  s.Cfg.MinDistanceMeters,
		ForceInterval:      time.Duration(s.Cfg.ForceRecordMs) * time.Millisecond,
		FlushInterval:      time.Duration(s.Cfg.FlushIntervalMs) * time.Millisecond,
		FootprintPrecision: s.Cfg.FootprintPrecision,
		RevealPrecision:    s.Cfg.RevealPrecision,
	}
	manager := recorder.NewManager(
		recorderCfg,
		geometry.Polygol{},
		&localPoster{footprints: footprintSvc},
		&tileSource{mymap: mymapSvc},
		&liveRenderer{hub: s.Stream},
	)

	trip.RegisterRoutes(s.App.Group("/trips"), tripSvc, jwtMiddleware)
	footprint.RegisterRoutes(s.App.Group("/trips"), footprintSvc, jwtMiddleware)
	mymap.RegisterRoutes(s.App, mymapSvc, jwtMiddleware)
	recorder.RegisterRoutes(s.App.Group("/recorder"), manager, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
