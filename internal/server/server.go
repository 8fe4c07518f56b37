package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/handler"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/repository"
	"github.com/mansoorceksport/liftlog/internal/service"
	"github.com/mansoorceksport/liftlog/internal/telemetry"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const idempotencyTTL = 24 * time.Hour

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	Store       domain.DocumentStore
	RedisClient *redis.Client              // optional, enables caching and idempotency
	Archive     domain.SessionArchive      // optional
	AuthClient  middleware.IDTokenVerifier // required when AUTH_MODE=firebase
	Clock       domain.Clock               // defaults to the system clock in Config.Location
	NewTicker   service.TickerFactory      // defaults to service.NewStdTicker
}

// NewApp creates and configures the Fiber application with the given dependencies.
// The returned shutdown func stops the rest timers of sessions still in memory.
func NewApp(deps AppDependencies) (*fiber.App, func()) {
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock{Location: deps.Config.Location}
	}
	newTicker := deps.NewTicker
	if newTicker == nil {
		newTicker = service.NewStdTicker
	}

	// Initialize repositories
	var history domain.SessionHistoryRepository = repository.NewDocumentSessionHistory(deps.Store)
	var cache domain.CacheRepository
	if deps.RedisClient != nil {
		redisRepo := repository.NewRedisCacheRepository(deps.RedisClient)
		history = repository.NewCachedSessionHistory(history, redisRepo)
		cache = redisRepo
	}

	// Initialize services
	aggregator := service.NewMetricsAggregator(deps.Store, clock, deps.Config.Goals)
	workoutService := service.NewWorkoutService(history, aggregator, deps.Archive, clock, newTicker)
	progressService := service.NewProgressService(history, aggregator, cache, clock)

	// Initialize handlers
	workoutHandler := handler.NewWorkoutHandler(workoutService)
	activityHandler := handler.NewActivityHandler(aggregator, clock)
	progressHandler := handler.NewProgressHandler(progressService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LiftLog API",
		BodyLimit:    int(deps.Config.Server.BodyLimitKB * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "liftlog",
		})
	})

	// API v1 routes, everything is scoped to the authenticated user
	me := app.Group("/v1/me", authMiddleware(deps))
	if deps.RedisClient != nil {
		me.Use(middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL))
	}

	// ===========================================
	// LIVE WORKOUT SESSIONS
	// ===========================================
	sessions := me.Group("/sessions")
	sessions.Post("/", workoutHandler.StartSession)
	sessions.Get("/:id", workoutHandler.GetSession)
	sessions.Delete("/:id", workoutHandler.AbandonSession)
	sessions.Post("/:id/sets", workoutHandler.RecordSet)
	sessions.Post("/:id/confirm", workoutHandler.ConfirmExercise)
	sessions.Post("/:id/skip", workoutHandler.SkipExercise)
	sessions.Post("/:id/finish", workoutHandler.FinishSession)
	sessions.Post("/:id/timer/adjust", workoutHandler.AdjustRest) // before :action
	sessions.Post("/:id/timer/:action", workoutHandler.ControlRest)

	// ===========================================
	// DAILY ACTIVITY & WEEKLY PROGRESS
	// ===========================================
	activity := me.Group("/activity")
	activity.Post("/metrics", activityHandler.RecordMetric)
	activity.Put("/goals", activityHandler.UpdateGoal)
	activity.Post("/week/ensure", activityHandler.EnsureWeek)
	activity.Post("/workouts", activityHandler.RecordWorkout)
	activity.Get("/today", activityHandler.Today)

	// ===========================================
	// PROGRESS ANALYTICS
	// ===========================================
	progress := me.Group("/progress")
	progress.Get("/history", progressHandler.GetHistory)
	progress.Get("/records", progressHandler.GetPersonalRecords)
	progress.Get("/frequency", progressHandler.GetFrequency)
	progress.Get("/overview", progressHandler.GetOverview)

	return app, workoutService.Close
}

func authMiddleware(deps AppDependencies) fiber.Handler {
	switch deps.Config.Auth.Mode {
	case config.AuthFirebase:
		return middleware.FirebaseAuth(deps.AuthClient)
	case config.AuthDev:
		return middleware.DevAuth()
	default:
		return middleware.VerifyToken(deps.Config.Auth.JWTSecret)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := handler.StatusFor(err)
	log.WithError(err).WithFields(log.Fields{"path": c.Path(), "status": code}).Warn("unhandled request error")
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
