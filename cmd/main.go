package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/examgate/config"
	"github.com/lshigami/examgate/database"
	_ "github.com/lshigami/examgate/docs" // Swagger docs - auto-generated
	"github.com/lshigami/examgate/internal/apperr"
	candidatectrl "github.com/lshigami/examgate/internal/controller/candidate"
	opsctrl "github.com/lshigami/examgate/internal/controller/ops"
	"github.com/lshigami/examgate/internal/dto"
	"github.com/lshigami/examgate/internal/logger"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/repository"
	"github.com/lshigami/examgate/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Exam Gate API
// @version 1.0
// @description PIN-gated timed exam attempt service: PIN validation, attempt lifecycle, answer saving, integrity events and grading.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
		),

		// Repositories Layer
		fx.Provide(
			repository.NewExamRepository,
			repository.NewPinRepository,
			repository.NewCandidateRepository,
			repository.NewAttemptRepository,
			repository.NewAnswerRepository,
			repository.NewIntegrityEventRepository,
			repository.NewResultRepository,
			repository.NewAnalyticsRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewScoringService,
			service.NewIntegrityService,
			service.NewAnalyticsService,
			service.NewPinService,
			service.NewSubmissionService,
			service.NewAttemptService,
			service.NewAnswerService,
			service.NewEventService,
		),

		// API Controllers Layer
		fx.Provide(
			candidatectrl.NewCandidateController,
			opsctrl.NewOpsController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(SameOriginMiddleware(origins))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// SameOriginMiddleware rejects cross-site mutating requests. CORS alone only
// constrains browsers that honor it; this check also stops simple-form CSRF
// by requiring any supplied Origin header to match the allow-list.
func SameOriginMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(ctx *gin.Context) {
		switch ctx.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			ctx.Next()
			return
		}
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" || allowed[strings.TrimRight(origin, "/")] {
			ctx.Next()
			return
		}
		log.Warn().Str("origin", origin).Str("path", ctx.Request.URL.Path).Msg("Cross-site write rejected")
		ctx.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
			Code:    string(apperr.CodeCSRFRejected),
			Message: "cross-site requests are not allowed",
		})
	}
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	candidateCtrl *candidatectrl.CandidateController,
	opsCtrl *opsctrl.OpsController,
) {
	candidateCtrl.RegisterRoutes(router)
	opsCtrl.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Exam Gate API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Exam{},
		&model.Question{},
		&model.ExamPin{},
		&model.PinAllowListEntry{},
		&model.PinValidationAttempt{},
		&model.Candidate{},
		&model.Attempt{},
		&model.Answer{},
		&model.AnswerRevision{},
		&model.IntegrityEvent{},
		&model.Result{},
		&model.ExamDailyStat{},
		&model.QuestionStat{},
		&model.QuestionAnswerShape{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
