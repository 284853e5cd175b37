package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/handler"
	"github.com/memo-edu/memo-api/internal/middleware"
	"github.com/memo-edu/memo-api/internal/service"
	"github.com/memo-edu/memo-api/pkg/logger"
	corsmiddleware "github.com/memo-edu/memo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/memo-edu/memo-api/pkg/middleware/requestid"
)

// Options shapes the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	// PublicDir is served under /storage when set.
	PublicDir string
}

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth     *handler.AuthHandler
	Academic *handler.AcademicHandler
	Subject  *handler.SubjectHandler
	Content  *handler.ContentHandler
	Bookmark *handler.BookmarkHandler
	Progress *handler.ProgressHandler
	Planner  *handler.PlannerHandler
	Quiz     *handler.QuizHandler
	Metrics  *handler.MetricsHandler
}

// New builds the gin engine with the global middleware chain and every API route.
func New(opts Options, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if opts.PublicDir != "" {
		r.Static("/storage", opts.PublicDir)
	}

	authRequired := middleware.JWT(tokens)
	authOptional := middleware.OptionalJWT(tokens)

	api := r.Group(opts.APIPrefix)
	{
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", authRequired, h.Auth.Me)

		academic := api.Group("/academic")
		{
			academic.GET("/structure", h.Academic.Structure)
			academic.GET("/phases", h.Academic.Phases)
			academic.GET("/phases/:id/years", h.Academic.PhaseYears)
			academic.GET("/years/:id/streams", h.Academic.YearStreams)
		}

		profile := api.Group("/profile", authRequired)
		{
			profile.GET("/academic", h.Academic.Profile)
			profile.PUT("/academic", h.Academic.UpdateProfile)
		}

		subjects := api.Group("/subjects")
		{
			subjects.GET("", authOptional, h.Subject.List)
			subjects.GET("/by-academic", h.Subject.ByAcademic)
			subjects.GET("/:id", authOptional, h.Subject.Get)
			subjects.GET("/:id/progress", authRequired, h.Progress.SubjectProgress)
		}

		// The signed token authorises /file, so it sits outside the JWT groups.
		api.GET("/contents/:id/file", h.Content.File)

		contents := api.Group("/contents", authOptional)
		{
			contents.GET("", h.Content.List)
			contents.GET("/search", h.Content.Search)
			contents.GET("/types", h.Content.Types)
			contents.GET("/chapters", h.Content.Chapters)
			contents.GET("/:id", h.Content.Show)
			contents.GET("/:id/download", h.Content.Download)
		}
		api.GET("/chapters/:id/contents", authOptional, h.Content.ChapterContents)

		userContents := api.Group("/contents/:id", authRequired)
		{
			userContents.GET("/bookmark", h.Bookmark.Check)
			userContents.POST("/bookmark", h.Bookmark.Store)
			userContents.DELETE("/bookmark", h.Bookmark.Destroy)
			userContents.GET("/progress", h.Progress.Get)
			userContents.POST("/progress", h.Progress.Update)
			userContents.POST("/complete", h.Progress.Complete)
			userContents.POST("/rate", h.Progress.Rate)
			userContents.GET("/rating", h.Progress.Rating)
		}

		bookmarks := api.Group("/bookmarks", authRequired)
		{
			bookmarks.GET("", h.Bookmark.List)
			bookmarks.GET("/count", h.Bookmark.Count)
		}

		api.GET("/progress", authRequired, h.Progress.List)

		planner := api.Group("/planner/subjects", authRequired)
		{
			planner.GET("", h.Planner.List)
			planner.POST("/batch", h.Planner.BatchCreate)
			planner.GET("/export", h.Planner.Export)
			planner.GET("/:id", h.Planner.Get)
			planner.PUT("/:id", h.Planner.Update)
			planner.DELETE("/:id", h.Planner.Delete)
		}

		quizzes := api.Group("/quizzes", authRequired)
		{
			quizzes.GET("", h.Quiz.List)
			quizzes.GET("/:id", h.Quiz.Show)
			quizzes.POST("/:id/start", h.Quiz.Start)
		}

		attempts := api.Group("/quiz-attempts/:id", authRequired)
		{
			attempts.POST("/answer", h.Quiz.SaveAnswer)
			attempts.POST("/submit", h.Quiz.Submit)
			attempts.GET("/results", h.Quiz.Results)
			attempts.DELETE("/abandon", h.Quiz.Abandon)
		}
	}

	return r
}
