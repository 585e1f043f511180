// api/router.go
package api

import (
	"database/sql"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/loomworks/loom-backend/api/handlers"
	"github.com/loomworks/loom-backend/api/middleware"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/fetch"
	"github.com/loomworks/loom-backend/internal/inquiry"
	"github.com/loomworks/loom-backend/internal/join"
	"github.com/loomworks/loom-backend/internal/knowledge"
	"github.com/loomworks/loom-backend/internal/llm"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(metaDB *sql.DB, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.Default())
	ratelimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	router.Use(middleware.RateLimitMiddleware(ratelimiter))
	// Runs after Logger/Recovery but wraps the handlers.
	router.Use(middleware.ErrorHandler())

	// Shared outbound boundaries
	model := llm.NewClient(cfg)
	fetcher := fetch.NewClient(cfg.FetchTimeout)
	extractor := knowledge.NewExtractor(cfg.FetchTimeout)
	engine := join.NewEngine(fetcher)
	inquiryService := inquiry.NewService(metaDB, engine, model, cfg.InquiryDeadline)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(metaDB, cfg)
	connectionHandler := handlers.NewConnectionHandler(metaDB, cfg, fetcher)
	mappingHandler := handlers.NewMappingHandler(metaDB, cfg)
	categoryHandler := handlers.NewCategoryHandler(metaDB, cfg, model)
	inquiryHandler := handlers.NewInquiryHandler(metaDB, cfg, inquiryService)
	knowledgeHandler := handlers.NewKnowledgeHandler(metaDB, cfg, extractor, model)
	trainingHandler := handlers.NewTrainingHandler(metaDB, cfg, model)
	serviceAccountHandler := handlers.NewServiceAccountHandler(metaDB, cfg)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		apiRoutes.GET("/me", authHandler.Me)

		apiRoutes.POST("/connections", connectionHandler.Connect)

		apiRoutes.GET("/tables", mappingHandler.ListTables)
		apiRoutes.POST("/mappings", mappingHandler.UpdateMapping)
		apiRoutes.GET("/relations", mappingHandler.ListRelations)
		apiRoutes.POST("/relations", mappingHandler.CreateRelation)
		apiRoutes.POST("/values", mappingHandler.CreateValueMapping)

		apiRoutes.GET("/categories", categoryHandler.ListCategories)
		apiRoutes.POST("/categories/generate", categoryHandler.GenerateCategories)
		apiRoutes.POST("/categories", categoryHandler.SaveCategories)

		apiRoutes.POST("/inquiries/prepare", inquiryHandler.Prepare)
		apiRoutes.GET("/inquiries", inquiryHandler.History)

		apiRoutes.POST("/knowledge", knowledgeHandler.Upload)
		apiRoutes.GET("/knowledge", knowledgeHandler.List)

		apiRoutes.POST("/training/data", trainingHandler.Upload)
		apiRoutes.GET("/training/data", trainingHandler.List)
		apiRoutes.DELETE("/training/data/:id", trainingHandler.Delete)
		apiRoutes.POST("/training/models", trainingHandler.CreateModel)
		apiRoutes.GET("/training/models", trainingHandler.ListModels)

		apiRoutes.POST("/service-accounts", serviceAccountHandler.Register)
		apiRoutes.POST("/connectors/test", serviceAccountHandler.TestConnector)
	}

	return router
}
