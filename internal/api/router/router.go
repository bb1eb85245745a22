package router

import (
	"github.com/gin-gonic/gin"

	"github.com/tdnguyen-dev/recognition-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	r.GET("/health", healthHandler.Health)

	jobHandler := handler.NewJobHandler(deps)
	walletHandler := handler.NewWalletHandler(deps)
	predictorHandler := handler.NewPredictorHandler(deps)

	// API v1 routes. Everything under /api/v1 requires a caller identity.
	v1 := r.Group("/api/v1")
	v1.Use(handler.IdentityMiddleware())
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit a new recognition job
			jobs.POST("", jobHandler.SubmitJob)

			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)

			// POST /api/v1/jobs/:job_id/cancel - Cancel a pending job
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)

			// GET /api/v1/jobs/:job_id/result - Wait for the job's result
			jobs.GET("/:job_id/result", jobHandler.GetJobResult)
		}

		wallet := v1.Group("/wallet")
		{
			// GET /api/v1/wallet - Current credit balance
			wallet.GET("", walletHandler.GetWallet)

			// POST /api/v1/wallet/topup - Add credits
			wallet.POST("/topup", walletHandler.TopUp)

			// GET /api/v1/wallet/transactions - Ledger history
			wallet.GET("/transactions", walletHandler.ListTransactions)
		}

		// GET /api/v1/predictors - Active model catalog
		v1.GET("/predictors", predictorHandler.ListPredictors)
	}

	return r
}
