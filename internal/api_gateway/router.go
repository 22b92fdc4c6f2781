package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ticket-wallet-ledger/internal/api_gateway/handler"
	"github.com/ticket-wallet-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	allocationHandler *handler.AllocationHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// Every API route is scoped to a tenant
	tenant := r.Group("/api/v1/tenants/:tenant_id", middleware.TenantScope())
	{
		wallet := tenant.Group("/apps/:app_id/users/:user_id/wallet")
		{
			wallet.GET("", walletHandler.GetBalance)
			wallet.POST("/adjustments", walletHandler.Adjust)
			wallet.POST("/adjustment-requests", walletHandler.SubmitAdjustment)
			wallet.GET("/verify", walletHandler.VerifyChain)
		}

		// Audit archive
		tenant.GET("/wallets/:wallet_id/archive", walletHandler.GetHistory)
		tenant.GET("/archive/transactions/:transaction_id", walletHandler.GetArchivedTransaction)

		allocations := tenant.Group("/allocations")
		{
			allocations.POST("", allocationHandler.Create)
			allocations.GET("", allocationHandler.List)
			allocations.PATCH("/:id", allocationHandler.Update)
			allocations.POST("/:id/consume", allocationHandler.Consume)
		}

		ticket := tenant.Group("/users/:user_id/tickets/:ticket_id/allocation")
		{
			ticket.GET("", allocationHandler.GetActive)
			ticket.POST("/release", allocationHandler.Release)
		}

		tenant.GET("/transactions", reconciliationHandler.ListTransactions)
		tenant.GET("/sales-report", reconciliationHandler.SalesReport)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
