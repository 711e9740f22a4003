// Package rest wires the HTTP API for the athlete card service.
package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/mdaamer248/Athelete/internal/api/middleware"
)

// SetupRoutes configures all API routes on the given router.
// Reads are public; athlete registration accepts a JWT or an API key;
// owner-gated card operations require a JWT so the caller account is known.
func SetupRoutes(router *gin.Engine, h Handler, authCfg middleware.AuthConfig) {
	router.GET("/healthz", h.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/athletes", h.ListClasses)
		v1.GET("/athletes/:class_id", h.GetClass)
		v1.GET("/cards/:class_id/:instance_id", h.GetCard)
		v1.GET("/accounts/:account/cards", h.ListCardsByOwner)
		v1.GET("/accounts/:account/balance", h.GetBalance)

		v1.POST("/athletes", middleware.Auth(authCfg), h.RegisterAthlete)
		v1.POST("/accounts/deposit", middleware.APIKeyAuth(authCfg), h.Deposit)

		owner := v1.Group("", middleware.JWTAuth(authCfg))
		{
			owner.PUT("/cards/:class_id/:instance_id/price", h.SetCardPrice)
			owner.POST("/cards/:class_id/:instance_id/purchase", h.PurchaseCard)
		}
	}
}
