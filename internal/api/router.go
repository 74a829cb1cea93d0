// Package api builds the HTTP surfaces: the public REST API and the internal
// service API used for health checks, metrics, and test support.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/api/handlers"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/api/middleware"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/config"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/metrics"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/services"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(
	cfg *config.Config,
	listingService services.IListingService,
	paymentService services.IPaymentService,
	userService services.IUserService,
	storageService storage.IS3Storage,
	taskClient handlers.IAsynqClient,
) *gin.Engine {
	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewRestAuthHandler(userService, cfg)
	listingHandler := handlers.NewRestListingHandler(listingService)
	paymentHandler := handlers.NewRestPaymentHandler(paymentService)
	uploadHandler := handlers.NewRestUploadHandler(storageService, taskClient)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/listings", listingHandler.SearchListings)
		v1.GET("/listings/featured", listingHandler.FeaturedListings)
		v1.GET("/listings/:id", middleware.OptionalAuthMiddleware(cfg.JwtSecret), listingHandler.GetListing)

		// Provider webhooks: unauthenticated at the transport layer, the
		// payload itself carries provider verification.
		v1.POST("/payments/:reference/confirm", paymentHandler.ConfirmPayment)
		v1.POST("/payments/:reference/cancel", paymentHandler.CancelPayment)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/listings", listingHandler.SubmitListing)
			authRequired.PATCH("/listings/:id", listingHandler.UpdateListing)
			authRequired.DELETE("/listings/:id", listingHandler.DeleteListing)
			authRequired.GET("/listings/stats", listingHandler.ListingStats)
			authRequired.GET("/me/listings", listingHandler.MyListings)

			authRequired.POST("/uploads", uploadHandler.CreateUploadURL)
			authRequired.POST("/uploads/complete", uploadHandler.CompleteUpload)

			authRequired.POST("/payments", paymentHandler.InitiatePayment)
			authRequired.GET("/payments/:reference", paymentHandler.PaymentStatus)
		}

		// Moderation routes
		moderation := v1.Group("/moderation")
		moderation.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.ModeratorMiddleware())
		{
			moderation.GET("/listings", listingHandler.ModerationQueue)
			moderation.POST("/listings/:id/approve", listingHandler.ApproveListing)
			moderation.POST("/listings/:id/reject", listingHandler.RejectListing)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the internal service Gin engine.
// It serves health, metrics, and a small command API used by integration
// tests (fetching mock emails, triggering shutdown).
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "app": cfg.AppName})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect [kind, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			kind := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, kind)

			var emailJSONData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				emailJSONData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJSONData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})

	return r
}
