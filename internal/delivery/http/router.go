package http

import (
	"github.com/b0ho/glimpse-sub008/internal/delivery/http/handler"
	"github.com/b0ho/glimpse-sub008/internal/delivery/http/middleware"
	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type Router struct {
	authHandler     *handler.AuthHandler
	profileHandler  *handler.ProfileHandler
	likeHandler     *handler.LikeHandler
	matchHandler    *handler.MatchHandler
	groupHandler    *handler.GroupHandler
	interestHandler *handler.InterestHandler
	authMiddleware  *middleware.AuthMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	likeHandler *handler.LikeHandler,
	matchHandler *handler.MatchHandler,
	groupHandler *handler.GroupHandler,
	interestHandler *handler.InterestHandler,
	authMiddleware *middleware.AuthMiddleware,
) *Router {
	return &Router{
		authHandler:     authHandler,
		profileHandler:  profileHandler,
		likeHandler:     likeHandler,
		matchHandler:    matchHandler,
		groupHandler:    groupHandler,
		interestHandler: interestHandler,
		authMiddleware:  authMiddleware,
	}
}

func (r *Router) Setup() *gin.Engine {
	registerValidators()

	router := gin.Default()

	healthHandler := func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/request-code", r.authHandler.RequestCode)
			auth.POST("/token", r.authHandler.IssueToken)
			auth.GET("/me", r.authMiddleware.RequireAuth(), r.authHandler.Me)
			auth.PUT("/tier", r.authMiddleware.RequireAuth(), r.authHandler.UpgradeTier)
		}

		protected := v1.Group("")
		protected.Use(r.authMiddleware.RequireAuth())
		{
			profiles := protected.Group("/profiles")
			{
				profiles.POST("", r.profileHandler.Create)
				profiles.GET("", r.profileHandler.ListMine)
				profiles.GET("/:id", r.profileHandler.GetMine)
				profiles.PUT("/:id", r.profileHandler.Update)
				profiles.DELETE("/:id", r.profileHandler.Deactivate)
			}

			likes := protected.Group("/likes")
			{
				likes.POST("", r.likeHandler.Send)
				likes.DELETE("/:id", r.likeHandler.Cancel)
				likes.GET("/received", r.likeHandler.Received)
			}

			matches := protected.Group("/matches")
			{
				matches.GET("", r.matchHandler.List)
				matches.GET("/:id/reveal", r.matchHandler.Reveal)
				matches.POST("/:id/consent", r.matchHandler.Consent)
				matches.DELETE("/:id", r.matchHandler.Unmatch)
			}

			groups := protected.Group("/groups")
			{
				groups.POST("", r.groupHandler.Create)
				groups.GET("/location", r.groupHandler.Nearby)
				groups.GET("/:id", r.groupHandler.Get)
				groups.POST("/:id/join", r.groupHandler.Join)
				groups.POST("/:id/leave", r.groupHandler.Leave)
			}

			interests := protected.Group("/interests")
			{
				interests.POST("", r.interestHandler.Register)
				interests.GET("", r.interestHandler.List)
				interests.DELETE("/:id", r.interestHandler.Withdraw)
			}

			protected.GET("/quota", r.interestHandler.Usage)
			protected.POST("/reports", r.matchHandler.Report)
		}
	}

	return router
}

// registerValidators adds the contexttype binding tag used by request
// structs across handlers and usecases.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("contexttype", func(fl validator.FieldLevel) bool {
			return domain.ContextType(fl.Field().String()).Valid()
		})
	}
}
