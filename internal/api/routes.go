package api

import (
	"log/slog"
	"net/http"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/service"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
)

// Services is everything the HTTP boundary dispatches to.
type Services struct {
	Auth         service.AuthService
	Identity     service.IdentityService
	Relationship service.RelationshipService
	Plans        service.PlanService
	Messaging    service.MessagingService
	Dashboard    service.DashboardService
}

// NewRouter builds a gin engine with access logging, recovery and all routes.
func NewRouter(logger *slog.Logger, jwtSecret string, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelInfo,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	router.Use(gin.Recovery())
	SetupRoutes(router, jwtSecret, svc)
	return router
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	profileHandler := NewProfileHandler(svc.Identity, svc.Dashboard)
	clientHandler := NewClientHandler(svc.Identity, svc.Relationship, svc.Plans, svc.Messaging, svc.Dashboard)
	trainerHandler := NewTrainerHandler(svc.Identity, svc.Relationship, svc.Plans, svc.Messaging, svc.Dashboard)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// Public trainer discovery
		trainers := apiV1.Group("/trainers")
		{
			trainers.GET("", profileHandler.SearchTrainers)
			trainers.GET("/facets", profileHandler.TrainerFacets)
			trainers.GET("/:trainerId", profileHandler.GetTrainer)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", profileHandler.GetMe)
		protected.PATCH("/me", profileHandler.UpdateMe)
		protected.POST("/me/photo/upload-url", profileHandler.RequestPhotoUpload)
		protected.POST("/me/photo/confirm", profileHandler.ConfirmPhotoUpload)
		protected.GET("/users/:userId", profileHandler.GetUser)

		clientGroup := protected.Group("/client")
		clientGroup.Use(RoleMiddleware(domain.RoleClient))
		{
			clientGroup.GET("/dashboard", clientHandler.GetDashboard)
			clientGroup.POST("/requests", clientHandler.RequestConnection)
			clientGroup.GET("/requests", clientHandler.ListRequests)
			clientGroup.GET("/plans/active", clientHandler.GetActivePlan)
			clientGroup.GET("/plans/history", clientHandler.GetPlanHistory)
			// Conversation with the caller's active trainer
			clientGroup.GET("/messages", clientHandler.GetMessages)
			clientGroup.POST("/messages", clientHandler.SendMessage)
		}

		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			trainerGroup.GET("/dashboard", trainerHandler.GetDashboard)

			trainerGroup.GET("/requests", trainerHandler.ListPendingRequests)
			trainerGroup.POST("/requests/:requestId/accept", trainerHandler.AcceptRequest)
			trainerGroup.POST("/requests/:requestId/reject", trainerHandler.RejectRequest)

			// Roster
			trainerGroup.GET("/clients", trainerHandler.ListClients)
			trainerGroup.GET("/clients/:clientId", trainerHandler.GetClient)
			trainerGroup.PUT("/clients/:clientId/notes", trainerHandler.UpdateNotes)
			trainerGroup.POST("/clients/:clientId/plans", trainerHandler.AssignPlan)
			trainerGroup.GET("/clients/:clientId/plans", trainerHandler.ListPlans)
			trainerGroup.GET("/clients/:clientId/messages", trainerHandler.GetMessages)
			trainerGroup.POST("/clients/:clientId/messages", trainerHandler.SendMessage)
		}
	}
}
