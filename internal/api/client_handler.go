package api

import (
	"fmt"
	"net/http"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientHandler serves the /client routes. Every route requires the CLIENT role.
type ClientHandler struct {
	identity     service.IdentityService
	relationship service.RelationshipService
	plans        service.PlanService
	messaging    service.MessagingService
	dashboard    service.DashboardService
}

func NewClientHandler(
	identity service.IdentityService,
	relationship service.RelationshipService,
	plans service.PlanService,
	messaging service.MessagingService,
	dashboard service.DashboardService,
) *ClientHandler {
	return &ClientHandler{
		identity:     identity,
		relationship: relationship,
		plans:        plans,
		messaging:    messaging,
		dashboard:    dashboard,
	}
}

type ConnectionRequestBody struct {
	TrainerID string `json:"trainerId" binding:"required"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

func (h *ClientHandler) GetDashboard(c *gin.Context) {
	clientID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.dashboard.ClientDashboard(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RequestConnection godoc
// @Summary Ask a trainer to start coaching the caller
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ConnectionRequestBody true "Target trainer"
// @Success 201 {object} domain.ConnectionRequest
// @Failure 404 {object} gin.H "Trainer not found"
// @Failure 409 {object} gin.H "Duplicate request or already connected"
// @Router /client/requests [post]
func (h *ClientHandler) RequestConnection(c *gin.Context) {
	clientID, ok := currentUser(c)
	if !ok {
		return
	}
	var req ConnectionRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, err := primitive.ObjectIDFromHex(req.TrainerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid trainerId format.")
		return
	}

	created, err := h.relationship.RequestConnection(c.Request.Context(), clientID, trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *ClientHandler) ListRequests(c *gin.Context) {
	clientID, ok := currentUser(c)
	if !ok {
		return
	}
	requests, err := h.relationship.RequestsByClient(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetActivePlan responds with null when no plan is active.
func (h *ClientHandler) GetActivePlan(c *gin.Context) {
	clientID, ok := currentUser(c)
	if !ok {
		return
	}
	plan, err := h.plans.ActivePlanFor(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *ClientHandler) GetPlanHistory(c *gin.Context) {
	clientID, ok := currentUser(c)
	if !ok {
		return
	}
	plans, err := h.plans.CompletedPlansFor(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// activeTrainer resolves the caller's trainer; without one there is no conversation.
func (h *ClientHandler) activeTrainer(c *gin.Context, clientID primitive.ObjectID) (primitive.ObjectID, bool) {
	me, err := h.identity.GetUser(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return primitive.NilObjectID, false
	}
	if me.ActiveTrainerID == nil {
		respondError(c, fmt.Errorf("no active trainer: %w", domain.ErrForbidden))
		return primitive.NilObjectID, false
	}
	return *me.ActiveTrainerID, true
}

func (h *ClientHandler) GetMessages(c *gin.Context) {
	clientID, ok := currentUser(c)
	if !ok {
		return
	}
	trainerID, ok := h.activeTrainer(c, clientID)
	if !ok {
		return
	}
	messages, err := h.messaging.Conversation(c.Request.Context(), clientID, trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ClientHandler) SendMessage(c *gin.Context) {
	clientID, ok := currentUser(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := h.activeTrainer(c, clientID)
	if !ok {
		return
	}

	msg, err := h.messaging.Send(c.Request.Context(), clientID, trainerID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
