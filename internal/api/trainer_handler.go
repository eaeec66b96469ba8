package api

import (
	"context"
	"net/http"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainerHandler serves the /trainer routes. Every route requires the TRAINER role.
type TrainerHandler struct {
	identity     service.IdentityService
	relationship service.RelationshipService
	plans        service.PlanService
	messaging    service.MessagingService
	dashboard    service.DashboardService
}

func NewTrainerHandler(
	identity service.IdentityService,
	relationship service.RelationshipService,
	plans service.PlanService,
	messaging service.MessagingService,
	dashboard service.DashboardService,
) *TrainerHandler {
	return &TrainerHandler{
		identity:     identity,
		relationship: relationship,
		plans:        plans,
		messaging:    messaging,
		dashboard:    dashboard,
	}
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *TrainerHandler) GetDashboard(c *gin.Context) {
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.dashboard.TrainerDashboard(c.Request.Context(), trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TrainerHandler) ListPendingRequests(c *gin.Context) {
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}
	requests, err := h.relationship.PendingRequestsFor(c.Request.Context(), trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// AcceptRequest godoc
// @Summary Accept a pending connection request
// @Description Activates the request and makes the caller the client's active trainer.
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Request ID"
// @Success 200 {object} domain.ConnectionRequest
// @Failure 403 {object} gin.H "Request addressed to another trainer"
// @Failure 404 {object} gin.H "Request not found"
// @Failure 409 {object} gin.H "Request is no longer pending"
// @Router /trainer/requests/{requestId}/accept [post]
func (h *TrainerHandler) AcceptRequest(c *gin.Context) {
	h.decide(c, h.relationship.Accept)
}

// RejectRequest godoc
// @Summary Reject a pending connection request
// @Tags Trainer
// @Router /trainer/requests/{requestId}/reject [post]
func (h *TrainerHandler) RejectRequest(c *gin.Context) {
	h.decide(c, h.relationship.Reject)
}

func (h *TrainerHandler) decide(c *gin.Context, apply func(ctx context.Context, requestID, trainerID primitive.ObjectID) (*domain.ConnectionRequest, error)) {
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "requestId")
	if !ok {
		return
	}

	req, err := apply(c.Request.Context(), requestID, trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *TrainerHandler) ListClients(c *gin.Context) {
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}
	clients, err := h.identity.ClientsOf(c.Request.Context(), trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(clients, func(u domain.User, _ int) service.ClientProfile {
		return service.NewClientProfile(&u)
	}))
}

func (h *TrainerHandler) GetClient(c *gin.Context) {
	trainerID, clientID, ok := trainerAndClient(c)
	if !ok {
		return
	}
	view, err := h.dashboard.ClientDetail(c.Request.Context(), trainerID, clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TrainerHandler) UpdateNotes(c *gin.Context) {
	trainerID, clientID, ok := trainerAndClient(c)
	if !ok {
		return
	}
	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.identity.UpdateClientNotes(c.Request.Context(), trainerID, clientID, req.Notes); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignPlan godoc
// @Summary Assign a new plan to a roster client
// @Description Completes the client's current plan and activates the new one atomically.
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param draft body domain.PlanDraft true "Plan draft"
// @Success 201 {object} domain.Plan
// @Failure 400 {object} gin.H "Invalid draft"
// @Failure 403 {object} gin.H "Caller is not the client's active trainer"
// @Router /trainer/clients/{clientId}/plans [post]
func (h *TrainerHandler) AssignPlan(c *gin.Context) {
	trainerID, clientID, ok := trainerAndClient(c)
	if !ok {
		return
	}
	var draft domain.PlanDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	plan, err := h.plans.AssignPlan(c.Request.Context(), clientID, trainerID, draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *TrainerHandler) ListPlans(c *gin.Context) {
	trainerID, clientID, ok := trainerAndClient(c)
	if !ok {
		return
	}
	plans, err := h.plans.PlansForClient(c.Request.Context(), trainerID, clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *TrainerHandler) GetMessages(c *gin.Context) {
	trainerID, clientID, ok := trainerAndClient(c)
	if !ok {
		return
	}
	if err := h.dashboard.EnsurePaired(c.Request.Context(), trainerID, clientID); err != nil {
		respondError(c, err)
		return
	}
	messages, err := h.messaging.Conversation(c.Request.Context(), trainerID, clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *TrainerHandler) SendMessage(c *gin.Context) {
	trainerID, clientID, ok := trainerAndClient(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if err := h.dashboard.EnsurePaired(c.Request.Context(), trainerID, clientID); err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.messaging.Send(c.Request.Context(), trainerID, clientID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func trainerAndClient(c *gin.Context) (trainerID, clientID primitive.ObjectID, ok bool) {
	if trainerID, ok = currentUser(c); !ok {
		return
	}
	clientID, ok = objectIDParam(c, "clientId")
	return
}
