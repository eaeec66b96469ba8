package api

import (
	"net/http"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// ProfileHandler serves the caller's own record, other users' profiles,
// and public trainer discovery.
type ProfileHandler struct {
	identity  service.IdentityService
	dashboard service.DashboardService
}

func NewProfileHandler(identity service.IdentityService, dashboard service.DashboardService) *ProfileHandler {
	return &ProfileHandler{identity: identity, dashboard: dashboard}
}

type PhotoUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type PhotoConfirmRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.identity.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update the caller's profile
// @Description Merges the given fields. Role and id cannot change.
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param patch body domain.ProfilePatch true "Fields to change"
// @Success 200 {object} domain.User
// @Failure 400 {object} gin.H "Invalid input"
// @Router /me [patch]
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var patch domain.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.identity.UpdateProfile(c.Request.Context(), userID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *ProfileHandler) RequestPhotoUpload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req PhotoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	resp, err := h.identity.RequestPhotoUpload(c.Request.Context(), userID, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProfileHandler) ConfirmPhotoUpload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req PhotoConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.identity.ConfirmPhotoUpload(c.Request.Context(), userID, req.ObjectKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUser returns another user filtered by what the caller may see.
func (h *ProfileHandler) GetUser(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	subjectID, ok := objectIDParam(c, "userId")
	if !ok {
		return
	}

	profile, err := h.dashboard.Profile(c.Request.Context(), viewerID, subjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SearchTrainers godoc
// @Summary Browse trainers
// @Tags Discovery
// @Produce json
// @Param name query string false "Name contains (case-insensitive)"
// @Param location query string false "Exact location"
// @Param specialty query string false "Specialty"
// @Success 200 {array} service.PublicProfile
// @Router /trainers [get]
func (h *ProfileHandler) SearchTrainers(c *gin.Context) {
	var filter service.TrainerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	trainers, err := h.identity.SearchTrainers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(trainers, func(t domain.User, _ int) service.PublicProfile {
		return service.NewPublicProfile(&t)
	}))
}

func (h *ProfileHandler) TrainerFacets(c *gin.Context) {
	facets, err := h.identity.TrainerFacets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, facets)
}

func (h *ProfileHandler) GetTrainer(c *gin.Context) {
	trainerID, ok := objectIDParam(c, "trainerId")
	if !ok {
		return
	}
	trainer, err := h.identity.GetTrainer(c.Request.Context(), trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.NewPublicProfile(trainer))
}
