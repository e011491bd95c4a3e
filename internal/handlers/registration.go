package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
	"github.com/classtrack-dev/classtrack/internal/registration"
	"github.com/classtrack-dev/classtrack/internal/types"
	"github.com/classtrack-dev/classtrack/internal/utils"
)

// RegistrationHandler serves the /registration-requests surface. It shares
// the workflow service with the /auth surface, so approvals behave
// identically no matter which route an admin uses.
type RegistrationHandler struct {
	DB *gorm.DB
}

type ApproveRegistrationInput struct {
	Role string `json:"role" binding:"omitempty,oneof=admin teacher student parent"`
}

func (h *RegistrationHandler) Create(ctx *gin.Context) {
	var body RegisterRequestInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	request, err := registration.Intake(h.DB, registration.Candidate{
		Username: body.Username,
		Email:    body.Email,
		Name:     body.Name,
		Role:     authz.Role(body.Role),
	})

	if err != nil {
		switch {
		case errors.Is(err, registration.ErrDuplicate):
			ctx.JSON(http.StatusConflict, gin.H{"error": "Username or email already in use"})
		case errors.Is(err, registration.ErrBadRole):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		default:
			log.Printf("Failed to create registration request: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	ctx.JSON(http.StatusCreated, types.NewRegistrationRequestResponse(request))
}

func (h *RegistrationHandler) List(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionRegistrationView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins can view registration requests"})
		return
	}

	query := h.DB.Model(&models.RegistrationRequest{})

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.RegistrationRequest

	if err := query.Order("requested_at DESC").Find(&requests).Error; err != nil {
		log.Printf("Failed to list registration requests: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.RegistrationRequestResponse, 0, len(requests))
	for _, request := range requests {
		response = append(response, types.NewRegistrationRequestResponse(request))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *RegistrationHandler) Get(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionRegistrationView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins can view registration requests"})
		return
	}

	requestID, err := parseIDParam(ctx, "request_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	var request models.RegistrationRequest

	if err := h.DB.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Registration request not found"})
		} else {
			log.Printf("Failed to fetch registration request: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, types.NewRegistrationRequestResponse(request))
}

func (h *RegistrationHandler) Approve(ctx *gin.Context) {
	h.review(ctx, models.RegistrationApproved)
}

func (h *RegistrationHandler) Reject(ctx *gin.Context) {
	h.review(ctx, models.RegistrationRejected)
}

func (h *RegistrationHandler) review(ctx *gin.Context, decision models.RegistrationStatus) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionRegistrationView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins can process registration requests"})
		return
	}

	requestID, err := parseIDParam(ctx, "request_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	var overrideRole authz.Role

	// Approvals may carry an optional role override in the body; rejections
	// have no body.
	if decision == models.RegistrationApproved && ctx.Request.ContentLength > 0 {
		var body ApproveRegistrationInput
		if err := ctx.BindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		overrideRole = authz.Role(body.Role)
	}

	result, err := registration.Review(h.DB, requestID, decision, overrideRole)

	if err != nil {
		respondRegistrationError(ctx, err)
		return
	}

	response := gin.H{"request": types.NewRegistrationRequestResponse(result.Request)}
	if result.User != nil {
		response["user"] = types.NewUserResponse(*result.User)
		response["password_reset_token"] = result.ResetToken
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *RegistrationHandler) Delete(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionRegistrationView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins can delete registration requests"})
		return
	}

	requestID, err := parseIDParam(ctx, "request_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	var request models.RegistrationRequest

	if err := h.DB.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Registration request not found"})
		} else {
			log.Printf("Failed to fetch registration request: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	// Hard delete: registration requests are disposable intake records, and
	// a soft-deleted tombstone would still occupy the pending unique indexes.
	if err := h.DB.Unscoped().Delete(&request).Error; err != nil {
		log.Printf("Failed to delete registration request: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Registration request deleted successfully"})
}
