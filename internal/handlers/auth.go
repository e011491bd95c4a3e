package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/auth"
	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
	"github.com/classtrack-dev/classtrack/internal/registration"
	"github.com/classtrack-dev/classtrack/internal/types"
	"github.com/classtrack-dev/classtrack/internal/utils"
)

type AuthHandler struct {
	DB *gorm.DB
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequestInput struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=admin teacher student parent"`
}

type ReviewRegisterRequestInput struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
	Role   string `json:"role" binding:"omitempty,oneof=admin teacher student parent"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var body LoginRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User

	err := h.DB.Where("username = ?", body.Username).First(&user).Error

	// Unknown user and wrong password answer identically so usernames
	// cannot be enumerated through this endpoint.
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		log.Printf("Database error when fetching user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := auth.GenerateToken(user.Username)

	if err != nil {
		log.Printf("Failed to generate token: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User

	if err := h.DB.First(&user, currentUser.ID).Error; err != nil {
		log.Printf("Failed to fetch user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserResponse(user))
}

func (h *AuthHandler) ListUsers(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionUserList) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins can view all users"})
		return
	}

	var users []models.User

	if err := h.DB.Find(&users).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.UserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, types.NewUserResponse(user))
	}

	ctx.JSON(http.StatusOK, response)
}

// CreateRegisterRequest is the public registration intake.
func (h *AuthHandler) CreateRegisterRequest(ctx *gin.Context) {
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

func (h *AuthHandler) ListRegisterRequests(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionRegistrationView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins can view registration requests"})
		return
	}

	var requests []models.RegistrationRequest

	if err := h.DB.Order("requested_at DESC").Find(&requests).Error; err != nil {
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

// ReviewRegisterRequest applies an admin decision. On approval the response
// carries the created account and its one-time password-reset token; no
// password ever appears in a response.
func (h *AuthHandler) ReviewRegisterRequest(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionRegistrationView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins can process registration requests"})
		return
	}

	var body ReviewRegisterRequestInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	requestID, err := parseIDParam(ctx, "request_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	result, err := registration.Review(h.DB, requestID, models.RegistrationStatus(body.Status), authz.Role(body.Role))

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

func respondRegistrationError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, registration.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Registration request not found"})
	case errors.Is(err, registration.ErrAlreadyProcessed):
		ctx.JSON(http.StatusConflict, gin.H{"error": "Request has already been processed"})
	case errors.Is(err, registration.ErrDuplicate):
		ctx.JSON(http.StatusConflict, gin.H{"error": "Username or email already in use"})
	case errors.Is(err, registration.ErrBadDecision), errors.Is(err, registration.ErrBadRole):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Failed to process registration request: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
