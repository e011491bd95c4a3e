package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
	"github.com/classtrack-dev/classtrack/internal/utils"
)

type MessageHandler struct {
	DB *gorm.DB
}

type SendMessageInput struct {
	ReceiverID  uint   `json:"receiver_id" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"`
}

// SendToTeacherInput differs from SendMessageInput in that the receiver is
// optional: absent, the message routes to the teacher with the lowest id.
type SendToTeacherInput struct {
	ReceiverID  uint   `json:"receiver_id"`
	Subject     string `json:"subject" binding:"required"`
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"`
}

type MessageResponse struct {
	ID          uint      `json:"id"`
	SenderID    uint      `json:"sender_id"`
	ReceiverID  uint      `json:"receiver_id"`
	Subject     string    `json:"subject"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	SentAt      time.Time `json:"sent_at"`
	IsRead      bool      `json:"is_read"`
}

func newMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:          message.ID,
		SenderID:    message.SenderID,
		ReceiverID:  message.ReceiverID,
		Subject:     message.Subject,
		Content:     message.Content,
		MessageType: message.MessageType,
		SentAt:      message.SentAt,
		IsRead:      message.IsRead,
	}
}

func messageTypeOrDefault(messageType string) string {
	if messageType == "" {
		return models.MessageTypeDefault
	}
	return messageType
}

type TeacherResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (h *MessageHandler) Send(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionMessageSend) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var body SendMessageInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var receiver models.User

	if err := h.DB.First(&receiver, body.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
		} else {
			log.Printf("Failed to fetch recipient: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	message := models.Message{
		SenderID:    currentUser.ID,
		ReceiverID:  receiver.ID,
		Subject:     body.Subject,
		Content:     body.Content,
		MessageType: messageTypeOrDefault(body.MessageType),
		SentAt:      time.Now(),
	}

	if err := h.DB.Create(&message).Error; err != nil {
		log.Printf("Failed to create message: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	ctx.JSON(http.StatusCreated, newMessageResponse(message))
}

// Inbox lists received messages newest first; ?unread_only=true narrows to
// unread ones and ?message_type= to a single type. Both filters stack.
func (h *MessageHandler) Inbox(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := h.DB.Where("receiver_id = ?", currentUser.ID)

	if unreadOnly, _ := strconv.ParseBool(ctx.Query("unread_only")); unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if messageType := ctx.Query("message_type"); messageType != "" {
		query = query.Where("message_type = ?", messageType)
	}

	var messages []models.Message

	if err := query.Order("sent_at DESC").Find(&messages).Error; err != nil {
		log.Printf("Failed to list messages: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		response = append(response, newMessageResponse(message))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *MessageHandler) Sent(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var messages []models.Message

	err = h.DB.
		Where("sender_id = ?", currentUser.ID).
		Order("sent_at DESC").
		Find(&messages).Error
	if err != nil {
		log.Printf("Failed to list sent messages: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		response = append(response, newMessageResponse(message))
	}

	ctx.JSON(http.StatusOK, response)
}

// Get returns a single message to its sender or receiver; everyone else is
// forbidden regardless of whether they could have guessed the id.
func (h *MessageHandler) Get(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	messageID, err := parseIDParam(ctx, "message_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	var message models.Message

	if err := h.DB.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		} else {
			log.Printf("Failed to fetch message: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve message"})
		}
		return
	}

	if message.SenderID != currentUser.ID && message.ReceiverID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this message"})
		return
	}

	ctx.JSON(http.StatusOK, newMessageResponse(message))
}

func (h *MessageHandler) MarkRead(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	messageID, err := parseIDParam(ctx, "message_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	var message models.Message

	if err := h.DB.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		} else {
			log.Printf("Failed to fetch message: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve message"})
		}
		return
	}

	if message.ReceiverID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only mark your own messages as read"})
		return
	}

	message.IsRead = true

	if err := h.DB.Save(&message).Error; err != nil {
		log.Printf("Failed to mark message as read: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update message"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}

func (h *MessageHandler) UnreadCount(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var count int64

	err = h.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", currentUser.ID, false).
		Count(&count).Error
	if err != nil {
		log.Printf("Failed to count unread messages: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// ListTeachers is the contact directory for students and parents; it
// returns only id, name and username.
func (h *MessageHandler) ListTeachers(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionTeacherList) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var teachers []models.User

	err = h.DB.
		Where("role = ?", authz.RoleTeacher).
		Order("id ASC").
		Find(&teachers).Error
	if err != nil {
		log.Printf("Failed to list teachers: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve teachers"})
		return
	}

	response := make([]TeacherResponse, 0, len(teachers))
	for _, teacher := range teachers {
		response = append(response, TeacherResponse{
			ID:       teacher.ID,
			Name:     teacher.Name,
			Username: teacher.Username,
		})
	}

	ctx.JSON(http.StatusOK, response)
}

// SendToTeacher lets students and parents message a teacher without knowing
// ids. With no receiver specified the teacher with the lowest id gets the
// message, so the fallback is deterministic.
func (h *MessageHandler) SendToTeacher(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionTeacherMessage) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only students and parents can send messages to teachers"})
		return
	}

	var body SendToTeacherInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var teacher models.User

	query := h.DB.Where("role = ?", authz.RoleTeacher)
	if body.ReceiverID != 0 {
		query = query.Where("id = ?", body.ReceiverID)
	}

	if err := query.Order("id ASC").First(&teacher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "No teachers found"})
		} else {
			log.Printf("Failed to fetch teacher: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	message := models.Message{
		SenderID:    currentUser.ID,
		ReceiverID:  teacher.ID,
		Subject:     body.Subject,
		Content:     body.Content,
		MessageType: messageTypeOrDefault(body.MessageType),
		SentAt:      time.Now(),
	}

	if err := h.DB.Create(&message).Error; err != nil {
		log.Printf("Failed to create message: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	ctx.JSON(http.StatusCreated, newMessageResponse(message))
}
