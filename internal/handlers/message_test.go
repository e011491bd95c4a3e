package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
)

func createMessage(t *testing.T, database *gorm.DB, senderID, receiverID uint, subject string, sentAt time.Time) models.Message {
	t.Helper()

	message := models.Message{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Subject:     subject,
		Content:     "content of " + subject,
		MessageType: models.MessageTypeDefault,
		SentAt:      sentAt,
	}
	require.NoError(t, database.Create(&message).Error)
	return message
}

func TestSendMessage(t *testing.T) {
	r, database := setupServer(t)
	sender := createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)
	receiver := createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)

	rec := doRequest(t, r, http.MethodPost, "/api/messages", token(t, "student1"), map[string]interface{}{
		"receiver_id": receiver.ID,
		"subject":     "Question",
		"content":     "About HW1",
	})
	requireStatus(t, rec, http.StatusCreated)

	var body struct {
		SenderID   uint `json:"sender_id"`
		ReceiverID uint `json:"receiver_id"`
		IsRead     bool `json:"is_read"`
	}
	decode(t, rec, &body)
	assert.Equal(t, sender.ID, body.SenderID)
	assert.Equal(t, receiver.ID, body.ReceiverID)
	assert.False(t, body.IsRead)

	rec = doRequest(t, r, http.MethodPost, "/api/messages", token(t, "student1"), map[string]interface{}{
		"receiver_id": 999,
		"subject":     "Question",
		"content":     "To nobody",
	})
	requireStatus(t, rec, http.StatusNotFound)
}

func TestInboxOrderingAndUnreadFilter(t *testing.T) {
	r, database := setupServer(t)
	sender := createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)
	receiver := createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)

	now := time.Now()
	older := createMessage(t, database, sender.ID, receiver.ID, "older", now.Add(-time.Hour))
	newer := createMessage(t, database, sender.ID, receiver.ID, "newer", now)

	read := createMessage(t, database, sender.ID, receiver.ID, "read", now.Add(-2*time.Hour))
	require.NoError(t, database.Model(&models.Message{}).Where("id = ?", read.ID).Update("is_read", true).Error)

	rec := doRequest(t, r, http.MethodGet, "/api/messages", token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusOK)

	var inbox []struct {
		ID      uint   `json:"id"`
		Subject string `json:"subject"`
	}
	decode(t, rec, &inbox)
	require.Len(t, inbox, 3)
	assert.Equal(t, newer.ID, inbox[0].ID, "newest first")
	assert.Equal(t, older.ID, inbox[1].ID)
	assert.Equal(t, read.ID, inbox[2].ID)

	rec = doRequest(t, r, http.MethodGet, "/api/messages?unread_only=true", token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &inbox)
	assert.Len(t, inbox, 2)

	// The sender's inbox stays empty; their copy lives under /sent.
	rec = doRequest(t, r, http.MethodGet, "/api/messages", token(t, "teacher1"), nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &inbox)
	assert.Empty(t, inbox)

	rec = doRequest(t, r, http.MethodGet, "/api/messages/sent", token(t, "teacher1"), nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &inbox)
	assert.Len(t, inbox, 3)
}

func TestInboxMessageTypeFilter(t *testing.T) {
	r, database := setupServer(t)
	sender := createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)
	receiver := createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)

	// An omitted type lands as the default.
	rec := doRequest(t, r, http.MethodPost, "/api/messages", token(t, "teacher1"), map[string]interface{}{
		"receiver_id": receiver.ID,
		"subject":     "plain",
		"content":     "no type given",
	})
	requireStatus(t, rec, http.StatusCreated)

	var sent struct {
		MessageType string `json:"message_type"`
	}
	decode(t, rec, &sent)
	assert.Equal(t, models.MessageTypeDefault, sent.MessageType)

	rec = doRequest(t, r, http.MethodPost, "/api/messages", token(t, "teacher1"), map[string]interface{}{
		"receiver_id":  receiver.ID,
		"subject":      "exam moved",
		"content":      "now on friday",
		"message_type": "announcement",
	})
	requireStatus(t, rec, http.StatusCreated)

	announcement := createMessage(t, database, sender.ID, receiver.ID, "second announcement", time.Now())
	require.NoError(t, database.Model(&models.Message{}).
		Where("id = ?", announcement.ID).Update("message_type", "announcement").Error)

	rec = doRequest(t, r, http.MethodGet, "/api/messages?message_type=announcement", token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusOK)

	var inbox []struct {
		Subject     string `json:"subject"`
		MessageType string `json:"message_type"`
	}
	decode(t, rec, &inbox)
	require.Len(t, inbox, 2)
	for _, message := range inbox {
		assert.Equal(t, "announcement", message.MessageType)
	}

	// The filter stacks with unread_only.
	require.NoError(t, database.Model(&models.Message{}).
		Where("id = ?", announcement.ID).Update("is_read", true).Error)
	rec = doRequest(t, r, http.MethodGet, "/api/messages?message_type=announcement&unread_only=true", token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &inbox)
	require.Len(t, inbox, 1)
	assert.Equal(t, "exam moved", inbox[0].Subject)

	// No filter still returns everything.
	rec = doRequest(t, r, http.MethodGet, "/api/messages", token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &inbox)
	assert.Len(t, inbox, 3)
}

func TestMessageVisibility(t *testing.T) {
	r, database := setupServer(t)
	sender := createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)
	receiver := createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)
	createUser(t, database, "outsider", "o@school.com", "pw", authz.RoleTeacher)

	message := createMessage(t, database, sender.ID, receiver.ID, "private", time.Now())
	path := fmt.Sprintf("/api/messages/%d", message.ID)

	rec := doRequest(t, r, http.MethodGet, path, token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusOK)

	rec = doRequest(t, r, http.MethodGet, path, token(t, "teacher1"), nil)
	requireStatus(t, rec, http.StatusOK)

	rec = doRequest(t, r, http.MethodGet, path, token(t, "outsider"), nil)
	requireStatus(t, rec, http.StatusForbidden)

	rec = doRequest(t, r, http.MethodGet, "/api/messages/999", token(t, "outsider"), nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestMarkReadReceiverOnly(t *testing.T) {
	r, database := setupServer(t)
	sender := createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)
	receiver := createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)

	message := createMessage(t, database, sender.ID, receiver.ID, "hello", time.Now())
	path := fmt.Sprintf("/api/messages/%d/read", message.ID)

	// Not even the sender may mark it read.
	rec := doRequest(t, r, http.MethodPut, path, token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusForbidden)

	rec = doRequest(t, r, http.MethodPut, path, token(t, "teacher1"), nil)
	requireStatus(t, rec, http.StatusOK)

	var stored models.Message
	require.NoError(t, database.First(&stored, message.ID).Error)
	assert.True(t, stored.IsRead)
}

func TestUnreadCount(t *testing.T) {
	r, database := setupServer(t)
	sender := createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)
	receiver := createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)

	createMessage(t, database, sender.ID, receiver.ID, "one", time.Now())
	createMessage(t, database, sender.ID, receiver.ID, "two", time.Now())

	rec := doRequest(t, r, http.MethodGet, "/api/messages/unread/count", token(t, "student1"), nil)
	requireStatus(t, rec, http.StatusOK)

	var body struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decode(t, rec, &body)
	assert.EqualValues(t, 2, body.UnreadCount)

	rec = doRequest(t, r, http.MethodGet, "/api/messages/unread/count", token(t, "teacher1"), nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &body)
	assert.EqualValues(t, 0, body.UnreadCount)
}

func TestListTeachers(t *testing.T) {
	r, database := setupServer(t)
	createUser(t, database, "admin", "admin@school.com", "pw", authz.RoleAdmin)
	createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)
	createUser(t, database, "teacher2", "t2@school.com", "pw", authz.RoleTeacher)
	createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)
	createUser(t, database, "parent1", "p1@school.com", "pw", authz.RoleParent)

	for _, caller := range []string{"student1", "parent1", "admin"} {
		rec := doRequest(t, r, http.MethodGet, "/api/messages/teachers", token(t, caller), nil)
		requireStatus(t, rec, http.StatusOK)

		var teachers []map[string]interface{}
		decode(t, rec, &teachers)
		require.Len(t, teachers, 2, "caller %s", caller)

		// Minimal projection only.
		for _, teacher := range teachers {
			assert.Len(t, teacher, 3)
			assert.Contains(t, teacher, "id")
			assert.Contains(t, teacher, "name")
			assert.Contains(t, teacher, "username")
		}
	}

	rec := doRequest(t, r, http.MethodGet, "/api/messages/teachers", token(t, "teacher1"), nil)
	requireStatus(t, rec, http.StatusForbidden)
}

func TestSendToTeacher(t *testing.T) {
	r, database := setupServer(t)
	first := createUser(t, database, "teacher1", "t1@school.com", "pw", authz.RoleTeacher)
	second := createUser(t, database, "teacher2", "t2@school.com", "pw", authz.RoleTeacher)
	createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)
	createUser(t, database, "admin", "admin@school.com", "pw", authz.RoleAdmin)

	// No receiver: deterministic fallback to the lowest teacher id.
	rec := doRequest(t, r, http.MethodPost, "/api/messages/send-to-teacher", token(t, "student1"), map[string]string{
		"subject": "help",
		"content": "stuck on HW1",
	})
	requireStatus(t, rec, http.StatusCreated)

	var body struct {
		ReceiverID uint `json:"receiver_id"`
	}
	decode(t, rec, &body)
	assert.Equal(t, first.ID, body.ReceiverID)

	// Explicit receiver is honored.
	rec = doRequest(t, r, http.MethodPost, "/api/messages/send-to-teacher", token(t, "student1"), map[string]interface{}{
		"receiver_id": second.ID,
		"subject":     "help",
		"content":     "stuck on HW2",
	})
	requireStatus(t, rec, http.StatusCreated)
	decode(t, rec, &body)
	assert.Equal(t, second.ID, body.ReceiverID)

	// Students and parents only.
	rec = doRequest(t, r, http.MethodPost, "/api/messages/send-to-teacher", token(t, "admin"), map[string]string{
		"subject": "hi",
		"content": "there",
	})
	requireStatus(t, rec, http.StatusForbidden)
}

func TestSendToTeacherNoTeachers(t *testing.T) {
	r, database := setupServer(t)
	createUser(t, database, "student1", "s1@school.com", "pw", authz.RoleStudent)

	rec := doRequest(t, r, http.MethodPost, "/api/messages/send-to-teacher", token(t, "student1"), map[string]string{
		"subject": "help",
		"content": "anyone there?",
	})
	requireStatus(t, rec, http.StatusNotFound)
}
