package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
	"github.com/classtrack-dev/classtrack/internal/utils"
)

type AssignmentHandler struct {
	DB *gorm.DB
}

type AssignmentInput struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Subject     string    `json:"subject" binding:"required"`
	ClassName   string    `json:"class_name" binding:"required"`
	DueDate     time.Time `json:"due_date" binding:"required"`
}

type AssignmentResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	ClassName   string    `json:"class_name"`
	DueDate     time.Time `json:"due_date"`
	CreatedByID uint      `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func newAssignmentResponse(assignment models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:          assignment.ID,
		Title:       assignment.Title,
		Description: assignment.Description,
		Subject:     assignment.Subject,
		ClassName:   assignment.ClassName,
		DueDate:     assignment.DueDate,
		CreatedByID: assignment.CreatedByID,
		CreatedAt:   assignment.CreatedAt,
	}
}

type SubmissionInput struct {
	Content string `json:"content" binding:"required"`
}

type GradeInput struct {
	Grade    string  `json:"grade" binding:"required"`
	Feedback *string `json:"feedback"`
}

type SubmissionResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	Content      string    `json:"content"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Grade        *string   `json:"grade"`
	Feedback     *string   `json:"feedback"`
}

func newSubmissionResponse(submission models.AssignmentSubmission) SubmissionResponse {
	return SubmissionResponse{
		ID:           submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Content:      submission.Content,
		SubmittedAt:  submission.SubmittedAt,
		Grade:        submission.Grade,
		Feedback:     submission.Feedback,
	}
}

func (h *AssignmentHandler) Create(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionAssignmentCreate) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only teachers and admins can create assignments"})
		return
	}

	var body AssignmentInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	assignment := models.Assignment{
		Title:       body.Title,
		Description: body.Description,
		Subject:     body.Subject,
		ClassName:   body.ClassName,
		DueDate:     body.DueDate,
		CreatedByID: currentUser.ID,
	}

	if err := h.DB.Create(&assignment).Error; err != nil {
		log.Printf("Failed to create assignment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create assignment"})
		return
	}

	ctx.JSON(http.StatusCreated, newAssignmentResponse(assignment))
}

// List applies the role-dependent base predicate, then the optional
// class_name and subject filters as a conjunction. Students match either
// their class or the "all" wildcard.
func (h *AssignmentHandler) List(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionAssignmentView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	query := h.DB.Model(&models.Assignment{})

	switch currentUser.Role {
	case authz.RoleTeacher:
		query = query.Where("created_by_id = ?", currentUser.ID)
	case authz.RoleStudent:
		if className := ctx.Query("class_name"); className != "" {
			query = query.Where("class_name = ? OR class_name = ?", className, models.ClassNameAll)
		}
	}

	if subject := ctx.Query("subject"); subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var assignments []models.Assignment

	if err := query.Find(&assignments).Error; err != nil {
		log.Printf("Failed to list assignments: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignments"})
		return
	}

	response := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		response = append(response, newAssignmentResponse(assignment))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *AssignmentHandler) Get(ctx *gin.Context) {
	if _, err := utils.GetCurrentUser(ctx); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	assignmentID, err := parseIDParam(ctx, "assignment_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment id"})
		return
	}

	var assignment models.Assignment

	if err := h.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		} else {
			log.Printf("Failed to fetch assignment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignment"})
		}
		return
	}

	ctx.JSON(http.StatusOK, newAssignmentResponse(assignment))
}

// Update is a full-field replace of everything except id, creator and
// creation time. The lookup runs before the ownership check, so a missing
// assignment is 404 even for callers who would be forbidden.
func (h *AssignmentHandler) Update(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionAssignmentManage) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only teachers and admins can update assignments"})
		return
	}

	var body AssignmentInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	assignmentID, err := parseIDParam(ctx, "assignment_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment id"})
		return
	}

	var assignment models.Assignment

	if err := h.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		} else {
			log.Printf("Failed to fetch assignment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignment"})
		}
		return
	}

	if !authz.CanModify(currentUser.Role, currentUser.ID, assignment.CreatedByID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own assignments"})
		return
	}

	assignment.Title = body.Title
	assignment.Description = body.Description
	assignment.Subject = body.Subject
	assignment.ClassName = body.ClassName
	assignment.DueDate = body.DueDate

	if err := h.DB.Save(&assignment).Error; err != nil {
		log.Printf("Failed to update assignment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update assignment"})
		return
	}

	ctx.JSON(http.StatusOK, newAssignmentResponse(assignment))
}

func (h *AssignmentHandler) Delete(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionAssignmentManage) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only teachers and admins can delete assignments"})
		return
	}

	assignmentID, err := parseIDParam(ctx, "assignment_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment id"})
		return
	}

	var assignment models.Assignment

	if err := h.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		} else {
			log.Printf("Failed to fetch assignment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignment"})
		}
		return
	}

	if !authz.CanModify(currentUser.Role, currentUser.ID, assignment.CreatedByID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own assignments"})
		return
	}

	if err := h.DB.Delete(&assignment).Error; err != nil {
		log.Printf("Failed to delete assignment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete assignment"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Assignment deleted successfully"})
}

// Submit records a student's answer. The composite unique index on
// (assignment_id, student_id) is the authority on duplicates: a racing
// second insert surfaces as a duplicate-key error and maps to 409 exactly
// like one caught by the pre-check.
func (h *AssignmentHandler) Submit(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionAssignmentSubmit) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only students can submit assignments"})
		return
	}

	var body SubmissionInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	assignmentID, err := parseIDParam(ctx, "assignment_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment id"})
		return
	}

	var assignment models.Assignment

	if err := h.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		} else {
			log.Printf("Failed to fetch assignment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignment"})
		}
		return
	}

	var existing models.AssignmentSubmission

	err = h.DB.
		Where("assignment_id = ? AND student_id = ?", assignmentID, currentUser.ID).
		First(&existing).Error
	if err == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Assignment already submitted"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Failed to check existing submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	submission := models.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    currentUser.ID,
		Content:      body.Content,
		SubmittedAt:  time.Now(),
	}

	if err := h.DB.Create(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Assignment already submitted"})
			return
		}
		log.Printf("Failed to create submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit assignment"})
		return
	}

	ctx.JSON(http.StatusCreated, newSubmissionResponse(submission))
}

func (h *AssignmentHandler) ListSubmissions(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionSubmissionView) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only teachers and admins can view submissions"})
		return
	}

	assignmentID, err := parseIDParam(ctx, "assignment_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment id"})
		return
	}

	var assignment models.Assignment

	if err := h.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		} else {
			log.Printf("Failed to fetch assignment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignment"})
		}
		return
	}

	if !authz.CanModify(currentUser.Role, currentUser.ID, assignment.CreatedByID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only view submissions for your own assignments"})
		return
	}

	var submissions []models.AssignmentSubmission

	if err := h.DB.Where("assignment_id = ?", assignmentID).Find(&submissions).Error; err != nil {
		log.Printf("Failed to list submissions: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve submissions"})
		return
	}

	response := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		response = append(response, newSubmissionResponse(submission))
	}

	ctx.JSON(http.StatusOK, response)
}

// ListOwnSubmissions returns the calling student's submissions.
func (h *AssignmentHandler) ListOwnSubmissions(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if currentUser.Role != authz.RoleStudent {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only students can access this endpoint"})
		return
	}

	var submissions []models.AssignmentSubmission

	if err := h.DB.Where("student_id = ?", currentUser.ID).Find(&submissions).Error; err != nil {
		log.Printf("Failed to list submissions: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve submissions"})
		return
	}

	response := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		response = append(response, newSubmissionResponse(submission))
	}

	ctx.JSON(http.StatusOK, response)
}

// Grade sets grade and feedback on a submission. Re-grading overwrites the
// previous values; there is deliberately no already-graded guard.
func (h *AssignmentHandler) Grade(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.Allowed(currentUser.Role, authz.ActionSubmissionGrade) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only teachers and admins can grade submissions"})
		return
	}

	var body GradeInput

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	submissionID, err := parseIDParam(ctx, "submission_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	var submission models.AssignmentSubmission

	if err := h.DB.First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		} else {
			log.Printf("Failed to fetch submission: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve submission"})
		}
		return
	}

	var assignment models.Assignment

	if err := h.DB.First(&assignment, submission.AssignmentID).Error; err != nil {
		log.Printf("Failed to fetch parent assignment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !authz.CanModify(currentUser.Role, currentUser.ID, assignment.CreatedByID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only grade submissions for your own assignments"})
		return
	}

	submission.Grade = &body.Grade
	submission.Feedback = body.Feedback

	if err := h.DB.Save(&submission).Error; err != nil {
		log.Printf("Failed to grade submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grade submission"})
		return
	}

	ctx.JSON(http.StatusOK, newSubmissionResponse(submission))
}
