// Package registration implements the registration-request lifecycle:
// public intake, admin review, and the user-account creation that an
// approval triggers. Both HTTP surfaces that expose registration call into
// this package, so there is exactly one approval policy.
package registration

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
)

var (
	ErrNotFound         = errors.New("registration request not found")
	ErrAlreadyProcessed = errors.New("registration request has already been processed")
	ErrDuplicate        = errors.New("username or email already in use")
	ErrBadDecision      = errors.New("decision must be approved or rejected")
	ErrBadRole          = errors.New("unknown role")
)

type Candidate struct {
	Username string
	Email    string
	Name     string
	Role     authz.Role
}

// Intake files a new pending request. It conflicts when the username or
// email already belongs to a user, or when another pending request claims
// them. The pre-checks give precise errors; the partial unique indexes on
// pending requests are what actually close the race between two concurrent
// intakes.
func Intake(database *gorm.DB, candidate Candidate) (models.RegistrationRequest, error) {
	if !candidate.Role.Valid() {
		return models.RegistrationRequest{}, ErrBadRole
	}

	var existingUser models.User
	err := database.
		Where("username = ? OR email = ?", candidate.Username, candidate.Email).
		First(&existingUser).Error
	if err == nil {
		return models.RegistrationRequest{}, ErrDuplicate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RegistrationRequest{}, err
	}

	var pending models.RegistrationRequest
	err = database.
		Where("(username = ? OR email = ?) AND status = ?",
			candidate.Username, candidate.Email, models.RegistrationPending).
		First(&pending).Error
	if err == nil {
		return models.RegistrationRequest{}, ErrDuplicate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RegistrationRequest{}, err
	}

	request := models.RegistrationRequest{
		Username:    candidate.Username,
		Email:       candidate.Email,
		Name:        candidate.Name,
		Role:        candidate.Role,
		Status:      models.RegistrationPending,
		RequestedAt: time.Now(),
	}

	if err := database.Create(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.RegistrationRequest{}, ErrDuplicate
		}
		return models.RegistrationRequest{}, err
	}

	return request, nil
}

// ReviewResult carries the processed request and, on approval, the created
// user and their one-time password-reset token. The account's temporary
// password is random and never leaves this package.
type ReviewResult struct {
	Request    models.RegistrationRequest
	User       *models.User
	ResetToken string
}

// Review applies an admin decision to a pending request. The transition is
// legal exactly once; a request in a terminal state conflicts. Approval
// creates the user inside the same transaction, honoring the requested role
// unless overrideRole is set.
func Review(database *gorm.DB, id uint, decision models.RegistrationStatus, overrideRole authz.Role) (ReviewResult, error) {
	if decision != models.RegistrationApproved && decision != models.RegistrationRejected {
		return ReviewResult{}, ErrBadDecision
	}
	if overrideRole != "" && !overrideRole.Valid() {
		return ReviewResult{}, ErrBadRole
	}

	var result ReviewResult

	err := database.Transaction(func(tx *gorm.DB) error {
		var request models.RegistrationRequest

		if err := tx.First(&request, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if request.Status != models.RegistrationPending {
			return ErrAlreadyProcessed
		}

		if decision == models.RegistrationApproved {
			role := request.Role
			if overrideRole != "" {
				role = overrideRole
			}

			user, token, err := createApprovedUser(tx, request, role)
			if err != nil {
				return err
			}
			result.User = user
			result.ResetToken = token
		}

		now := time.Now()
		request.Status = decision
		request.ProcessedAt = &now

		if err := tx.Save(&request).Error; err != nil {
			return err
		}

		result.Request = request
		return nil
	})
	if err != nil {
		return ReviewResult{}, err
	}

	return result, nil
}

// createApprovedUser derives a unique username from the request's own
// username, adding a numeric suffix on collision. The insert retries on a
// duplicate-key error so two approvals racing over the same base still end
// up with distinct usernames.
func createApprovedUser(tx *gorm.DB, request models.RegistrationRequest, role authz.Role) (*models.User, string, error) {
	var holder models.User
	err := tx.Where("email = ?", request.Email).First(&holder).Error
	if err == nil {
		return nil, "", ErrDuplicate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	resetToken := uuid.NewString()

	for attempt := 0; attempt < 10; attempt++ {
		username, err := deriveUsername(tx, request.Username)
		if err != nil {
			return nil, "", err
		}

		user := models.User{
			Username:           username,
			Email:              request.Email,
			PasswordHash:       string(hash),
			Name:               request.Name,
			Role:               role,
			MustChangePassword: true,
			PasswordResetToken: &resetToken,
		}

		err = tx.Create(&user).Error
		if err == nil {
			return &user, resetToken, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", err
		}
	}

	return nil, "", ErrDuplicate
}

func deriveUsername(tx *gorm.DB, base string) (string, error) {
	username := base

	for counter := 1; ; counter++ {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
}
