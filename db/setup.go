package db

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
)

func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

// pendingIndexes guard registration intake against concurrent duplicates:
// at most one pending request per username and per email. GORM tags cannot
// express a predicate, so these are raw SQL; the syntax is valid on both
// postgres and sqlite. Soft-deleted rows must stay out of the predicate or
// a deleted pending request would block that identity forever.
var pendingIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_pending_username
		ON registration_requests (username) WHERE status = 'pending' AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_pending_email
		ON registration_requests (email) WHERE status = 'pending' AND deleted_at IS NULL`,
}

func Migrate(database *gorm.DB) error {
	tables := []interface{}{
		&models.User{},
		&models.Assignment{},
		&models.AssignmentSubmission{},
		&models.Message{},
		&models.RegistrationRequest{},
	}

	if err := database.AutoMigrate(tables...); err != nil {
		return err
	}

	for _, stmt := range pendingIndexes {
		if err := database.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

type seedUser struct {
	username string
	email    string
	password string
	name     string
	role     authz.Role
}

var demoUsers = []seedUser{
	{"admin", "admin@school.com", "admin123", "Administrator", authz.RoleAdmin},
	{"teacher1", "teacher1@school.com", "teacher123", "Teacher One", authz.RoleTeacher},
	{"parent1", "parent1@school.com", "parent123", "Parent One", authz.RoleParent},
	{"student1", "student1@school.com", "student123", "Student One", authz.RoleStudent},
}

// SeedDemoUsers ensures the four fixed demo accounts exist. It is idempotent
// and only runs when SEED_DEMO_DATA is set; production deployments should
// never enable it.
func SeedDemoUsers(database *gorm.DB) error {
	for _, seed := range demoUsers {
		var existing models.User

		err := database.Where("username = ?", seed.username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := models.User{
			Username:     seed.username,
			Email:        seed.email,
			PasswordHash: string(hash),
			Name:         seed.name,
			Role:         seed.role,
		}

		if err := database.Create(&user).Error; err != nil {
			return err
		}
	}

	return nil
}
