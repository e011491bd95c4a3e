package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/db"
	"github.com/classtrack-dev/classtrack/internal/auth"
	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
	"github.com/classtrack-dev/classtrack/internal/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.SetJWTSecret("handler-test-secret")
}

func setupServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))

	return router.NewRouter(database), database
}

func createUser(t *testing.T, database *gorm.DB, username, email, password string, role authz.Role) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Name:         username,
		Role:         role,
	}
	require.NoError(t, database.Create(&user).Error)
	return user
}

func token(t *testing.T, username string) string {
	t.Helper()

	tok, err := auth.GenerateToken(username)
	require.NoError(t, err)
	return tok
}

func doRequest(t *testing.T, r *gin.Engine, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}
