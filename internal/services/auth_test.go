package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/banksampah/backend/internal/models"
)

func setupAuthConfig() {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
}

func TestAuthService_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)

	t.Run("successful registration creates user and account", func(t *testing.T) {
		req := RegisterRequest{
			FullName: "Siti Rahayu",
			Email:    "Siti@Example.com",
			Password: "password123",
			Phone:    "+6281234567890",
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").
			WithArgs(sqlmock.AnyArg(), req.FullName, "siti@example.com", sqlmock.AnyArg(), req.Phone,
				"", "", "", "", models.RoleMember, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO accounts").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, "siti@example.com", response.User.Email)
		assert.Equal(t, models.RoleMember, response.User.Role)
		assert.True(t, strings.HasPrefix(response.User.QRData, "BANKSAMPAH-"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email returns conflict", func(t *testing.T) {
		req := RegisterRequest{
			FullName: "Siti Rahayu",
			Email:    "siti@example.com",
			Password: "password123",
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(sql.ErrConnDone) // unique violation stand-in
		mock.ExpectRollback()

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		body, _ := json.Marshal(RegisterRequest{
			FullName: "Siti Rahayu",
			Email:    "siti@example.com",
			Password: "short",
		})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)

	t.Run("successful login", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, full_name, email, password, role, qr_code, profile_completed").
			WithArgs("siti@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "password", "role", "qr_code", "profile_completed"}).
				AddRow("u1", "Siti Rahayu", "siti@example.com", hashedPassword, models.RoleMember, "qr", true))

		body, _ := json.Marshal(LoginRequest{Email: "siti@example.com", Password: "password123"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, full_name, email, password, role, qr_code, profile_completed").
			WithArgs("siti@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "password", "role", "qr_code", "profile_completed"}).
				AddRow("u1", "Siti Rahayu", "siti@example.com", hashedPassword, models.RoleMember, "qr", true))

		body, _ := json.Marshal(LoginRequest{Email: "siti@example.com", Password: "wrongpassword"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("user not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, full_name, email, password, role, qr_code, profile_completed").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "password123"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setupAuthConfig()

	password := "testpassword"

	hashed, err := hashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashed)

	assert.True(t, verifyPassword(password, hashed))
	assert.False(t, verifyPassword("wrongpassword", hashed))
}

func TestGenerateJWT(t *testing.T) {
	setupAuthConfig()

	token, err := generateJWT("u1", models.RoleOperator)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestGenerateQRData(t *testing.T) {
	data := generateQRData("siti@example.com")
	assert.True(t, strings.HasPrefix(data, "BANKSAMPAH-siti@example.com-"))

	badge, err := renderQRBadge(data)
	assert.NoError(t, err)
	assert.NotEmpty(t, badge)
}
