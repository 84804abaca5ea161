package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/banksampah/backend/internal/models"
)

func TestCatalogService_CreateWasteType(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCatalogService(db)

	t.Run("successful creation defaults to active", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO waste_types").
			WithArgs(sqlmock.AnyArg(), "Plastik PET", true).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
				AddRow(time.Now(), time.Now()))

		body, _ := json.Marshal(map[string]any{"name": "Plastik PET"})
		r := authedRequest(httptest.NewRequest("POST", "/waste-types", bytes.NewBuffer(body)),
			"adm1", models.RoleAdmin, nil)
		w := httptest.NewRecorder()

		service.CreateWasteType(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name returns conflict", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO waste_types").
			WillReturnError(assert.AnError)

		body, _ := json.Marshal(map[string]any{"name": "Plastik PET"})
		r := authedRequest(httptest.NewRequest("POST", "/waste-types", bytes.NewBuffer(body)),
			"adm1", models.RoleAdmin, nil)
		w := httptest.NewRecorder()

		service.CreateWasteType(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("short name fails validation", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"name": "P"})
		r := authedRequest(httptest.NewRequest("POST", "/waste-types", bytes.NewBuffer(body)),
			"adm1", models.RoleAdmin, nil)
		w := httptest.NewRecorder()

		service.CreateWasteType(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCatalogService_ListWasteTypes(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCatalogService(db)

	columns := []string{"id", "name", "is_active", "created_at", "updated_at"}

	t.Run("active filter", func(t *testing.T) {
		mock.ExpectQuery("WHERE is_active = \\$1").
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("wt1", "Plastik PET", true, time.Now(), time.Now()))

		r := authedRequest(httptest.NewRequest("GET", "/waste-types?active=true", nil),
			"u1", models.RoleMember, nil)
		w := httptest.NewRecorder()

		service.ListWasteTypes(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCatalogService_DeleteWasteType(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCatalogService(db)

	t.Run("unreferenced entry is deleted", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM deposits WHERE waste_type_id = \\$1").
			WithArgs("wt1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("DELETE FROM waste_types WHERE id = \\$1").
			WithArgs("wt1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		r := authedRequest(httptest.NewRequest("DELETE", "/waste-types/wt1", nil),
			"adm1", models.RoleAdmin, map[string]string{"wasteTypeId": "wt1"})
		w := httptest.NewRecorder()

		service.DeleteWasteType(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("referenced entry is kept", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM deposits WHERE waste_type_id = \\$1").
			WithArgs("wt1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

		r := authedRequest(httptest.NewRequest("DELETE", "/waste-types/wt1", nil),
			"adm1", models.RoleAdmin, map[string]string{"wasteTypeId": "wt1"})
		w := httptest.NewRecorder()

		service.DeleteWasteType(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
