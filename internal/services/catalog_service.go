package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/banksampah/backend/internal/models"
)

// CatalogService manages the waste-type catalog. Deposits reference
// entries by id, so renames here never touch historical deposit rows.
type CatalogService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// ListWasteTypes lists catalog entries
// @Summary List waste types
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active entries"
// @Success 200 {array} models.WasteType
// @Router /waste-types [get]
func (s *CatalogService) ListWasteTypes(w http.ResponseWriter, r *http.Request) {
	query := `SELECT id, name, is_active, created_at, updated_at FROM waste_types`
	args := []any{}
	if r.URL.Query().Get("active") == "true" {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[CATALOG] List query failed: %v", err)
		SendErrorResponse(w, "Failed to list waste types", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	types := []models.WasteType{}
	for rows.Next() {
		var wt models.WasteType
		if err := rows.Scan(&wt.ID, &wt.Name, &wt.IsActive, &wt.CreatedAt, &wt.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to list waste types", http.StatusInternalServerError, nil)
			return
		}
		types = append(types, wt)
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to list waste types", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": types})
}

// CreateWasteType adds a catalog entry
// @Summary Create a waste type
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,is_active=bool} true "Waste type"
// @Success 201 {object} models.WasteType
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Name already exists"
// @Router /waste-types [post]
func (s *CatalogService) CreateWasteType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required,min=2"`
		IsActive *bool  `json:"is_active"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	wt := models.WasteType{
		ID:       uuid.NewString(),
		Name:     req.Name,
		IsActive: active,
	}
	err := s.db.QueryRowContext(r.Context(), `
		INSERT INTO waste_types (id, name, is_active)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		wt.ID, wt.Name, wt.IsActive).Scan(&wt.CreatedAt, &wt.UpdatedAt)
	if err != nil {
		log.Printf("[CATALOG] Insert failed for %q: %v", req.Name, err)
		SendErrorResponse(w, "Waste type with this name already exists", http.StatusConflict, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Waste type created",
		"data":    wt,
	})
}

// UpdateWasteType renames or (de)activates a catalog entry
// @Summary Update a waste type
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param wasteTypeId path string true "Waste type ID"
// @Param request body object{name=string,is_active=bool} true "Fields to update"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /waste-types/{wasteTypeId} [put]
func (s *CatalogService) UpdateWasteType(w http.ResponseWriter, r *http.Request) {
	wasteTypeID := chi.URLParam(r, "wasteTypeId")

	var req struct {
		Name     string `json:"name" validate:"required,min=2"`
		IsActive bool   `json:"is_active"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	res, err := s.db.ExecContext(r.Context(), `
		UPDATE waste_types SET name = $1, is_active = $2, updated_at = NOW() WHERE id = $3`,
		req.Name, req.IsActive, wasteTypeID)
	if err != nil {
		log.Printf("[CATALOG] Update failed for %s: %v", wasteTypeID, err)
		SendErrorResponse(w, "Waste type with this name already exists", http.StatusConflict, nil)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Waste type not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Waste type updated"})
}

// DeleteWasteType removes an unreferenced catalog entry
// @Summary Delete a waste type
// @Description Deletion is blocked while deposits still reference the entry; deactivate instead.
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param wasteTypeId path string true "Waste type ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Still referenced by deposits"
// @Router /waste-types/{wasteTypeId} [delete]
func (s *CatalogService) DeleteWasteType(w http.ResponseWriter, r *http.Request) {
	wasteTypeID := chi.URLParam(r, "wasteTypeId")

	var refs int
	if err := s.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM deposits WHERE waste_type_id = $1`, wasteTypeID).Scan(&refs); err != nil {
		SendErrorResponse(w, "Failed to delete waste type", http.StatusInternalServerError, nil)
		return
	}
	if refs > 0 {
		SendErrorResponse(w, "Waste type is referenced by deposits; deactivate it instead", http.StatusConflict, nil)
		return
	}

	res, err := s.db.ExecContext(r.Context(), `DELETE FROM waste_types WHERE id = $1`, wasteTypeID)
	if err != nil {
		log.Printf("[CATALOG] Delete failed for %s: %v", wasteTypeID, err)
		SendErrorResponse(w, "Failed to delete waste type", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Waste type not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Waste type deleted"})
}
