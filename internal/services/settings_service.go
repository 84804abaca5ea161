package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/lib/pq"

	"github.com/banksampah/backend/internal/models"
)

// SettingsService is a small key/value store for runtime-tunable
// presentation settings (contact numbers, site name and so on).
type SettingsService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewSettingsService(db *sql.DB) *SettingsService {
	return &SettingsService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// Public keys are readable without authentication (shown on the landing page).
var publicSettingKeys = []string{"site_name", "cs_whatsapp_number"}

// GetSettings returns all settings keyed by name
// @Summary Get settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]models.AppSetting
// @Router /settings [get]
func (s *SettingsService) GetSettings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(), `
		SELECT setting_key, setting_value, description
		FROM app_settings ORDER BY setting_key ASC`)
	s.respondSettings(w, rows, err)
}

// GetPublicSettings returns the unauthenticated subset of settings
// @Summary Get public settings
// @Tags settings
// @Produce json
// @Success 200 {object} map[string]models.AppSetting
// @Router /settings/public [get]
func (s *SettingsService) GetPublicSettings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(), `
		SELECT setting_key, setting_value, description
		FROM app_settings
		WHERE setting_key = ANY($1) ORDER BY setting_key ASC`,
		pq.Array(publicSettingKeys))
	s.respondSettings(w, rows, err)
}

func (s *SettingsService) respondSettings(w http.ResponseWriter, rows *sql.Rows, err error) {
	if err != nil {
		log.Printf("[SETTINGS] Query failed: %v", err)
		SendErrorResponse(w, "Failed to load settings", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	settings := map[string]models.AppSetting{}
	for rows.Next() {
		var setting models.AppSetting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Description); err != nil {
			SendErrorResponse(w, "Failed to load settings", http.StatusInternalServerError, nil)
			return
		}
		settings[setting.Key] = setting
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to load settings", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// UpdateSetting upserts one key/value pair
// @Summary Update a setting
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{setting_key=string,setting_value=string,description=string} true "Setting"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /settings [put]
func (s *SettingsService) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key         string  `json:"setting_key" validate:"required"`
		Value       string  `json:"setting_value" validate:"required"`
		Description *string `json:"description"`
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

	_, err := s.db.ExecContext(r.Context(), `
		INSERT INTO app_settings (setting_key, setting_value, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value`,
		req.Key, req.Value, req.Description)
	if err != nil {
		log.Printf("[SETTINGS] Upsert failed for %s: %v", req.Key, err)
		SendErrorResponse(w, "Failed to update setting", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Setting updated"})
}
