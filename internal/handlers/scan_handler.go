package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/banksampah/backend/internal/services"
)

type ScanHandler struct {
	service   *services.ScanService
	validator *services.ValidationHelper
}

func NewScanHandler(service *services.ScanService) *ScanHandler {
	return &ScanHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// ScanMember resolves a scanned member badge
// @Summary Scan member QR badge
// @Description Resolve the scanned QR data to a member card (name, email, balance)
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{qr_data=string} true "Scanned QR data"
// @Success 200 {object} services.ScanResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /members/scan [post]
func (h *ScanHandler) ScanMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRData string `json:"qr_data" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.Lookup(r.Context(), req.QRData)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    result,
	})
}
