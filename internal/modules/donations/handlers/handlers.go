// Package handlers provides HTTP handlers for donation operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/aristath/donorsync/internal/modules/donations"
	"github.com/rs/zerolog"
)

const maxSaveBody = 64 << 10

// saveRequest is the POST /api/donations body
type saveRequest struct {
	donortools.OutgoingDonation
	PersonaID string `json:"persona_id"` // Optional existing DonorTools persona
}

// Handler handles donation HTTP requests
type Handler struct {
	service *donations.Service
	cfg     donortools.Config
	log     zerolog.Logger
}

// NewHandler creates a new donation handler. cfg is passed to every
// DonorTools call the handler makes.
func NewHandler(
	service *donations.Service,
	cfg donortools.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		log:     log.With().Str("handler", "donations").Logger(),
	}
}

// HandleList handles GET /api/donations
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 100 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	origin, ok := donations.ParseOrigin(r.URL.Query().Get("origin"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "origin must be offline or online")
		return
	}

	list, err := h.service.Recent(limit, origin)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list donations")
		h.writeError(w, http.StatusInternalServerError, "Failed to list donations")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": list,
		"metadata": map[string]interface{}{
			"count":     len(list),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleImport handles POST /api/donations/import
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Import(r.Context(), h.cfg)
	if err != nil {
		h.log.Error().Err(err).Msg("Donation import failed")
		h.writeError(w, remoteStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleListRemote handles GET /api/donations/remote
func (h *Handler) HandleListRemote(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListRemote(r.Context(), h.cfg)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list remote donations")
		h.writeError(w, remoteStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleSave handles POST /api/donations
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSaveBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if msg := validateDonation(req.OutgoingDonation); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	// Detached so a dropped client or the router timeout cannot cancel the
	// donation POST after its persona was created.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.SaveTimeout())
	defer cancel()

	result, err := h.service.Save(ctx, h.cfg, req.OutgoingDonation, strings.TrimSpace(req.PersonaID))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save donation")

		var partial *donortools.PartialSaveError
		if errors.As(err, &partial) {
			h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":      err.Error(),
				"persona_id": partial.PersonaID,
			})
			return
		}
		h.writeError(w, remoteStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

func validateDonation(d donortools.OutgoingDonation) string {
	if d.Amount.IsNegative() {
		return "donation must not be negative"
	}
	cents, err := donortools.UnitsToCents(d.Amount)
	if err != nil {
		return "donation is too large"
	}
	if cents == 0 {
		return "donation must be at least one cent"
	}
	if strings.TrimSpace(d.FirstName) == "" && strings.TrimSpace(d.LastName) == "" {
		return "first_name or last_name is required"
	}
	return ""
}

// remoteStatus maps DonorTools failures to 502 and everything else to 500
func remoteStatus(err error) int {
	var (
		statusErr *donortools.StatusError
		fieldErr  *donortools.FieldError
	)
	switch {
	case errors.Is(err, donortools.ErrTransport),
		errors.Is(err, donortools.ErrMalformedResponse),
		errors.As(err, &statusErr),
		errors.As(err, &fieldErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
