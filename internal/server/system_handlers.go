package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/donorsync/internal/database"
	"github.com/aristath/donorsync/internal/reliability"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves status and backup endpoints
type SystemHandlers struct {
	db          *database.DB
	backups     *reliability.BackupService
	startupTime time.Time
	log         zerolog.Logger
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string          `json:"status"`
	UptimeHours   float64         `json:"uptime_hours"`
	DonationCount int             `json:"donation_count"`
	CPUPercent    float64         `json:"cpu_percent"`
	RAMPercent    float64         `json:"ram_percent"`
	Database      *database.Stats `json:"database,omitempty"`
	BackupsOn     bool            `json:"backups_enabled"`
	LastCheck     string          `json:"last_check"`
}

// NewSystemHandlers creates system handlers. db and backups may be nil.
func NewSystemHandlers(db *database.DB, backups *reliability.BackupService, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:          db,
		backups:     backups,
		startupTime: time.Now(),
		log:         log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:      "healthy",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		BackupsOn:   h.backups != nil,
		LastCheck:   time.Now().Format(time.RFC3339),
	}

	if h.db != nil {
		if err := h.db.Conn().QueryRowContext(r.Context(), "SELECT COUNT(*) FROM donations").Scan(&response.DonationCount); err != nil {
			h.log.Warn().Err(err).Msg("Failed to count donations")
			response.Status = "degraded"
		}
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
			response.Status = "degraded"
		}
		response.Database = stats
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// HandleListBackups handles GET /api/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"}, h.log)
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	}, h.log)
}

// HandleTriggerBackup handles POST /api/backups
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"}, h.log)
		return
	}

	// Not tied to the request: a dropped client must not abort an upload halfway
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	key, err := h.backups.CreateAndUploadBackup(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()}, h.log)
		return
	}
	if err := h.backups.RotateOldBackups(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key}, h.log)
}

// getSystemStats calculates CPU and RAM usage percentages
// Samples CPU over 100ms so the request does not block for long
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
