package donations

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DonorRepository remembers which DonorTools persona belongs to a donor email.
type DonorRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewDonorRepository creates a new donor repository
func NewDonorRepository(db *sql.DB, log zerolog.Logger) *DonorRepository {
	return &DonorRepository{
		db:  db,
		log: log.With().Str("repo", "donors").Logger(),
	}
}

// GetPersonaID returns the remembered persona id for email, or "" when unknown.
// Emails compare case-insensitively.
func (r *DonorRepository) GetPersonaID(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}

	var personaID string
	err := r.db.QueryRow("SELECT persona_id FROM donors WHERE email = ?", email).Scan(&personaID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get persona for %s: %w", email, err)
	}
	return personaID, nil
}

// Remember stores or replaces the persona id for email. Empty values are ignored.
func (r *DonorRepository) Remember(email, personaID string) error {
	email = strings.TrimSpace(email)
	if email == "" || personaID == "" {
		return nil
	}

	_, err := r.db.Exec(`
		INSERT INTO donors (email, persona_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET persona_id = excluded.persona_id, updated_at = excluded.updated_at
	`, email, personaID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to remember persona %s for %s: %w", personaID, email, err)
	}

	r.log.Debug().Str("persona_id", personaID).Msg("Remembered donor persona")
	return nil
}
