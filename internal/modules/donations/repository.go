package donations

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const donationColumns = `id, remote_donation_id, persona_id, amount_cents, created_time, origin,
	first_name, last_name, company, email, city, region, address, postal_code, recorded_at`

// Repository handles donation persistence in donations.db.
// Remote donation ids are unique, which is what keeps repeated imports
// from storing the same donation twice.
type Repository struct {
	db  *sql.DB        // donations.db - donations table
	log zerolog.Logger // Structured logger
}

// NewRepository creates a new donation repository.
//
// Parameters:
//   - db: Database connection to donations.db
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "donations").Logger(),
	}
}

// Create inserts a donation into the ledger.
// A UUID is assigned when ID is empty and RecordedAt is set to now.
//
// Parameters:
//   - d: Donation to insert; ID and RecordedAt are populated on success
//
// Returns:
//   - error: Error if the insert fails (including a duplicate remote donation id)
func (r *Repository) Create(d *Donation) error {
	if _, err := r.insert(d, ""); err != nil {
		return fmt.Errorf("failed to insert donation %s: %w", d.RemoteDonationID, err)
	}
	return nil
}

// CreateIfAbsent inserts d unless a donation with the same remote id is
// already stored. It reports whether a row was written.
func (r *Repository) CreateIfAbsent(d *Donation) (bool, error) {
	n, err := r.insert(d, "ON CONFLICT(remote_donation_id) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("failed to insert donation %s: %w", d.RemoteDonationID, err)
	}
	return n == 1, nil
}

func (r *Repository) insert(d *Donation, onConflict string) (int64, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.RecordedAt = time.Now().Unix()

	res, err := r.db.Exec(`
		INSERT INTO donations (`+donationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`+onConflict,
		d.ID,
		nullString(d.RemoteDonationID),
		nullString(d.PersonaID),
		d.AmountCents,
		d.CreatedTime,
		string(d.Origin),
		d.FirstName,
		d.LastName,
		d.Company,
		d.Email,
		d.City,
		d.Region,
		d.Address,
		d.PostalCode,
		d.RecordedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExistsByRemoteID reports whether a donation with this DonorTools id is stored.
func (r *Repository) ExistsByRemoteID(remoteID string) (bool, error) {
	var exists int
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM donations WHERE remote_donation_id = ?)", remoteID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check donation %s: %w", remoteID, err)
	}
	return exists == 1, nil
}

// GetByRemoteID returns the donation with this DonorTools id, or nil when absent.
func (r *Repository) GetByRemoteID(remoteID string) (*Donation, error) {
	row := r.db.QueryRow("SELECT "+donationColumns+" FROM donations WHERE remote_donation_id = ?", remoteID)

	d, err := scanDonation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donation %s: %w", remoteID, err)
	}
	return d, nil
}

// List returns the newest donations first.
//
// Parameters:
//   - limit: Maximum number of rows; values <= 0 return everything
//   - origin: Optional filter; empty returns both origins
//
// Returns:
//   - []Donation: Donations ordered by created_time descending
//   - error: Error if the query fails
func (r *Repository) List(limit int, origin Origin) ([]Donation, error) {
	var (
		where []string
		args  []interface{}
	)
	if origin != "" {
		where = append(where, "origin = ?")
		args = append(args, string(origin))
	}

	query := "SELECT " + donationColumns + " FROM donations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_time DESC, recorded_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	donations := make([]Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donations: %w", err)
	}

	return donations, nil
}

// Count returns the number of stored donations.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM donations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count donations: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDonation(s scanner) (*Donation, error) {
	var (
		d         Donation
		remoteID  sql.NullString
		personaID sql.NullString
		origin    string
	)
	err := s.Scan(
		&d.ID,
		&remoteID,
		&personaID,
		&d.AmountCents,
		&d.CreatedTime,
		&origin,
		&d.FirstName,
		&d.LastName,
		&d.Company,
		&d.Email,
		&d.City,
		&d.Region,
		&d.Address,
		&d.PostalCode,
		&d.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	d.RemoteDonationID = remoteID.String
	d.PersonaID = personaID.String
	d.Origin = Origin(origin)
	d.Amount = donortools.CentsToUnits(d.AmountCents)
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
