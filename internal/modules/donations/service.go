package donations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/rs/zerolog"
)

// RemoteClient is the subset of the DonorTools client used by Service
type RemoteClient interface {
	ImportDonations(ctx context.Context, cfg donortools.Config) (*donortools.ImportResult, error)
	SaveDonation(ctx context.Context, cfg donortools.Config, donation donortools.OutgoingDonation, personaID string) (*donortools.SaveResult, error)
}

// Service moves donations between DonorTools and the local ledger
type Service struct {
	client           RemoteClient
	donations        *Repository
	donors           *DonorRepository
	rememberPersonas bool
	log              zerolog.Logger
}

// NewService creates a donation service.
// With rememberPersonas set, Save reuses persona ids stored by email and
// Import stores the persona ids it sees.
func NewService(client RemoteClient, donations *Repository, donors *DonorRepository, rememberPersonas bool, log zerolog.Logger) *Service {
	return &Service{
		client:           client,
		donations:        donations,
		donors:           donors,
		rememberPersonas: rememberPersonas,
		log:              log.With().Str("service", "donations").Logger(),
	}
}

// ListRemote fetches and joins all remote donations without storing anything.
func (s *Service) ListRemote(ctx context.Context, cfg donortools.Config) (*donortools.ImportResult, error) {
	return s.client.ImportDonations(ctx, cfg)
}

// Import fetches remote donations and stores the ones not yet in the ledger.
// Any client error aborts before anything is written.
func (s *Service) Import(ctx context.Context, cfg donortools.Config) (*ImportSummary, error) {
	result, err := s.client.ImportDonations(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to import donations: %w", err)
	}

	summary := &ImportSummary{Diagnostics: result.Diagnostics}
	if summary.Diagnostics == nil {
		summary.Diagnostics = []donortools.Diagnostic{}
	}

	for _, rd := range result.Donations {
		created, err := s.donations.CreateIfAbsent(fromRemote(rd))
		if err != nil {
			return summary, err
		}
		if !created {
			summary.Skipped++
			continue
		}
		summary.Imported++

		if s.rememberPersonas && rd.Donor != nil {
			if err := s.donors.Remember(rd.Donor.Email, rd.Donor.PersonaID); err != nil {
				s.log.Warn().Err(err).Str("donation_id", rd.DonationID).Msg("Failed to remember donor persona")
			}
		}
	}

	for _, diag := range summary.Diagnostics {
		s.log.Warn().
			Str("kind", string(diag.Kind)).
			Str("donation_id", diag.DonationID).
			Msg(diag.Message)
	}

	s.log.Info().
		Int("imported", summary.Imported).
		Int("skipped", summary.Skipped).
		Int("diagnostics", len(summary.Diagnostics)).
		Msg("Donation import complete")

	return summary, nil
}

// Save sends a locally captured donation to DonorTools and records it as an
// online donation. An empty personaID falls back to the persona remembered
// for the donor email, then to creating a new persona.
// The DonorTools save is authoritative: a failure to record it locally is
// logged but does not fail the call.
func (s *Service) Save(ctx context.Context, cfg donortools.Config, donation donortools.OutgoingDonation, personaID string) (*donortools.SaveResult, error) {
	if personaID == "" && s.rememberPersonas {
		id, err := s.donors.GetPersonaID(donation.Email)
		if err != nil {
			return nil, err
		}
		personaID = id
	}

	result, err := s.client.SaveDonation(ctx, cfg, donation, personaID)
	if err != nil {
		// The persona exists even though the donation failed; keep it for the retry.
		var partial *donortools.PartialSaveError
		if errors.As(err, &partial) && s.rememberPersonas {
			if rememberErr := s.donors.Remember(donation.Email, partial.PersonaID); rememberErr != nil {
				s.log.Warn().Err(rememberErr).Msg("Failed to remember persona after partial save")
			}
		}
		return nil, err
	}

	if s.rememberPersonas {
		if err := s.donors.Remember(donation.Email, result.PersonaID); err != nil {
			s.log.Warn().Err(err).Str("persona_id", result.PersonaID).Msg("Failed to remember donor persona")
		}
	}

	record, err := fromOutgoing(donation, result, time.Now().Unix())
	if err == nil {
		err = s.donations.Create(record)
	}
	if err != nil {
		s.log.Error().Err(err).
			Str("donation_id", result.DonationID).
			Msg("Donation saved to DonorTools but not recorded locally")
	}

	s.log.Info().
		Str("persona_id", result.PersonaID).
		Str("donation_id", result.DonationID).
		Bool("persona_reused", personaID != "").
		Msg("Donation saved")

	return result, nil
}

// Recent returns stored donations, newest first.
func (s *Service) Recent(limit int, origin Origin) ([]Donation, error) {
	return s.donations.List(limit, origin)
}
