package scheduler

import (
	"context"
	"time"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/aristath/donorsync/internal/config"
	"github.com/aristath/donorsync/internal/modules/donations"
	"github.com/rs/zerolog"
)

// Importer is the part of donations.Service the import job uses
type Importer interface {
	Import(ctx context.Context, cfg donortools.Config) (*donations.ImportSummary, error)
	ListRemote(ctx context.Context, cfg donortools.Config) (*donortools.ImportResult, error)
}

// ImportDonationsJob pulls donations from DonorTools.
// In store mode new donations are written to the ledger; in list mode they
// are only fetched and logged.
type ImportDonationsJob struct {
	importer Importer
	cfg      donortools.Config
	mode     config.ImportMode
	timeout  time.Duration
	log      zerolog.Logger
}

// NewImportDonationsJob creates a new ImportDonationsJob
func NewImportDonationsJob(importer Importer, cfg donortools.Config, mode config.ImportMode, log zerolog.Logger) *ImportDonationsJob {
	return &ImportDonationsJob{
		importer: importer,
		cfg:      cfg,
		mode:     mode,
		timeout:  5 * time.Minute,
		log:      log.With().Str("job", "import_donations").Logger(),
	}
}

// Name returns the job name
func (j *ImportDonationsJob) Name() string {
	return "import_donations"
}

// Run executes the import
func (j *ImportDonationsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if j.mode == config.ImportModeList {
		result, err := j.importer.ListRemote(ctx, j.cfg)
		if err != nil {
			return err
		}
		for _, d := range result.Donations {
			event := j.log.Info().
				Str("donation_id", d.DonationID).
				Str("donation", d.Amount.StringFixed(2)).
				Int64("created_time", d.CreatedTime)
			if d.Donor != nil {
				event = event.Str("persona_id", d.Donor.PersonaID).Str("email", d.Donor.Email)
			}
			event.Msg("Remote donation")
		}
		j.log.Info().
			Int("donations", len(result.Donations)).
			Int("diagnostics", len(result.Diagnostics)).
			Msg("Listed remote donations")
		return nil
	}

	summary, err := j.importer.Import(ctx, j.cfg)
	if err != nil {
		return err
	}
	j.log.Info().Int("imported", summary.Imported).Int("skipped", summary.Skipped).Msg("Imported donations")
	return nil
}
