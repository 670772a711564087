// Package donations keeps the local donation ledger in sync with DonorTools.
package donations

import (
	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/shopspring/decimal"
)

// Origin records where a locally stored donation came from.
type Origin string

const (
	// OriginOffline - imported from DonorTools (entered there by staff)
	OriginOffline Origin = "offline"
	// OriginOnline - captured locally and saved to DonorTools
	OriginOnline Origin = "online"
)

// ParseOrigin validates an origin filter. Empty means no filter.
func ParseOrigin(s string) (Origin, bool) {
	switch Origin(s) {
	case "", OriginOffline, OriginOnline:
		return Origin(s), true
	}
	return "", false
}

// Donation is a row of the local donations table
type Donation struct {
	ID               string          `json:"id"`
	RemoteDonationID string          `json:"remote_donation_id,omitempty"`
	PersonaID        string          `json:"persona_id,omitempty"`
	AmountCents      int64           `json:"amount_in_cents"`
	Amount           decimal.Decimal `json:"donation"`
	CreatedTime      int64           `json:"created_time"`
	Origin           Origin          `json:"origin"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Company          string          `json:"company"`
	Email            string          `json:"email"`
	City             string          `json:"city"`
	Region           string          `json:"region_text"`
	Address          string          `json:"address"`
	PostalCode       string          `json:"postal_code"`
	RecordedAt       int64           `json:"recorded_at"`
}

// fromRemote maps an imported donation onto a ledger row.
func fromRemote(rd donortools.RemoteDonation) *Donation {
	d := &Donation{
		RemoteDonationID: rd.DonationID,
		AmountCents:      rd.AmountCents,
		Amount:           donortools.CentsToUnits(rd.AmountCents),
		CreatedTime:      rd.CreatedTime,
		Origin:           OriginOffline,
	}
	if donor := rd.Donor; donor != nil {
		d.PersonaID = donor.PersonaID
		d.FirstName = donor.FirstName
		d.LastName = donor.LastName
		d.Company = donor.Company
		d.Email = donor.Email
		d.City = donor.City
		d.Region = donor.Region
		d.Address = donor.Address
		d.PostalCode = donor.PostalCode
	}
	return d
}

// fromOutgoing maps a saved donation onto a ledger row.
func fromOutgoing(od donortools.OutgoingDonation, result *donortools.SaveResult, createdTime int64) (*Donation, error) {
	cents, err := donortools.UnitsToCents(od.Amount)
	if err != nil {
		return nil, err
	}
	return &Donation{
		RemoteDonationID: result.DonationID,
		PersonaID:        result.PersonaID,
		AmountCents:      cents,
		Amount:           donortools.CentsToUnits(cents),
		CreatedTime:      createdTime,
		Origin:           OriginOnline,
		FirstName:        od.FirstName,
		LastName:         od.LastName,
		Email:            od.Email,
		City:             od.City,
		Region:           od.Region,
		Address:          od.Address,
		PostalCode:       od.PostalCode,
	}, nil
}

// ImportSummary is the outcome of Service.Import
type ImportSummary struct {
	Imported    int                     `json:"imported"`
	Skipped     int                     `json:"skipped"` // Already present locally
	Diagnostics []donortools.Diagnostic `json:"diagnostics"`
}
