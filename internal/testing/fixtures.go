package testing

import (
	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/shopspring/decimal"
)

// NewRemoteDonationFixtures returns donations as ImportDonations would produce them.
// The second donation has no matching persona.
func NewRemoteDonationFixtures() []donortools.RemoteDonation {
	return []donortools.RemoteDonation{
		{
			DonationID:  "D1",
			Amount:      decimal.NewFromInt(50),
			AmountCents: 5000,
			CreatedTime: 1273622400,
			Donor: &donortools.Donor{
				PersonaID:  "D1",
				FirstName:  "Jane",
				LastName:   "Doe",
				Email:      "jane@example.com",
				City:       "Metropolis",
				Region:     "ON",
				Address:    "1 Main St",
				PostalCode: "A1A1A1",
			},
		},
		{
			DonationID:  "D2",
			Amount:      decimal.New(1234, -2),
			AmountCents: 1234,
			CreatedTime: 1273761000,
		},
	}
}

// NewOutgoingDonationFixture returns a locally captured donation ready to save.
func NewOutgoingDonationFixture() donortools.OutgoingDonation {
	return donortools.OutgoingDonation{
		Amount:     decimal.RequireFromString("12.34"),
		FirstName:  "Jane",
		LastName:   "Doe",
		City:       "Metropolis",
		Address:    "1 Main St",
		Region:     "ON",
		PostalCode: "A1A1A1",
		Email:      "jane@example.com",
	}
}
