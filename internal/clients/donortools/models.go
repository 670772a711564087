package donortools

import (
	"encoding/xml"

	"github.com/shopspring/decimal"
)

// RemoteDonation is a donation read from the API during import.
type RemoteDonation struct {
	DonationID  string          `json:"donation_id"`
	Amount      decimal.Decimal `json:"donation"` // Currency units
	AmountCents int64           `json:"amount_in_cents"`
	CreatedTime int64           `json:"created_time"` // Unix seconds from received-on
	Donor       *Donor          `json:"donor"`        // nil when no persona matched
}

// Donor holds the persona fields joined onto a RemoteDonation.
type Donor struct {
	PersonaID  string `json:"persona_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Company    string `json:"company"`
	Email      string `json:"email"`
	City       string `json:"city"`
	Region     string `json:"region_text"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
}

// OutgoingDonation is a donation captured locally that should be saved
// to DonorTools.
type OutgoingDonation struct {
	Amount     decimal.Decimal `json:"donation"` // Currency units
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	City       string          `json:"city"`
	Address    string          `json:"address"`
	Region     string          `json:"region_text"`
	PostalCode string          `json:"postal_code"`
	Email      string          `json:"email"`
}

// SaveResult holds the identifiers assigned by DonorTools.
type SaveResult struct {
	PersonaID  string `json:"persona_id"`
	DonationID string `json:"donation_id"`
}

// DiagnosticKind classifies a non-fatal import problem.
type DiagnosticKind string

const (
	DiagnosticMissingPersona   DiagnosticKind = "missing_persona"
	DiagnosticDuplicatePersona DiagnosticKind = "duplicate_persona"
)

// Diagnostic records a non-fatal problem found while importing.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	DonationID string         `json:"donation_id"`
	Message    string         `json:"message"`
}

// ImportResult is the outcome of ImportDonations.
type ImportResult struct {
	Donations   []RemoteDonation `json:"donations"`
	Diagnostics []Diagnostic     `json:"diagnostics"`
}

// Wire types for donations.xml and personas.xml.

type donationList struct {
	Donations []donationRecord `xml:"donation"`
}

type donationRecord struct {
	ID            string `xml:"id"`
	AmountInCents string `xml:"amount-in-cents"`
	ReceivedOn    string `xml:"received-on"`
}

type personaList struct {
	Personas []personaRecord `xml:"persona"`
}

type personaRecord struct {
	ID          string          `xml:"id"`
	CompanyName string          `xml:"company-name"`
	Names       []nameRecord    `xml:"names>name"`
	Addresses   []addressRecord `xml:"addresses>address"`
	Emails      []emailRecord   `xml:"email-addresses>email-address"`
}

type nameRecord struct {
	FirstName string `xml:"first-name"`
	LastName  string `xml:"last-name"`
}

type addressRecord struct {
	City          string `xml:"city"`
	StreetAddress string `xml:"street-address"`
	State         string `xml:"state"`
	PostalCode    string `xml:"postal-code"`
}

type emailRecord struct {
	EmailAddress string `xml:"email-address"`
}

// Wire types for the documents we POST.

type integerElement struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type splitElement struct {
	AmountInCents integerElement `xml:"amount-in-cents"`
	FundID        integerElement `xml:"fund-id"`
}

type splitsElement struct {
	Type   string         `xml:"type,attr"`
	Splits []splitElement `xml:"split"`
}

type donationDocument struct {
	XMLName        xml.Name       `xml:"donation"`
	DonationTypeID integerElement `xml:"donation-type-id"`
	PersonaID      integerElement `xml:"persona-id"`
	Splits         splitsElement  `xml:"splits"`
	SourceID       integerElement `xml:"source-id"`
}
