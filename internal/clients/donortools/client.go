// Package donortools provides a client for the donortools.com XML API.
// It imports offline donations (joined with their donor personas) and saves
// online donations, creating a persona first when needed.
//
// Configuration is passed to every call; the client itself holds only
// transports and a logger.
package donortools

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const maxErrorBody = 512

// Client talks to the DonorTools API.
type Client struct {
	secure   http.RoundTripper
	insecure http.RoundTripper
	log      zerolog.Logger
}

// NewClient creates a new DonorTools client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		secure:   newTransport(false),
		insecure: newTransport(true),
		log:      log.With().Str("component", "donortools").Logger(),
	}
}

func newTransport(skipVerify bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
		// Only set when the caller opts in via Config.InsecureSkipVerify.
		InsecureSkipVerify: skipVerify, //nolint:gosec
	}
	return t
}

func (c *Client) httpClient(cfg Config) *http.Client {
	rt := c.secure
	if cfg.InsecureSkipVerify {
		rt = c.insecure
	}
	return &http.Client{Timeout: cfg.timeout(), Transport: rt}
}

// FetchXML requests {cfg.Endpoint}/{resource} and parses the response.
// An empty body issues a GET, anything else is POSTed as the document.
func (c *Client) FetchXML(ctx context.Context, cfg Config, resource string, body string) (*Document, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target := cfg.resourceURL(resource)
	method := http.MethodGet
	var reader io.Reader
	contentType := ""
	if body != "" {
		method = http.MethodPost
		switch cfg.BodyEncoding {
		case BodyForm:
			reader = strings.NewReader(url.Values{"XML": {body}}.Encode())
			contentType = "application/x-www-form-urlencoded"
		default:
			reader = strings.NewReader(body)
			contentType = "text/xml"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/xml")
	req.SetBasicAuth(cfg.Username, cfg.Password)

	c.log.Debug().Str("method", method).Str("resource", resource).Msg("Making DonorTools request")

	resp, err := c.httpClient(cfg).Do(req)
	if err != nil {
		return c.transportFailure(cfg, resource, &TransportError{Method: method, URL: target, Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportFailure(cfg, resource, &TransportError{Method: method, URL: target, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(data)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: snippet}
	}

	return parseDocument(resource, data)
}

// transportFailure returns err, or in log-and-continue mode logs it and
// parses an empty response instead.
func (c *Client) transportFailure(cfg Config, resource string, err *TransportError) (*Document, error) {
	if !cfg.LogAndContinue {
		return nil, err
	}
	c.log.Error().Err(err).Str("resource", resource).Msg("Unable to reach DonorTools API, continuing")
	return parseDocument(resource, nil)
}

// ImportDonations fetches donations and personas and joins them.
// Donations without a matching persona are returned with a nil Donor and
// reported as diagnostics.
func (c *Client) ImportDonations(ctx context.Context, cfg Config) (*ImportResult, error) {
	donationsDoc, err := c.FetchXML(ctx, cfg, DonationsResource, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations: %w", err)
	}
	personasDoc, err := c.FetchXML(ctx, cfg, PersonasResource, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch personas: %w", err)
	}

	var donations donationList
	if err := donationsDoc.Decode(&donations); err != nil {
		return nil, err
	}
	var personas personaList
	if err := personasDoc.Decode(&personas); err != nil {
		return nil, err
	}

	index := newPersonaIndex(personas.Personas)
	result := &ImportResult{
		Donations:   make([]RemoteDonation, 0, len(donations.Donations)),
		Diagnostics: make([]Diagnostic, 0),
	}

	for i, record := range donations.Donations {
		donation, err := record.toRemoteDonation(i)
		if err != nil {
			return nil, err
		}

		persona, matches := index.lookup(donation.DonationID)
		switch {
		case persona == nil:
			c.log.Warn().Str("donation_id", donation.DonationID).Msg("No persona found for donation")
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Kind:       DiagnosticMissingPersona,
				DonationID: donation.DonationID,
				Message:    "no persona matches donation id",
			})
		case matches > 1:
			c.log.Warn().
				Str("donation_id", donation.DonationID).
				Int("matches", matches).
				Msg("Several personas match donation, using the first")
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Kind:       DiagnosticDuplicatePersona,
				DonationID: donation.DonationID,
				Message:    fmt.Sprintf("%d personas match donation id, first one used", matches),
			})
		}
		if persona != nil {
			donation.Donor = persona.toDonor()
		}

		result.Donations = append(result.Donations, donation)
	}

	c.log.Info().
		Int("donations", len(result.Donations)).
		Int("personas", len(personas.Personas)).
		Int("diagnostics", len(result.Diagnostics)).
		Msg("Fetched DonorTools donations")

	return result, nil
}

// SaveDonation saves donation to DonorTools. When personaID is empty a
// persona is created from the donor fields first.
func (c *Client) SaveDonation(ctx context.Context, cfg Config, donation OutgoingDonation, personaID string) (*SaveResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if donation.Amount.IsNegative() {
		return nil, &FieldError{
			Resource: DonationsResource,
			Field:    "amount-in-cents",
			Value:    donation.Amount.String(),
			Err:      fmt.Errorf("%w: amount must not be negative", ErrInvalidField),
		}
	}
	cents, err := UnitsToCents(donation.Amount)
	if err != nil {
		return nil, &FieldError{
			Resource: DonationsResource,
			Field:    "amount-in-cents",
			Value:    donation.Amount.String(),
			Err:      fmt.Errorf("%w: %w", ErrInvalidField, err),
		}
	}

	createdPersona := false
	if personaID == "" {
		doc, err := BuildPersonaDocument(cfg.Schema, donation)
		if err != nil {
			return nil, err
		}
		resp, err := c.FetchXML(ctx, cfg, PersonasResource, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to create persona: %w", err)
		}
		personaID, err = resp.ResourceID()
		if err != nil {
			return nil, fmt.Errorf("failed to read created persona: %w", err)
		}
		createdPersona = true
		c.log.Info().Str("persona_id", personaID).Msg("Created DonorTools persona")
	}

	doc, err := BuildDonationDocument(personaID, cents, cfg.FundID, cfg.SourceID)
	if err != nil {
		return nil, err
	}

	donationID, err := c.postDonation(ctx, cfg, doc)
	if err != nil {
		if createdPersona {
			return nil, &PartialSaveError{PersonaID: personaID, Err: err}
		}
		return nil, err
	}

	c.log.Info().
		Str("persona_id", personaID).
		Str("donation_id", donationID).
		Int64("amount_in_cents", cents).
		Msg("Saved donation to DonorTools")

	return &SaveResult{PersonaID: personaID, DonationID: donationID}, nil
}

func (c *Client) postDonation(ctx context.Context, cfg Config, doc string) (string, error) {
	resp, err := c.FetchXML(ctx, cfg, DonationsResource, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create donation: %w", err)
	}
	id, err := resp.ResourceID()
	if err != nil {
		return "", fmt.Errorf("failed to read created donation: %w", err)
	}
	return id, nil
}
