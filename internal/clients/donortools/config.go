package donortools

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every request to the DonorTools API.
const DefaultTimeout = 60 * time.Second

// Resource paths relative to the configured endpoint.
const (
	DonationsResource = "donations.xml"
	PersonasResource  = "personas.xml"
)

// Schema selects the wrapper element names used in persona documents.
// Older API versions expect the "-attributes" suffix.
type Schema string

const (
	SchemaNested     Schema = "nested"     // names, addresses, email-addresses
	SchemaAttributes Schema = "attributes" // names-attributes, addresses-attributes, ...
)

// ParseSchema converts a configuration string into a Schema.
// An empty string selects SchemaNested.
func ParseSchema(s string) (Schema, error) {
	switch Schema(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemaNested:
		return SchemaNested, nil
	case SchemaAttributes:
		return SchemaAttributes, nil
	}
	return "", fmt.Errorf("unknown persona schema %q (want nested or attributes)", s)
}

func (s Schema) wrapper(name string) string {
	if s == SchemaAttributes {
		return name + "-attributes"
	}
	return name
}

// BodyEncoding selects how XML documents are sent on POST.
type BodyEncoding string

const (
	BodyRaw  BodyEncoding = "raw"  // document is the request body, Content-Type: text/xml
	BodyForm BodyEncoding = "form" // document is the form field "XML"
)

// ParseBodyEncoding converts a configuration string into a BodyEncoding.
// An empty string selects BodyRaw.
func ParseBodyEncoding(s string) (BodyEncoding, error) {
	switch BodyEncoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", BodyRaw:
		return BodyRaw, nil
	case BodyForm:
		return BodyForm, nil
	}
	return "", fmt.Errorf("unknown body encoding %q (want raw or form)", s)
}

// Config carries everything a single API call needs. It is passed to every
// operation and never stored by the client.
type Config struct {
	Endpoint string // Base URL, e.g. https://example.donortools.com
	Username string
	Password string
	FundID   int64 // Fund every split is allocated to
	SourceID int64 // Acquisition channel recorded on saved donations

	// InsecureSkipVerify disables TLS certificate and hostname checks.
	// Only for talking to legacy installs with broken certificates.
	InsecureSkipVerify bool

	Schema       Schema
	BodyEncoding BodyEncoding

	// LogAndContinue logs transport failures instead of returning them and
	// parses the (empty) response as if the request had completed.
	LogAndContinue bool

	Timeout time.Duration // Zero means DefaultTimeout
}

// Validate reports whether the configuration can be used for a request.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("donortools endpoint is not configured")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid donortools endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid donortools endpoint %q: scheme must be http or https", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid donortools endpoint %q: missing host", c.Endpoint)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// SaveTimeout bounds a whole SaveDonation call, which can make two requests.
func (c Config) SaveTimeout() time.Duration {
	return 2 * c.timeout()
}

func (c Config) resourceURL(resource string) string {
	return strings.TrimRight(c.Endpoint, "/") + "/" + strings.TrimLeft(resource, "/")
}
