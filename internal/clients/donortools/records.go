package donortools

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// receivedOnLayouts are tried in order when parsing received-on.
// Values without a zone are read as UTC.
var receivedOnLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseReceivedOn parses a received-on value into a time.
func ParseReceivedOn(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range receivedOnLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// toRemoteDonation validates a donation record and converts it.
// position is the record's index, used when the id itself is missing.
func (r donationRecord) toRemoteDonation(position int) (RemoteDonation, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return RemoteDonation{}, &FieldError{
			Resource: DonationsResource,
			Record:   "#" + strconv.Itoa(position+1),
			Field:    "id",
			Err:      ErrMissingField,
		}
	}

	rawCents := strings.TrimSpace(r.AmountInCents)
	if rawCents == "" {
		return RemoteDonation{}, &FieldError{Resource: DonationsResource, Record: id, Field: "amount-in-cents", Err: ErrMissingField}
	}
	cents, err := strconv.ParseInt(rawCents, 10, 64)
	if err != nil {
		return RemoteDonation{}, &FieldError{
			Resource: DonationsResource,
			Record:   id,
			Field:    "amount-in-cents",
			Value:    rawCents,
			Err:      fmt.Errorf("%w: %v", ErrInvalidField, err),
		}
	}

	rawReceived := strings.TrimSpace(r.ReceivedOn)
	if rawReceived == "" {
		return RemoteDonation{}, &FieldError{Resource: DonationsResource, Record: id, Field: "received-on", Err: ErrMissingField}
	}
	received, err := ParseReceivedOn(rawReceived)
	if err != nil {
		return RemoteDonation{}, &FieldError{
			Resource: DonationsResource,
			Record:   id,
			Field:    "received-on",
			Value:    rawReceived,
			Err:      fmt.Errorf("%w: %v", ErrInvalidField, err),
		}
	}

	return RemoteDonation{
		DonationID:  id,
		Amount:      CentsToUnits(cents),
		AmountCents: cents,
		CreatedTime: received.Unix(),
	}, nil
}

func (p *personaRecord) toDonor() *Donor {
	d := &Donor{
		PersonaID: strings.TrimSpace(p.ID),
		Company:   p.CompanyName,
	}
	if len(p.Names) > 0 {
		d.FirstName = p.Names[0].FirstName
		d.LastName = p.Names[0].LastName
	}
	if len(p.Emails) > 0 {
		d.Email = p.Emails[0].EmailAddress
	}
	if len(p.Addresses) > 0 {
		a := p.Addresses[0]
		d.City = a.City
		d.Region = a.State
		d.Address = a.StreetAddress
		d.PostalCode = a.PostalCode
	}
	return d
}

// personaIndex maps a persona id element to the first persona carrying it.
type personaIndex struct {
	byID   map[string]*personaRecord
	counts map[string]int
}

func newPersonaIndex(personas []personaRecord) personaIndex {
	idx := personaIndex{
		byID:   make(map[string]*personaRecord, len(personas)),
		counts: make(map[string]int, len(personas)),
	}
	for i := range personas {
		id := strings.TrimSpace(personas[i].ID)
		if id == "" {
			continue
		}
		idx.counts[id]++
		if _, ok := idx.byID[id]; !ok {
			idx.byID[id] = &personas[i]
		}
	}
	return idx
}

// lookup returns the first matching persona and how many personas matched.
func (idx personaIndex) lookup(id string) (*personaRecord, int) {
	return idx.byID[id], idx.counts[id]
}
