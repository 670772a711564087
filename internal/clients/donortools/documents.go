package donortools

import (
	"encoding/xml"
	"strconv"
)

// DonationTypeID is the donation type recorded for every saved donation.
const DonationTypeID = 14

type personaName struct {
	FirstName string `xml:"first-name"`
	LastName  string `xml:"last-name"`
}

type personaAddress struct {
	City          string `xml:"city"`
	StreetAddress string `xml:"street-address"`
	State         string `xml:"state"`
	PostalCode    string `xml:"postal-code"`
}

type personaEmail struct {
	EmailAddress string `xml:"email-address"`
}

// personaDocument renders a persona creation request. Wrapper element
// names depend on the schema, so it marshals itself token by token.
type personaDocument struct {
	schema  Schema
	name    personaName
	address personaAddress
	email   personaEmail
}

func newPersonaDocument(schema Schema, d OutgoingDonation) personaDocument {
	return personaDocument{
		schema: schema,
		name: personaName{
			FirstName: d.FirstName,
			LastName:  d.LastName,
		},
		address: personaAddress{
			City:          d.City,
			StreetAddress: d.Address,
			State:         d.Region,
			PostalCode:    d.PostalCode,
		},
		email: personaEmail{EmailAddress: d.Email},
	}
}

func (p personaDocument) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start = xml.StartElement{Name: xml.Name{Local: "persona"}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeArray(e, p.schema.wrapper("names"), "name", p.name); err != nil {
		return err
	}
	if err := encodeArray(e, p.schema.wrapper("addresses"), "address", p.address); err != nil {
		return err
	}
	if err := encodeArray(e, p.schema.wrapper("email-addresses"), "email-address", p.email); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// encodeArray writes <wrapper type="array"><item>...</item></wrapper>.
func encodeArray(e *xml.Encoder, wrapper, item string, v interface{}) error {
	ws := xml.StartElement{
		Name: xml.Name{Local: wrapper},
		Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "array"}},
	}
	if err := e.EncodeToken(ws); err != nil {
		return err
	}
	if err := e.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: item}}); err != nil {
		return err
	}
	return e.EncodeToken(ws.End())
}

// BuildPersonaDocument returns the XML sent to personas.xml for a donor.
func BuildPersonaDocument(schema Schema, d OutgoingDonation) (string, error) {
	return marshalDocument(newPersonaDocument(schema, d))
}

func integer(v string) integerElement {
	return integerElement{Type: "integer", Value: v}
}

// BuildDonationDocument returns the XML sent to donations.xml.
func BuildDonationDocument(personaID string, amountCents, fundID, sourceID int64) (string, error) {
	doc := donationDocument{
		DonationTypeID: integer(strconv.Itoa(DonationTypeID)),
		PersonaID:      integer(personaID),
		Splits: splitsElement{
			Type: "array",
			Splits: []splitElement{{
				AmountInCents: integer(strconv.FormatInt(amountCents, 10)),
				FundID:        integer(strconv.FormatInt(fundID, 10)),
			}},
		},
		SourceID: integer(strconv.FormatInt(sourceID, 10)),
	}
	return marshalDocument(doc)
}
