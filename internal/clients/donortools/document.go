package donortools

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Document is a well-formed XML response from the API.
type Document struct {
	Resource string
	Root     xml.Name
	body     []byte
}

// parseDocument checks that body holds exactly one well-formed root element.
func parseDocument(resource string, body []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var root xml.Name
	seenRoot := false
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedResponseError{Resource: resource, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if seenRoot {
					return nil, &MalformedResponseError{Resource: resource, Err: errors.New("more than one root element")}
				}
				root = t.Name
				seenRoot = true
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, &MalformedResponseError{Resource: resource, Err: errors.New("text outside root element")}
			}
		}
	}

	if !seenRoot {
		return nil, &MalformedResponseError{Resource: resource, Err: errors.New("empty document")}
	}

	return &Document{Resource: resource, Root: root, body: body}, nil
}

// Decode unmarshals the document into v.
func (d *Document) Decode(v interface{}) error {
	if err := xml.Unmarshal(d.body, v); err != nil {
		return &MalformedResponseError{Resource: d.Resource, Err: err}
	}
	return nil
}

// Bytes returns the raw response body.
func (d *Document) Bytes() []byte {
	return d.body
}

// createdResource is the part of a create response we care about.
type createdResource struct {
	ID string `xml:"id"`
}

// ResourceID returns the top-level id element of the document.
func (d *Document) ResourceID() (string, error) {
	var res createdResource
	if err := d.Decode(&res); err != nil {
		return "", err
	}
	id := strings.TrimSpace(res.ID)
	if id == "" {
		return "", &FieldError{Resource: d.Resource, Field: "id", Err: ErrMissingField}
	}
	return id, nil
}

// marshalDocument renders v with the XML declaration the API expects.
func marshalDocument(v interface{}) (string, error) {
	out, err := xml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	return xml.Header + string(out), nil
}
