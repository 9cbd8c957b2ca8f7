package purchase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"timelessmusic/entity"
)

var ErrMalformedInput = errors.New("invalid content, expected valid JSON")

type FieldState int

const (
	FieldValid FieldState = iota
	FieldMissing
	FieldMalformed
)

func (s FieldState) String() string {
	switch s {
	case FieldValid:
		return "valid"
	case FieldMissing:
		return "missing"
	case FieldMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("FieldState(%d)", int(s))
	}
}

type FieldResult struct {
	Name  string
	State FieldState
}

// ValidationError lists every required field that is missing or has the
// wrong type, in declaration order.
type ValidationError struct {
	Fields []FieldResult
}

func (e *ValidationError) Error() string {
	messages := lo.Map(e.Fields, func(f FieldResult, _ int) string {
		return fmt.Sprintf("Missing or invalid field %q", f.Name)
	})

	return "Invalid request: " + strings.Join(messages, ", ")
}

func (e *ValidationError) FieldNames() []string {
	return lo.Map(e.Fields, func(f FieldResult, _ int) string {
		return f.Name
	})
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
)

type requiredField struct {
	name   string
	kind   fieldKind
	assign func(r *entity.PurchaseRequest, s string, b bool)
}

var requiredFields = []requiredField{
	{"gigId", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.GigID = s }},
	{"name", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.Name = s }},
	{"email", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.Email = s }},
	{"nameOnCard", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.NameOnCard = s }},
	{"cardNumber", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.CardNumber = s }},
	{"cardExpiryMonth", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.CardExpiryMonth = s }},
	{"cardExpiryYear", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.CardExpiryYear = s }},
	{"cardCVC", kindString, func(r *entity.PurchaseRequest, s string, _ bool) { r.CardCVC = s }},
	{"disclaimerAccepted", kindBool, func(r *entity.PurchaseRequest, _ string, b bool) { r.DisclaimerAccepted = b }},
}

// RequiredFields returns the names of the fields a purchase must carry.
func RequiredFields() []string {
	return lo.Map(requiredFields, func(f requiredField, _ int) string {
		return f.name
	})
}

// Validate parses a purchase body and checks the presence and type of every
// required field. Empty strings and a false disclaimer count as missing,
// other values such as "0" are accepted as they are.
func Validate(body []byte) (entity.PurchaseRequest, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return entity.PurchaseRequest{}, ErrMalformedInput
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return entity.PurchaseRequest{}, fmt.Errorf("%w: %s", ErrMalformedInput, err)
	}
	if fields == nil {
		// "null" decodes without error
		return entity.PurchaseRequest{}, ErrMalformedInput
	}

	var (
		request entity.PurchaseRequest
		invalid []FieldResult
	)
	for _, field := range requiredFields {
		state, s, b := checkField(fields, field)
		if state != FieldValid {
			invalid = append(invalid, FieldResult{Name: field.name, State: state})
			continue
		}
		field.assign(&request, s, b)
	}

	if len(invalid) > 0 {
		return entity.PurchaseRequest{}, &ValidationError{Fields: invalid}
	}

	return request, nil
}

func checkField(fields map[string]json.RawMessage, field requiredField) (FieldState, string, bool) {
	raw, ok := fields[field.name]
	if !ok || string(raw) == "null" {
		return FieldMissing, "", false
	}

	switch field.kind {
	case kindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return FieldMalformed, "", false
		}
		if !b {
			return FieldMissing, "", false
		}
		return FieldValid, "", b
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldMalformed, "", false
		}
		if s == "" {
			return FieldMissing, "", false
		}
		return FieldValid, s, false
	}
}
