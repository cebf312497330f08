package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

// Subscriber is a named endpoint address. Neither field is validated: any
// two strings, including empty ones, form a valid Subscriber.
type Subscriber struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// New constructs a Subscriber from its two fields.
func New(url, name string) Subscriber {
	return Subscriber{URL: url, Name: name}
}

// DecodeError reports JSON input that does not have the shape of a Subscriber.
// Field is empty when the top-level value itself is wrong.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode subscriber: " + e.Reason
	}
	return "decode subscriber: field " + `"` + e.Field + `": ` + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrInvalidUTF8 is returned by Encode for fields that are not valid UTF-8;
// encoding them would silently substitute U+FFFD and break the round trip.
var ErrInvalidUTF8 = errors.New("not a valid UTF-8 string")

// Encode renders s as {"url":...,"name":...}. Both fields must hold valid UTF-8.
func Encode(s Subscriber) ([]byte, error) {
	if !utf8.ValidString(s.URL) {
		return nil, fmt.Errorf("encode subscriber: field %q: %w", "url", ErrInvalidUTF8)
	}
	if !utf8.ValidString(s.Name) {
		return nil, fmt.Errorf("encode subscriber: field %q: %w", "name", ErrInvalidUTF8)
	}
	return json.Marshal(s)
}

// Decode parses a JSON object into a Subscriber. Both keys are required,
// must appear once and must hold valid UTF-8 strings; unknown keys are
// ignored. Every failure is a *DecodeError.
func Decode(data []byte) (Subscriber, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Subscriber{}, &DecodeError{Reason: "not a JSON object"}
	}
	fields, err := objectFields(trimmed)
	if err != nil {
		return Subscriber{}, err
	}

	url, err := stringField(fields, "url")
	if err != nil {
		return Subscriber{}, err
	}
	name, err := stringField(fields, "name")
	if err != nil {
		return Subscriber{}, err
	}
	return Subscriber{URL: url, Name: name}, nil
}

// UnmarshalJSON applies the Decode contract to json.Unmarshal and json.Decoder.
func (s *Subscriber) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// objectFields walks the top-level object token by token so that a repeated
// url or name key is reported instead of collapsed last-wins.
func objectFields(data []byte) (map[string]json.RawMessage, error) {
	malformed := func(err error) error {
		return &DecodeError{Reason: "malformed JSON object", Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, malformed(err)
	}
	fields := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, malformed(fmt.Errorf("unexpected token %v", tok))
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed(err)
		}
		if _, seen := fields[key]; seen && (key == "url" || key == "name") {
			return nil, &DecodeError{Field: key, Reason: "duplicate"}
		}
		fields[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed(errors.New("trailing data after object"))
	}
	return fields, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", &DecodeError{Field: key, Reason: "missing"}
	}
	raw = bytes.TrimSpace(raw)
	// null would otherwise unmarshal into "" without error
	if len(raw) == 0 || raw[0] != '"' {
		return "", &DecodeError{Field: key, Reason: "not a string"}
	}
	// encoding/json replaces both with U+FFFD instead of failing
	if !utf8.Valid(raw) || !pairedSurrogates(raw) {
		return "", &DecodeError{Field: key, Reason: ErrInvalidUTF8.Error()}
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &DecodeError{Field: key, Reason: "not a string", Err: err}
	}
	return v, nil
}

// pairedSurrogates reports whether every \uD800-\uDFFF escape in the JSON
// string literal raw is part of a high/low surrogate pair.
func pairedSurrogates(raw []byte) bool {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			continue
		}
		if raw[i+1] != 'u' {
			i++
			continue
		}
		r, ok := hexEscape(raw, i)
		if !ok {
			// malformed escapes are left to json.Unmarshal
			return true
		}
		switch {
		case r >= 0xD800 && r < 0xDC00:
			low, ok := hexEscape(raw, i+6)
			if !ok || low < 0xDC00 || low > 0xDFFF {
				return false
			}
			i += 11
		case r >= 0xDC00 && r <= 0xDFFF:
			return false
		default:
			i += 5
		}
	}
	return true
}

// hexEscape decodes the \uXXXX escape starting at raw[i].
func hexEscape(raw []byte, i int) (rune, bool) {
	if i+6 > len(raw) || raw[i] != '\\' || raw[i+1] != 'u' {
		return 0, false
	}
	var r rune
	for _, c := range raw[i+2 : i+6] {
		switch {
		case c >= '0' && c <= '9':
			r = r<<4 | rune(c-'0')
		case c >= 'a' && c <= 'f':
			r = r<<4 | rune(c-'a'+10)
		case c >= 'A' && c <= 'F':
			r = r<<4 | rune(c-'A'+10)
		default:
			return 0, false
		}
	}
	return r, true
}

// Record is a stored Subscriber together with its storage identity.
type Record struct {
	ID        string    `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewRecord wraps s with an id and creation time.
func NewRecord(id string, s Subscriber, createdAt time.Time) *Record {
	return &Record{ID: id, URL: s.URL, Name: s.Name, CreatedAt: createdAt}
}

// Subscriber returns the wire record without storage fields.
func (r *Record) Subscriber() Subscriber {
	return Subscriber{URL: r.URL, Name: r.Name}
}
