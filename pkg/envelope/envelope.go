package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// PublishedAtSource records where an envelope's publication timestamp came from.
type PublishedAtSource string

const (
	// PublishedAtAuthority means the authority itself reported the timestamp.
	PublishedAtAuthority PublishedAtSource = "authority"

	// PublishedAtDerived means the adapter inferred the timestamp.
	PublishedAtDerived PublishedAtSource = "derived"
)

// DefaultVersion is assigned when the caller does not supply a version.
const DefaultVersion = 1

// ErrInvalidEnvelope is wrapped by every construction failure.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// Fields carries the caller-supplied attributes of an Envelope. It is also the JSON
// wire shape; content_hash is accepted on input but always recomputed.
type Fields struct {
	EventID         string `json:"event_id"`
	AuthorityID     string `json:"authority_id"`
	AuthoritySource string `json:"authority_source"`
	AuthorityType   string `json:"authority_type"`

	Title    string `json:"title"`
	BodyText string `json:"body_text"`

	Committee    *string  `json:"committee,omitempty"`
	Subcommittee *string  `json:"subcommittee,omitempty"`
	Topics       []string `json:"topics"`

	ContentHash string `json:"content_hash,omitempty"`
	Version     int    `json:"version,omitempty"`

	PublishedAt       *time.Time        `json:"published_at,omitempty"`
	PublishedAtSource PublishedAtSource `json:"published_at_source,omitempty"`
	EventStartAt      *time.Time        `json:"event_start_at,omitempty"`

	SourceURL string    `json:"source_url"`
	FetchedAt time.Time `json:"fetched_at"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Envelope is a normalized, immutable event record.
type Envelope struct {
	f Fields
}

// New validates f and returns an Envelope with its content hash populated.
func New(f Fields) (*Envelope, error) {
	if f.EventID == "" {
		return nil, fmt.Errorf("%w: event_id is required", ErrInvalidEnvelope)
	}
	if f.AuthorityID == "" {
		return nil, fmt.Errorf("%w: authority_id is required", ErrInvalidEnvelope)
	}
	if f.Version < 0 {
		return nil, fmt.Errorf("%w: version must be positive, got %d", ErrInvalidEnvelope, f.Version)
	}
	if f.Version == 0 {
		f.Version = DefaultVersion
	}

	switch f.PublishedAtSource {
	case "":
		f.PublishedAtSource = PublishedAtAuthority
	case PublishedAtAuthority, PublishedAtDerived:
	default:
		return nil, fmt.Errorf("%w: published_at_source must be %q or %q, got %q",
			ErrInvalidEnvelope, PublishedAtAuthority, PublishedAtDerived, f.PublishedAtSource)
	}

	f.Committee = cloneString(f.Committee)
	f.Subcommittee = cloneString(f.Subcommittee)
	f.Topics = slices.Clone(f.Topics)
	if f.Topics == nil {
		f.Topics = []string{}
	}
	f.Metadata = maps.Clone(f.Metadata)
	f.PublishedAt = cloneTime(f.PublishedAt)
	f.EventStartAt = cloneTime(f.EventStartAt)

	f.ContentHash = ContentHash(f.Title, f.BodyText)

	return &Envelope{f: f}, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(f Fields) *Envelope {
	env, err := New(f)
	if err != nil {
		panic(err)
	}
	return env
}

// WithContent returns a copy of e with new title and body and a recomputed hash.
func (e *Envelope) WithContent(title, body string) (*Envelope, error) {
	f := e.Fields()
	f.Title = title
	f.BodyText = body
	return New(f)
}

// Fields returns a deep copy of the envelope's attributes.
func (e *Envelope) Fields() Fields {
	f := e.f
	f.Committee = cloneString(f.Committee)
	f.Subcommittee = cloneString(f.Subcommittee)
	f.Topics = slices.Clone(f.Topics)
	f.Metadata = maps.Clone(f.Metadata)
	f.PublishedAt = cloneTime(f.PublishedAt)
	f.EventStartAt = cloneTime(f.EventStartAt)
	return f
}

func (e *Envelope) EventID() string         { return e.f.EventID }
func (e *Envelope) AuthorityID() string     { return e.f.AuthorityID }
func (e *Envelope) AuthoritySource() string { return e.f.AuthoritySource }
func (e *Envelope) AuthorityType() string   { return e.f.AuthorityType }
func (e *Envelope) Title() string           { return e.f.Title }
func (e *Envelope) BodyText() string        { return e.f.BodyText }
func (e *Envelope) ContentHash() string     { return e.f.ContentHash }
func (e *Envelope) Version() int            { return e.f.Version }
func (e *Envelope) SourceURL() string       { return e.f.SourceURL }
func (e *Envelope) FetchedAt() time.Time    { return e.f.FetchedAt }

func (e *Envelope) PublishedAtSource() PublishedAtSource { return e.f.PublishedAtSource }

// Committee returns the committee and whether one is set.
func (e *Envelope) Committee() (string, bool) { return deref(e.f.Committee) }

// Subcommittee returns the subcommittee and whether one is set.
func (e *Envelope) Subcommittee() (string, bool) { return deref(e.f.Subcommittee) }

// Topics returns a copy of the ordered topic list.
func (e *Envelope) Topics() []string { return slices.Clone(e.f.Topics) }

// PublishedAt returns the publication time and whether one is set.
func (e *Envelope) PublishedAt() (time.Time, bool) { return derefTime(e.f.PublishedAt) }

// EventStartAt returns the event start time and whether one is set.
func (e *Envelope) EventStartAt() (time.Time, bool) { return derefTime(e.f.EventStartAt) }

// MetadataValue returns the metadata value stored under key.
func (e *Envelope) MetadataValue(key string) (any, bool) {
	v, ok := e.f.Metadata[key]
	return v, ok
}

// MarshalJSON encodes the envelope in its wire shape, including content_hash.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.f)
}

// UnmarshalJSON decodes and validates an envelope. Any content_hash in the input is
// discarded and recomputed.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	env, err := New(f)
	if err != nil {
		return err
	}
	*e = *env
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

func derefTime(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}
