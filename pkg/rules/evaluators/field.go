package evaluators

import (
	"strings"

	"mercator-hq/beacon/pkg/envelope"
)

// MetadataPrefix introduces a metadata key in a field path.
const MetadataPrefix = "metadata."

// AllowedFields lists the top-level envelope attributes rules may read.
var AllowedFields = []string{
	"event_id",
	"authority_id",
	"authority_source",
	"authority_type",
	"title",
	"body_text",
	"committee",
	"subcommittee",
	"topics",
	"content_hash",
	"version",
	"published_at",
	"published_at_source",
	"event_start_at",
	"source_url",
	"fetched_at",
}

// IsAllowedField reports whether path passes the field-access policy.
func IsAllowedField(path string) bool {
	if key, ok := strings.CutPrefix(path, MetadataPrefix); ok {
		return key != ""
	}
	for _, f := range AllowedFields {
		if f == path {
			return true
		}
	}
	return false
}

// ResolveField reads a whitelisted field from env. Unset optional attributes and
// absent metadata keys resolve to nil. Any path outside the policy returns a
// *FieldAccessError.
func ResolveField(env *envelope.Envelope, path string) (any, error) {
	if key, ok := strings.CutPrefix(path, MetadataPrefix); ok && key != "" {
		v, found := env.MetadataValue(key)
		if !found {
			return nil, nil
		}
		return v, nil
	}

	switch path {
	case "event_id":
		return env.EventID(), nil
	case "authority_id":
		return env.AuthorityID(), nil
	case "authority_source":
		return env.AuthoritySource(), nil
	case "authority_type":
		return env.AuthorityType(), nil
	case "title":
		return env.Title(), nil
	case "body_text":
		return env.BodyText(), nil
	case "committee":
		return optionalString(env.Committee())
	case "subcommittee":
		return optionalString(env.Subcommittee())
	case "topics":
		return env.Topics(), nil
	case "content_hash":
		return env.ContentHash(), nil
	case "version":
		return env.Version(), nil
	case "published_at":
		if t, ok := env.PublishedAt(); ok {
			return t, nil
		}
		return nil, nil
	case "published_at_source":
		return string(env.PublishedAtSource()), nil
	case "event_start_at":
		if t, ok := env.EventStartAt(); ok {
			return t, nil
		}
		return nil, nil
	case "source_url":
		return env.SourceURL(), nil
	case "fetched_at":
		if t := env.FetchedAt(); !t.IsZero() {
			return t, nil
		}
		return nil, nil
	}

	return nil, &FieldAccessError{Field: path}
}

func optionalString(s string, ok bool) (any, error) {
	if !ok {
		return nil, nil
	}
	return s, nil
}
