// Package envelope defines the normalized event record that every source adapter
// produces and the rule engine consumes.
//
// An Envelope describes one observation of a real-world authority (a bill, a
// hearing, an oversight report, an alert). Its content identity is derived once, at
// construction, from the normalized title and body:
//
//	env, err := envelope.New(envelope.Fields{
//	    EventID:         "evt-1",
//	    AuthorityID:     "hr-1234",
//	    AuthoritySource: "congress_gov",
//	    AuthorityType:   "bill",
//	    Title:           "GAO Review",
//	    BodyText:        "An investigation into ...",
//	})
//	fmt.Println(env.ContentHash())
//
// Envelopes are immutable after construction. Use WithContent to derive a copy with
// new text; the copy carries a recomputed content hash.
//
// # Normalization
//
// NormalizeText applies Unicode NFKC, lowercases, collapses whitespace runs to a
// single space and trims. It is pure, total and idempotent, and is shared by content
// hashing and the text-matching evaluators.
package envelope
