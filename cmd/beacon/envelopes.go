package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"

	"mercator-hq/beacon/pkg/envelope"
)

// openInput opens path for reading; "-" or "" is stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// envelopeStream decodes envelopes from a JSON array, a single JSON object, or
// a stream of objects (JSON lines).
type envelopeStream struct {
	dec   *json.Decoder
	array bool
	n     int
}

func newEnvelopeStream(r io.Reader) (*envelopeStream, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	s := &envelopeStream{dec: json.NewDecoder(br)}
	if first == '[' {
		if _, err := s.dec.Token(); err != nil {
			return nil, fmt.Errorf("envelope array: %w", err)
		}
		s.array = true
	}
	return s, nil
}

// Next returns the next envelope, or io.EOF when the input is exhausted.
func (s *envelopeStream) Next() (*envelope.Envelope, error) {
	if s.array && !s.dec.More() {
		return nil, io.EOF
	}

	var env envelope.Envelope
	if err := s.dec.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("envelope %d: %w", s.n+1, err)
	}
	s.n++
	return &env, nil
}

// readEnvelopes decodes every envelope in r.
func readEnvelopes(r io.Reader) ([]*envelope.Envelope, error) {
	stream, err := newEnvelopeStream(r)
	if err != nil {
		return nil, err
	}

	var envelopes []*envelope.Envelope
	for {
		env, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return envelopes, nil
		}
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b[0])) {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}
