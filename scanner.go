// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"io"
	"reflect"
)

// Scanner iterates a stream of framed BSON documents, decoding each into a
// Go value. In SkipInvalid mode, documents that fail to decode against the
// target's schema are absorbed and the scan continues with the next
// document, preserving the order of the valid ones. Framing errors always
// stop the scan; past the first broken frame there are no trustworthy
// document boundaries.
type Scanner struct {
	r           *Reader
	skipInvalid bool
	err         error
	done        bool
}

// NewScanner returns a Scanner reading from src.
func NewScanner(src io.Reader) *Scanner {
	return &Scanner{r: NewReader(src)}
}

// SkipInvalid controls whether documents that fail schema decoding are
// skipped rather than stopping the scan.
func (s *Scanner) SkipInvalid(skip bool) {
	s.skipInvalid = skip
}

// Scan decodes the next document into v. It returns false when the stream is
// exhausted or an error stops the scan; Err distinguishes the two.
func (s *Scanner) Scan(v interface{}) bool {
	if s.done {
		return false
	}

	// An invalid target would fail identically on every document; reject it
	// before the skip loop so SkipInvalid cannot spin without consuming the
	// stream.
	target := v
	if n, ok := v.(Named); ok {
		target = n.Value
	}
	if rv := reflect.ValueOf(target); rv.Kind() != reflect.Ptr || rv.IsNil() {
		s.err = &SchemaError{Op: "Scan", Reason: "target must be a non-nil pointer"}
		s.done = true
		return false
	}

	for {
		err := decodeNext(s.r, v)
		if err == nil {
			return true
		}
		if err == ErrStreamExhausted {
			s.done = true
			return false
		}
		if s.skipInvalid && isSchemaFailure(err) {
			s.r.reset()
			continue
		}
		s.err = err
		s.done = true
		return false
	}
}

// Err returns the error that stopped the scan, if any. A clean end of stream
// is not an error.
func (s *Scanner) Err() error {
	return s.err
}

func decodeNext(r *Reader, v interface{}) error {
	return (&Decoder{r: r}).Decode(v)
}

// isSchemaFailure reports whether err means this document did not fit the
// target's schema, as opposed to the stream itself being broken.
func isSchemaFailure(err error) bool {
	if err == ErrArrayExhausted {
		return true
	}
	switch err.(type) {
	case *SchemaError, *TypeMismatchError, *MissingKeyError, *OwnershipError:
		return true
	}
	return false
}
