// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"errors"
	"fmt"

	"github.com/ikmak/bsonarchive/bsoncore"
)

// ErrArrayExhausted is returned when an array-context read advances past the
// array's last element.
var ErrArrayExhausted = errors.New("array is out of bounds")

// ErrStreamExhausted is returned when a document stream has no further
// complete documents. It wraps io.EOF semantics at the archive level: callers
// iterating a stream should treat it as a clean end, while callers expecting
// a document should treat it as a failure.
var ErrStreamExhausted = errors.New("no more data in document stream")

// FramingError indicates that the length-prefixed document framing is
// violated: a declared length below the minimum or above the protocol
// maximum, or a stream that ends mid-document.
type FramingError struct {
	Reason string
}

func (fe FramingError) Error() string { return "framing: " + fe.Reason }

func framingErrorf(format string, args ...interface{}) FramingError {
	return FramingError{Reason: fmt.Sprintf(format, args...)}
}

// SchemaError indicates that the sequence of archive operations violated the
// node protocol: a missing field name, a value written or read outside a
// node, or a node finished that was never started.
type SchemaError struct {
	Op     string
	Reason string
}

func (se SchemaError) Error() string { return se.Op + ": " + se.Reason }

// TypeMismatchError indicates that a stored value's type tag does not match
// the type requested by the caller. The archive performs no numeric widening
// or narrowing.
type TypeMismatchError struct {
	Requested bsoncore.Type
	Stored    bsoncore.Type
}

func (tme TypeMismatchError) Error() string {
	return fmt.Sprintf("positioned on %s, but attempted to read %s", tme.Stored, tme.Requested)
}

// MissingKeyError indicates that an object-context lookup by name found no
// matching key.
type MissingKeyError struct {
	Key string
}

func (mke MissingKeyError) Error() string {
	return fmt.Sprintf("no element found with the key %q", mke.Key)
}

// OwnershipError indicates that a raw view value was written or read on
// behalf of an aggregate that does not hold its document's underlying data.
// Aggregates embedding raw view types must embed RawBase.
type OwnershipError struct {
	Type string
}

func (oe OwnershipError) Error() string {
	return fmt.Sprintf("cannot archive raw view type %s unless the enclosing type embeds bsonarchive.RawBase", oe.Type)
}
