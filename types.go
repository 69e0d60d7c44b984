// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"time"

	"github.com/ikmak/bsonarchive/bsoncore"
)

// ObjectID is the BSON ObjectID type.
type ObjectID = bsoncore.ObjectID

// DateTime represents a BSON datetime value: milliseconds since the Unix
// epoch.
type DateTime int64

// NewDateTimeFromTime creates a new DateTime from a time.Time, truncated to
// millisecond precision.
func NewDateTimeFromTime(t time.Time) DateTime {
	return DateTime(t.Unix()*1000 + int64(t.Nanosecond()/1e6))
}

// Time returns the DateTime as a time.Time in UTC.
func (dt DateTime) Time() time.Time {
	return time.Unix(int64(dt)/1000, int64(dt)%1000*1e6).UTC()
}

// Timestamp represents a BSON timestamp value.
type Timestamp struct {
	T uint32
	I uint32
}

// Regex represents a BSON regex value.
type Regex struct {
	Pattern string
	Options string
}

// JavaScript represents BSON JavaScript code.
type JavaScript string

// Symbol represents a BSON symbol value.
type Symbol string

// Binary represents a BSON binary value whose data is owned by the Go value.
type Binary struct {
	Subtype byte
	Data    []byte
}

// DBPointer represents a BSON dbPointer value.
type DBPointer struct {
	DB      string
	Pointer ObjectID
}

// CodeWithScope represents a BSON code-with-scope value whose scope document
// is owned by the Go value.
type CodeWithScope struct {
	Code  string
	Scope bsoncore.Document
}

// Null represents the BSON null value.
type Null struct{}

// MinKey represents the BSON minkey value.
type MinKey struct{}

// MaxKey represents the BSON maxkey value.
type MaxKey struct{}

// Undefined represents the BSON undefined value.
type Undefined struct{}

// The Raw* types below are views: they reference bytes inside a decoded
// document's buffer instead of owning a copy. A struct with a Raw* field, at
// any depth, must embed RawBase so the buffer backing the views outlives the
// decode (see the underlying-data contract in underlying.go). The writer
// rejects Raw* values whose enclosing type does not embed RawBase.

// RawString is a view of a BSON string's UTF-8 bytes.
type RawString []byte

// String returns a copy of the viewed bytes as a Go string.
func (rs RawString) String() string { return string(rs) }

// RawDocument is a view of a complete embedded BSON document.
type RawDocument bsoncore.Document

// Document returns the view as a bsoncore.Document.
func (rd RawDocument) Document() bsoncore.Document { return bsoncore.Document(rd) }

// RawArray is a view of a complete embedded BSON array.
type RawArray bsoncore.Array

// Array returns the view as a bsoncore.Array.
func (ra RawArray) Array() bsoncore.Array { return bsoncore.Array(ra) }

// RawBinary is a BSON binary value whose data aliases the decoded document's
// buffer.
type RawBinary struct {
	Subtype byte
	Data    []byte
}

// RawCodeWithScope is a BSON code-with-scope value whose scope document
// aliases the decoded document's buffer.
type RawCodeWithScope struct {
	Code  string
	Scope RawDocument
}

// RawJavaScript is a view of a BSON JavaScript code string's bytes.
type RawJavaScript []byte

// String returns a copy of the viewed code as a Go string.
func (rj RawJavaScript) String() string { return string(rj) }

// RawSymbol is a view of a BSON symbol's bytes.
type RawSymbol []byte

// String returns a copy of the viewed symbol as a Go string.
func (rs RawSymbol) String() string { return string(rs) }

// RawRegex is a BSON regular expression whose pattern and options alias the
// decoded document's buffer.
type RawRegex struct {
	Pattern RawString
	Options RawString
}

// RawDBPointer is a BSON DBPointer whose namespace aliases the decoded
// document's buffer.
type RawDBPointer struct {
	DB      RawString
	Pointer ObjectID
}

// Named binds a field name to a value so a single scalar, document, or array
// can be archived as a named root element. It is transparent: it does not
// open or close a node of its own.
type Named struct {
	Name  string
	Value interface{}
}
