// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"github.com/ikmak/bsonarchive/bsoncore"
)

// SharedData is a handle on the byte buffer backing a decoded document, or on
// an embedded document's sub-range of it. All handles derived from the same
// root document share the root buffer: holding any one of them keeps the
// whole buffer reachable, so views taken from the document remain valid after
// the decode session ends. The buffer is never mutated after creation.
type SharedData struct {
	root []byte // the complete root document buffer
	view []byte // the range this handle describes, aliasing root
}

func newSharedData(root []byte) *SharedData {
	return &SharedData{root: root, view: root}
}

// alias returns a handle describing view while sharing the same root buffer.
func (sd *SharedData) alias(view []byte) *SharedData {
	return &SharedData{root: sd.root, view: view}
}

// Document returns the range this handle describes as a document view.
func (sd *SharedData) Document() bsoncore.Document {
	if sd == nil {
		return nil
	}
	return bsoncore.Document(sd.view)
}

// Len returns the byte length of the described range.
func (sd *SharedData) Len() int {
	if sd == nil {
		return 0
	}
	return len(sd.view)
}

// UnderlyingDataOwner is implemented by aggregate types that hold raw view
// fields (RawString, RawDocument, RawArray, RawBinary, RawCodeWithScope). The
// Reader invokes SetUnderlyingData once, immediately after opening the node
// for such a type, handing it the buffer backing the node's views. Embed
// RawBase to satisfy the interface.
type UnderlyingDataOwner interface {
	SetUnderlyingData(*SharedData)
	UnderlyingData() bsoncore.Document
}

// RawBase holds the underlying data handle for a decoded aggregate. Embed it
// in any struct that declares raw view fields.
type RawBase struct {
	data *SharedData
}

// SetUnderlyingData stores the buffer handle backing this value's views.
func (rb *RawBase) SetUnderlyingData(data *SharedData) { rb.data = data }

// UnderlyingData returns the document view this value was decoded from, or
// nil if the value was not decoded.
func (rb *RawBase) UnderlyingData() bsoncore.Document { return rb.data.Document() }
