// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"io"
)

// MaxDocumentSize is the largest document the transport will frame. Declared
// lengths above it are rejected before any allocation happens.
const MaxDocumentSize = 16 * 1024 * 1024

// minDocumentSize is the length prefix plus the terminating null byte.
const minDocumentSize = 5

// DocumentSink is an io.Writer that frames a stream of concatenated
// length-prefixed BSON documents. It accumulates the 4-byte little-endian
// length from the first four bytes of each document, allocates a buffer of
// exactly that length, and fills it. When the last byte of a document
// arrives, the completed buffer is handed to the callback and the sink resets
// to await the next document.
//
// The sink performs no structural validation of document contents; it is a
// pure framing layer.
type DocumentSink struct {
	onDocument func([]byte)

	length int32
	buf    []byte
	read   int
}

// NewDocumentSink returns a DocumentSink that passes each completed document
// buffer to onDocument. Ownership of the buffer transfers to the callback.
func NewDocumentSink(onDocument func([]byte)) *DocumentSink {
	return &DocumentSink{onDocument: onDocument}
}

// Write feeds bytes into the sink. It accepts writes of any size and at any
// document boundary alignment.
func (ds *DocumentSink) Write(p []byte) (int, error) {
	for n, b := range p {
		if err := ds.insert(b); err != nil {
			return n, err
		}
	}
	return len(p), nil
}

func (ds *DocumentSink) insert(b byte) error {
	ds.read++

	// The first four bytes assemble the little-endian document length.
	if ds.read <= 4 {
		ds.length |= int32(b) << (8 * (ds.read - 1))
	}
	if ds.read == 4 {
		if ds.length > MaxDocumentSize {
			return framingErrorf("declared document length %d exceeds maximum %d", ds.length, MaxDocumentSize)
		}
		if ds.length < minDocumentSize {
			return framingErrorf("declared document length %d is below minimum %d", ds.length, minDocumentSize)
		}
		ds.buf = make([]byte, ds.length)
		ds.buf[0] = byte(ds.length)
		ds.buf[1] = byte(ds.length >> 8)
		ds.buf[2] = byte(ds.length >> 16)
		ds.buf[3] = byte(ds.length >> 24)
	}

	if ds.read > 4 {
		if ds.read > int(ds.length) {
			// A complete document should already have been emitted.
			return io.ErrShortWrite
		}
		ds.buf[ds.read-1] = b
	}

	// The buffer is only allocated once the prefix is assembled and
	// validated; until then a partially accumulated length must not be
	// mistaken for a completed document.
	if ds.buf != nil && ds.read == int(ds.length) {
		buf := ds.buf
		ds.buf = nil
		ds.read = 0
		ds.length = 0
		ds.onDocument(buf)
	}
	return nil
}
