// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"io"

	"github.com/pkg/errors"
)

// DocumentSource is a seekable reader over an in-memory byte region. Seeks
// past either end clamp to the nearest boundary instead of failing, and a
// single byte of pushback is supported after a successful read.
type DocumentSource struct {
	data []byte
	pos  int
}

// NewDocumentSource returns a DocumentSource positioned at the start of data.
// The source reads the slice in place; it takes no copy.
func NewDocumentSource(data []byte) *DocumentSource {
	return &DocumentSource{data: data}
}

// Read implements io.Reader.
func (dsrc *DocumentSource) Read(p []byte) (int, error) {
	if dsrc.pos >= len(dsrc.data) {
		return 0, io.EOF
	}
	n := copy(p, dsrc.data[dsrc.pos:])
	dsrc.pos += n
	return n, nil
}

// ReadByte implements io.ByteReader.
func (dsrc *DocumentSource) ReadByte() (byte, error) {
	if dsrc.pos >= len(dsrc.data) {
		return 0, io.EOF
	}
	b := dsrc.data[dsrc.pos]
	dsrc.pos++
	return b, nil
}

// UnreadByte steps the position back by one byte. It fails at the start of
// the region.
func (dsrc *DocumentSource) UnreadByte() error {
	if dsrc.pos == 0 {
		return errors.New("bsonarchive: UnreadByte at start of region")
	}
	dsrc.pos--
	return nil
}

// Seek implements io.Seeker. Out-of-range targets are clamped to the region
// boundaries rather than returning an error, so a negative result position is
// impossible.
func (dsrc *DocumentSource) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(dsrc.pos) + offset
	case io.SeekEnd:
		target = int64(len(dsrc.data)) + offset
	default:
		return int64(dsrc.pos), errors.Errorf("bsonarchive: invalid whence %d", whence)
	}
	if target < 0 {
		target = 0
	}
	if target > int64(len(dsrc.data)) {
		target = int64(len(dsrc.data))
	}
	dsrc.pos = int(target)
	return target, nil
}

// Len returns the number of unread bytes.
func (dsrc *DocumentSource) Len() int {
	return len(dsrc.data) - dsrc.pos
}

// Bytes returns the full underlying region regardless of position.
func (dsrc *DocumentSource) Bytes() []byte {
	return dsrc.data
}
