// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// This is here so that during testing we can change it and not require
// allocating a 4GB slice.
var maxSize = math.MaxInt32

type errMaxDocumentSizeExceeded struct {
	size int64
}

func (mdse errMaxDocumentSizeExceeded) Error() string {
	return fmt.Sprintf("document size (%d) is larger than the max int32", mdse.size)
}

type builderFrame struct {
	start  int32 // index of the frame's length prefix in buf
	array  bool
	arrkey int
}

// Builder incrementally assembles a single BSON document. Keys are set with
// Key before each element append; inside an array frame element keys are
// generated automatically from the element's position.
//
// Builder methods record the first error encountered and turn subsequent
// calls into no-ops; the error is surfaced by Build.
type Builder struct {
	buf    []byte
	frames []builderFrame
	key    string
	hasKey bool
	err    error
}

// NewBuilder constructs a Builder with its root document open.
func NewBuilder() *Builder {
	b := new(Builder)
	b.Reset()
	return b
}

// Reset discards all buffered state and reopens the root document.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.frames = b.frames[:0]
	b.key = ""
	b.hasKey = false
	b.err = nil
	b.push(false)
}

// Key sets the key for the next element appended. Calling Key inside an array
// frame is an error, array elements are keyed by position.
func (b *Builder) Key(key string) {
	if b.err != nil {
		return
	}
	if !isValidCString(key) {
		b.err = errors.New("BSON element key cannot contain null bytes")
		return
	}
	b.key = key
	b.hasKey = true
}

// HasKey reports whether a key is pending for the next element.
func (b *Builder) HasKey() bool { return b.hasKey }

// Depth returns the number of currently open embedded frames. The root
// document does not count toward the depth.
func (b *Builder) Depth() int { return len(b.frames) - 1 }

func (b *Builder) push(array bool) {
	var start int32
	start, b.buf = ReserveLength(b.buf)
	b.frames = append(b.frames, builderFrame{start: start, array: array})
}

func (b *Builder) pop() {
	if len(b.frames) == 0 {
		b.err = errors.New("close called with no open document or array")
		return
	}
	frame := b.frames[len(b.frames)-1]
	b.frames = b.frames[:len(b.frames)-1]
	b.buf = append(b.buf, 0x00)
	length := len(b.buf) - int(frame.start)
	if length > maxSize {
		b.err = errMaxDocumentSizeExceeded{size: int64(length)}
		return
	}
	b.buf = UpdateLength(b.buf, frame.start, int32(length))
}

// header appends the type tag and key for the next element. In an array frame
// the key is the stringified element index.
func (b *Builder) header(t Type) {
	frame := &b.frames[len(b.frames)-1]
	if frame.array {
		b.buf = AppendHeader(b.buf, t, strconv.Itoa(frame.arrkey))
		frame.arrkey++
		return
	}
	if !b.hasKey {
		b.err = errors.New("no key set for element")
		return
	}
	b.buf = AppendHeader(b.buf, t, b.key)
	b.key = ""
	b.hasKey = false
}

// OpenDocument starts an embedded document using the pending key.
func (b *Builder) OpenDocument() {
	if b.err != nil {
		return
	}
	b.header(TypeEmbeddedDocument)
	if b.err != nil {
		return
	}
	b.push(false)
}

// OpenArray starts an embedded array using the pending key.
func (b *Builder) OpenArray() {
	if b.err != nil {
		return
	}
	b.header(TypeArray)
	if b.err != nil {
		return
	}
	b.push(true)
}

// CloseDocument ends the innermost open embedded document.
func (b *Builder) CloseDocument() {
	if b.err != nil {
		return
	}
	if len(b.frames) < 2 || b.frames[len(b.frames)-1].array {
		b.err = errors.New("incorrect frame to close document")
		return
	}
	b.pop()
}

// CloseArray ends the innermost open embedded array.
func (b *Builder) CloseArray() {
	if b.err != nil {
		return
	}
	if len(b.frames) < 2 || !b.frames[len(b.frames)-1].array {
		b.err = errors.New("incorrect frame to close array")
		return
	}
	b.pop()
}

// Build closes the root document and returns the assembled bytes. The Builder
// must be Reset before reuse.
func (b *Builder) Build() (Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.frames) != 1 {
		return nil, fmt.Errorf("document incomplete, %d frame(s) still open", len(b.frames)-1)
	}
	b.pop()
	if b.err != nil {
		return nil, b.err
	}
	doc := b.buf
	b.buf = nil
	return Document(doc), nil
}

// Err returns the first error encountered while building, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) appendValue(t Type, fn func([]byte) []byte) {
	if b.err != nil {
		return
	}
	b.header(t)
	if b.err != nil {
		return
	}
	b.buf = fn(b.buf)
}

// AppendDouble appends a BSON double element.
func (b *Builder) AppendDouble(f float64) {
	b.appendValue(TypeDouble, func(dst []byte) []byte { return AppendDouble(dst, f) })
}

// AppendString appends a BSON string element.
func (b *Builder) AppendString(s string) {
	b.appendValue(TypeString, func(dst []byte) []byte { return AppendString(dst, s) })
}

// AppendStringBytes appends a BSON string element from raw UTF-8 bytes.
func (b *Builder) AppendStringBytes(s []byte) {
	b.appendValue(TypeString, func(dst []byte) []byte {
		dst = appendLength(dst, int32(len(s)+1))
		dst = append(dst, s...)
		return append(dst, 0x00)
	})
}

// AppendInt32 appends a BSON int32 element.
func (b *Builder) AppendInt32(i32 int32) {
	b.appendValue(TypeInt32, func(dst []byte) []byte { return AppendInt32(dst, i32) })
}

// AppendInt64 appends a BSON int64 element.
func (b *Builder) AppendInt64(i64 int64) {
	b.appendValue(TypeInt64, func(dst []byte) []byte { return AppendInt64(dst, i64) })
}

// AppendBoolean appends a BSON boolean element.
func (b *Builder) AppendBoolean(v bool) {
	b.appendValue(TypeBoolean, func(dst []byte) []byte { return AppendBoolean(dst, v) })
}

// AppendDateTime appends a BSON datetime element from milliseconds since the
// Unix epoch.
func (b *Builder) AppendDateTime(dt int64) {
	b.appendValue(TypeDateTime, func(dst []byte) []byte { return AppendDateTime(dst, dt) })
}

// AppendTime appends a BSON datetime element from a time.Time, truncated to
// millisecond precision.
func (b *Builder) AppendTime(t time.Time) {
	b.appendValue(TypeDateTime, func(dst []byte) []byte { return AppendTime(dst, t) })
}

// AppendObjectID appends a BSON objectID element.
func (b *Builder) AppendObjectID(oid ObjectID) {
	b.appendValue(TypeObjectID, func(dst []byte) []byte { return AppendObjectID(dst, oid) })
}

// AppendBinary appends a BSON binary element.
func (b *Builder) AppendBinary(subtype byte, data []byte) {
	b.appendValue(TypeBinary, func(dst []byte) []byte { return AppendBinary(dst, subtype, data) })
}

// AppendRegex appends a BSON regex element. The options are stored in
// alphabetical order.
func (b *Builder) AppendRegex(pattern, options string) {
	if b.err != nil {
		return
	}
	if !isValidCString(pattern) || !isValidCString(options) {
		b.err = errors.New("BSON regex values cannot contain null bytes")
		return
	}
	b.appendValue(TypeRegex, func(dst []byte) []byte {
		return AppendRegex(dst, pattern, sortStringAlphebeticAscending(options))
	})
}

// AppendJavaScript appends a BSON JavaScript code element.
func (b *Builder) AppendJavaScript(js string) {
	b.appendValue(TypeJavaScript, func(dst []byte) []byte { return AppendJavaScript(dst, js) })
}

// AppendSymbol appends a BSON symbol element.
func (b *Builder) AppendSymbol(symbol string) {
	b.appendValue(TypeSymbol, func(dst []byte) []byte { return AppendSymbol(dst, symbol) })
}

// AppendCodeWithScope appends a BSON code-with-scope element.
func (b *Builder) AppendCodeWithScope(code string, scope []byte) {
	b.appendValue(TypeCodeWithScope, func(dst []byte) []byte { return AppendCodeWithScope(dst, code, scope) })
}

// AppendTimestamp appends a BSON timestamp element.
func (b *Builder) AppendTimestamp(t, i uint32) {
	b.appendValue(TypeTimestamp, func(dst []byte) []byte { return AppendTimestamp(dst, t, i) })
}

// AppendDBPointer appends a BSON dbPointer element.
func (b *Builder) AppendDBPointer(ns string, oid ObjectID) {
	b.appendValue(TypeDBPointer, func(dst []byte) []byte { return AppendDBPointer(dst, ns, oid) })
}

// AppendMinKey appends a BSON min key element.
func (b *Builder) AppendMinKey() {
	b.appendValue(TypeMinKey, func(dst []byte) []byte { return dst })
}

// AppendMaxKey appends a BSON max key element.
func (b *Builder) AppendMaxKey() {
	b.appendValue(TypeMaxKey, func(dst []byte) []byte { return dst })
}

// AppendNull appends a BSON null element.
func (b *Builder) AppendNull() {
	b.appendValue(TypeNull, func(dst []byte) []byte { return dst })
}

// AppendUndefined appends a BSON undefined element.
func (b *Builder) AppendUndefined() {
	b.appendValue(TypeUndefined, func(dst []byte) []byte { return dst })
}

// AppendDocument appends a complete embedded document element.
func (b *Builder) AppendDocument(doc []byte) {
	b.appendValue(TypeEmbeddedDocument, func(dst []byte) []byte { return AppendDocument(dst, doc) })
}

// AppendArray appends a complete embedded array element.
func (b *Builder) AppendArray(arr []byte) {
	b.appendValue(TypeArray, func(dst []byte) []byte { return AppendArray(dst, arr) })
}

func isValidCString(cs string) bool {
	return strings.IndexByte(cs, 0x00) == -1
}

func sortStringAlphebeticAscending(s string) string {
	ss := sortableString([]rune(s))
	ss.Sort()
	return string([]rune(ss))
}

type sortableString []rune

func (ss sortableString) Sort() {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}
