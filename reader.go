// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"io"
	"time"

	"github.com/ikmak/bsonarchive/bsoncore"
)

// inputNodeKind tracks the node context the reader is positioned in.
type inputNodeKind byte

const (
	// inputInObject means the reader is in the root document itself.
	inputInObject inputNodeKind = iota
	// inputInRootElement means the root document wraps a single named
	// element being read.
	inputInRootElement
	// inputInEmbeddedObject means the reader is in a document nested below
	// the root.
	inputInEmbeddedObject
	// inputInEmbeddedArray means the reader is iterating an array.
	inputInEmbeddedArray
)

// arrayCursor iterates the values of one embedded array.
type arrayCursor struct {
	vals []bsoncore.Value
	idx  int
}

// Reader is the decoding state machine. It reads framed documents from src
// one at a time and serves element lookups against the current document
// through a stack of node contexts. Lookups are by key in object contexts and
// strictly positional in array contexts.
type Reader struct {
	src io.Reader

	nextName    string
	hasNextName bool

	// readFirstDoc is set once a document has been read from the stream.
	readFirstDoc bool

	// cached holds a lookahead result from WillSearchYieldValue so the
	// following search does not repeat the lookup.
	cached *bsoncore.Value

	// data owns the current document's backing buffer; doc is its view.
	data *SharedData
	doc  bsoncore.Document

	docStack []bsoncore.Document
	arrStack []arrayCursor
	frames   []inputNodeKind
}

// NewReader returns a Reader over a stream of concatenated length-prefixed
// documents.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// reset drops all positional state so the reader can continue with the next
// document after a failed decode. The underlying stream is untouched.
func (r *Reader) reset() {
	r.nextName = ""
	r.hasNextName = false
	r.cached = nil
	r.docStack = r.docStack[:0]
	r.arrStack = r.arrStack[:0]
	r.frames = r.frames[:0]
}

// readNextDoc reads the next document from the stream into a fresh buffer.
// A clean EOF before the length prefix is end of stream; anything else short
// of a complete document is a framing error.
func (r *Reader) readNextDoc() error {
	var prefix [4]byte
	if _, err := io.ReadFull(r.src, prefix[:]); err != nil {
		if err == io.EOF {
			return ErrStreamExhausted
		}
		return framingErrorf("short document length prefix: %v", err)
	}
	length := littleEndianInt32(prefix[:])
	if length < minDocumentSize {
		return framingErrorf("declared document length %d is below minimum %d", length, minDocumentSize)
	}
	if length > MaxDocumentSize {
		return framingErrorf("declared document length %d exceeds maximum %d", length, MaxDocumentSize)
	}

	buf := make([]byte, length)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r.src, buf[4:]); err != nil {
		return framingErrorf("document truncated at %d of %d bytes: %v", 4, length, err)
	}

	r.data = newSharedData(buf)
	r.doc = bsoncore.Document(buf)
	r.readFirstDoc = true
	return nil
}

// search finds the value the reader is positioned on: the element keyed by
// the pending name in object contexts, or the next element in array
// contexts. A lookahead cached by WillSearchYieldValue is consumed first.
func (r *Reader) search() (bsoncore.Value, error) {
	if r.cached != nil {
		v := *r.cached
		r.cached = nil
		return v, nil
	}

	if len(r.frames) == 0 {
		return bsoncore.Value{}, &SchemaError{Op: "search", Reason: "cannot search for element if not in node"}
	}
	if !r.readFirstDoc {
		return bsoncore.Value{}, &SchemaError{Op: "search", Reason: "no document has been read from the stream"}
	}

	if r.hasNextName {
		name := r.nextName
		r.hasNextName = false

		switch r.frames[len(r.frames)-1] {
		case inputInObject, inputInRootElement:
			if val, err := r.doc.LookupErr(name); err == nil {
				return val, nil
			}
		case inputInEmbeddedObject:
			if val, err := r.docStack[len(r.docStack)-1].LookupErr(name); err == nil {
				return val, nil
			}
		}
		return bsoncore.Value{}, &MissingKeyError{Key: name}
	}

	if r.frames[len(r.frames)-1] == inputInEmbeddedArray {
		cur := &r.arrStack[len(r.arrStack)-1]
		if cur.idx >= len(cur.vals) {
			return bsoncore.Value{}, ErrArrayExhausted
		}
		v := cur.vals[cur.idx]
		cur.idx++
		return v, nil
	}

	return bsoncore.Value{}, &SchemaError{Op: "search", Reason: "missing name for element search"}
}

// WillSearchYieldValue reports whether the next search with the pending name
// would find an element. It is how optional fields detect absence. A hit is
// cached so the following search does not repeat the lookup. Calling this in
// an array context is an error; array elements are positional, not keyed.
func (r *Reader) WillSearchYieldValue() (bool, error) {
	if len(r.frames) == 0 {
		return false, &SchemaError{Op: "WillSearchYieldValue", Reason: "cannot search for element if not in node"}
	}
	if !r.readFirstDoc {
		return false, &SchemaError{Op: "WillSearchYieldValue", Reason: "no document has been read from the stream"}
	}
	if r.frames[len(r.frames)-1] == inputInEmbeddedArray {
		return false, &SchemaError{Op: "WillSearchYieldValue", Reason: "cannot check for a keyed value in an array"}
	}

	if r.hasNextName {
		name := r.nextName
		r.hasNextName = false

		var val bsoncore.Value
		var err error
		switch r.frames[len(r.frames)-1] {
		case inputInObject, inputInRootElement:
			val, err = r.doc.LookupErr(name)
		default:
			val, err = r.docStack[len(r.docStack)-1].LookupErr(name)
		}
		if err == nil {
			r.cached = &val
			return true, nil
		}
	}

	r.cached = nil
	return false, nil
}

// StartRootElementIfRoot reads the next document and enters root element
// context if the reader is at the root. It reports whether it did so.
func (r *Reader) StartRootElementIfRoot() (bool, error) {
	if len(r.frames) != 0 {
		return false, nil
	}
	if err := r.readNextDoc(); err != nil {
		return false, err
	}
	r.frames = append(r.frames, inputInRootElement)
	return true, nil
}

// FinishRootElementIfRootElement leaves root element context if the reader
// is in one.
func (r *Reader) FinishRootElementIfRootElement() {
	if len(r.frames) > 0 && r.frames[len(r.frames)-1] == inputInRootElement {
		r.frames = r.frames[:len(r.frames)-1]
	}
}

func (r *Reader) pushValueNode(v bsoncore.Value) error {
	switch v.Type {
	case bsoncore.TypeEmbeddedDocument:
		doc, ok := v.DocumentOK()
		if !ok {
			return framingErrorf("malformed embedded document")
		}
		r.docStack = append(r.docStack, doc)
		r.frames = append(r.frames, inputInEmbeddedObject)
	case bsoncore.TypeArray:
		arr, ok := v.ArrayOK()
		if !ok {
			return framingErrorf("malformed embedded array")
		}
		vals, err := arr.Values()
		if err != nil {
			return err
		}
		r.arrStack = append(r.arrStack, arrayCursor{vals: vals})
		r.frames = append(r.frames, inputInEmbeddedArray)
	default:
		return &SchemaError{Op: "StartNode", Reason: "node requested is neither document nor array"}
	}
	return nil
}

// StartNode enters the next node. At the root, it reads the next document
// from the stream; with a pending name the node is a named root element and
// must be a document or array. Below the root, the pending name (or array
// position) must resolve to a document or array value.
func (r *Reader) StartNode() error {
	if len(r.frames) == 0 {
		if err := r.readNextDoc(); err != nil {
			return err
		}
		if !r.hasNextName {
			r.frames = append(r.frames, inputInObject)
			return nil
		}
		r.frames = append(r.frames, inputInRootElement)
		v, err := r.search()
		if err != nil {
			return err
		}
		return r.pushValueNode(v)
	}

	v, err := r.search()
	if err != nil {
		return err
	}
	return r.pushValueNode(v)
}

// FinishNode leaves the most recently entered node, and also leaves the
// enclosing root element context if there is one.
func (r *Reader) FinishNode() error {
	if len(r.frames) == 0 {
		return &SchemaError{Op: "FinishNode", Reason: "attempting to finish a nonexistent node"}
	}

	switch r.frames[len(r.frames)-1] {
	case inputInEmbeddedObject:
		r.docStack = r.docStack[:len(r.docStack)-1]
	case inputInEmbeddedArray:
		r.arrStack = r.arrStack[:len(r.arrStack)-1]
	}
	r.frames = r.frames[:len(r.frames)-1]

	if len(r.frames) > 0 && r.frames[len(r.frames)-1] == inputInRootElement {
		r.frames = r.frames[:len(r.frames)-1]
	}
	return nil
}

// SetNextName sets the key for the next element lookup.
func (r *Reader) SetNextName(name string) {
	r.nextName = name
	r.hasNextName = true
}

// searchTyped finds the next value and asserts its type tag. There is no
// coercion: an int64 element does not satisfy an int32 load.
func (r *Reader) searchTyped(t bsoncore.Type) (bsoncore.Value, error) {
	v, err := r.search()
	if err != nil {
		return bsoncore.Value{}, err
	}
	if v.Type != t {
		return bsoncore.Value{}, &TypeMismatchError{Requested: t, Stored: v.Type}
	}
	return v, nil
}

// LoadDouble loads a double element.
func (r *Reader) LoadDouble(v *float64) error {
	val, err := r.searchTyped(bsoncore.TypeDouble)
	if err != nil {
		return err
	}
	f, ok := val.DoubleOK()
	if !ok {
		return framingErrorf("malformed double element")
	}
	*v = f
	return nil
}

// LoadInt32 loads an int32 element.
func (r *Reader) LoadInt32(v *int32) error {
	val, err := r.searchTyped(bsoncore.TypeInt32)
	if err != nil {
		return err
	}
	i, ok := val.Int32OK()
	if !ok {
		return framingErrorf("malformed int32 element")
	}
	*v = i
	return nil
}

// LoadInt64 loads an int64 element.
func (r *Reader) LoadInt64(v *int64) error {
	val, err := r.searchTyped(bsoncore.TypeInt64)
	if err != nil {
		return err
	}
	i, ok := val.Int64OK()
	if !ok {
		return framingErrorf("malformed int64 element")
	}
	*v = i
	return nil
}

// LoadBoolean loads a boolean element.
func (r *Reader) LoadBoolean(v *bool) error {
	val, err := r.searchTyped(bsoncore.TypeBoolean)
	if err != nil {
		return err
	}
	b, ok := val.BooleanOK()
	if !ok {
		return framingErrorf("malformed boolean element")
	}
	*v = b
	return nil
}

// LoadString loads a string element into an owned Go string.
func (r *Reader) LoadString(v *string) error {
	val, err := r.searchTyped(bsoncore.TypeString)
	if err != nil {
		return err
	}
	s, ok := val.StringValueOK()
	if !ok {
		return framingErrorf("malformed string element")
	}
	*v = s
	return nil
}

// LoadObjectID loads an ObjectID element.
func (r *Reader) LoadObjectID(v *ObjectID) error {
	val, err := r.searchTyped(bsoncore.TypeObjectID)
	if err != nil {
		return err
	}
	oid, ok := val.ObjectIDOK()
	if !ok {
		return framingErrorf("malformed ObjectID element")
	}
	*v = ObjectID(oid)
	return nil
}

// LoadDateTime loads a datetime element as millisecond epoch time.
func (r *Reader) LoadDateTime(v *DateTime) error {
	val, err := r.searchTyped(bsoncore.TypeDateTime)
	if err != nil {
		return err
	}
	dt, ok := val.DateTimeOK()
	if !ok {
		return framingErrorf("malformed datetime element")
	}
	*v = DateTime(dt)
	return nil
}

// LoadTime loads a datetime element as a UTC time.Time.
func (r *Reader) LoadTime(v *time.Time) error {
	val, err := r.searchTyped(bsoncore.TypeDateTime)
	if err != nil {
		return err
	}
	t, ok := val.TimeOK()
	if !ok {
		return framingErrorf("malformed datetime element")
	}
	*v = t
	return nil
}

// LoadBinary loads a binary element into an owned copy.
func (r *Reader) LoadBinary(v *Binary) error {
	val, err := r.searchTyped(bsoncore.TypeBinary)
	if err != nil {
		return err
	}
	subtype, data, ok := val.BinaryOK()
	if !ok {
		return framingErrorf("malformed binary element")
	}
	v.Subtype = subtype
	v.Data = append([]byte(nil), data...)
	return nil
}

// LoadRegex loads a regex element into owned strings.
func (r *Reader) LoadRegex(v *Regex) error {
	val, err := r.searchTyped(bsoncore.TypeRegex)
	if err != nil {
		return err
	}
	pattern, options, ok := val.RegexOK()
	if !ok {
		return framingErrorf("malformed regex element")
	}
	v.Pattern = pattern
	v.Options = options
	return nil
}

// LoadJavaScript loads a JavaScript code element.
func (r *Reader) LoadJavaScript(v *JavaScript) error {
	val, err := r.searchTyped(bsoncore.TypeJavaScript)
	if err != nil {
		return err
	}
	js, ok := val.JavaScriptOK()
	if !ok {
		return framingErrorf("malformed JavaScript element")
	}
	*v = JavaScript(js)
	return nil
}

// LoadSymbol loads a symbol element.
func (r *Reader) LoadSymbol(v *Symbol) error {
	val, err := r.searchTyped(bsoncore.TypeSymbol)
	if err != nil {
		return err
	}
	s, ok := val.SymbolOK()
	if !ok {
		return framingErrorf("malformed symbol element")
	}
	*v = Symbol(s)
	return nil
}

// LoadTimestamp loads a timestamp element.
func (r *Reader) LoadTimestamp(v *Timestamp) error {
	val, err := r.searchTyped(bsoncore.TypeTimestamp)
	if err != nil {
		return err
	}
	t, i, ok := val.TimestampOK()
	if !ok {
		return framingErrorf("malformed timestamp element")
	}
	v.T = t
	v.I = i
	return nil
}

// LoadDBPointer loads a DBPointer element.
func (r *Reader) LoadDBPointer(v *DBPointer) error {
	val, err := r.searchTyped(bsoncore.TypeDBPointer)
	if err != nil {
		return err
	}
	ns, oid, ok := val.DBPointerOK()
	if !ok {
		return framingErrorf("malformed DBPointer element")
	}
	v.DB = ns
	v.Pointer = ObjectID(oid)
	return nil
}

// LoadCodeWithScope loads a code-with-scope element into an owned copy.
func (r *Reader) LoadCodeWithScope(code *string, scope *bsoncore.Document) error {
	val, err := r.searchTyped(bsoncore.TypeCodeWithScope)
	if err != nil {
		return err
	}
	c, s, ok := val.CodeWithScopeOK()
	if !ok {
		return framingErrorf("malformed code-with-scope element")
	}
	*code = c
	*scope = bsoncore.Document(append([]byte(nil), s...))
	return nil
}

// LoadMinKey asserts the next element is a MinKey.
func (r *Reader) LoadMinKey() error {
	_, err := r.searchTyped(bsoncore.TypeMinKey)
	return err
}

// LoadMaxKey asserts the next element is a MaxKey.
func (r *Reader) LoadMaxKey() error {
	_, err := r.searchTyped(bsoncore.TypeMaxKey)
	return err
}

// LoadUndefined asserts the next element is undefined.
func (r *Reader) LoadUndefined() error {
	_, err := r.searchTyped(bsoncore.TypeUndefined)
	return err
}

// LoadNull asserts the next element is null.
func (r *Reader) LoadNull() error {
	_, err := r.searchTyped(bsoncore.TypeNull)
	return err
}

// LoadRawString loads a string element as a view into the document buffer.
func (r *Reader) LoadRawString(v *RawString) error {
	val, err := r.searchTyped(bsoncore.TypeString)
	if err != nil {
		return err
	}
	b, ok := val.StringBytesOK()
	if !ok {
		return framingErrorf("malformed string element")
	}
	*v = RawString(b)
	return nil
}

// LoadRawDocument loads an embedded document element as a view.
func (r *Reader) LoadRawDocument(v *RawDocument) error {
	val, err := r.searchTyped(bsoncore.TypeEmbeddedDocument)
	if err != nil {
		return err
	}
	doc, ok := val.DocumentOK()
	if !ok {
		return framingErrorf("malformed embedded document")
	}
	*v = RawDocument(doc)
	return nil
}

// LoadRawArray loads an embedded array element as a view.
func (r *Reader) LoadRawArray(v *RawArray) error {
	val, err := r.searchTyped(bsoncore.TypeArray)
	if err != nil {
		return err
	}
	arr, ok := val.ArrayOK()
	if !ok {
		return framingErrorf("malformed embedded array")
	}
	*v = RawArray(arr)
	return nil
}

// LoadRawBinary loads a binary element as a view.
func (r *Reader) LoadRawBinary(v *RawBinary) error {
	val, err := r.searchTyped(bsoncore.TypeBinary)
	if err != nil {
		return err
	}
	subtype, data, ok := val.BinaryOK()
	if !ok {
		return framingErrorf("malformed binary element")
	}
	v.Subtype = subtype
	v.Data = data
	return nil
}

// LoadRawJavaScript loads a JavaScript code element as a view.
func (r *Reader) LoadRawJavaScript(v *RawJavaScript) error {
	val, err := r.searchTyped(bsoncore.TypeJavaScript)
	if err != nil {
		return err
	}
	b, ok := val.StringBytesOK()
	if !ok {
		return framingErrorf("malformed JavaScript element")
	}
	*v = RawJavaScript(b)
	return nil
}

// LoadRawSymbol loads a symbol element as a view.
func (r *Reader) LoadRawSymbol(v *RawSymbol) error {
	val, err := r.searchTyped(bsoncore.TypeSymbol)
	if err != nil {
		return err
	}
	b, ok := val.StringBytesOK()
	if !ok {
		return framingErrorf("malformed symbol element")
	}
	*v = RawSymbol(b)
	return nil
}

// LoadRawRegex loads a regex element as views.
func (r *Reader) LoadRawRegex(v *RawRegex) error {
	val, err := r.searchTyped(bsoncore.TypeRegex)
	if err != nil {
		return err
	}
	pattern, options, ok := val.RegexOK()
	if !ok {
		return framingErrorf("malformed regex element")
	}
	v.Pattern = RawString(pattern)
	v.Options = RawString(options)
	return nil
}

// LoadRawDBPointer loads a DBPointer element as a view.
func (r *Reader) LoadRawDBPointer(v *RawDBPointer) error {
	val, err := r.searchTyped(bsoncore.TypeDBPointer)
	if err != nil {
		return err
	}
	ns, oid, ok := val.DBPointerOK()
	if !ok {
		return framingErrorf("malformed DBPointer element")
	}
	v.DB = RawString(ns)
	v.Pointer = ObjectID(oid)
	return nil
}

// LoadRawCodeWithScope loads a code-with-scope element whose scope is a view.
func (r *Reader) LoadRawCodeWithScope(v *RawCodeWithScope) error {
	val, err := r.searchTyped(bsoncore.TypeCodeWithScope)
	if err != nil {
		return err
	}
	c, s, ok := val.CodeWithScopeOK()
	if !ok {
		return framingErrorf("malformed code-with-scope element")
	}
	v.Code = c
	v.Scope = RawDocument(s)
	return nil
}

// LoadSize reports the length of the array the reader is iterating. Used to
// size slices before their elements are loaded.
func (r *Reader) LoadSize(size *int) error {
	if len(r.frames) == 0 || r.frames[len(r.frames)-1] != inputInEmbeddedArray {
		return &SchemaError{Op: "LoadSize", Reason: "requesting a size when not in an array"}
	}
	*size = len(r.arrStack[len(r.arrStack)-1].vals)
	return nil
}

// LoadUnderlyingData attaches the backing bytes of the current node to
// owner. Root and root element contexts get the whole document buffer;
// an embedded object gets a view aliasing its slice of the buffer. Arrays
// have no document header to view, so array context is an error.
func (r *Reader) LoadUnderlyingData(owner UnderlyingDataOwner) error {
	if len(r.frames) == 0 {
		return &SchemaError{Op: "LoadUnderlyingData", Reason: "cannot get data; not currently in a node"}
	}

	switch r.frames[len(r.frames)-1] {
	case inputInObject, inputInRootElement:
		owner.SetUnderlyingData(r.data)
	case inputInEmbeddedObject:
		owner.SetUnderlyingData(r.data.alias(r.docStack[len(r.docStack)-1]))
	case inputInEmbeddedArray:
		return &SchemaError{
			Op:     "LoadUnderlyingData",
			Reason: "underlying data does not support array views; wrap the array in a struct that embeds RawBase",
		}
	}
	return nil
}
