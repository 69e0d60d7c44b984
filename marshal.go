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

// An Encoder writes the BSON archive form of Go values to an output stream,
// one complete document per top-level value.
type Encoder struct {
	w *Writer
}

// NewEncoder returns an Encoder that writes to sink.
func NewEncoder(sink io.Writer) *Encoder {
	return &Encoder{w: NewWriter(sink)}
}

// NewDottedEncoder returns an Encoder producing dotted-key payloads shaped
// for an update command's $set argument. Dotted output is not decodable.
func NewDottedEncoder(sink io.Writer) *Encoder {
	return &Encoder{w: NewDottedWriter(sink)}
}

// Encode writes the archive form of v. A struct becomes a document; a Named
// value becomes a document wrapping one named root element.
func (e *Encoder) Encode(v interface{}) error {
	if v == nil {
		return &SchemaError{Op: "Encode", Reason: "cannot encode a nil value"}
	}
	return encodeValue(e.w, reflect.ValueOf(v))
}

// Marshal returns the BSON document for v.
func Marshal(v interface{}) ([]byte, error) {
	return marshal(v, NewEncoder)
}

// MarshalDotted returns the dotted-key BSON document for v, with embedded
// document fields flattened into "outer.inner" keys.
func MarshalDotted(v interface{}) ([]byte, error) {
	return marshal(v, NewDottedEncoder)
}

func marshal(v interface{}, enc func(io.Writer) *Encoder) ([]byte, error) {
	var out []byte
	sink := NewDocumentSink(func(doc []byte) { out = doc })
	if err := enc(sink).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalToSink encodes v and writes the resulting document to sink.
func MarshalToSink(v interface{}, sink io.Writer) error {
	return NewEncoder(sink).Encode(v)
}

// A Decoder reads framed BSON documents from an input stream and fills Go
// values with their contents.
type Decoder struct {
	r *Reader
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder(src io.Reader) *Decoder {
	return &Decoder{r: NewReader(src)}
}

// Decode reads the next document from the stream into v, which must be a
// non-nil pointer. A Named value instead reads the single element it names.
// When the stream is exhausted, Decode returns ErrStreamExhausted.
func (d *Decoder) Decode(v interface{}) error {
	if n, ok := v.(Named); ok {
		rv := reflect.ValueOf(n.Value)
		if rv.Kind() != reflect.Ptr || rv.IsNil() {
			return &SchemaError{Op: "Decode", Reason: "named target must be a non-nil pointer"}
		}
		d.r.SetNextName(n.Name)
		return decodeValue(d.r, rv.Elem())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &SchemaError{Op: "Decode", Reason: "target must be a non-nil pointer"}
	}
	return decodeValue(d.r, rv.Elem())
}

// Unmarshal fills v from the document doc.
func Unmarshal(doc []byte, v interface{}) error {
	return NewDecoder(NewDocumentSource(doc)).Decode(v)
}

// UnmarshalOptional fills v from doc when doc is non-empty and reports
// whether it did. It is the empty-result companion to Unmarshal: a query
// that found nothing yields no document, not an error.
func UnmarshalOptional(doc []byte, v interface{}) (bool, error) {
	if len(doc) == 0 {
		return false, nil
	}
	if err := Unmarshal(doc, v); err != nil {
		return false, err
	}
	return true, nil
}
