// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentValidationError is an error type returned when attempting to validate a document.
type DocumentValidationError string

func (dve DocumentValidationError) Error() string { return string(dve) }

// NewDocumentLengthError creates and returns an error for when the length of a document exceeds the
// bytes available.
func NewDocumentLengthError(length, rem int) error {
	return DocumentValidationError(fmt.Sprintf("document length exceeds available bytes. length=%d remainingBytes=%d", length, rem))
}

// ErrMissingNull is returned when a document or array's last byte is not null.
var ErrMissingNull = DocumentValidationError("document or array end is missing null byte")

// ErrElementNotFound indicates that an Element matching a certain condition does not exist.
var ErrElementNotFound = errors.New("element not found")

// ErrOutOfBounds indicates that the index provided to access a Value or Element exceeds the number
// of Values or Elements in the Document or Array.
var ErrOutOfBounds = errors.New("out of bounds")

// Document is a raw bytes representation of a BSON document.
type Document []byte

// Validate validates the document and ensures the elements contained within are valid.
func (d Document) Validate() error {
	length, rem, ok := ReadLength(d)
	if !ok {
		return NewDocumentLengthError(0, len(d))
	}
	if int(length) > len(d) {
		return NewDocumentLengthError(int(length), len(d))
	}
	if length < 5 {
		return DocumentValidationError("document length is smaller than the minimum valid size")
	}

	rem = rem[4 : length-1]
	var elem Element
	for len(rem) > 0 {
		elem, rem, ok = ReadElement(rem)
		if !ok {
			return errors.New("invalid element")
		}
		if err := elem.Validate(); err != nil {
			return err
		}
	}
	if d[length-1] != 0x00 {
		return ErrMissingNull
	}
	return nil
}

// Elements returns this document's elements.
func (d Document) Elements() ([]Element, error) {
	length, _, ok := ReadLength(d)
	if !ok {
		return nil, NewDocumentLengthError(0, len(d))
	}
	if int(length) > len(d) || length < 5 {
		return nil, NewDocumentLengthError(int(length), len(d))
	}

	rem := d[4 : length-1]
	var elem Element
	var elems []Element
	for len(rem) > 0 {
		elem, rem, ok = ReadElement(rem)
		if !ok {
			return nil, errors.New("invalid element")
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

// LookupErr searches the document for the provided key and returns the
// associated value. ErrElementNotFound is returned if the key cannot be found.
func (d Document) LookupErr(key string) (Value, error) {
	length, _, ok := ReadLength(d)
	if !ok || int(length) > len(d) || length < 5 {
		return Value{}, NewDocumentLengthError(int(length), len(d))
	}

	rem := d[4 : length-1]
	var elem Element
	for len(rem) > 0 {
		elem, rem, ok = ReadElement(rem)
		if !ok {
			return Value{}, errors.New("invalid element")
		}
		k, ok := elem.KeyOK()
		if !ok {
			return Value{}, errors.New("invalid element")
		}
		if k == key {
			v, ok := elem.ValueOK()
			if !ok {
				return Value{}, errors.New("invalid element")
			}
			return v, nil
		}
	}
	return Value{}, ErrElementNotFound
}

// Lookup searches the document for the provided key and returns the
// associated value, or an empty Value if the key cannot be found.
func (d Document) Lookup(key string) Value {
	v, err := d.LookupErr(key)
	if err != nil {
		return Value{}
	}
	return v
}

// String outputs an ExtendedJSON-like, human readable representation of the document.
func (d Document) String() string {
	if len(d) < 5 {
		return ""
	}
	var buf strings.Builder
	buf.WriteByte('{')

	length, rem, _ := ReadLength(d)
	rem = rem[4:]
	length -= 4

	var elem Element
	var ok bool
	first := true
	for length > 1 {
		elem, rem, ok = ReadElement(rem)
		length -= int32(len(elem))
		if !ok {
			return ""
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.WriteString(elem.String())
		first = false
	}
	buf.WriteByte('}')
	return buf.String()
}

// Element is a raw bytes representation of a BSON element: a type byte, a key,
// and a value.
type Element []byte

// KeyOK returns the key for this element, returning false if the element is
// not valid.
func (e Element) KeyOK() (string, bool) {
	if len(e) < 1 {
		return "", false
	}
	key, _, ok := readcstring(e[1:])
	return key, ok
}

// Key returns the key for this element. It returns an empty string if the
// element is not valid.
func (e Element) Key() string {
	key, _ := e.KeyOK()
	return key
}

// ValueOK returns the value for this element, returning false if the element
// is not valid.
func (e Element) ValueOK() (Value, bool) {
	if len(e) < 1 {
		return Value{}, false
	}
	_, rem, ok := readcstring(e[1:])
	if !ok {
		return Value{}, false
	}
	val, _, ok := ReadValue(rem, Type(e[0]))
	return val, ok
}

// Value returns the value for this element. It returns an empty Value if the
// element is not valid.
func (e Element) Value() Value {
	val, _ := e.ValueOK()
	return val
}

// Validate ensures the element is a valid BSON element.
func (e Element) Validate() error {
	if len(e) < 1 {
		return errors.New("element is missing a type")
	}
	if _, _, ok := readcstring(e[1:]); !ok {
		return errors.New("element is missing a key")
	}
	if _, ok := e.ValueOK(); !ok {
		return errors.New("element value is invalid")
	}
	return nil
}

// String outputs a human readable representation of the element.
func (e Element) String() string {
	key, ok := e.KeyOK()
	if !ok {
		return ""
	}
	val, ok := e.ValueOK()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%q: %s", key, val.String())
}
