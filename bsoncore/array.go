// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"errors"
	"strings"
)

// Array is a raw bytes representation of a BSON array.
type Array []byte

// Validate validates the array and ensures the values contained within are
// valid.
func (a Array) Validate() error { return Document(a).Validate() }

// Values returns this array's values in order.
func (a Array) Values() ([]Value, error) {
	elems, err := Document(a).Elements()
	if err != nil {
		return nil, err
	}
	vals := make([]Value, 0, len(elems))
	for _, elem := range elems {
		v, ok := elem.ValueOK()
		if !ok {
			return nil, errors.New("invalid array value")
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// IndexErr searches for and retrieves the value at the given index.
func (a Array) IndexErr(index uint) (Value, error) {
	vals, err := a.Values()
	if err != nil {
		return Value{}, err
	}
	if index >= uint(len(vals)) {
		return Value{}, ErrOutOfBounds
	}
	return vals[index], nil
}

// Index searches for and retrieves the value at the given index. This method
// will panic if the array is invalid or if the index is out of bounds.
func (a Array) Index(index uint) Value {
	v, err := a.IndexErr(index)
	if err != nil {
		panic(err)
	}
	return v
}

// String outputs a human readable representation of the array.
func (a Array) String() string {
	if len(a) < 5 {
		return ""
	}
	vals, err := a.Values()
	if err != nil {
		return ""
	}
	var buf strings.Builder
	buf.WriteByte('[')
	for idx, val := range vals {
		if idx > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(val.String())
	}
	buf.WriteByte(']')
	return buf.String()
}
