// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentValidate(t *testing.T) {
	testCases := []struct {
		name    string
		doc     []byte
		wantErr bool
	}{
		{"empty document", []byte{0x05, 0x00, 0x00, 0x00, 0x00}, false},
		{"too short", []byte{0x04, 0x00, 0x00}, true},
		{"length below minimum", []byte{0x04, 0x00, 0x00, 0x00, 0x00}, true},
		{"length beyond buffer", []byte{0xFF, 0x00, 0x00, 0x00, 0x00}, true},
		{"missing null terminator", []byte{0x05, 0x00, 0x00, 0x00, 0x01}, true},
		{
			"one int32 element",
			[]byte{0x0C, 0x00, 0x00, 0x00, 0x10, 'x', 0x00, 0xE5, 0x00, 0x00, 0x00, 0x00},
			false,
		},
		{
			"truncated element",
			[]byte{0x0A, 0x00, 0x00, 0x00, 0x10, 'x', 0x00, 0xE5, 0x00, 0x00},
			true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Document(tc.doc).Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDocumentLookup(t *testing.T) {
	b := NewBuilder()
	b.Key("a")
	b.AppendInt32(1)
	b.Key("b")
	b.AppendString("two")
	doc, err := b.Build()
	require.NoError(t, err)

	v, err := doc.LookupErr("b")
	require.NoError(t, err)
	s, ok := v.StringValueOK()
	require.True(t, ok)
	require.Equal(t, "two", s)

	_, err = doc.LookupErr("missing")
	require.Equal(t, ErrElementNotFound, err)

	// Lookup swallows the error and returns the zero Value.
	require.True(t, doc.Lookup("missing").IsZero())
}

func TestDocumentElements(t *testing.T) {
	b := NewBuilder()
	b.Key("first")
	b.AppendInt32(1)
	b.Key("second")
	b.AppendBoolean(true)
	b.Key("third")
	b.AppendNull()
	doc, err := b.Build()
	require.NoError(t, err)

	elems, err := doc.Elements()
	require.NoError(t, err)
	require.Len(t, elems, 3)
	require.Equal(t, "first", elems[0].Key())
	require.Equal(t, "second", elems[1].Key())
	require.Equal(t, "third", elems[2].Key())
	require.Equal(t, TypeNull, elems[2].Value().Type)
}

func TestValueTypedGettersRejectOtherTypes(t *testing.T) {
	v := Value{Type: TypeInt32, Data: []byte{0x01, 0x00, 0x00, 0x00}}

	_, ok := v.Int32OK()
	require.True(t, ok)
	_, ok = v.Int64OK()
	require.False(t, ok)
	_, ok = v.DoubleOK()
	require.False(t, ok)
	_, ok = v.StringValueOK()
	require.False(t, ok)
}

func TestArrayIndex(t *testing.T) {
	b := NewBuilder()
	b.Key("ignored")
	b.OpenArray()
	b.AppendString("zero")
	b.AppendString("one")
	b.CloseArray()
	doc, err := b.Build()
	require.NoError(t, err)

	arrVal, err := doc.LookupErr("ignored")
	require.NoError(t, err)
	arr, ok := arrVal.ArrayOK()
	require.True(t, ok)

	v, err := arr.IndexErr(1)
	require.NoError(t, err)
	s, ok := v.StringValueOK()
	require.True(t, ok)
	require.Equal(t, "one", s)

	_, err = arr.IndexErr(2)
	require.Equal(t, ErrOutOfBounds, err)
}
