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

func TestBuilderEmptyDocument(t *testing.T) {
	b := NewBuilder()
	doc, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0x00, 0x00, 0x00, 0x00}, []byte(doc))
	require.NoError(t, doc.Validate())
}

func TestBuilderSimpleDocument(t *testing.T) {
	b := NewBuilder()
	b.Key("x")
	b.AppendInt32(229)
	doc, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	v, err := doc.LookupErr("x")
	require.NoError(t, err)
	i, ok := v.Int32OK()
	require.True(t, ok)
	require.Equal(t, int32(229), i)
}

func TestBuilderNestedDocumentAndArray(t *testing.T) {
	b := NewBuilder()
	b.Key("a")
	b.OpenDocument()
	b.Key("nums")
	b.OpenArray()
	b.AppendInt32(1)
	b.AppendInt32(2)
	b.AppendInt32(3)
	b.CloseArray()
	b.CloseDocument()
	b.Key("s")
	b.AppendString("tail")
	doc, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	inner, err := doc.LookupErr("a")
	require.NoError(t, err)
	innerDoc, ok := inner.DocumentOK()
	require.True(t, ok)

	arrVal, err := innerDoc.LookupErr("nums")
	require.NoError(t, err)
	arr, ok := arrVal.ArrayOK()
	require.True(t, ok)

	vals, err := arr.Values()
	require.NoError(t, err)
	require.Len(t, vals, 3)
	for i, v := range vals {
		got, ok := v.Int32OK()
		require.True(t, ok)
		require.Equal(t, int32(i+1), got)
	}

	// Array element keys are the decimal indexes.
	elems, err := Document(arr).Elements()
	require.NoError(t, err)
	require.Equal(t, "0", elems[0].Key())
	require.Equal(t, "2", elems[2].Key())
}

func TestBuilderMissingKeyIsSticky(t *testing.T) {
	b := NewBuilder()
	b.AppendInt32(1)
	require.Error(t, b.Err())

	// Later valid operations do not clear the error.
	b.Key("x")
	b.AppendInt32(2)
	_, err := b.Build()
	require.Error(t, err)
}

func TestBuilderUnclosedFrame(t *testing.T) {
	b := NewBuilder()
	b.Key("a")
	b.OpenDocument()
	_, err := b.Build()
	require.Error(t, err)
}

func TestBuilderKeyWithNullByte(t *testing.T) {
	b := NewBuilder()
	b.Key("bad\x00key")
	b.AppendInt32(1)
	_, err := b.Build()
	require.Error(t, err)
}

func TestBuilderReset(t *testing.T) {
	b := NewBuilder()
	b.Key("x")
	b.AppendInt32(1)
	first, err := b.Build()
	require.NoError(t, err)

	b.Reset()
	b.Key("y")
	b.AppendString("two")
	second, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, first.Validate())
	require.NoError(t, second.Validate())
	_, err = second.LookupErr("x")
	require.Error(t, err)
	_, err = second.LookupErr("y")
	require.NoError(t, err)
}
