// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ikmak/bsonarchive/bsoncore"
)

func TestWriterRootElementScalar(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.SetNextName("x")
	require.NoError(t, w.SaveInt32(229))

	doc := bsoncore.Document(buf.Bytes())
	require.NoError(t, doc.Validate())
	v, err := doc.LookupErr("x")
	require.NoError(t, err)
	i, ok := v.Int32OK()
	require.True(t, ok)
	require.Equal(t, int32(229), i)
}

func TestWriterUnnamedScalarOutsideNode(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.SaveInt32(1)
	require.Error(t, err)
	require.IsType(t, &SchemaError{}, err)
}

func TestWriterMissingNameInsideNode(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.StartNode(false))
	err := w.SaveInt32(1)
	require.Error(t, err)
	require.IsType(t, &SchemaError{}, err)
}

func TestWriterFinishWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	err := w.FinishNode()
	require.Error(t, err)
	require.IsType(t, &SchemaError{}, err)
}

func TestWriterEmptyRootDocument(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.StartNode(false))
	require.NoError(t, w.FinishNode())
	require.Equal(t, []byte{0x05, 0x00, 0x00, 0x00, 0x00}, buf.Bytes())
}

func TestWriterEmptyEmbeddedAggregates(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.StartNode(false))
	w.SetNextName("obj")
	require.NoError(t, w.StartNode(false))
	require.NoError(t, w.FinishNode())
	w.SetNextName("arr")
	require.NoError(t, w.StartNode(false))
	require.NoError(t, w.MakeArray())
	require.NoError(t, w.FinishNode())
	require.NoError(t, w.FinishNode())

	doc := bsoncore.Document(buf.Bytes())
	require.NoError(t, doc.Validate())

	obj, err := doc.LookupErr("obj")
	require.NoError(t, err)
	innerDoc, ok := obj.DocumentOK()
	require.True(t, ok)
	require.Len(t, []byte(innerDoc), 5)

	arr, err := doc.LookupErr("arr")
	require.NoError(t, err)
	innerArr, ok := arr.ArrayOK()
	require.True(t, ok)
	require.Len(t, []byte(innerArr), 5)
}

func TestWriterArrayElementsAreUnnamed(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.StartNode(false))
	w.SetNextName("nums")
	require.NoError(t, w.StartNode(false))
	require.NoError(t, w.MakeArray())
	require.NoError(t, w.SaveInt32(10))
	require.NoError(t, w.SaveInt32(20))
	require.NoError(t, w.FinishNode())
	require.NoError(t, w.FinishNode())

	doc := bsoncore.Document(buf.Bytes())
	v, err := doc.LookupErr("nums")
	require.NoError(t, err)
	arr, ok := v.ArrayOK()
	require.True(t, ok)
	vals, err := arr.Values()
	require.NoError(t, err)
	require.Len(t, vals, 2)
}

func TestWriterOwnershipGate(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.StartNode(false))
	w.SetNextName("view")
	err := w.SaveRawString(RawString("nope"))
	require.Error(t, err)
	require.IsType(t, &OwnershipError{}, err)

	// The same value is accepted inside a node that owns its views.
	buf.Reset()
	w = NewWriter(&buf)
	require.NoError(t, w.StartNode(true))
	w.SetNextName("view")
	require.NoError(t, w.SaveRawString(RawString("yep")))
	require.NoError(t, w.FinishNode())
}

func TestWriterDottedMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewDottedWriter(&buf)

	// {a: {x: 1, y: 2}, b: 3} flattens to {"a.x": 1, "a.y": 2, "b": 3}.
	require.NoError(t, w.StartNode(false))
	w.SetNextName("a")
	require.NoError(t, w.StartNode(false))
	w.SetNextName("x")
	require.NoError(t, w.SaveInt32(1))
	w.SetNextName("y")
	require.NoError(t, w.SaveInt32(2))
	require.NoError(t, w.FinishNode())
	w.SetNextName("b")
	require.NoError(t, w.SaveInt32(3))
	require.NoError(t, w.FinishNode())

	doc := bsoncore.Document(buf.Bytes())
	require.NoError(t, doc.Validate())

	elems, err := doc.Elements()
	require.NoError(t, err)
	require.Len(t, elems, 3)
	require.Equal(t, "a.x", elems[0].Key())
	require.Equal(t, "a.y", elems[1].Key())
	require.Equal(t, "b", elems[2].Key())
}

func TestWriterDottedModeInsideArrayUsesRealDocuments(t *testing.T) {
	var buf bytes.Buffer
	w := NewDottedWriter(&buf)

	// Dotted keys are illegal inside arrays, so array elements keep their
	// embedded-document form.
	require.NoError(t, w.StartNode(false))
	w.SetNextName("items")
	require.NoError(t, w.StartNode(false))
	require.NoError(t, w.MakeArray())
	require.NoError(t, w.StartNode(false))
	w.SetNextName("x")
	require.NoError(t, w.SaveInt32(7))
	require.NoError(t, w.FinishNode())
	require.NoError(t, w.FinishNode())
	require.NoError(t, w.FinishNode())

	doc := bsoncore.Document(buf.Bytes())
	require.NoError(t, doc.Validate())

	v, err := doc.LookupErr("items")
	require.NoError(t, err)
	arr, ok := v.ArrayOK()
	require.True(t, ok)
	vals, err := arr.Values()
	require.NoError(t, err)
	require.Len(t, vals, 1)

	elemDoc, ok := vals[0].DocumentOK()
	require.True(t, ok)
	x, err := elemDoc.LookupErr("x")
	require.NoError(t, err)
	i, ok := x.Int32OK()
	require.True(t, ok)
	require.Equal(t, int32(7), i)
}

func TestWriterMultipleDocuments(t *testing.T) {
	var docs [][]byte
	sink := NewDocumentSink(func(d []byte) { docs = append(docs, d) })
	w := NewWriter(sink)

	for i := int32(0); i < 3; i++ {
		require.NoError(t, w.StartNode(false))
		w.SetNextName("i")
		require.NoError(t, w.SaveInt32(i))
		require.NoError(t, w.FinishNode())
	}

	require.Len(t, docs, 3)
	for i, d := range docs {
		v, err := bsoncore.Document(d).LookupErr("i")
		require.NoError(t, err)
		got, ok := v.Int32OK()
		require.True(t, ok)
		require.Equal(t, int32(i), got)
	}
}
