// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"bytes"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ikmak/bsonarchive/bsoncore"
)

type address struct {
	Street string
	City   string
}

type person struct {
	Name     string `bson:"name"`
	Age      int32
	Balance  float64
	Admin    bool
	Joined   time.Time
	Tags     []string
	Addr     address
	Nickname *string
	Internal string `bson:"-"`
}

func requireRoundTrip(t *testing.T, in, out interface{}) []byte {
	t.Helper()
	doc, err := Marshal(in)
	require.NoError(t, err)
	require.NoError(t, bsoncore.Document(doc).Validate())
	require.NoError(t, Unmarshal(doc, out))
	return doc
}

func TestRoundTripStruct(t *testing.T) {
	nick := "kim"
	in := person{
		Name:     "Kim",
		Age:      34,
		Balance:  10.75,
		Admin:    true,
		Joined:   time.Date(2019, 6, 1, 12, 0, 0, 250000000, time.UTC),
		Tags:     []string{"a", "b"},
		Addr:     address{Street: "Elm", City: "Springfield"},
		Nickname: &nick,
		Internal: "never serialized",
	}

	var out person
	doc := requireRoundTrip(t, in, &out)

	want := in
	want.Internal = ""
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\ndecoded: %s", diff, spew.Sdump(out))
	}

	// The skipped field never reaches the document.
	_, err := bsoncore.Document(doc).LookupErr("internal")
	require.Error(t, err)
	// The tag renames, the default lowercases.
	_, err = bsoncore.Document(doc).LookupErr("name")
	require.NoError(t, err)
	_, err = bsoncore.Document(doc).LookupErr("age")
	require.NoError(t, err)
}

func TestRoundTripTaggedValueTypes(t *testing.T) {
	type tagged struct {
		OID   ObjectID
		DT    DateTime
		TS    Timestamp
		RX    Regex
		JS    JavaScript
		Sym   Symbol
		Bin   Binary
		Ptr   DBPointer
		CWS   CodeWithScope
		Min   MinKey
		Max   MaxKey
		Undef Undefined
		Nul   Null
	}

	scope := buildDoc(t, func(b *bsoncore.Builder) {
		b.Key("v")
		b.AppendInt32(1)
	})
	in := tagged{
		OID: ObjectID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C},
		DT:  DateTime(1584178013589),
		TS:  Timestamp{T: 100, I: 2},
		RX:  Regex{Pattern: "^a", Options: "i"},
		JS:  JavaScript("function(){}"),
		Sym: Symbol("sym"),
		Bin: Binary{Subtype: 0x80, Data: []byte{1, 2, 3}},
		Ptr: DBPointer{DB: "db.coll", Pointer: ObjectID{0x0C}},
		CWS: CodeWithScope{Code: "function(){ return v; }", Scope: scope},
	}

	var out tagged
	requireRoundTrip(t, in, &out)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\ndecoded: %s", diff, spew.Sdump(out))
	}
}

func TestRoundTripByteSlice(t *testing.T) {
	type blob struct {
		Data []byte
	}
	in := blob{Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	var out blob
	doc := requireRoundTrip(t, in, &out)
	require.Equal(t, in.Data, out.Data)

	// Byte slices are binary elements, not arrays.
	v, err := bsoncore.Document(doc).LookupErr("data")
	require.NoError(t, err)
	require.Equal(t, bsoncore.TypeBinary, v.Type)
}

func TestRoundTripNestedSequences(t *testing.T) {
	type item struct {
		Name  string
		Count int64
	}
	type order struct {
		ID    int32 `bson:"_id"`
		Items []item
		Grid  [][]int32
	}
	in := order{
		ID: 42,
		Items: []item{
			{Name: "first", Count: 1},
			{Name: "second", Count: 2},
		},
		Grid: [][]int32{{1, 2}, {3}},
	}

	var out order
	requireRoundTrip(t, in, &out)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\ndecoded: %s", diff, spew.Sdump(out))
	}
}

func TestOptionalAbsenceOverwrites(t *testing.T) {
	type maybe struct {
		A *int32
		B *string
	}

	a := int32(7)
	doc, err := Marshal(maybe{A: &a})
	require.NoError(t, err)

	// The target already has both fields set; the absent key must reset B
	// to nil rather than leaving the stale value.
	stale := "stale"
	b := int32(0)
	out := maybe{A: &b, B: &stale}
	require.NoError(t, Unmarshal(doc, &out))
	require.NotNil(t, out.A)
	require.Equal(t, int32(7), *out.A)
	require.Nil(t, out.B)
}

func TestNamedRootElement(t *testing.T) {
	doc, err := Marshal(Named{Name: "x", Value: int32(229)})
	require.NoError(t, err)
	require.NoError(t, bsoncore.Document(doc).Validate())

	v, err := bsoncore.Document(doc).LookupErr("x")
	require.NoError(t, err)
	i, ok := v.Int32OK()
	require.True(t, ok)
	require.Equal(t, int32(229), i)

	var got int32
	require.NoError(t, Unmarshal(doc, Named{Name: "x", Value: &got}))
	require.Equal(t, int32(229), got)
}

func TestNamedRootElementAggregate(t *testing.T) {
	in := address{Street: "Elm", City: "Springfield"}
	doc, err := Marshal(Named{Name: "addr", Value: in})
	require.NoError(t, err)

	v, err := bsoncore.Document(doc).LookupErr("addr")
	require.NoError(t, err)
	require.Equal(t, bsoncore.TypeEmbeddedDocument, v.Type)

	var out address
	require.NoError(t, Unmarshal(doc, Named{Name: "addr", Value: &out}))
	require.Equal(t, in, out)
}

type rawRecord struct {
	RawBase
	Label RawString
	Meta  RawDocument
}

func TestRawViewsRequireRawBase(t *testing.T) {
	type unowned struct {
		Label RawString
	}
	_, err := Marshal(unowned{Label: RawString("v")})
	require.Error(t, err)
	require.IsType(t, &OwnershipError{}, err)
}

func TestRawViewsRoundTrip(t *testing.T) {
	src := buildDoc(t, func(b *bsoncore.Builder) {
		b.Key("label")
		b.AppendString("tagged")
		b.Key("meta")
		b.OpenDocument()
		b.Key("k")
		b.AppendInt32(3)
		b.CloseDocument()
	})

	var rec rawRecord
	require.NoError(t, Unmarshal(src, &rec))
	require.Equal(t, "tagged", rec.Label.String())
	require.NoError(t, rec.Meta.Document().Validate())
	require.Equal(t, []byte(src), []byte(rec.UnderlyingData()))

	// The views stay valid through a re-encode.
	doc, err := Marshal(rec)
	require.NoError(t, err)

	var again rawRecord
	require.NoError(t, Unmarshal(doc, &again))
	require.Equal(t, "tagged", again.Label.String())
	v, err := again.Meta.Document().LookupErr("k")
	require.NoError(t, err)
	i, ok := v.Int32OK()
	require.True(t, ok)
	require.Equal(t, int32(3), i)
}

func TestMarshalDotted(t *testing.T) {
	type inner struct {
		X int32
		Y int32
	}
	type outer struct {
		A inner
		B int32
	}

	doc, err := MarshalDotted(outer{A: inner{X: 1, Y: 2}, B: 3})
	require.NoError(t, err)
	require.NoError(t, bsoncore.Document(doc).Validate())

	elems, err := bsoncore.Document(doc).Elements()
	require.NoError(t, err)
	require.Len(t, elems, 3)
	require.Equal(t, "a.x", elems[0].Key())
	require.Equal(t, "a.y", elems[1].Key())
	require.Equal(t, "b", elems[2].Key())
}

func TestEncoderDecoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := int32(0); i < 3; i++ {
		require.NoError(t, enc.Encode(Named{Name: "i", Value: i}))
	}

	dec := NewDecoder(&buf)
	for i := int32(0); i < 3; i++ {
		var got int32
		require.NoError(t, dec.Decode(Named{Name: "i", Value: &got}))
		require.Equal(t, i, got)
	}

	var got int32
	err := dec.Decode(Named{Name: "i", Value: &got})
	require.Equal(t, ErrStreamExhausted, err)
}

func TestUnmarshalOptional(t *testing.T) {
	var out address
	ok, err := UnmarshalOptional(nil, &out)
	require.NoError(t, err)
	require.False(t, ok)

	doc, err := Marshal(address{Street: "Elm", City: "X"})
	require.NoError(t, err)
	ok, err = UnmarshalOptional(doc, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Elm", out.Street)
}

func TestUnmarshalRejectsNonPointer(t *testing.T) {
	doc, err := Marshal(address{})
	require.NoError(t, err)

	var out address
	err = Unmarshal(doc, out)
	require.Error(t, err)
	require.IsType(t, &SchemaError{}, err)
}

func TestNilSliceNormalizesToEmpty(t *testing.T) {
	type bag struct {
		Items []string
	}

	doc, err := Marshal(bag{Items: nil})
	require.NoError(t, err)

	// A nil slice and an empty slice produce the same document.
	emptyDoc, err := Marshal(bag{Items: []string{}})
	require.NoError(t, err)
	require.Equal(t, emptyDoc, doc)

	v, err := bsoncore.Document(doc).LookupErr("items")
	require.NoError(t, err)
	require.Equal(t, bsoncore.TypeArray, v.Type)

	// Decoding an empty array yields an empty non-nil slice either way.
	var out bag
	require.NoError(t, Unmarshal(doc, &out))
	require.NotNil(t, out.Items)
	require.Len(t, out.Items, 0)
}

func TestDecodeArrayElementsArePositional(t *testing.T) {
	type pair struct {
		Nums []int32
	}
	doc, err := Marshal(pair{Nums: []int32{5, 6, 7}})
	require.NoError(t, err)

	var out pair
	require.NoError(t, Unmarshal(doc, &out))
	require.Equal(t, []int32{5, 6, 7}, out.Nums)
}
