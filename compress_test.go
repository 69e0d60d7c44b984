// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikmak/bsonarchive/bsoncore"
)

func TestCompressPayloadRoundTrips(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 300)

	testCases := []struct {
		name string
		opts CompressionOpts
	}{
		{"noop", CompressionOpts{Compressor: CompressorNoOp}},
		{"snappy", CompressionOpts{Compressor: CompressorSnappy}},
		{"zlib", CompressionOpts{Compressor: CompressorZLib, ZlibLevel: zlib.DefaultCompression}},
		{"zstd", CompressionOpts{Compressor: CompressorZstd, ZstdLevel: 6}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			compressed, err := CompressPayload(payload, tc.opts)
			require.NoError(t, err)
			if tc.opts.Compressor != CompressorNoOp {
				assert.Less(t, len(compressed), len(payload))
			}

			opts := tc.opts
			opts.UncompressedSize = int32(len(payload))
			got, err := DecompressPayload(compressed, opts)
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}
}

func TestCompressPayloadUnknownCompressor(t *testing.T) {
	_, err := CompressPayload([]byte("x"), CompressionOpts{Compressor: CompressorID(42)})
	require.Error(t, err)
	_, err = DecompressPayload([]byte("x"), CompressionOpts{Compressor: CompressorID(42)})
	require.Error(t, err)
}

func TestCompressedSinkRoundTrip(t *testing.T) {
	docs := [][]byte{
		buildDoc(t, func(b *bsoncore.Builder) {
			b.Key("n")
			b.AppendInt32(1)
		}),
		buildDoc(t, func(b *bsoncore.Builder) {
			b.Key("s")
			b.AppendString("a string that zlib can chew on, repeated enough to shrink")
			b.Key("nested")
			b.OpenDocument()
			b.Key("k")
			b.AppendInt64(99)
			b.CloseDocument()
		}),
	}

	var wire bytes.Buffer
	cs := NewCompressedSink(&wire, CompressionOpts{
		Compressor: CompressorZLib,
		ZlibLevel:  zlib.DefaultCompression,
	})
	for _, doc := range docs {
		n, err := cs.Write(doc)
		require.NoError(t, err)
		require.Equal(t, len(doc), n)
	}

	for _, want := range docs {
		got, err := ReadCompressedDocument(&wire)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ReadCompressedDocument(&wire)
	require.Equal(t, ErrStreamExhausted, err)
}

func TestCompressedSinkEncoderEndToEnd(t *testing.T) {
	type payload struct {
		Name string
		N    int64
	}
	in := payload{Name: "compressed", N: 7}

	var wire bytes.Buffer
	cs := NewCompressedSink(&wire, CompressionOpts{Compressor: CompressorSnappy})
	require.NoError(t, NewEncoder(cs).Encode(in))

	doc, err := ReadCompressedDocument(&wire)
	require.NoError(t, err)
	require.NoError(t, bsoncore.Document(doc).Validate())

	var out payload
	require.NoError(t, Unmarshal(doc, &out))
	require.Equal(t, in, out)
}

func TestReadCompressedDocumentBadHeader(t *testing.T) {
	t.Run("truncated header", func(t *testing.T) {
		_, err := ReadCompressedDocument(bytes.NewReader([]byte{0x01, 0x02}))
		require.IsType(t, FramingError{}, err)
	})
	t.Run("uncompressed length below minimum", func(t *testing.T) {
		hdr := make([]byte, compressedBlockHeaderSize)
		putLittleEndianInt32(hdr[0:4], 0)
		putLittleEndianInt32(hdr[4:8], 2)
		_, err := ReadCompressedDocument(bytes.NewReader(hdr))
		require.IsType(t, FramingError{}, err)
	})
	t.Run("truncated payload", func(t *testing.T) {
		hdr := make([]byte, compressedBlockHeaderSize)
		putLittleEndianInt32(hdr[0:4], 100)
		putLittleEndianInt32(hdr[4:8], 64)
		hdr[8] = byte(CompressorSnappy)
		_, err := ReadCompressedDocument(bytes.NewReader(hdr))
		require.IsType(t, FramingError{}, err)
	})
}
