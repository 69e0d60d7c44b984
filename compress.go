// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// CompressorID is the identifier for a compressor used on an archive stream.
type CompressorID uint8

// Supported compressor IDs.
const (
	CompressorNoOp CompressorID = iota
	CompressorSnappy
	CompressorZLib
	CompressorZstd
)

// CompressionOpts holds settings for how to compress a payload.
type CompressionOpts struct {
	Compressor       CompressorID
	ZlibLevel        int
	ZstdLevel        int
	UncompressedSize int32
}

func calcZstdWindowSize(n int, l zstd.EncoderLevel) int {
	if n <= zstd.MinWindowSize {
		return zstd.MinWindowSize
	}
	windowSize := zstd.MinWindowSize
	// Map the window size with compression levels as the zstd package does.
	switch l {
	case zstd.SpeedFastest:
		windowSize = 4 << 20
	case zstd.SpeedDefault:
		windowSize = 8 << 20
	case zstd.SpeedBetterCompression:
		windowSize = 16 << 20
	case zstd.SpeedBestCompression:
		windowSize = 32 << 20
	}
	if windowSize > zstd.MaxWindowSize {
		windowSize = zstd.MaxWindowSize
	}
	// Reduce the window size to the closest power of 2 that can hold the
	// input size if the default window is larger than the input.
	for windowSize/2 > n {
		windowSize /= 2
	}
	return windowSize
}

// CompressPayload compresses a document payload with the compressor selected
// by opts. The NoOp compressor returns the input unchanged.
func CompressPayload(in []byte, opts CompressionOpts) ([]byte, error) {
	switch opts.Compressor {
	case CompressorNoOp:
		return in, nil
	case CompressorSnappy:
		return snappy.Encode(nil, in), nil
	case CompressorZLib:
		var b bytes.Buffer
		w, err := zlib.NewWriterLevel(&b, opts.ZlibLevel)
		if err != nil {
			return nil, err
		}
		_, err = w.Write(in)
		if err != nil {
			return nil, err
		}
		err = w.Close()
		if err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case CompressorZstd:
		var b bytes.Buffer
		level := zstd.EncoderLevelFromZstd(opts.ZstdLevel)
		windowSize := calcZstdWindowSize(len(in), level)
		w, err := zstd.NewWriter(&b, zstd.WithEncoderLevel(level), zstd.WithWindowSize(windowSize))
		if err != nil {
			return nil, err
		}
		_, err = io.Copy(w, bytes.NewBuffer(in))
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		err = w.Close()
		if err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compressor ID %v", opts.Compressor)
	}
}

// DecompressPayload reverses CompressPayload. The UncompressedSize field of
// opts must hold the payload's original length; decompression fills a buffer
// of exactly that size.
func DecompressPayload(in []byte, opts CompressionOpts) ([]byte, error) {
	switch opts.Compressor {
	case CompressorNoOp:
		return in, nil
	case CompressorSnappy:
		uncompressed := make([]byte, opts.UncompressedSize)
		return snappy.Decode(uncompressed, in)
	case CompressorZLib:
		decompressor, err := zlib.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		uncompressed := make([]byte, opts.UncompressedSize)
		_, err = io.ReadFull(decompressor, uncompressed)
		if err != nil {
			return nil, err
		}
		return uncompressed, nil
	case CompressorZstd:
		r, err := zstd.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		uncompressed := make([]byte, opts.UncompressedSize)
		_, err = io.ReadFull(r, uncompressed)
		if err != nil {
			return nil, err
		}
		return uncompressed, nil
	default:
		return nil, fmt.Errorf("unknown compressor ID %v", opts.Compressor)
	}
}

// compressedBlockHeaderSize is the fixed per-document header written by
// CompressedSink: compressed length (int32), uncompressed length (int32),
// compressor ID (1 byte).
const compressedBlockHeaderSize = 9

// CompressedSink wraps an io.Writer and compresses each complete document
// before it is written. Every document becomes one block: a 9-byte header
// carrying the compressed length, the uncompressed length, and the compressor
// ID, followed by the compressed payload. ReadCompressedDocument reverses it.
type CompressedSink struct {
	w    io.Writer
	opts CompressionOpts
	sink *DocumentSink

	// err records the first block write failure so it can surface through
	// the next Write call; framing errors surface immediately.
	err error
}

// NewCompressedSink returns a CompressedSink writing blocks to w. The
// UncompressedSize field of opts is ignored; it is set per document.
func NewCompressedSink(w io.Writer, opts CompressionOpts) *CompressedSink {
	cs := &CompressedSink{w: w, opts: opts}
	cs.sink = NewDocumentSink(func(doc []byte) {
		if cs.err == nil {
			cs.err = cs.writeBlock(doc)
		}
	})
	return cs
}

// Write feeds document bytes into the framing layer.
func (cs *CompressedSink) Write(p []byte) (int, error) {
	n, err := cs.sink.Write(p)
	if err != nil {
		return n, err
	}
	if cs.err != nil {
		err = cs.err
		cs.err = nil
	}
	return n, err
}

func (cs *CompressedSink) writeBlock(doc []byte) error {
	opts := cs.opts
	opts.UncompressedSize = int32(len(doc))
	out, err := CompressPayload(doc, opts)
	if err != nil {
		return err
	}
	hdr := make([]byte, compressedBlockHeaderSize)
	putLittleEndianInt32(hdr[0:4], int32(len(out)))
	putLittleEndianInt32(hdr[4:8], int32(len(doc)))
	hdr[8] = byte(opts.Compressor)
	if _, err := cs.w.Write(hdr); err != nil {
		return err
	}
	_, err = cs.w.Write(out)
	return err
}

// ReadCompressedDocument reads one CompressedSink block from r and returns
// the decompressed document. A clean EOF before any header byte returns
// ErrStreamExhausted.
func ReadCompressedDocument(r io.Reader) ([]byte, error) {
	hdr := make([]byte, compressedBlockHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if err == io.EOF {
			return nil, ErrStreamExhausted
		}
		return nil, framingErrorf("short compressed block header: %v", err)
	}
	compressedLen := littleEndianInt32(hdr[0:4])
	uncompressedLen := littleEndianInt32(hdr[4:8])
	if compressedLen < 0 || uncompressedLen < minDocumentSize || uncompressedLen > MaxDocumentSize {
		return nil, framingErrorf("invalid compressed block header (compressed %d, uncompressed %d)", compressedLen, uncompressedLen)
	}
	payload := make([]byte, compressedLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, framingErrorf("short compressed block payload: %v", err)
	}
	return DecompressPayload(payload, CompressionOpts{
		Compressor:       CompressorID(hdr[8]),
		UncompressedSize: uncompressedLen,
	})
}

func putLittleEndianInt32(dst []byte, v int32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func littleEndianInt32(src []byte) int32 {
	return int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16 | int32(src[3])<<24
}
