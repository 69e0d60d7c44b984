// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bsonarchive archives Go values to and from streams of BSON
// documents. Field names and order come from the Go struct definitions
// themselves, with bson struct tags overriding individual names.
//
// Marshal and Unmarshal convert a single value to and from one document.
// Encoder and Decoder operate on streams of concatenated length-prefixed
// documents, and Scanner iterates such a stream with optional per-document
// error skipping. MarshalDotted flattens embedded documents into dotted keys
// for use as the argument to an update's $set.
//
// Pointer fields are optionals: nil writes nothing, and an absent key on
// decode resets the field to nil. The Raw* value types are views into a
// decoded document's buffer; a struct using them must embed RawBase, which
// keeps the buffer reachable for as long as the struct lives.
//
// A nil slice and an empty slice both encode as an empty array; the document
// form does not distinguish them, and decoding an empty array always yields
// an empty non-nil slice.
package bsonarchive
