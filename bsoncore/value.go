// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"
)

// ElementTypeError specifies that a method to obtain a BSON value an incorrect type was called on a bson.Value.
type ElementTypeError struct {
	Method string
	Type   Type
}

// Error implements the error interface.
func (ete ElementTypeError) Error() string {
	return "Call of " + ete.Method + " on " + ete.Type.String() + " type"
}

// Value represents a BSON value with a type and raw bytes.
type Value struct {
	Type Type
	Data []byte
}

// Validate ensures the value is a valid BSON value.
func (v Value) Validate() error {
	_, ok := valueLength(v.Data, v.Type)
	if !ok {
		return fmt.Errorf("invalid value for type %s", v.Type)
	}
	return nil
}

// IsZero returns true if this value is the zero Value.
func (v Value) IsZero() bool { return v.Type == 0 && v.Data == nil }

// Equal compares v to v2 and returns true if they are equal.
func (v Value) Equal(v2 Value) bool {
	return v.Type == v2.Type && bytes.Equal(v.Data, v2.Data)
}

// DoubleOK returns a float64 if this value is a BSON double, returning false
// otherwise.
func (v Value) DoubleOK() (float64, bool) {
	if v.Type != TypeDouble {
		return 0, false
	}
	f64, _, ok := ReadDouble(v.Data)
	return f64, ok
}

// StringValueOK returns the string if this value is a BSON string, returning
// false otherwise.
func (v Value) StringValueOK() (string, bool) {
	if v.Type != TypeString {
		return "", false
	}
	str, _, ok := ReadString(v.Data)
	return str, ok
}

// StringBytesOK returns the raw UTF-8 bytes of a BSON string value, without
// the length prefix or null suffix. The returned slice aliases v.Data.
func (v Value) StringBytesOK() ([]byte, bool) {
	if v.Type != TypeString {
		return nil, false
	}
	l, rem, ok := readi32(v.Data)
	if !ok || l < 1 || int(l) > len(rem) {
		return nil, false
	}
	return rem[:l-1], true
}

// DocumentOK returns the document if this value is a BSON embedded document,
// returning false otherwise. The returned Document aliases v.Data.
func (v Value) DocumentOK() (Document, bool) {
	if v.Type != TypeEmbeddedDocument {
		return nil, false
	}
	doc, _, ok := ReadDocument(v.Data)
	return doc, ok
}

// ArrayOK returns the array if this value is a BSON array, returning false
// otherwise. The returned Array aliases v.Data.
func (v Value) ArrayOK() (Array, bool) {
	if v.Type != TypeArray {
		return nil, false
	}
	arr, _, ok := ReadArray(v.Data)
	return arr, ok
}

// BinaryOK returns the subtype and data if this value is a BSON binary,
// returning false otherwise. The returned data aliases v.Data.
func (v Value) BinaryOK() (subtype byte, data []byte, ok bool) {
	if v.Type != TypeBinary {
		return 0x00, nil, false
	}
	subtype, data, _, ok = ReadBinary(v.Data)
	return subtype, data, ok
}

// ObjectIDOK returns the ObjectID if this value is a BSON objectID, returning
// false otherwise.
func (v Value) ObjectIDOK() (ObjectID, bool) {
	if v.Type != TypeObjectID {
		return ObjectID{}, false
	}
	oid, _, ok := ReadObjectID(v.Data)
	return oid, ok
}

// BooleanOK returns a bool if this value is a BSON boolean, returning false
// otherwise.
func (v Value) BooleanOK() (bool, bool) {
	if v.Type != TypeBoolean {
		return false, false
	}
	b, _, ok := ReadBoolean(v.Data)
	return b, ok
}

// DateTimeOK returns the milliseconds since the Unix epoch if this value is a
// BSON datetime, returning false otherwise.
func (v Value) DateTimeOK() (int64, bool) {
	if v.Type != TypeDateTime {
		return 0, false
	}
	dt, _, ok := ReadDateTime(v.Data)
	return dt, ok
}

// TimeOK returns a time.Time if this value is a BSON datetime, returning
// false otherwise.
func (v Value) TimeOK() (time.Time, bool) {
	dt, ok := v.DateTimeOK()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(dt/1000, dt%1000*1e6).UTC(), true
}

// RegexOK returns the pattern and options if this value is a BSON regex,
// returning false otherwise.
func (v Value) RegexOK() (pattern, options string, ok bool) {
	if v.Type != TypeRegex {
		return "", "", false
	}
	pattern, options, _, ok = ReadRegex(v.Data)
	return pattern, options, ok
}

// DBPointerOK returns the namespace and pointer if this value is a BSON
// dbPointer, returning false otherwise.
func (v Value) DBPointerOK() (string, ObjectID, bool) {
	if v.Type != TypeDBPointer {
		return "", ObjectID{}, false
	}
	ns, oid, _, ok := ReadDBPointer(v.Data)
	return ns, oid, ok
}

// JavaScriptOK returns the code if this value is BSON JavaScript code,
// returning false otherwise.
func (v Value) JavaScriptOK() (string, bool) {
	if v.Type != TypeJavaScript {
		return "", false
	}
	js, _, ok := ReadJavaScript(v.Data)
	return js, ok
}

// SymbolOK returns the symbol if this value is a BSON symbol, returning false
// otherwise.
func (v Value) SymbolOK() (string, bool) {
	if v.Type != TypeSymbol {
		return "", false
	}
	symbol, _, ok := ReadSymbol(v.Data)
	return symbol, ok
}

// CodeWithScopeOK returns the code and scope if this value is BSON code with
// scope, returning false otherwise. The returned scope aliases v.Data.
func (v Value) CodeWithScopeOK() (string, Document, bool) {
	if v.Type != TypeCodeWithScope {
		return "", nil, false
	}
	code, scope, _, ok := ReadCodeWithScope(v.Data)
	return code, Document(scope), ok
}

// Int32OK returns an int32 if this value is a BSON int32, returning false
// otherwise.
func (v Value) Int32OK() (int32, bool) {
	if v.Type != TypeInt32 {
		return 0, false
	}
	i32, _, ok := ReadInt32(v.Data)
	return i32, ok
}

// Int64OK returns an int64 if this value is a BSON int64, returning false
// otherwise.
func (v Value) Int64OK() (int64, bool) {
	if v.Type != TypeInt64 {
		return 0, false
	}
	i64, _, ok := ReadInt64(v.Data)
	return i64, ok
}

// TimestampOK returns the time and increment if this value is a BSON
// timestamp, returning false otherwise.
func (v Value) TimestampOK() (t, i uint32, ok bool) {
	if v.Type != TypeTimestamp {
		return 0, 0, false
	}
	t, i, _, ok = ReadTimestamp(v.Data)
	return t, i, ok
}

// String outputs a human readable representation of the value.
func (v Value) String() string {
	switch v.Type {
	case TypeDouble:
		f64, ok := v.DoubleOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("%g", f64)
	case TypeString:
		str, ok := v.StringValueOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("%q", str)
	case TypeEmbeddedDocument:
		doc, ok := v.DocumentOK()
		if !ok {
			return ""
		}
		return doc.String()
	case TypeArray:
		arr, ok := v.ArrayOK()
		if !ok {
			return ""
		}
		return arr.String()
	case TypeBinary:
		subtype, data, ok := v.BinaryOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$binary\":{\"base64\":%q,\"subType\":\"%02x\"}}", base64.StdEncoding.EncodeToString(data), subtype)
	case TypeUndefined:
		return "{\"$undefined\":true}"
	case TypeObjectID:
		oid, ok := v.ObjectIDOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$oid\":\"%x\"}", oid[:])
	case TypeBoolean:
		b, ok := v.BooleanOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", b)
	case TypeDateTime:
		dt, ok := v.DateTimeOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$date\":%d}", dt)
	case TypeNull:
		return "null"
	case TypeRegex:
		pattern, options, ok := v.RegexOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$regularExpression\":{\"pattern\":%q,\"options\":%q}}", pattern, options)
	case TypeDBPointer:
		ns, oid, ok := v.DBPointerOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$dbPointer\":{\"$ref\":%q,\"$id\":\"%x\"}}", ns, oid[:])
	case TypeJavaScript:
		js, ok := v.JavaScriptOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$code\":%q}", js)
	case TypeSymbol:
		symbol, ok := v.SymbolOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$symbol\":%q}", symbol)
	case TypeCodeWithScope:
		code, scope, ok := v.CodeWithScopeOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$code\":%q,\"$scope\":%s}", code, scope.String())
	case TypeInt32:
		i32, ok := v.Int32OK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("%d", i32)
	case TypeTimestamp:
		t, i, ok := v.TimestampOK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("{\"$timestamp\":{\"t\":%d,\"i\":%d}}", t, i)
	case TypeInt64:
		i64, ok := v.Int64OK()
		if !ok {
			return ""
		}
		return fmt.Sprintf("%d", i64)
	case TypeMinKey:
		return "{\"$minKey\":1}"
	case TypeMaxKey:
		return "{\"$maxKey\":1}"
	default:
		return ""
	}
}
