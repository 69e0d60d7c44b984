// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bsoncore contains functions that can be used to encode and decode
// BSON elements and values to or from a slice of bytes. These functions are
// aimed at allowing low level manipulation of BSON and are used to build the
// archiver that sits on top of this package.
//
// The Read* functions within this package return the values of the element and
// a boolean indicating if the values are valid. A boolean was used instead of
// an error because any error that would be returned would be the same: not
// enough bytes. This package attempts to do no validation, it will only return
// false if there are not enough bytes for an item to be read. For example, the
// ReadDocument function checks the length, if that length is larger than the
// number of bytes available, it will return false, if there are enough bytes,
// it will return those bytes and true. It is the consumer's responsibility to
// validate those bytes.
//
// The Append* functions within this package will append the type value to the
// given dst slice. If the slice has enough capacity, it will not grow the
// slice.
package bsoncore

import (
	"bytes"
	"math"
	"time"
)

// AppendType will append t to dst and return the extended buffer.
func AppendType(dst []byte, t Type) []byte { return append(dst, byte(t)) }

// AppendKey will append key to dst and return the extended buffer.
func AppendKey(dst []byte, key string) []byte { return append(dst, key+string(rune(0))...) }

// AppendHeader will append Type t and key to dst and return the extended
// buffer.
func AppendHeader(dst []byte, t Type, key string) []byte {
	dst = AppendType(dst, t)
	dst = append(dst, key...)
	return append(dst, 0x00)
}

// ReadType will return the first byte of the provided []byte as a type. If
// there is no available byte, false is returned.
func ReadType(src []byte) (Type, []byte, bool) {
	if len(src) < 1 {
		return 0, src, false
	}
	return Type(src[0]), src[1:], true
}

// ReadKey will read a key from src. The 0x00 byte will not be present in the
// returned string. If there are not enough bytes available, false is returned.
func ReadKey(src []byte) (string, []byte, bool) { return readcstring(src) }

// ReadHeader will read the type byte and the key from src. If both of these
// values cannot be read, false is returned.
func ReadHeader(src []byte) (t Type, key string, rem []byte, ok bool) {
	t, rem, ok = ReadType(src)
	if !ok {
		return 0, "", src, false
	}
	key, rem, ok = ReadKey(rem)
	if !ok {
		return 0, "", src, false
	}
	return t, key, rem, true
}

// ReadElement reads the next full element from src. It returns the element,
// the remaining bytes in the slice, and a boolean indicating if the read was
// successful.
func ReadElement(src []byte) (Element, []byte, bool) {
	if len(src) < 1 {
		return nil, src, false
	}
	t, rem, ok := ReadType(src)
	if !ok {
		return nil, src, false
	}
	_, rem, ok = readcstring(rem)
	if !ok {
		return nil, src, false
	}
	length, ok := valueLength(rem, t)
	if !ok || int(length) > len(rem) {
		return nil, src, false
	}
	elemLength := len(src) - len(rem) + int(length)
	return src[:elemLength], src[elemLength:], true
}

// ReadValue reads the next value as the provided type from src. It returns
// the value, the remaining bytes, and a boolean indicating success.
func ReadValue(src []byte, t Type) (Value, []byte, bool) {
	length, ok := valueLength(src, t)
	if !ok || int(length) > len(src) {
		return Value{}, src, false
	}
	return Value{Type: t, Data: src[:length]}, src[length:], true
}

// AppendInt32 will append i32 to dst and return the extended buffer.
func AppendInt32(dst []byte, i32 int32) []byte { return appendi32(dst, i32) }

// ReadInt32 will read an int32 from src. If there are not enough bytes, false
// is returned.
func ReadInt32(src []byte) (int32, []byte, bool) { return readi32(src) }

// AppendInt64 will append i64 to dst and return the extended buffer.
func AppendInt64(dst []byte, i64 int64) []byte { return appendi64(dst, i64) }

// ReadInt64 will read an int64 from src. If there are not enough bytes, false
// is returned.
func ReadInt64(src []byte) (int64, []byte, bool) { return readi64(src) }

// AppendDouble will append f to dst and return the extended buffer.
func AppendDouble(dst []byte, f float64) []byte {
	return appendu64(dst, math.Float64bits(f))
}

// ReadDouble will read a float64 from src. If there are not enough bytes,
// false is returned.
func ReadDouble(src []byte) (float64, []byte, bool) {
	u64, rem, ok := readu64(src)
	if !ok {
		return 0, src, false
	}
	return math.Float64frombits(u64), rem, true
}

// AppendBoolean will append b to dst and return the extended buffer.
func AppendBoolean(dst []byte, b bool) []byte {
	if b {
		return append(dst, 0x01)
	}
	return append(dst, 0x00)
}

// ReadBoolean will read a bool from src. If there are not enough bytes, false
// is returned.
func ReadBoolean(src []byte) (bool, []byte, bool) {
	if len(src) < 1 {
		return false, src, false
	}
	return src[0] == 0x01, src[1:], true
}

// AppendString will append s to dst as a BSON string (int32 length prefix,
// bytes, 0x00 suffix) and return the extended buffer.
func AppendString(dst []byte, s string) []byte { return appendstring(dst, s) }

// ReadString will read a string from src. If there are not enough bytes,
// false is returned.
func ReadString(src []byte) (string, []byte, bool) {
	l, rem, ok := readi32(src)
	if !ok {
		return "", src, false
	}
	if l < 1 || int(l) > len(rem) {
		return "", src, false
	}
	if rem[l-1] != 0x00 {
		return "", src, false
	}
	return string(rem[:l-1]), rem[l:], true
}

// AppendDateTime will append dt (milliseconds since the Unix epoch) to dst and
// return the extended buffer.
func AppendDateTime(dst []byte, dt int64) []byte { return appendi64(dst, dt) }

// ReadDateTime will read an int64 datetime from src. If there are not enough
// bytes, false is returned.
func ReadDateTime(src []byte) (int64, []byte, bool) { return readi64(src) }

// AppendTime will append t to dst as a BSON datetime and return the extended
// buffer.
func AppendTime(dst []byte, t time.Time) []byte {
	return AppendDateTime(dst, t.Unix()*1000+int64(t.Nanosecond()/1e6))
}

// AppendObjectID will append oid to dst and return the extended buffer.
func AppendObjectID(dst []byte, oid ObjectID) []byte { return append(dst, oid[:]...) }

// ReadObjectID will read an ObjectID from src. If there are not enough bytes,
// false is returned.
func ReadObjectID(src []byte) (ObjectID, []byte, bool) {
	if len(src) < 12 {
		return ObjectID{}, src, false
	}
	var oid ObjectID
	copy(oid[:], src[0:12])
	return oid, src[12:], true
}

// AppendBinary will append subtype and b to dst and return the extended
// buffer.
func AppendBinary(dst []byte, subtype byte, b []byte) []byte {
	dst = append(appendLength(dst, int32(len(b))), subtype)
	return append(dst, b...)
}

// ReadBinary will read a subtype and bin from src. If there are not enough
// bytes, false is returned.
func ReadBinary(src []byte) (subtype byte, bin []byte, rem []byte, ok bool) {
	length, rem, ok := readi32(src)
	if !ok {
		return 0x00, nil, src, false
	}
	if len(rem) < 1 {
		return 0x00, nil, src, false
	}
	subtype, rem = rem[0], rem[1:]
	if length < 0 || int(length) > len(rem) {
		return 0x00, nil, src, false
	}
	return subtype, rem[:length], rem[length:], true
}

// AppendRegex will append pattern and options to dst as two C strings and
// return the extended buffer.
func AppendRegex(dst []byte, pattern, options string) []byte {
	return append(dst, pattern+string(rune(0))+options+string(rune(0))...)
}

// ReadRegex will read a pattern and options from src. If there are not enough
// bytes, false is returned.
func ReadRegex(src []byte) (pattern, options string, rem []byte, ok bool) {
	pattern, rem, ok = readcstring(src)
	if !ok {
		return "", "", src, false
	}
	options, rem, ok = readcstring(rem)
	if !ok {
		return "", "", src, false
	}
	return pattern, options, rem, true
}

// AppendJavaScript will append js to dst as a BSON JavaScript code value and
// return the extended buffer.
func AppendJavaScript(dst []byte, js string) []byte { return appendstring(dst, js) }

// ReadJavaScript will read a JavaScript code string from src. If there are not
// enough bytes, false is returned.
func ReadJavaScript(src []byte) (string, []byte, bool) { return ReadString(src) }

// AppendSymbol will append symbol to dst and return the extended buffer.
func AppendSymbol(dst []byte, symbol string) []byte { return appendstring(dst, symbol) }

// ReadSymbol will read a symbol string from src. If there are not enough
// bytes, false is returned.
func ReadSymbol(src []byte) (string, []byte, bool) { return ReadString(src) }

// AppendCodeWithScope will append code and scope to dst and return the
// extended buffer.
func AppendCodeWithScope(dst []byte, code string, scope []byte) []byte {
	length := int32(4 + 4 + len(code) + 1 + len(scope))
	dst = appendLength(dst, length)
	dst = appendstring(dst, code)
	return append(dst, scope...)
}

// ReadCodeWithScope will read code and scope from src. If there are not
// enough bytes, false is returned.
func ReadCodeWithScope(src []byte) (code string, scope []byte, rem []byte, ok bool) {
	length, rem, ok := readi32(src)
	if !ok || int(length) > len(src) {
		return "", nil, src, false
	}
	code, rem, ok = ReadString(rem)
	if !ok {
		return "", nil, src, false
	}
	scope, rem, ok = ReadDocument(rem)
	if !ok {
		return "", nil, src, false
	}
	return code, scope, rem, true
}

// AppendTimestamp will append t and i to dst and return the extended buffer.
func AppendTimestamp(dst []byte, t, i uint32) []byte {
	return appendu32(appendu32(dst, i), t) // i is the lower 4 bytes
}

// ReadTimestamp will read t and i from src. If there are not enough bytes,
// false is returned.
func ReadTimestamp(src []byte) (t, i uint32, rem []byte, ok bool) {
	i, rem, ok = readu32(src)
	if !ok {
		return 0, 0, src, false
	}
	t, rem, ok = readu32(rem)
	if !ok {
		return 0, 0, src, false
	}
	return t, i, rem, true
}

// AppendDBPointer will append ns and oid to dst and return the extended
// buffer.
func AppendDBPointer(dst []byte, ns string, oid ObjectID) []byte {
	return append(appendstring(dst, ns), oid[:]...)
}

// ReadDBPointer will read a namespace and oid from src. If there are not
// enough bytes, false is returned.
func ReadDBPointer(src []byte) (ns string, oid ObjectID, rem []byte, ok bool) {
	ns, rem, ok = ReadString(src)
	if !ok {
		return "", ObjectID{}, src, false
	}
	oid, rem, ok = ReadObjectID(rem)
	if !ok {
		return "", ObjectID{}, src, false
	}
	return ns, oid, rem, true
}

// AppendDocument will append doc to dst and return the extended buffer.
func AppendDocument(dst []byte, doc []byte) []byte { return append(dst, doc...) }

// ReadDocument will read a document from src. If there are not enough bytes,
// false is returned.
func ReadDocument(src []byte) (doc Document, rem []byte, ok bool) {
	length, _, ok := readi32(src)
	if !ok || length < 5 || int(length) > len(src) {
		return nil, src, false
	}
	return Document(src[:length]), src[length:], true
}

// AppendArray will append arr to dst and return the extended buffer.
func AppendArray(dst []byte, arr []byte) []byte { return append(dst, arr...) }

// ReadArray will read an array from src. If there are not enough bytes, false
// is returned.
func ReadArray(src []byte) (arr Array, rem []byte, ok bool) {
	doc, rem, ok := ReadDocument(src)
	return Array(doc), rem, ok
}

// ReadLength reads an int32 length from src without consuming it.
func ReadLength(src []byte) (int32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	l, _, _ := readi32(src)
	return l, src, true
}

// ReserveLength reserves the space required for length and returns the index
// where to write the length and the []byte with reserved space.
func ReserveLength(dst []byte) (int32, []byte) {
	index := len(dst)
	return int32(index), append(dst, 0x00, 0x00, 0x00, 0x00)
}

// UpdateLength updates the length at index with length and returns the []byte.
func UpdateLength(dst []byte, index, length int32) []byte {
	dst[index] = byte(length)
	dst[index+1] = byte(length >> 8)
	dst[index+2] = byte(length >> 16)
	dst[index+3] = byte(length >> 24)
	return dst
}

func appendLength(dst []byte, l int32) []byte { return appendi32(dst, l) }

func appendi32(dst []byte, i32 int32) []byte {
	return append(dst, byte(i32), byte(i32>>8), byte(i32>>16), byte(i32>>24))
}

func appendi64(dst []byte, i64 int64) []byte {
	return append(dst,
		byte(i64), byte(i64>>8), byte(i64>>16), byte(i64>>24),
		byte(i64>>32), byte(i64>>40), byte(i64>>48), byte(i64>>56))
}

func appendu32(dst []byte, u32 uint32) []byte {
	return append(dst, byte(u32), byte(u32>>8), byte(u32>>16), byte(u32>>24))
}

func appendu64(dst []byte, u64 uint64) []byte {
	return append(dst,
		byte(u64), byte(u64>>8), byte(u64>>16), byte(u64>>24),
		byte(u64>>32), byte(u64>>40), byte(u64>>48), byte(u64>>56))
}

func appendstring(dst []byte, s string) []byte {
	dst = appendLength(dst, int32(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0x00)
}

func readi32(src []byte) (int32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16 | int32(src[3])<<24, src[4:], true
}

func readi64(src []byte) (int64, []byte, bool) {
	if len(src) < 8 {
		return 0, src, false
	}
	i64 := int64(src[0]) | int64(src[1])<<8 | int64(src[2])<<16 | int64(src[3])<<24 |
		int64(src[4])<<32 | int64(src[5])<<40 | int64(src[6])<<48 | int64(src[7])<<56
	return i64, src[8:], true
}

func readu32(src []byte) (uint32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24, src[4:], true
}

func readu64(src []byte) (uint64, []byte, bool) {
	if len(src) < 8 {
		return 0, src, false
	}
	u64 := uint64(src[0]) | uint64(src[1])<<8 | uint64(src[2])<<16 | uint64(src[3])<<24 |
		uint64(src[4])<<32 | uint64(src[5])<<40 | uint64(src[6])<<48 | uint64(src[7])<<56
	return u64, src[8:], true
}

func readcstring(src []byte) (string, []byte, bool) {
	idx := bytes.IndexByte(src, 0x00)
	if idx < 0 {
		return "", src, false
	}
	return string(src[:idx]), src[idx+1:], true
}

// valueLength returns the total number of bytes occupied by the value of type
// t at the front of src.
func valueLength(src []byte, t Type) (int32, bool) {
	var length int32
	ok := true
	switch t {
	case TypeArray, TypeEmbeddedDocument, TypeCodeWithScope:
		l, _, valid := readi32(src)
		length, ok = l, valid
	case TypeBinary:
		l, _, valid := readi32(src)
		length, ok = l+4+1, valid // binary length + subtype byte
	case TypeBoolean:
		length = 1
	case TypeDBPointer:
		l, _, valid := readi32(src)
		length, ok = l+4+12, valid // string length + ObjectID length
	case TypeDateTime, TypeDouble, TypeInt64, TypeTimestamp:
		length = 8
	case TypeDecimal128:
		length = 16
	case TypeInt32:
		length = 4
	case TypeJavaScript, TypeString, TypeSymbol:
		l, _, valid := readi32(src)
		length, ok = l+4, valid
	case TypeMaxKey, TypeMinKey, TypeNull, TypeUndefined:
		length = 0
	case TypeObjectID:
		length = 12
	case TypeRegex:
		regex := bytes.IndexByte(src, 0x00)
		if regex < 0 {
			ok = false
			break
		}
		pattern := bytes.IndexByte(src[regex+1:], 0x00)
		if pattern < 0 {
			ok = false
			break
		}
		length = int32(int64(regex) + 1 + int64(pattern) + 1)
	default:
		ok = false
	}
	return length, ok
}
