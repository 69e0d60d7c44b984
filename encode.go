// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"fmt"
	"reflect"
	"time"
)

// encodeValue walks a Go value and drives the Writer. Dispatch precedence:
// name binders, optionals, tagged BSON value types, time.Time, primitives,
// structs, then sequences. The set is closed; an unhandled type is an error,
// never a silent skip.
func encodeValue(w *Writer, v reflect.Value) error {
	if v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}

	switch t := v.Interface().(type) {
	case Named:
		w.SetNextName(t.Name)
		return encodeValue(w, reflect.ValueOf(t.Value))
	case time.Time:
		return w.SaveTime(t)
	case DateTime:
		return w.SaveDateTime(t)
	case ObjectID:
		return w.SaveObjectID(t)
	case Timestamp:
		return w.SaveTimestamp(t)
	case Regex:
		return w.SaveRegex(t)
	case JavaScript:
		return w.SaveJavaScript(t)
	case Symbol:
		return w.SaveSymbol(t)
	case Binary:
		return w.SaveBinary(t)
	case DBPointer:
		return w.SaveDBPointer(t)
	case CodeWithScope:
		return w.SaveCodeWithScope(t.Code, t.Scope)
	case Null:
		return w.SaveNull()
	case MinKey:
		return w.SaveMinKey()
	case MaxKey:
		return w.SaveMaxKey()
	case Undefined:
		return w.SaveUndefined()
	case RawString:
		return w.SaveRawString(t)
	case RawDocument:
		return w.SaveRawDocument(t)
	case RawArray:
		return w.SaveRawArray(t)
	case RawBinary:
		return w.SaveRawBinary(t)
	case RawJavaScript:
		return w.SaveRawJavaScript(t)
	case RawSymbol:
		return w.SaveRawSymbol(t)
	case RawRegex:
		return w.SaveRawRegex(t)
	case RawDBPointer:
		return w.SaveRawDBPointer(t)
	case RawCodeWithScope:
		return w.SaveRawCodeWithScope(t)
	}

	switch v.Kind() {
	case reflect.Ptr:
		// Pointer fields are optionals: a nil pointer writes nothing at
		// all, not a null element. The pending name is consumed so it
		// cannot leak onto the next value written.
		if v.IsNil() {
			w.nextName = ""
			w.hasNextName = false
			return nil
		}
		return encodeValue(w, v.Elem())
	case reflect.Bool:
		return w.SaveBoolean(v.Bool())
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return w.SaveInt32(int32(v.Int()))
	case reflect.Int, reflect.Int64:
		return w.SaveInt64(v.Int())
	case reflect.Float32, reflect.Float64:
		return w.SaveDouble(v.Float())
	case reflect.String:
		return w.SaveString(v.String())
	case reflect.Struct:
		return encodeStruct(w, v)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return w.SaveBinary(Binary{Data: v.Bytes()})
		}
		return encodeSequence(w, v)
	case reflect.Array:
		return encodeSequence(w, v)
	default:
		return fmt.Errorf("bsonarchive: cannot encode value of type %s", v.Type())
	}
}

func encodeStruct(w *Writer, v reflect.Value) error {
	sd, err := describeStruct(v.Type())
	if err != nil {
		return err
	}
	if err := w.StartNode(sd.ownsRawViews); err != nil {
		return err
	}
	for _, f := range sd.fields {
		w.SetNextName(f.name)
		if err := encodeValue(w, v.Field(f.idx)); err != nil {
			return err
		}
	}
	return w.FinishNode()
}

func encodeSequence(w *Writer, v reflect.Value) error {
	// Sequences never own raw views; views inside a container must be
	// wrapped in a struct that embeds RawBase.
	if err := w.StartNode(false); err != nil {
		return err
	}
	if err := w.MakeArray(); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := encodeValue(w, v.Index(i)); err != nil {
			return err
		}
	}
	return w.FinishNode()
}
