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

// loadScalar brackets a scalar load with root element handling: a scalar
// read at the root enters a fresh document as a single named element. View
// types cannot be root elements; there is no enclosing RawBase owner to keep
// the buffer alive.
func loadScalar(r *Reader, isView bool, load func() error) error {
	wasRoot, err := r.StartRootElementIfRoot()
	if err != nil {
		return err
	}
	if wasRoot && isView {
		return &SchemaError{
			Op:     "Load",
			Reason: "cannot deserialize a view type into a root element; wrap it in a struct that embeds RawBase",
		}
	}
	if err := load(); err != nil {
		return err
	}
	r.FinishRootElementIfRootElement()
	return nil
}

// decodeValue fills a Go value from the Reader. The dispatch precedence
// mirrors encodeValue; decoding performs no numeric coercion, so the element
// type on the wire must match the field's width exactly.
func decodeValue(r *Reader, v reflect.Value) error {
	switch t := v.Addr().Interface().(type) {
	case *time.Time:
		return loadScalar(r, false, func() error { return r.LoadTime(t) })
	case *DateTime:
		return loadScalar(r, false, func() error { return r.LoadDateTime(t) })
	case *ObjectID:
		return loadScalar(r, false, func() error { return r.LoadObjectID(t) })
	case *Timestamp:
		return loadScalar(r, false, func() error { return r.LoadTimestamp(t) })
	case *Regex:
		return loadScalar(r, false, func() error { return r.LoadRegex(t) })
	case *JavaScript:
		return loadScalar(r, false, func() error { return r.LoadJavaScript(t) })
	case *Symbol:
		return loadScalar(r, false, func() error { return r.LoadSymbol(t) })
	case *Binary:
		return loadScalar(r, false, func() error { return r.LoadBinary(t) })
	case *DBPointer:
		return loadScalar(r, false, func() error { return r.LoadDBPointer(t) })
	case *CodeWithScope:
		return loadScalar(r, false, func() error { return r.LoadCodeWithScope(&t.Code, &t.Scope) })
	case *Null:
		return loadScalar(r, false, func() error { return r.LoadNull() })
	case *MinKey:
		return loadScalar(r, false, func() error { return r.LoadMinKey() })
	case *MaxKey:
		return loadScalar(r, false, func() error { return r.LoadMaxKey() })
	case *Undefined:
		return loadScalar(r, false, func() error { return r.LoadUndefined() })
	case *RawString:
		return loadScalar(r, true, func() error { return r.LoadRawString(t) })
	case *RawDocument:
		return loadScalar(r, true, func() error { return r.LoadRawDocument(t) })
	case *RawArray:
		return loadScalar(r, true, func() error { return r.LoadRawArray(t) })
	case *RawBinary:
		return loadScalar(r, true, func() error { return r.LoadRawBinary(t) })
	case *RawJavaScript:
		return loadScalar(r, true, func() error { return r.LoadRawJavaScript(t) })
	case *RawSymbol:
		return loadScalar(r, true, func() error { return r.LoadRawSymbol(t) })
	case *RawRegex:
		return loadScalar(r, true, func() error { return r.LoadRawRegex(t) })
	case *RawDBPointer:
		return loadScalar(r, true, func() error { return r.LoadRawDBPointer(t) })
	case *RawCodeWithScope:
		return loadScalar(r, true, func() error { return r.LoadRawCodeWithScope(t) })
	}

	switch v.Kind() {
	case reflect.Ptr:
		// Pointer fields are optionals. An absent key resets the field to
		// nil, overwriting any previous value.
		yield, err := r.WillSearchYieldValue()
		if err != nil {
			return err
		}
		if !yield {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		elem := reflect.New(v.Type().Elem())
		if err := decodeValue(r, elem.Elem()); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	case reflect.Bool:
		var b bool
		if err := loadScalar(r, false, func() error { return r.LoadBoolean(&b) }); err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	case reflect.Int8, reflect.Int16, reflect.Int32:
		var i int32
		if err := loadScalar(r, false, func() error { return r.LoadInt32(&i) }); err != nil {
			return err
		}
		if v.OverflowInt(int64(i)) {
			return &SchemaError{Op: "Load", Reason: fmt.Sprintf("value %d overflows %s", i, v.Type())}
		}
		v.SetInt(int64(i))
		return nil
	case reflect.Int, reflect.Int64:
		var i int64
		if err := loadScalar(r, false, func() error { return r.LoadInt64(&i) }); err != nil {
			return err
		}
		v.SetInt(i)
		return nil
	case reflect.Float32, reflect.Float64:
		var f float64
		if err := loadScalar(r, false, func() error { return r.LoadDouble(&f) }); err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	case reflect.String:
		var s string
		if err := loadScalar(r, false, func() error { return r.LoadString(&s) }); err != nil {
			return err
		}
		v.SetString(s)
		return nil
	case reflect.Struct:
		return decodeStruct(r, v)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			var b Binary
			if err := loadScalar(r, false, func() error { return r.LoadBinary(&b) }); err != nil {
				return err
			}
			v.SetBytes(b.Data)
			return nil
		}
		return decodeSlice(r, v)
	case reflect.Array:
		return decodeArray(r, v)
	default:
		return fmt.Errorf("bsonarchive: cannot decode into value of type %s", v.Type())
	}
}

func decodeStruct(r *Reader, v reflect.Value) error {
	sd, err := describeStruct(v.Type())
	if err != nil {
		return err
	}
	if err := r.StartNode(); err != nil {
		return err
	}
	if sd.ownsRawViews {
		if err := r.LoadUnderlyingData(v.Addr().Interface().(UnderlyingDataOwner)); err != nil {
			return err
		}
	}
	for _, f := range sd.fields {
		r.SetNextName(f.name)
		if err := decodeValue(r, v.Field(f.idx)); err != nil {
			return err
		}
	}
	return r.FinishNode()
}

func decodeSlice(r *Reader, v reflect.Value) error {
	if err := r.StartNode(); err != nil {
		return err
	}
	var size int
	if err := r.LoadSize(&size); err != nil {
		return err
	}
	slice := reflect.MakeSlice(v.Type(), size, size)
	for i := 0; i < size; i++ {
		if err := decodeValue(r, slice.Index(i)); err != nil {
			return err
		}
	}
	v.Set(slice)
	return r.FinishNode()
}

func decodeArray(r *Reader, v reflect.Value) error {
	if err := r.StartNode(); err != nil {
		return err
	}
	var size int
	if err := r.LoadSize(&size); err != nil {
		return err
	}
	if size != v.Len() {
		return &SchemaError{
			Op:     "Load",
			Reason: fmt.Sprintf("array length mismatch: document has %d elements, %s holds %d", size, v.Type(), v.Len()),
		}
	}
	for i := 0; i < size; i++ {
		if err := decodeValue(r, v.Index(i)); err != nil {
			return err
		}
	}
	return r.FinishNode()
}
