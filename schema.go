// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// structTags represents the struct tag fields the archiver uses. The
// lowercased field name is the key for each exported field unless a bson tag
// overrides it; a name of "-" skips the field.
type structTags struct {
	Name string
	Skip bool
}

// parseStructTags handles the bson struct tag. The tag format accepted is
// "[<key>]"; flags are not recognized. A bare tag without a colon is treated
// as the key, matching the historical shorthand.
func parseStructTags(sf reflect.StructField) structTags {
	key := strings.ToLower(sf.Name)
	tag, ok := sf.Tag.Lookup("bson")
	if !ok && !strings.Contains(string(sf.Tag), ":") && len(sf.Tag) > 0 {
		tag = string(sf.Tag)
	}
	if tag == "-" {
		return structTags{Skip: true}
	}
	if idx := strings.IndexByte(tag, ','); idx != -1 {
		tag = tag[:idx]
	}
	if tag != "" {
		key = tag
	}
	return structTags{Name: key}
}

type fieldDescription struct {
	name string
	idx  int
}

// structDescription is the archiver's view of a struct type: the ordered
// exported fields with their keys, and whether the type opts into the
// underlying-data contract by embedding RawBase.
type structDescription struct {
	fields       []fieldDescription
	ownsRawViews bool
}

var structCache = struct {
	sync.RWMutex
	m map[reflect.Type]*structDescription
}{m: make(map[reflect.Type]*structDescription)}

var tRawBase = reflect.TypeOf(RawBase{})
var tUnderlyingDataOwner = reflect.TypeOf((*UnderlyingDataOwner)(nil)).Elem()

// describeStruct analyzes a struct type and caches the result. Field order is
// declaration order; duplicate keys are an error.
func describeStruct(t reflect.Type) (*structDescription, error) {
	structCache.RLock()
	sd, exists := structCache.m[t]
	structCache.RUnlock()
	if exists {
		return sd, nil
	}

	numFields := t.NumField()
	sd = &structDescription{
		fields:       make([]fieldDescription, 0, numFields),
		ownsRawViews: reflect.PtrTo(t).Implements(tUnderlyingDataOwner),
	}

	seen := make(map[string]struct{}, numFields)
	for i := 0; i < numFields; i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			// unexported, ignore
			continue
		}
		if sf.Anonymous && sf.Type == tRawBase {
			// The embedded contract marker is not a document field.
			continue
		}

		tags := parseStructTags(sf)
		if tags.Skip {
			continue
		}
		if _, exists := seen[tags.Name]; exists {
			return nil, fmt.Errorf("(struct %s) duplicated key %s", t.String(), tags.Name)
		}
		seen[tags.Name] = struct{}{}
		sd.fields = append(sd.fields, fieldDescription{name: tags.Name, idx: i})
	}

	structCache.Lock()
	structCache.m[t] = sd
	structCache.Unlock()
	return sd, nil
}
