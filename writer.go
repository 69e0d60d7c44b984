// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonarchive

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ikmak/bsonarchive/bsoncore"
)

// outputNodeKind tracks the state of a node being written. A node starts in
// the Start state and moves to the In state lazily, when the first name or
// element is written inside it. The deferred transition is what lets empty
// aggregates and array retagging work: until something is written, nothing
// has been committed to the document builder.
type outputNodeKind byte

const (
	outputStartObject outputNodeKind = iota
	outputInObject
	outputStartArray
	outputInArray
)

type outputFrame struct {
	kind outputNodeKind

	// ownsRawViews is set when the node's Go type embeds RawBase. Raw view
	// values may only be written inside such a node.
	ownsRawViews bool
}

// Writer is the encoding state machine. It tracks a stack of open nodes and
// feeds a bsoncore.Builder; each time the stack empties, the completed
// document is flushed to the sink and the builder resets for the next one.
//
// In dotted mode, object opens outside arrays are folded into dot-joined
// keys ("a.x", "a.y") instead of embedded documents, producing payloads
// shaped for an update command's $set argument. Dotted output is not readable
// by Reader.
type Writer struct {
	b    *bsoncore.Builder
	sink io.Writer

	frames []outputFrame

	nextName    string
	hasNextName bool

	// lastName is the most recently written key, kept because it may turn
	// out to be the name of an embedded document in dotted mode.
	lastName string

	// nameStack holds the names of the embedded documents currently folded
	// into dotted keys.
	nameStack []string

	// rootElement is set when the current root document wraps a single
	// named element rather than a plain struct.
	rootElement bool

	dotted     bool
	arrayDepth int
}

// NewWriter returns a Writer that flushes each completed document to sink.
func NewWriter(sink io.Writer) *Writer {
	return &Writer{b: bsoncore.NewBuilder(), sink: sink}
}

// NewDottedWriter returns a Writer in dotted mode.
func NewDottedWriter(sink io.Writer) *Writer {
	w := NewWriter(sink)
	w.dotted = true
	return w
}

func (w *Writer) writeDoc() error {
	doc, err := w.b.Build()
	if err != nil {
		return err
	}
	if _, err := w.sink.Write(doc); err != nil {
		return errors.Wrap(err, "bsonarchive: flushing document")
	}
	w.b.Reset()
	return nil
}

// WriteDocIfRoot flushes the builder to the sink if no node is open. Called
// after every value written at the root level.
func (w *Writer) WriteDocIfRoot() error {
	if len(w.frames) == 0 {
		return w.writeDoc()
	}
	return nil
}

// StartNode opens a new node. ownsRawViews must be true when the node's type
// embeds RawBase; it authorizes Raw view values inside this node.
func (w *Writer) StartNode(ownsRawViews bool) error {
	if err := w.WriteName(true); err != nil {
		return err
	}
	w.frames = append(w.frames, outputFrame{kind: outputStartObject, ownsRawViews: ownsRawViews})
	return nil
}

// FinishNode closes the most recently started node. A node still in the
// Start state was never written to, so its aggregate is opened and
// immediately closed. When the last node on the stack closes, the completed
// document is flushed to the sink.
func (w *Writer) FinishNode() error {
	if len(w.frames) == 0 {
		return &SchemaError{Op: "FinishNode", Reason: "attempting to finish a nonexistent node"}
	}

	top := w.frames[len(w.frames)-1].kind
	depth := len(w.frames)

	switch top {
	case outputStartArray:
		w.b.OpenArray()
		w.arrayDepth++
		fallthrough
	case outputInArray:
		w.b.CloseArray()
		w.arrayDepth--
	case outputStartObject:
		// An empty object. Only materialize it when not folding keys.
		if !w.dotted || w.arrayDepth > 0 {
			if depth > 1 || w.rootElement {
				w.b.OpenDocument()
			}
		}
		fallthrough
	case outputInObject:
		if !w.dotted || w.arrayDepth > 0 {
			if depth > 1 || w.rootElement {
				w.b.CloseDocument()
			}
		} else if depth > 1 || w.rootElement {
			// Pop the folded name of this embedded document, unless it
			// was an empty object that never pushed one.
			if top == outputInObject && len(w.nameStack) > 0 {
				w.nameStack = w.nameStack[:len(w.nameStack)-1]
			}
		}
	}

	w.frames = w.frames[:len(w.frames)-1]
	if len(w.frames) == 0 {
		w.rootElement = false
		return w.writeDoc()
	}
	if err := w.b.Err(); err != nil {
		return err
	}
	return nil
}

// SetNextName sets the key for the next element or node.
func (w *Writer) SetNextName(name string) {
	w.nextName = name
	w.hasNextName = true
}

// MakeArray retags the most recently started node as an array. It must be
// called before anything is written inside the node.
func (w *Writer) MakeArray() error {
	if len(w.frames) == 0 {
		return &SchemaError{Op: "MakeArray", Reason: "no node open"}
	}
	w.frames[len(w.frames)-1].kind = outputStartArray
	return nil
}

// WriteName commits the pending key for the value about to be written, and
// performs the deferred Start to In transition of the enclosing node. It is
// called for every value written, named or not. isNewNode is true when the
// upcoming value is itself a node; unnamed values are only legal for a
// root-level document.
func (w *Writer) WriteName(isNewNode bool) error {
	if len(w.frames) > 0 {
		top := &w.frames[len(w.frames)-1]

		switch top.kind {
		case outputStartArray:
			w.b.OpenArray()
			w.arrayDepth++
			top.kind = outputInArray
		case outputStartObject:
			top.kind = outputInObject
			// Only open a document when this node is not the root
			// document itself.
			if len(w.frames) > 1 || w.rootElement {
				if w.dotted && w.arrayDepth == 0 {
					w.nameStack = append(w.nameStack, w.lastName)
				} else {
					w.b.OpenDocument()
				}
			}
		}

		// Array elements have no names; the builder numbers them.
		if top.kind == outputInArray {
			return w.b.Err()
		}
	}

	switch {
	case !w.hasNextName && len(w.frames) == 0 && isNewNode:
		// A document at the root with no name needs none.
		return nil
	case !w.hasNextName:
		return &SchemaError{Op: "WriteName", Reason: "missing a name for current node or element"}
	}

	if !w.dotted || len(w.nameStack) == 0 || w.arrayDepth > 0 {
		w.b.Key(w.nextName)
	} else {
		w.b.Key(strings.Join(w.nameStack, ".") + "." + w.nextName)
	}

	// Keep the key in case it names an embedded document.
	w.lastName = w.nextName
	w.nextName = ""
	w.hasNextName = false

	// A named node at the root becomes a root element.
	if len(w.frames) == 0 && isNewNode {
		w.rootElement = true
	}
	return w.b.Err()
}

// requireViewOwnership gates the Raw view types: they may only be written
// inside a node whose type embeds RawBase.
func (w *Writer) requireViewOwnership(typeName string) error {
	if len(w.frames) == 0 || !w.frames[len(w.frames)-1].ownsRawViews {
		return &OwnershipError{Type: typeName}
	}
	return nil
}

func (w *Writer) save(fn func()) error {
	if err := w.WriteName(false); err != nil {
		return err
	}
	fn()
	if err := w.b.Err(); err != nil {
		return err
	}
	return w.WriteDocIfRoot()
}

// SaveDouble writes a double element.
func (w *Writer) SaveDouble(f float64) error {
	return w.save(func() { w.b.AppendDouble(f) })
}

// SaveInt32 writes an int32 element.
func (w *Writer) SaveInt32(i int32) error {
	return w.save(func() { w.b.AppendInt32(i) })
}

// SaveInt64 writes an int64 element.
func (w *Writer) SaveInt64(i int64) error {
	return w.save(func() { w.b.AppendInt64(i) })
}

// SaveBoolean writes a boolean element.
func (w *Writer) SaveBoolean(v bool) error {
	return w.save(func() { w.b.AppendBoolean(v) })
}

// SaveString writes a string element.
func (w *Writer) SaveString(s string) error {
	return w.save(func() { w.b.AppendString(s) })
}

// SaveDateTime writes a datetime element from millisecond epoch time.
func (w *Writer) SaveDateTime(dt DateTime) error {
	return w.save(func() { w.b.AppendDateTime(int64(dt)) })
}

// SaveTime writes a datetime element from a time.Time, truncated to
// millisecond precision.
func (w *Writer) SaveTime(t time.Time) error {
	return w.save(func() { w.b.AppendTime(t) })
}

// SaveObjectID writes an ObjectID element.
func (w *Writer) SaveObjectID(oid ObjectID) error {
	return w.save(func() { w.b.AppendObjectID(bsoncore.ObjectID(oid)) })
}

// SaveBinary writes a binary element.
func (w *Writer) SaveBinary(b Binary) error {
	return w.save(func() { w.b.AppendBinary(b.Subtype, b.Data) })
}

// SaveRegex writes a regex element.
func (w *Writer) SaveRegex(r Regex) error {
	return w.save(func() { w.b.AppendRegex(r.Pattern, r.Options) })
}

// SaveJavaScript writes a JavaScript code element.
func (w *Writer) SaveJavaScript(js JavaScript) error {
	return w.save(func() { w.b.AppendJavaScript(string(js)) })
}

// SaveSymbol writes a symbol element.
func (w *Writer) SaveSymbol(s Symbol) error {
	return w.save(func() { w.b.AppendSymbol(string(s)) })
}

// SaveTimestamp writes a timestamp element.
func (w *Writer) SaveTimestamp(ts Timestamp) error {
	return w.save(func() { w.b.AppendTimestamp(ts.T, ts.I) })
}

// SaveDBPointer writes a DBPointer element.
func (w *Writer) SaveDBPointer(p DBPointer) error {
	return w.save(func() { w.b.AppendDBPointer(p.DB, bsoncore.ObjectID(p.Pointer)) })
}

// SaveMinKey writes a MinKey element.
func (w *Writer) SaveMinKey() error {
	return w.save(func() { w.b.AppendMinKey() })
}

// SaveMaxKey writes a MaxKey element.
func (w *Writer) SaveMaxKey() error {
	return w.save(func() { w.b.AppendMaxKey() })
}

// SaveUndefined writes an undefined element.
func (w *Writer) SaveUndefined() error {
	return w.save(func() { w.b.AppendUndefined() })
}

// SaveNull writes a null element.
func (w *Writer) SaveNull() error {
	return w.save(func() { w.b.AppendNull() })
}

// SaveRawString writes a string element from a view.
func (w *Writer) SaveRawString(rs RawString) error {
	if err := w.requireViewOwnership("RawString"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendStringBytes(rs) })
}

// SaveRawDocument writes an embedded document element from a view.
func (w *Writer) SaveRawDocument(rd RawDocument) error {
	if err := w.requireViewOwnership("RawDocument"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendDocument(rd) })
}

// SaveRawArray writes an embedded array element from a view.
func (w *Writer) SaveRawArray(ra RawArray) error {
	if err := w.requireViewOwnership("RawArray"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendArray(ra) })
}

// SaveRawBinary writes a binary element from a view.
func (w *Writer) SaveRawBinary(rb RawBinary) error {
	if err := w.requireViewOwnership("RawBinary"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendBinary(rb.Subtype, rb.Data) })
}

// SaveRawJavaScript writes a JavaScript code element from a view.
func (w *Writer) SaveRawJavaScript(rj RawJavaScript) error {
	if err := w.requireViewOwnership("RawJavaScript"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendJavaScript(string(rj)) })
}

// SaveRawSymbol writes a symbol element from a view.
func (w *Writer) SaveRawSymbol(rs RawSymbol) error {
	if err := w.requireViewOwnership("RawSymbol"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendSymbol(string(rs)) })
}

// SaveRawRegex writes a regex element from a view.
func (w *Writer) SaveRawRegex(rr RawRegex) error {
	if err := w.requireViewOwnership("RawRegex"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendRegex(string(rr.Pattern), string(rr.Options)) })
}

// SaveRawDBPointer writes a DBPointer element from a view.
func (w *Writer) SaveRawDBPointer(rp RawDBPointer) error {
	if err := w.requireViewOwnership("RawDBPointer"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendDBPointer(string(rp.DB), bsoncore.ObjectID(rp.Pointer)) })
}

// SaveCodeWithScope writes a code-with-scope element.
func (w *Writer) SaveCodeWithScope(code string, scope bsoncore.Document) error {
	return w.save(func() { w.b.AppendCodeWithScope(code, scope) })
}

// SaveRawCodeWithScope writes a code-with-scope element whose scope is a view.
func (w *Writer) SaveRawCodeWithScope(rc RawCodeWithScope) error {
	if err := w.requireViewOwnership("RawCodeWithScope"); err != nil {
		return err
	}
	return w.save(func() { w.b.AppendCodeWithScope(rc.Code, rc.Scope) })
}
