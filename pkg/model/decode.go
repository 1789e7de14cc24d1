package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/petrisync/pkg/errors"
)

// Decode validates r and returns its typed form.
//
// It fails with INVALID_INPUT when the id is unusable, with
// UNKNOWN_ENTITY_TYPE when the type field names nothing the core draws,
// and with INCOMPLETE_ENTITY when an arc lacks an endpoint.
func Decode(r Record) (Entity, error) {
	if r == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil record")
	}
	id := r.ID()
	if err := errors.ValidateEntityID(id); err != nil {
		return nil, err
	}
	b := base{id: id, handle: r}

	typ, _ := stringField(r, FieldType)
	switch Type(typ) {
	case TypePlace:
		return &Place{base: b, NodeFields: nodeFields(r)}, nil
	case TypeTransition:
		return &Transition{base: b, NodeFields: nodeFields(r)}, nil
	case TypeArc:
		return decodeArc(b, r)
	case TypeForm:
		return decodeForm(b, r)
	case "":
		return nil, errors.New(errors.ErrCodeIncompleteEntity, "entity %s has no type", id)
	default:
		return nil, errors.New(errors.ErrCodeUnknownEntityType, "entity %s has unknown type %q", id, typ)
	}
}

func nodeFields(r Record) NodeFields {
	var f NodeFields
	if s, ok := stringField(r, FieldName); ok {
		f.Name = Some(s)
	}
	if s, ok := stringField(r, FieldPosition); ok {
		f.Position = Some(s)
	}
	f.Marking = boolField(r, FieldMarking)
	f.Highlighted = boolField(r, FieldHighlighted)
	f.Selected = boolField(r, FieldSelected)
	if v, ok := r.Get(FieldPinned); ok && v != nil {
		f.Pinned = Some(Truthy(v))
	}
	return f
}

func decodeArc(b base, r Record) (Entity, error) {
	a := &Arc{base: b, Kind: DefaultArcKind}
	var ok bool
	if a.Source, ok = refField(r, FieldSource); !ok {
		return nil, errors.New(errors.ErrCodeIncompleteEntity, "arc %s has no source", b.id)
	}
	if a.Target, ok = refField(r, FieldTarget); !ok {
		return nil, errors.New(errors.ErrCodeIncompleteEntity, "arc %s has no target", b.id)
	}
	a.Anchor, _ = stringField(r, FieldAnchor)
	a.Locked = boolField(r, FieldLockPos)
	if k, ok := stringField(r, FieldKind); ok && k != "" {
		a.Kind = k
	}
	if v, ok := stringField(r, FieldValuation); ok {
		a.Valuation = Some(v)
	}
	return a, nil
}

func decodeForm(b base, r Record) (Entity, error) {
	f := &Form{base: b}
	raw, ok := r.Get(FieldElements)
	if !ok || raw == nil {
		return f, nil
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []Record:
		for _, e := range v {
			items = append(items, e)
		}
	default:
		return nil, errors.New(errors.ErrCodeIncompleteEntity, "form %s has malformed elements", b.id)
	}
	for i, item := range items {
		er, ok := item.(Record)
		if !ok {
			return nil, errors.New(errors.ErrCodeIncompleteEntity, "form %s element %d is not a record", b.id, i)
		}
		typ, _ := stringField(er, FieldType)
		name, _ := stringField(er, FieldName)
		value, _ := stringField(er, FieldValue)
		f.Elements = append(f.Elements, FormElement{
			ID:     er.ID(),
			Type:   FormElementType(typ),
			Name:   name,
			Value:  value,
			Active: boolField(er, FieldIsActive),
			Handle: er,
		})
	}
	return f, nil
}

// refField reads an endpoint reference, which may be an id or a handle.
func refField(r Record, field string) (string, bool) {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return "", false
	}
	if h, ok := v.(Handle); ok {
		return h.ID(), h.ID() != ""
	}
	s := Stringify(v)
	return s, s != ""
}

func stringField(r Record, field string) (string, bool) {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return "", false
	}
	return Stringify(v), true
}

func boolField(r Record, field string) bool {
	v, ok := r.Get(field)
	return ok && Truthy(v)
}

// Stringify renders a loosely typed field value as a string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

// Truthy interprets a loosely typed field value as a flag. Numbers are
// true when non-zero, so a token count works as a marking.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	}
	return true
}
