package model

// Type is the declared type of a model entity.
type Type string

// Entity types understood by the core.
const (
	TypePlace      Type = "place"
	TypeTransition Type = "transition"
	TypeArc        Type = "arc"
	TypeForm       Type = "form"
)

// IsNode reports whether t is drawn as a node.
func (t Type) IsNode() bool { return t == TypePlace || t == TypeTransition }

// Op is a notification kind.
type Op string

// Notification kinds.
const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// Field names read from and written to records.
const (
	FieldType        = "type"
	FieldName        = "name"
	FieldPosition    = "position"
	FieldMarking     = "marking"
	FieldHighlighted = "highlighted"
	FieldSelected    = "selected"
	FieldPinned      = "pinned"
	FieldSource      = "source"
	FieldTarget      = "target"
	FieldAnchor      = "anchor"
	FieldLockPos     = "lock_pos"
	FieldKind        = "kind"
	FieldValuation   = "valuation"
	FieldElements    = "elements"
	FieldValue       = "value"
	FieldClicked     = "clicked"
	FieldIsActive    = "is_active"
)

// DefaultArcKind is the marker style used when an arc names none.
const DefaultArcKind = "licensing"

// Handle is the write-back path to one model entity. Implementations are
// owned by the model; the diagram only holds them.
type Handle interface {
	ID() string
	Set(field string, value any) error
}

// Record is a model entity as delivered by the collaborator.
type Record interface {
	Handle
	Get(field string) (any, bool)
}

// Entity is the decoded, typed form of a [Record]. The concrete type is
// one of [*Place], [*Transition], [*Arc] or [*Form].
type Entity interface {
	EntityID() string
	Type() Type
	Handle() Handle
	entity()
}

type base struct {
	id     string
	handle Handle
}

// EntityID returns the model identifier.
func (b base) EntityID() string { return b.id }

// Handle returns the write-back handle; it may be nil for entities built
// in tests.
func (b base) Handle() Handle { return b.handle }

func (base) entity() {}

// NodeFields are the fields shared by places and transitions.
type NodeFields struct {
	Name        Optional[string]
	Position    Optional[string]
	Marking     bool
	Highlighted bool
	Selected    bool
	Pinned      Optional[bool]
}

// Place is a Petri-net place.
type Place struct {
	base
	NodeFields
}

// Type returns [TypePlace].
func (*Place) Type() Type { return TypePlace }

// Transition is a Petri-net transition.
type Transition struct {
	base
	NodeFields
}

// Type returns [TypeTransition].
func (*Transition) Type() Type { return TypeTransition }

// Arc connects two nodes by id.
type Arc struct {
	base
	Source    string
	Target    string
	Anchor    string
	Locked    bool
	Kind      string
	Valuation Optional[string]
}

// Type returns [TypeArc].
func (*Arc) Type() Type { return TypeArc }

// FormElementType distinguishes form inputs.
type FormElementType string

// Form element types.
const (
	FormText   FormElementType = "text"
	FormButton FormElementType = "button"
)

// FormElement is one input of a form.
type FormElement struct {
	ID     string
	Type   FormElementType
	Name   string
	Value  string
	Active bool
	Handle Handle
}

// Form is a property editor attached to the model. The core never
// interprets it; it is forwarded to a form renderer.
type Form struct {
	base
	Elements []FormElement
}

// Type returns [TypeForm].
func (*Form) Type() Type { return TypeForm }

// Ordered returns the elements with text inputs first, keeping the
// relative order within each group.
func (f *Form) Ordered() []FormElement {
	out := make([]FormElement, 0, len(f.Elements))
	for _, e := range f.Elements {
		if e.Type == FormText {
			out = append(out, e)
		}
	}
	for _, e := range f.Elements {
		if e.Type != FormText {
			out = append(out, e)
		}
	}
	return out
}

// NewPlace builds a place entity directly, bypassing [Decode].
func NewPlace(id string, h Handle, f NodeFields) *Place {
	return &Place{base: base{id: id, handle: h}, NodeFields: f}
}

// NewTransition builds a transition entity directly, bypassing [Decode].
func NewTransition(id string, h Handle, f NodeFields) *Transition {
	return &Transition{base: base{id: id, handle: h}, NodeFields: f}
}

// NewArc builds an arc entity directly, bypassing [Decode].
func NewArc(id string, h Handle, source, target string) *Arc {
	return &Arc{base: base{id: id, handle: h}, Source: source, Target: target, Kind: DefaultArcKind}
}

// NewForm builds a form entity directly, bypassing [Decode].
func NewForm(id string, h Handle, elems ...FormElement) *Form {
	return &Form{base: base{id: id, handle: h}, Elements: elems}
}

// Fields returns the shared node fields of a place or transition.
func Fields(e Entity) (*NodeFields, bool) {
	switch n := e.(type) {
	case *Place:
		return &n.NodeFields, true
	case *Transition:
		return &n.NodeFields, true
	}
	return nil, false
}
