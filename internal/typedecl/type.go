// Package typedecl parses C type declarations such as "unsigned long *p" or
// "struct node *[4]" and renders them back in a canonical form that parses to
// the same type.
package typedecl

import (
	"strconv"
	"strings"

	"symres/internal/symbol"
)

type Kind int

const (
	KindBase Kind = iota
	KindNamed
	KindStruct
	KindUnion
	KindEnum
	KindPointer
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindNamed:
		return "named"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// UnsizedArray is the Len of an array declared with empty brackets.
const UnsizedArray = -1

// Type is a parsed declaration. Ident is the declarator name, if one was
// given; it is not part of the type and not rendered.
type Type struct {
	Kind     Kind
	Name     string // base spelling, typedef name or tag
	Const    bool
	Volatile bool
	Elem     *Type // pointer and array element
	Len      int   // array length or UnsizedArray
	Ident    string
}

var _ symbol.TypeDescriptor = (*Type)(nil)

func Pointer(elem *Type) *Type { return &Type{Kind: KindPointer, Elem: elem} }

func Array(elem *Type, n int) *Type { return &Type{Kind: KindArray, Elem: elem, Len: n} }

func Base(name string) *Type { return &Type{Kind: KindBase, Name: name} }

// Equal compares two types, ignoring declarator names.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Name != o.Name || t.Const != o.Const || t.Volatile != o.Volatile || t.Len != o.Len {
		return false
	}
	return t.Elem.Equal(o.Elem)
}

// CanonicalName renders the abstract declaration, e.g. "char *const *".
func (t *Type) CanonicalName() string {
	return strings.TrimSpace(render(t, ""))
}

func (t *Type) String() string {
	if t.Ident == "" {
		return t.CanonicalName()
	}
	return strings.TrimSpace(render(t, t.Ident))
}

func (t *Type) qualifiers() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	if t.Volatile {
		b.WriteString("volatile ")
	}
	return b.String()
}

func render(t *Type, inner string) string {
	switch t.Kind {
	case KindPointer:
		return render(t.Elem, "*"+t.qualifiers()+inner)
	case KindArray:
		if strings.HasPrefix(inner, "*") {
			inner = "(" + strings.TrimSpace(inner) + ")"
		}
		dim := ""
		if t.Len != UnsizedArray {
			dim = strconv.Itoa(t.Len)
		}
		return render(t.Elem, inner+"["+dim+"]")
	}

	base := t.qualifiers()
	switch t.Kind {
	case KindStruct, KindUnion, KindEnum:
		base += t.Kind.String() + " " + t.Name
	default:
		base += t.Name
	}
	if inner == "" {
		return base
	}
	return base + " " + inner
}
