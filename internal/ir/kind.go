package ir

import "fmt"

// Kind names the element type a slot accepts.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
	KindArray  Kind = "array"
	KindObject Kind = "object"
	KindAny    Kind = "any"
)

// Kinds lists every valid Kind.
var Kinds = []Kind{KindString, KindInt, KindBool, KindArray, KindObject, KindAny}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown value kind %q (want one of %v)", s, Kinds)
}

// KindOf reports the kind of v. Null and nil have no kind and return "".
func KindOf(v IRValue) Kind {
	switch v.(type) {
	case IRString:
		return KindString
	case IRInt:
		return KindInt
	case IRBool:
		return KindBool
	case IRArray:
		return KindArray
	case IRObject:
		return KindObject
	}
	return ""
}

// Accepts reports whether v may be stored in a slot of kind k.
// Null is never accepted, at the top level or nested inside arrays and
// objects; KindAny accepts every other value.
func (k Kind) Accepts(v IRValue) bool {
	got := KindOf(v)
	if got == "" || HasNull(v) {
		return false
	}
	return k == KindAny || k == got
}

// HasNull reports whether v is null or holds a null at any depth.
func HasNull(v IRValue) bool {
	switch val := v.(type) {
	case nil, IRNull:
		return true
	case IRArray:
		for _, elem := range val {
			if HasNull(elem) {
				return true
			}
		}
	case IRObject:
		for _, elem := range val {
			if HasNull(elem) {
				return true
			}
		}
	}
	return false
}
