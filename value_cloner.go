package ttlstate

import "github.com/goccy/go-reflect"

// StateCloner clones states when they cross a storage boundary.
// CloneState should return a deep copy of the input state.
type StateCloner[S StateConstraint] interface {
	CloneState(S) S
}

// StateClonerFunc is a function type that implements the StateCloner interface.
type StateClonerFunc[S StateConstraint] func(s S) S

// CloneState calls the function.
func (f StateClonerFunc[S]) CloneState(s S) S {
	return f(s)
}

// NopStateCloner returns states as they are.
// It suits value types and states that are never mutated after being stored.
type NopStateCloner[S StateConstraint] struct{}

// CloneState returns the input state.
func (NopStateCloner[S]) CloneState(s S) S {
	return s
}

// DefaultStateCloner returns a cloner for the state type.
// Types with a Clone or DeepCopy method are cloned through it, and plain values
// (scalars, strings, comparable structs and arrays) are copied by assignment.
// It panics for pointer-like types without a Clone or DeepCopy method.
func DefaultStateCloner[S StateConstraint]() StateCloner[S] {
	var zero S
	return defaultStateClonerAny[S](zero)
}

func defaultStateClonerAny[S StateConstraint](v any) StateCloner[S] {
	type cloner interface {
		Clone() S
	}
	type deepCopier interface {
		DeepCopy() S
	}

	switch v.(type) {
	case cloner:
		return StateClonerFunc[S](func(s S) S {
			var zero S
			if s == zero {
				return s
			}
			var a any = s
			return a.(cloner).Clone()
		})

	case deepCopier:
		return StateClonerFunc[S](func(s S) S {
			var zero S
			if s == zero {
				return s
			}
			var a any = s
			return a.(deepCopier).DeepCopy()
		})

	case nil:
		// interface state types carry no static kind to inspect
		return NopStateCloner[S]{}

	default:
		return defaultStateClonerReflect[S](reflect.TypeOf(v))
	}
}

func defaultStateClonerReflect[S StateConstraint](typ reflect.Type) StateCloner[S] {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String, reflect.Struct, reflect.Array:
		return NopStateCloner[S]{}
	default:
		panic("state type " + typ.String() + " does not have Clone or DeepCopy method")
	}
}
