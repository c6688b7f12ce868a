package cache

import (
	"fmt"
	"reflect"
)

// WildcardType is the type descriptor used when a cache side is untyped.
// It stands for "any value accepted" and is the default for both key and
// value when a configuration declares no runtime types.
var WildcardType = reflect.TypeOf((*any)(nil)).Elem()

// TypeSignature is an immutable (key type, value type) pair identifying a
// typed variant of a named cache. Two signatures are equal when both
// components are identical runtime types, which makes TypeSignature usable
// directly as a map key.
type TypeSignature struct {
	key   reflect.Type
	value reflect.Type
}

// NewTypeSignature builds a signature from the given key and value types.
// A nil component is normalized to WildcardType, so the zero-information
// signature compares equal regardless of how it was produced.
func NewTypeSignature(key, value reflect.Type) TypeSignature {
	if key == nil {
		key = WildcardType
	}
	if value == nil {
		value = WildcardType
	}
	return TypeSignature{key: key, value: value}
}

// WildcardSignature returns the signature of an untyped cache.
func WildcardSignature() TypeSignature {
	return TypeSignature{key: WildcardType, value: WildcardType}
}

// SignatureOf derives the signature for the type parameters K and V.
func SignatureOf[K comparable, V any]() TypeSignature {
	return TypeSignature{
		key:   reflect.TypeOf((*K)(nil)).Elem(),
		value: reflect.TypeOf((*V)(nil)).Elem(),
	}
}

// KeyType returns the declared key type.
func (s TypeSignature) KeyType() reflect.Type {
	if s.key == nil {
		return WildcardType
	}
	return s.key
}

// ValueType returns the declared value type.
func (s TypeSignature) ValueType() reflect.Type {
	if s.value == nil {
		return WildcardType
	}
	return s.value
}

// IsWildcard reports whether both components are untyped.
func (s TypeSignature) IsWildcard() bool {
	return s.KeyType() == WildcardType && s.ValueType() == WildcardType
}

// CheckKey validates a runtime key against the declared key type.
// Nil keys are always rejected; a wildcard key type admits anything else.
func (s TypeSignature) CheckKey(key any) error {
	if key == nil {
		return NewError(ErrCodeInvalidArgument, "cache key must not be nil")
	}
	kt := s.KeyType()
	if kt == WildcardType {
		return nil
	}
	if rt := reflect.TypeOf(key); !rt.AssignableTo(kt) {
		return Errorf(ErrCodeTypeMismatch, "key type %s is not assignable to declared type %s", rt, kt)
	}
	return nil
}

// CheckValue validates a runtime value against the declared value type.
func (s TypeSignature) CheckValue(value any) error {
	if value == nil {
		return NewError(ErrCodeInvalidArgument, "cache value must not be nil")
	}
	vt := s.ValueType()
	if vt == WildcardType {
		return nil
	}
	if rt := reflect.TypeOf(value); !rt.AssignableTo(vt) {
		return Errorf(ErrCodeTypeMismatch, "value type %s is not assignable to declared type %s", rt, vt)
	}
	return nil
}

// String renders the signature for logs, e.g. "string→int" or "any→any".
func (s TypeSignature) String() string {
	return fmt.Sprintf("%s→%s", typeName(s.KeyType()), typeName(s.ValueType()))
}

func typeName(t reflect.Type) string {
	if t == WildcardType {
		return "any"
	}
	return t.String()
}
