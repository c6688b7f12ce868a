package cache

import (
	"reflect"
	"strings"
)

// hintTypes maps declarable type hints to runtime types. Hints are the
// vocabulary cache templates and the admin API use to request typed
// caches without speaking reflect.
var hintTypes = map[string]reflect.Type{
	"string":  reflect.TypeOf(""),
	"int":     reflect.TypeOf(int(0)),
	"int32":   reflect.TypeOf(int32(0)),
	"int64":   reflect.TypeOf(int64(0)),
	"float64": reflect.TypeOf(float64(0)),
	"bool":    reflect.TypeOf(false),
	"bytes":   reflect.TypeOf([]byte(nil)),
}

// TypeFromHint resolves a type hint to its runtime type. The empty hint
// and "any" resolve to nil, which callers treat as wildcard. Unknown
// hints fail with InvalidArgument.
func TypeFromHint(hint string) (reflect.Type, error) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" || h == "any" {
		return nil, nil
	}
	if t, ok := hintTypes[h]; ok {
		return t, nil
	}
	return nil, Errorf(ErrCodeInvalidArgument, "unknown type hint %q", hint)
}

// HintFor is the inverse of TypeFromHint for the supported vocabulary.
// Types outside it render through reflect.
func HintFor(t reflect.Type) string {
	if t == nil || t == WildcardType {
		return "any"
	}
	for name, ht := range hintTypes {
		if ht == t {
			return name
		}
	}
	return t.String()
}
