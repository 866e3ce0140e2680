package runtime

import (
	"fmt"
	"reflect"
)

// reprValue renders an evaluated value as a display string.
//
// Fallback chain: the detailed Go-syntax form first, then the plain form,
// then a bracketed type name. Evaluated code may have constructed values
// whose formatting methods are broken or that cannot be interfaced at all;
// a formatting failure must never turn a successful evaluation into a
// reported error, so every tier is panic-guarded.
func reprValue(v reflect.Value) string {
	if !v.IsValid() {
		return "nothing"
	}
	if !v.CanInterface() {
		return "<" + v.Type().String() + ">"
	}
	iv := v.Interface()
	if s, ok := tryFormat("%#v", iv); ok {
		return s
	}
	if s, ok := tryFormat("%v", iv); ok {
		return s
	}
	return "<" + v.Type().String() + ">"
}

func tryFormat(verb string, v any) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			s, ok = "", false
		}
	}()
	return fmt.Sprintf(verb, v), true
}
