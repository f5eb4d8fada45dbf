package expressions

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

var ErrNotImplemented = errors.New("expressions: not implemented")

// MultiMap exposes a multi-valued string map (http.Header, url.Values) to
// CEL as map(string, string). Multiple values are joined with commas.
type MultiMap struct {
	values map[string][]string
	// canonical keys are looked up with http.CanonicalHeaderKey
	canonical bool
}

// Headers wraps request headers. Lookups are case-insensitive.
func Headers(h http.Header) MultiMap {
	return MultiMap{values: h, canonical: true}
}

// Query wraps url.Values. Lookups are case-sensitive.
func Query(v map[string][]string) MultiMap {
	return MultiMap{values: v}
}

func (m MultiMap) key(k string) string {
	if m.canonical {
		return http.CanonicalHeaderKey(k)
	}
	return k
}

func (m MultiMap) flatten() map[string]string {
	result := make(map[string]string, len(m.values))
	for k, v := range m.values {
		result[k] = strings.Join(v, ",")
	}
	return result
}

func (m MultiMap) ConvertToNative(typeDesc reflect.Type) (any, error) {
	if typeDesc == reflect.TypeOf(map[string]string{}) {
		return m.flatten(), nil
	}
	return nil, ErrNotImplemented
}

func (m MultiMap) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case types.MapType:
		return m
	case types.TypeType:
		return types.MapType
	}

	return types.NewErr("can't convert from %q to %q", types.MapType, typeVal)
}

// Equal is always false; request maps are not compared.
func (m MultiMap) Equal(other ref.Val) ref.Val {
	return types.Bool(false)
}

func (m MultiMap) Type() ref.Type {
	return types.MapType
}

func (m MultiMap) Value() any { return m }

func (m MultiMap) Find(key ref.Val) (ref.Val, bool) {
	k, ok := key.(types.String)
	if !ok {
		return nil, false
	}

	vals, ok := m.values[m.key(string(k))]
	if !ok {
		return nil, false
	}

	return types.String(strings.Join(vals, ",")), true
}

func (m MultiMap) Contains(key ref.Val) ref.Val {
	_, ok := m.Find(key)
	return types.Bool(ok)
}

func (m MultiMap) Get(key ref.Val) ref.Val {
	result, ok := m.Find(key)
	if !ok {
		return types.ValOrErr(result, "no such key: %v", key)
	}
	return result
}

// Iterator walks the keys, which makes macros like exists() work.
func (m MultiMap) Iterator() traits.Iterator {
	return types.DefaultTypeAdapter.NativeToValue(m.flatten()).(traits.Mapper).Iterator()
}

func (m MultiMap) IsZeroValue() bool {
	return len(m.values) == 0
}

func (m MultiMap) Size() ref.Val { return types.Int(len(m.values)) }
