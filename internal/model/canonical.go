package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// CanonicalJSON produces the canonical encoding of any JSON-marshalable
// value, including the model entity types. The value is first flattened
// through its ordinary JSON form so that struct tags and omitempty rules
// stay authoritative, then re-encoded canonically.
//
// CRITICAL: this is the ONLY serialization that may be used for deep
// equality and content digests. Standard json.Marshal output is not
// canonical (map key order is unspecified, HTML escaping varies).
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var plain any
	if err := dec.Decode(&plain); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	return MarshalCanonical(plain)
}

// MarshalCanonical produces RFC 8785-style canonical JSON for a plain
// JSON-shaped value (nil, bool, string, number, []any, map[string]any).
//
// Key differences from standard json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Floats use the shortest round-trip decimal form
//
// Unlike a hashing IR for ordered logs, canvas data is full of coordinates,
// so floats are first-class here; NaN and infinities are still rejected
// because JSON cannot represent them.
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case string:
		return marshalCanonicalString(val)
	case int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(nil, val, 10), nil
	case json.Number:
		return marshalCanonicalNumber(val)
	case float64:
		return marshalCanonicalFloat(val)
	case float32:
		return marshalCanonicalFloat(float64(val))
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalNumber keeps integers exact and routes everything else
// through float formatting.
func marshalCanonicalNumber(n json.Number) ([]byte, error) {
	if i, err := n.Int64(); err == nil {
		return strconv.AppendInt(nil, i, 10), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("unrepresentable number %q: %w", string(n), err)
	}
	return marshalCanonicalFloat(f)
}

// marshalCanonicalFloat renders a float in shortest round-trip decimal form,
// matching ES6 number-to-string for the magnitude range canvas coordinates
// occupy: plain decimal inside [1e-6, 1e21), exponent form outside it.
// Negative zero collapses to "0".
func marshalCanonicalFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float cannot be canonical JSON: %v", f)
	}
	if f == 0 {
		return []byte("0"), nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization.
// CRITICAL: RFC 8785 compliance:
//   - No HTML escaping (<, >, & are NOT escaped)
//   - U+2028 (LINE SEPARATOR) and U+2029 (PARAGRAPH SEPARATOR) are NOT escaped
//   - Only control characters (U+0000-U+001F), backslash, and quote are escaped
func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at the serialization boundary
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // <, > and & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	// Go's json.Encoder escapes U+2028/U+2029 for JavaScript compatibility,
	// which violates canonical JSON. Unescape them, but leave \\u2028
	// (escaped backslash followed by literal "u2028" text) alone.
	result = unescapeU2028U2029(result)

	return result, nil
}

// unescapeU2028U2029 converts \u2028 and \u2029 escape sequences to literal
// characters, preserving sequences whose backslash is itself escaped. A
// \u202x escape is real exactly when an even number of backslashes precedes
// it in the encoded output.
func unescapeU2028U2029(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	result := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(result) - 1; j >= 0 && result[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					result = append(result, "\u2028"...)
				} else {
					result = append(result, "\u2029"...)
				}
				i += 6
				continue
			}
		}
		result = append(result, data[i])
		i++
	}
	return result
}

// marshalCanonicalArray marshals a slice to canonical JSON.
func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalCanonicalObject marshals a map to canonical JSON with RFC 8785
// key ordering.
func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys := SortedKeys(obj)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SortedKeys returns the map's keys in RFC 8785 canonical order (UTF-16
// code units).
// CRITICAL: sort.Strings compares UTF-8 bytes, which produces a DIFFERENT
// order once keys leave the ASCII range.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units as required by
// RFC 8785. unicode/utf16.Encode handles surrogate pairs correctly.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}

// Equal reports whether two values have identical canonical encodings.
// This is the deep-equality primitive behind every set/update no-op check.
//
// A value that cannot be canonically encoded (a property holding a channel,
// a NaN coordinate) compares unequal to everything: the mutation proceeds
// rather than being wrongly skipped.
func Equal(a, b any) bool {
	ab, err := CanonicalJSON(a)
	if err != nil {
		return false
	}
	bb, err := CanonicalJSON(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
