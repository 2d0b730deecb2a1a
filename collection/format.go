package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encode renders v as JSON with sorted object keys. Floats are written in
// their shortest decimal form without exponent, so integral values carry no
// trailing ".0".
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a single JSON value, keeping numbers as json.Number.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		return encodeString(buf, t)
	case float64:
		return encodeFloat(buf, t, 64)
	case float32:
		return encodeFloat(buf, float64(t), 32)
	case json.Number:
		return encodeNumber(buf, t)
	case int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
	case map[string]any:
		buf.WriteByte('{')
		for i, key := range sortedKeys(t) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeValue(buf, t[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []map[string]any:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// Structs, typed errors and the like: let encoding/json resolve their
		// shape, then re-render it so keys and numbers follow the same rules.
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		generic, err := Decode(raw)
		if err != nil {
			return err
		}
		return encodeValue(buf, generic)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func encodeFloat(buf *bytes.Buffer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("unsupported number: %v", f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'f', -1, bits))
	return nil
}

func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			buf.WriteString(s)
			return nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	return encodeFloat(buf, f, 64)
}
