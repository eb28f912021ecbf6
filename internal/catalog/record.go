package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one raw vendor card object. Numbers are kept as json.Number so
// their source formatting survives normalization.
type Record map[string]any

// Shape is the top-level shape of a card file.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeArray         // [ {card}, ... ]
	ShapeSingle        // {card} with both id and name
	ShapeMap           // { "<id>": {card}, ... }
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeSingle:
		return "single"
	case ShapeMap:
		return "map"
	default:
		return "unknown"
	}
}

// ErrMalformedJSON marks a file that is not valid JSON.
var ErrMalformedJSON = errors.New("malformed JSON")

// DecodeRecords detects the shape of a card file and flattens it into a
// uniform list of records. Map values keep their document order. Elements
// that are not JSON objects are dropped.
func DecodeRecords(data []byte) (Shape, []Record, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if !json.Valid(data) {
		return ShapeUnknown, nil, ErrMalformedJSON
	}

	switch {
	case len(data) > 0 && data[0] == '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return ShapeUnknown, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		return ShapeArray, decodeObjects(raws), nil

	case len(data) > 0 && data[0] == '{':
		top, ok := decodeObject(data)
		if !ok {
			return ShapeUnknown, nil, ErrMalformedJSON
		}
		if truthy(top["id"]) && truthy(top["name"]) {
			return ShapeSingle, []Record{top}, nil
		}
		_, values, err := orderedValues(data)
		if err != nil {
			return ShapeUnknown, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		return ShapeMap, decodeObjects(values), nil

	default:
		// scalars and null carry no cards
		return ShapeUnknown, nil, nil
	}
}

func decodeObjects(raws []json.RawMessage) []Record {
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := decodeObject(raw); ok {
			out = append(out, rec)
		}
	}
	return out
}

func decodeObject(raw []byte) (Record, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, false
	}
	return rec, true
}

// orderedValues walks a JSON object token by token so values come back in
// document order.
func orderedValues(data []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	var values []json.RawMessage
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, raw)
	}
	return keys, values, nil
}

// safeStr renders a scalar as trimmed text. Missing, null and structured
// values render as "".
func safeStr(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return strings.TrimSpace(x.String())
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// rawStr renders a present scalar without trimming; nil stays "".
func rawStr(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return safeStr(v)
	}
}

// truthy follows the usual JSON truthiness: null, false, 0 and "" are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	default:
		return true
	}
}

// toFloat parses a numeric or numeric-looking value. Non-numbers yield nil.
func toFloat(v any) *float64 {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		s = x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return &x
	case string:
		s = strings.TrimSpace(x)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
