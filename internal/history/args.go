package history

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strings"
)

// Encoding records how tool-call arguments arrived on the wire.
type Encoding int

const (
	// EncodingObject means the provider handed over a decoded structure.
	EncodingObject Encoding = iota
	// EncodingJSON means the provider handed over a JSON string.
	EncodingJSON
)

// Args is the normalized form of a tool call's arguments. Both wire
// encodings are parsed into the same field map at ingestion; Wire turns it
// back into whatever encoding the provider originally used.
type Args struct {
	encoding  Encoding
	fields    map[string]any
	raw       string
	malformed bool
	dirty     bool
}

// ParseArgs normalizes a live structure or a JSON string. A JSON string that
// does not decode to an object yields malformed Args, which keep the raw text
// and are never rewritten.
func ParseArgs(v any) *Args {
	switch val := v.(type) {
	case nil:
		return &Args{encoding: EncodingObject, fields: map[string]any{}}
	case *Args:
		return val
	case map[string]any:
		return &Args{encoding: EncodingObject, fields: val}
	case string:
		return parseJSONArgs(val)
	case []byte:
		return parseJSONArgs(string(val))
	case json.RawMessage:
		return parseJSONArgs(string(val))
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return &Args{encoding: EncodingObject, malformed: true}
		}
		fields, ok := decodeObject(data)
		if !ok {
			return &Args{encoding: EncodingObject, raw: string(data), malformed: true}
		}
		return &Args{encoding: EncodingObject, fields: fields}
	}
}

func parseJSONArgs(s string) *Args {
	fields, ok := decodeObject([]byte(s))
	if !ok {
		return &Args{encoding: EncodingJSON, raw: s, malformed: true}
	}
	return &Args{encoding: EncodingJSON, fields: fields, raw: s}
}

// decodeObject decodes a single JSON object. Numbers are kept as
// json.Number so re-encoding after an edit does not round them through
// float64.
func decodeObject(data []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return fields, true
}

// Encoding returns the original wire encoding.
func (a *Args) Encoding() Encoding {
	return a.encoding
}

// Malformed reports whether the arguments could not be decoded.
func (a *Args) Malformed() bool {
	return a != nil && a.malformed
}

// Fields returns the decoded argument map (nil when malformed).
func (a *Args) Fields() map[string]any {
	if a == nil {
		return nil
	}
	return a.fields
}

// String returns a string-valued argument.
func (a *Args) String(key string) (string, bool) {
	if a == nil || a.fields == nil {
		return "", false
	}
	s, ok := a.fields[key].(string)
	return s, ok
}

// SetString replaces a string-valued argument. Malformed args are left alone.
func (a *Args) SetString(key, value string) {
	if a == nil || a.malformed || a.fields == nil {
		return
	}
	a.fields[key] = value
	a.dirty = true
}

// StringKeys lists the keys holding string values, sorted for stable iteration.
func (a *Args) StringKeys() []string {
	if a == nil {
		return nil
	}
	keys := make([]string, 0, len(a.fields))
	for k, v := range a.fields {
		if _, ok := v.(string); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Wire returns the arguments in their original encoding: the field map for
// EncodingObject, a JSON string for EncodingJSON. Unmodified JSON args are
// returned byte-for-byte as received.
func (a *Args) Wire() any {
	if a == nil {
		return nil
	}
	if a.malformed {
		return a.raw
	}
	if a.encoding == EncodingObject {
		return a.fields
	}
	if !a.dirty && a.raw != "" {
		return a.raw
	}
	return encodeFields(a.fields)
}

// Footprint is the serialized size of the arguments in characters.
func (a *Args) Footprint() int {
	if a == nil {
		return 0
	}
	if a.malformed {
		return charCount(a.raw)
	}
	if a.encoding == EncodingJSON {
		return charCount(a.Wire().(string))
	}
	return charCount(encodeFields(a.fields))
}

func encodeFields(fields map[string]any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
