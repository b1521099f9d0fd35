package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"
)

// Format encodes the flat map. Marshal receives entries sorted by path;
// Unmarshal returns entries in document order when the format keeps one.
type Format interface {
	Name() string
	Marshal(entries []Entry) ([]byte, error)
	Unmarshal(data []byte) ([]Entry, error)
}

// Raw is a wire value that is not a scalar, such as a nested object. No
// default vtable accepts it.
type Raw string

// JSONFormat is a compact JSON object.
type JSONFormat struct{}

func (JSONFormat) Name() string { return "json" }

func (JSONFormat) Marshal(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, e.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONValue(&buf, e.Value); err != nil {
			return nil, fmt.Errorf("%q: %w", e.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (JSONFormat) Unmarshal(data []byte) ([]Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}
	var entries []Entry
	root.ForEach(func(k, v gjson.Result) bool {
		entries = append(entries, Entry{Key: k.String(), Value: jsonValue(v)})
		return true
	})
	return entries, nil
}

// PrettyFormat is JSON indented by two spaces.
type PrettyFormat struct{}

func (PrettyFormat) Name() string { return "pretty" }

func (PrettyFormat) Marshal(entries []Entry) ([]byte, error) {
	compact, err := JSONFormat{}.Marshal(entries)
	if err != nil {
		return nil, err
	}
	out := pretty.PrettyOptions(compact, &pretty.Options{Width: 80, Indent: "  "})
	return bytes.TrimRight(out, "\n"), nil
}

func (PrettyFormat) Unmarshal(data []byte) ([]Entry, error) {
	return JSONFormat{}.Unmarshal(data)
}

// ParseValue interprets text as a JSON value, falling back to a plain
// string. The CLI uses it for values typed on the command line.
func ParseValue(text string) any {
	if !gjson.Valid(text) {
		return text
	}
	return jsonValue(gjson.Parse(text))
}

func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return v.Str
	case gjson.Number:
		return number(v.Raw, v.Num)
	default:
		return Raw(v.Raw)
	}
}

// number keeps integers exact and falls back to float64.
func number(raw string, f float64) any {
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return u
		}
	}
	return f
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	switch v := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(v, 10))
	case float32:
		buf.WriteString(formatFloat(float64(v), 32))
	case float64:
		buf.WriteString(formatFloat(v, 64))
	case string:
		return writeJSONString(buf, v)
	case Raw:
		buf.WriteString(string(v))
	default:
		return fmt.Errorf("%w: cannot encode %T", ErrType, v)
	}
	return nil
}

// formatFloat renders the shortest representation that round-trips at the
// given bit size. Integral values keep a ".0" suffix; very large and very
// small magnitudes use exponent notation. NaN and infinities become null.
func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	sign := ""
	if math.Signbit(f) {
		sign = "-"
		f = -f
	}
	sci := strconv.FormatFloat(f, 'e', -1, bits)
	mant, expText, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expText)
	digits := strings.Replace(mant, ".", "", 1)
	n := len(digits)
	kk := exp + 1 // value is 0.digits * 10^kk
	k := kk - n

	switch {
	case k >= 0 && kk <= 16:
		return sign + digits + strings.Repeat("0", k) + ".0"
	case kk > 0 && kk <= 16:
		return sign + digits[:kk] + "." + digits[kk:]
	case kk > -5 && kk <= 0:
		return sign + "0." + strings.Repeat("0", -kk) + digits
	case n == 1:
		return sign + digits + "e" + strconv.Itoa(kk-1)
	default:
		return sign + digits[:1] + "." + digits[1:] + "e" + strconv.Itoa(kk-1)
	}
}

// YAMLFormat is a YAML mapping in path order.
type YAMLFormat struct{}

func (YAMLFormat) Name() string { return "yaml" }

func (YAMLFormat) Marshal(entries []Entry) ([]byte, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		val, err := yamlNode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", e.Key, err)
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}, val)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{m}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yamlNode(v any) (*yaml.Node, error) {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch v := v.(type) {
	case nil:
		return scalar("!!null", "null"), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(v)), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(v, 10)), nil
	case uint64:
		return scalar("!!int", strconv.FormatUint(v, 10)), nil
	case float32:
		return yamlFloat(float64(v), 32), nil
	case float64:
		return yamlFloat(v, 64), nil
	case string:
		return scalar("!!str", v), nil
	case Raw:
		var n yaml.Node
		if err := yaml.Unmarshal([]byte(v), &n); err != nil || len(n.Content) == 0 {
			return nil, fmt.Errorf("%w: cannot encode raw value", ErrType)
		}
		return n.Content[0], nil
	}
	return nil, fmt.Errorf("%w: cannot encode %T", ErrType, v)
}

func yamlFloat(f float64, bits int) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float"}
	switch {
	case math.IsNaN(f):
		n.Value = ".nan"
	case math.IsInf(f, 1):
		n.Value = ".inf"
	case math.IsInf(f, -1):
		n.Value = "-.inf"
	default:
		n.Value = formatFloat(f, bits)
	}
	return n
}

func (YAMLFormat) Unmarshal(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrMalformed)
	}
	entries := make([]Entry, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: non-scalar key at line %d", ErrMalformed, k.Line)
		}
		val, err := yamlValue(v)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: k.Value, Value: val})
	}
	return entries, nil
}

func yamlValue(n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		out, err := yaml.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Raw(strings.TrimSpace(string(out))), nil
	}
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return u, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return f, nil
	default:
		return n.Value, nil
	}
}

// TOMLFormat is a TOML document with one quoted key per entry. Tables in
// hand-written input are flattened, so [ui] followed by thickness = 5
// loads as "ui.thickness". TOML maps carry no order; entries are returned
// sorted by key.
type TOMLFormat struct{}

func (TOMLFormat) Name() string { return "toml" }

func (TOMLFormat) Marshal(entries []Entry) ([]byte, error) {
	m := make(map[string]any, len(entries))
	for _, e := range entries {
		switch v := e.Value.(type) {
		case nil:
			return nil, fmt.Errorf("%q: %w: toml has no null", e.Key, ErrType)
		case Raw:
			return nil, fmt.Errorf("%q: %w: cannot encode raw value", e.Key, ErrType)
		default:
			m[e.Key] = v
		}
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (TOMLFormat) Unmarshal(data []byte) ([]Entry, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	flat := make(map[string]any)
	flattenTOML("", doc, flat)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: flat[k]})
	}
	return entries, nil
}

func flattenTOML(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + Separator + k
		}
		switch v := v.(type) {
		case map[string]any:
			flattenTOML(key, v, out)
		case int64, float64, bool, string:
			out[key] = v
		case time.Time:
			out[key] = v.Format(time.RFC3339Nano)
		case fmt.Stringer:
			out[key] = v.String()
		default:
			// Arrays have no scalar form; pass them on as JSON.
			raw, err := json.Marshal(v)
			if err != nil {
				raw = []byte(strconv.Quote(fmt.Sprint(v)))
			}
			out[key] = Raw(raw)
		}
	}
}

// EncodeValue renders one wire value as JSON.
func EncodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSONValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
