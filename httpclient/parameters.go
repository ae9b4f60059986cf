package httpclient

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// DateLayout is the calendar-date form used for Date parameters.
const DateLayout = "2006-01-02"

// wireJSON serialises parameter bodies and Map values. Map keys are sorted.
var wireJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ParameterValue is a typed value with a canonical wire string.
type ParameterValue interface {
	ParameterValue() string
}

// Parameters maps names to values. A nil value marks the entry absent.
type Parameters map[string]ParameterValue

type (
	Int    int
	Uint   uint
	Int64  int64
	Double float64
	Bool   bool
	String string
	// Date renders as yyyy-MM-dd in its own location.
	Date time.Time
	// Array renders its elements' wire strings joined by commas.
	Array []ParameterValue
	// Map renders as JSON text.
	Map map[string]any
)

func (v Int) ParameterValue() string    { return strconv.Itoa(int(v)) }
func (v Uint) ParameterValue() string   { return strconv.FormatUint(uint64(v), 10) }
func (v Int64) ParameterValue() string  { return strconv.FormatInt(int64(v), 10) }
func (v Double) ParameterValue() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v Bool) ParameterValue() string   { return strconv.FormatBool(bool(v)) }
func (v String) ParameterValue() string { return string(v) }
func (v Date) ParameterValue() string   { return time.Time(v).Format(DateLayout) }

func (v Array) ParameterValue() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		if e != nil {
			parts = append(parts, e.ParameterValue())
		}
	}
	return strings.Join(parts, ",")
}

// ParameterValue returns the JSON text of the map, or "" when a member
// cannot be encoded.
func (v Map) ParameterValue() string {
	b, err := wireJSON.Marshal(map[string]any(v))
	if err != nil {
		return ""
	}
	return string(b)
}

// ValueOf converts a native Go value. Unrecognised types fall back to their
// fmt representation; nil stays nil.
func ValueOf(x any) ParameterValue {
	switch v := x.(type) {
	case nil:
		return nil
	case ParameterValue:
		return v
	case int:
		return Int(v)
	case int8:
		return Int64(v)
	case int16:
		return Int64(v)
	case int32:
		return Int64(v)
	case int64:
		return Int64(v)
	case uint:
		return Uint(v)
	case uint8:
		return Uint(v)
	case uint16:
		return Uint(v)
	case uint32:
		return Uint(v)
	case uint64:
		return Uint(v)
	case float32:
		return Double(v)
	case float64:
		return Double(v)
	case bool:
		return Bool(v)
	case string:
		return String(v)
	case time.Time:
		return Date(v)
	case []string:
		arr := make(Array, len(v))
		for i, s := range v {
			arr[i] = String(s)
		}
		return arr
	case []any:
		arr := make(Array, 0, len(v))
		for _, e := range v {
			if pv := ValueOf(e); pv != nil {
				arr = append(arr, pv)
			}
		}
		return arr
	case map[string]any:
		return Map(v)
	default:
		return String(fmt.Sprint(v))
	}
}

// EncodeQuery renders the present entries as query values.
func EncodeQuery(p Parameters) url.Values {
	q := make(url.Values, len(p))
	for k, v := range p {
		if v != nil {
			q.Set(k, v.ParameterValue())
		}
	}
	return q
}

// EncodeBody serialises the present entries as a JSON object. Entries with
// no JSON form (NaN, infinities, unencodable map members) are dropped.
func EncodeBody(p Parameters) ([]byte, error) {
	obj := make(map[string]jsoniter.RawMessage, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		raw, ok := jsonOf(v)
		if !ok {
			continue
		}
		obj[k] = raw
	}
	return wireJSON.Marshal(obj)
}

func jsonOf(v ParameterValue) (jsoniter.RawMessage, bool) {
	native, ok := nativeOf(v)
	if !ok {
		return nil, false
	}
	b, err := wireJSON.Marshal(native)
	if err != nil {
		return nil, false
	}
	return b, true
}

// nativeOf maps a value onto the Go type whose JSON form it takes in a body.
func nativeOf(v ParameterValue) (any, bool) {
	switch x := v.(type) {
	case Int:
		return int(x), true
	case Uint:
		return uint(x), true
	case Int64:
		return int64(x), true
	case Double:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	case Bool:
		return bool(x), true
	case String:
		return string(x), true
	case Date:
		return x.ParameterValue(), true
	case Array:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if e == nil {
				continue
			}
			n, ok := nativeOf(e)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	case Map:
		return map[string]any(x), true
	default:
		return v.ParameterValue(), true
	}
}
