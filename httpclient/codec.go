package httpclient

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
)

// Codec encodes and decodes message bodies.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// KeyStrategy controls how JSON keys bind to struct fields.
type KeyStrategy int

const (
	// KeysAsDeclared binds by json tag, else by case-insensitive field name.
	KeysAsDeclared KeyStrategy = iota
	// KeysFromSnakeCase binds untagged fields to their snake_case name,
	// so UserID reads "user_id".
	KeysFromSnakeCase
)

// DateStrategy parses JSON strings into time.Time fields.
type DateStrategy interface {
	ParseDate(s string) (time.Time, error)
}

// DateStrategyFunc adapts a function to DateStrategy.
type DateStrategyFunc func(string) (time.Time, error)

// ParseDate calls f.
func (f DateStrategyFunc) ParseDate(s string) (time.Time, error) { return f(s) }

// FixedDateLayout parses every date with layout.
func FixedDateLayout(layout string) DateStrategy {
	return DateStrategyFunc(func(s string) (time.Time, error) {
		return time.Parse(layout, s)
	})
}

// TimestampLayout is a timestamp with milliseconds and a colon-less zone
// offset, as in 2018-05-20T15:00:00.000+0000.
const TimestampLayout = "2006-01-02T15:04:05.000Z0700"

// DateLayoutsByLength picks the layout from the string length: ten
// characters is a calendar date, anything else RFC 3339 with optional
// fractional seconds, then TimestampLayout.
var DateLayoutsByLength DateStrategy = DateStrategyFunc(func(s string) (time.Time, error) {
	if len(s) == len(DateLayout) {
		return time.Parse(DateLayout, s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	if t, ferr := time.Parse(TimestampLayout, s); ferr == nil {
		return t, nil
	}
	return time.Time{}, err
})

// JSONCodec is a json-iterator codec with configurable key and date
// strategies. Each codec owns its own decoder cache.
type JSONCodec struct {
	api   jsoniter.API
	keys  KeyStrategy
	dates DateStrategy
}

// CodecOption configures a JSONCodec.
type CodecOption func(*JSONCodec)

// WithKeyStrategy sets the key binding strategy.
func WithKeyStrategy(k KeyStrategy) CodecOption {
	return func(c *JSONCodec) { c.keys = k }
}

// WithDateStrategy sets how time.Time fields are parsed. Without one,
// time.Time decodes as RFC 3339.
func WithDateStrategy(d DateStrategy) CodecOption {
	return func(c *JSONCodec) { c.dates = d }
}

// NewJSONCodec creates a codec.
func NewJSONCodec(opts ...CodecOption) *JSONCodec {
	c := &JSONCodec{}
	for _, opt := range opts {
		opt(c)
	}
	c.api = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
	c.api.RegisterExtension(&strategyExtension{keys: c.keys, dates: c.dates})
	return c
}

// Encode marshals v.
func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return c.api.Marshal(v)
}

// Decode unmarshals data into v, which must be a non-nil pointer.
func (c *JSONCodec) Decode(data []byte, v any) error {
	if v == nil {
		return errors.New("decode target is nil")
	}
	if err := c.api.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

type strategyExtension struct {
	jsoniter.DummyExtension
	keys  KeyStrategy
	dates DateStrategy
}

func (e *strategyExtension) UpdateStructDescriptor(sd *jsoniter.StructDescriptor) {
	if e.keys != KeysFromSnakeCase {
		return
	}
	for _, b := range sd.Fields {
		name := b.Field.Name()
		if !isExported(name) {
			continue
		}
		if _, tagged := b.Field.Tag().Lookup("json"); tagged {
			continue
		}
		snake := toSnakeCase(name)
		b.FromNames = []string{snake}
		b.ToNames = []string{snake}
	}
}

func (e *strategyExtension) CreateDecoder(typ reflect2.Type) jsoniter.ValDecoder {
	if e.dates != nil && typ.Type1() == timeType {
		return &dateDecoder{strategy: e.dates}
	}
	return nil
}

type dateDecoder struct {
	strategy DateStrategy
}

func (d *dateDecoder) Decode(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	if iter.ReadNil() {
		return
	}
	s := iter.ReadString()
	if iter.Error != nil {
		return
	}
	t, err := d.strategy.ParseDate(s)
	if err != nil {
		iter.ReportError("decode date", err.Error())
		return
	}
	*(*time.Time)(ptr) = t
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// toSnakeCase converts Go field names to snake_case, keeping initialisms
// together: UserID -> user_id, HTTPStatus -> http_status.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
