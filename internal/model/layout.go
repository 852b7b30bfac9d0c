package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnySentinel is the layout value meaning "any amount".
const AnySentinel = "any"

// Specifier is one entry of a layout row: a day number, or an any-amount box
// optionally carrying a stable key ("any:<key>").
type Specifier struct {
	Day int    // > 0 for day specifiers
	Any bool   // true for any-amount specifiers
	Key string // explicit any key; empty means counter-assigned
}

// DaySpec returns a day specifier.
func DaySpec(n int) Specifier {
	return Specifier{Day: n}
}

// AnySpec returns a counter-assigned any-amount specifier.
func AnySpec() Specifier {
	return Specifier{Any: true}
}

// KeyedAnySpec returns an any-amount specifier with a stable key.
func KeyedAnySpec(key string) Specifier {
	return Specifier{Any: true, Key: key}
}

// Layout is an ordered sequence of rows of specifiers.
type Layout [][]Specifier

// Count returns the total number of specifiers across all rows.
func (l Layout) Count() int {
	n := 0
	for _, row := range l {
		n += len(row)
	}
	return n
}

// String renders the specifier the way it is written in a layout.
func (s Specifier) String() string {
	if !s.Any {
		return strconv.Itoa(s.Day)
	}
	if s.Key != "" {
		return AnySentinel + ":" + s.Key
	}
	return AnySentinel
}

// ParseSpecifier decodes a layout value: an integer day, or "any"/"any:<key>".
// Numeric strings are accepted as days.
func ParseSpecifier(v any) (Specifier, error) {
	switch x := v.(type) {
	case int:
		return DaySpec(x), nil
	case int64:
		return DaySpec(int(x)), nil
	case float64:
		if x != float64(int(x)) {
			return Specifier{}, fmt.Errorf("layout: day %v is not an integer", x)
		}
		return DaySpec(int(x)), nil
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err != nil {
			return Specifier{}, fmt.Errorf("layout: day %q: %w", x, err)
		}
		return DaySpec(n), nil
	case string:
		s := strings.TrimSpace(x)
		if s == AnySentinel {
			return AnySpec(), nil
		}
		if key, ok := strings.CutPrefix(s, AnySentinel+":"); ok && key != "" {
			return KeyedAnySpec(key), nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Specifier{}, fmt.Errorf("layout: unknown specifier %q", x)
		}
		return DaySpec(n), nil
	}
	return Specifier{}, fmt.Errorf("layout: unsupported specifier type %T", v)
}

// MarshalJSON writes a day as a number and any-amount boxes as strings.
func (s Specifier) MarshalJSON() ([]byte, error) {
	if !s.Any {
		return json.Marshal(s.Day)
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the forms documented on ParseSpecifier.
func (s *Specifier) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	spec, err := ParseSpecifier(v)
	if err != nil {
		return err
	}
	*s = spec
	return nil
}

// UnmarshalTOML lets BurntSushi/toml decode mixed int/string layout arrays.
func (s *Specifier) UnmarshalTOML(v any) error {
	spec, err := ParseSpecifier(v)
	if err != nil {
		return err
	}
	*s = spec
	return nil
}

// ParseLayout converts a generic nested array (as decoded from JSON or TOML)
// into a Layout.
func ParseLayout(rows [][]any) (Layout, error) {
	l := make(Layout, 0, len(rows))
	for i, row := range rows {
		specs := make([]Specifier, 0, len(row))
		for j, v := range row {
			spec, err := ParseSpecifier(v)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %d: %w", i, j, err)
			}
			specs = append(specs, spec)
		}
		l = append(l, specs)
	}
	return l, nil
}
