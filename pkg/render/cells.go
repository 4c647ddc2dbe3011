package render

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// Placeholder stands for a missing or falsy value.
const Placeholder = "-"

// Cell stringifies a table value. nil, false, zero numbers, NaN and empty
// strings show as Placeholder; objects and arrays as compact JSON.
func Cell(v any) string {
	switch tv := v.(type) {
	case nil:
		return Placeholder
	case bool:
		if !tv {
			return Placeholder
		}
	case string:
		if len(tv) == 0 {
			return Placeholder
		}
		return tv
	case float64:
		if tv == 0 || math.IsNaN(tv) {
			return Placeholder
		}
	case map[string]any, []any:
		b, err := json.Marshal(tv)
		if err != nil {
			return fmt.Sprint(tv)
		}
		return string(b)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	if s == "0" {
		return Placeholder
	}
	return s
}

// Seconds formats an execution time like "1.23s", or Placeholder when absent or zero.
func Seconds(v *float64) string {
	if v == nil || *v == 0 {
		return Placeholder
	}
	return fmt.Sprintf("%.2fs", *v)
}

// OrDash ...
func OrDash(s string) string {
	if len(s) == 0 {
		return Placeholder
	}
	return s
}
