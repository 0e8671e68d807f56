package exec

import (
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// coerce maps a driver value into the normalized scalar set so downstream
// components never branch on source-specific representations.
func coerce(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool, int64, float64, string:
		return t
	case time.Time:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return coerceString(string(t))
	case *big.Int:
		if t.IsInt64() {
			return t.Int64()
		}
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// coerceString attempts numeric interpretation of byte-slice values, which
// some drivers use for decimals.
func coerceString(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
