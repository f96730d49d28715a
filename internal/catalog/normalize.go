package catalog

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	currencyPrefix = regexp.MustCompile(`(?i)^r\$\s?`)
	nonNumeric     = regexp.MustCompile(`[^0-9.\-]`)
)

// Normalize converts a price given as a number or a pt-BR formatted string
// ("R$ 120.000,50") into a float. ok is false when the value is absent or
// cannot be read as a finite number.
//
// String handling runs in a fixed order: drop whitespace, drop a leading
// "R$", drop every "." (thousands separator), turn the first "," into the
// decimal point, then drop anything that is not a digit, "." or "-".
func Normalize(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case *float64:
		if v == nil {
			return 0, false
		}
		return finite(*v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		return normalizeString(v)
	default:
		return 0, false
	}
}

// NormalizePtr is Normalize returning nil for absent values.
func NormalizePtr(value interface{}) *float64 {
	f, ok := Normalize(value)
	if !ok {
		return nil
	}
	return &f
}

func normalizeString(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	cleaned = currencyPrefix.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	cleaned = nonNumeric.ReplaceAllString(cleaned, "")

	if cleaned == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
