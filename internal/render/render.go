// Package render turns flat records into Prometheus exposition lines.
//
// Every source adapter reduces its upstream payload to one or more flat
// Records and describes the emission with a Spec; this package owns metric
// naming, label formatting and value filtering so adapters never format
// lines themselves.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Record is one flat field-name → value mapping derived from an upstream
// object. Values are numbers, numeric strings, or nil for absent fields.
type Record map[string]any

// Spec describes how Records become metric lines. Immutable per call.
type Spec struct {
	// Namespace prefixes every metric name.
	Namespace string

	// Keys is the allow-list of fields emitted as metric values.
	Keys []string

	// KeyMappings renames a field before metric-name formatting. A field
	// present here is emitted even if absent from Keys.
	KeyMappings map[string]string

	// Labels are fixed label pairs attached to every line. They win over
	// dynamic labels on name collision.
	Labels map[string]string

	// LabelKeys promotes record fields to labels under their own name.
	LabelKeys []string

	// LabelMappings promotes record fields to labels under a new name.
	LabelMappings map[string]string
}

// Records renders each record in order and concatenates the results.
func Records(recs []Record, spec Spec) []string {
	var lines []string
	for _, rec := range recs {
		lines = append(lines, Metrics(rec, spec)...)
	}
	return lines
}

// Metrics renders a single record. Fields outside the key allow-list and
// fields with nil values produce no line. Output order is sorted by field
// name so rendering is deterministic.
func Metrics(rec Record, spec Spec) []string {
	labels := formatLabels(rec, spec)

	emit := make(map[string]bool, len(spec.Keys)+len(spec.KeyMappings))
	for _, k := range spec.Keys {
		emit[k] = true
	}
	for k := range spec.KeyMappings {
		emit[k] = true
	}

	fields := make([]string, 0, len(rec))
	for k := range rec {
		if emit[k] {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)

	var lines []string
	for _, field := range fields {
		value, ok := formatValue(rec[field])
		if !ok {
			continue
		}
		name := field
		if mapped, ok := spec.KeyMappings[field]; ok {
			name = mapped
		}
		lines = append(lines, metricName(spec.Namespace, name)+"{"+labels+"} "+value)
	}
	return lines
}

// formatLabels resolves dynamic labels from the record, overlays the fixed
// labels, and joins them as name="value" pairs in sorted name order. Values
// are taken verbatim; callers keep them free of quote characters.
func formatLabels(rec Record, spec Spec) string {
	resolved := make(map[string]string)
	for _, key := range spec.LabelKeys {
		resolved[key] = labelValue(rec[key])
	}
	for key, name := range spec.LabelMappings {
		resolved[name] = labelValue(rec[key])
	}
	for name, value := range spec.Labels {
		resolved[name] = value
	}

	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + `="` + resolved[name] + `"`
	}
	return strings.Join(pairs, ",")
}

// metricName builds namespace_snake_case_key, rewriting the first "_h_"
// produced by snake-casing so time-unit suffixes render as "24h" not "2_4h".
func metricName(namespace, key string) string {
	return namespace + "_" + strings.Replace(snakeCase(key), "_h_", "h_", 1)
}

// snakeCase splits on case transitions and digit boundaries, so
// "totalValueUsd" → "total_value_usd" and "price24h" → "price_24_h".
func snakeCase(s string) string {
	runes := []rune(s)
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsDigit(r):
			if len(cur) > 0 && !unicode.IsDigit(cur[len(cur)-1]) {
				flush()
			}
			cur = append(cur, r)
		case unicode.IsLetter(r):
			if len(cur) > 0 {
				prev := cur[len(cur)-1]
				switch {
				case unicode.IsDigit(prev):
					flush()
				case unicode.IsUpper(r) && unicode.IsLower(prev):
					flush()
				case unicode.IsUpper(prev) && unicode.IsUpper(r) &&
					i+1 < len(runes) && unicode.IsLower(runes[i+1]):
					flush()
				}
			}
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return strings.Join(words, "_")
}

// formatValue serializes a record value for the sample position of a metric
// line. nil (and nil typed pointers) report false: exposition format cannot
// represent an absent value.
func formatValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case *float64:
		if x == nil {
			return "", false
		}
		return strconv.FormatFloat(*x, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", x), true
	}
}

// labelValue serializes a record value for the label position. Unlike
// sample values, an absent field becomes an empty label.
func labelValue(v any) string {
	s, ok := formatValue(v)
	if !ok {
		return ""
	}
	return s
}
