package telemetry

import (
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/straja-ai/docshield/internal/redact"
)

const (
	maxAttrString = 256
	maxAttrSlice  = 32
)

// blockedKeyParts mark attribute keys that may name document content.
var blockedKeyParts = []string{"text", "content", "snippet", "value", "email", "phone", "iban", "ssn", "address", "name"}

func blockedKey(k string) bool {
	k = strings.ToLower(k)
	for _, part := range blockedKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// clean reports whether s is short and survives redaction unchanged.
func clean(s string) bool {
	return len(s) <= maxAttrString && redact.String(s) == s
}

// SafeAttributes converts span attributes, dropping keys that may carry
// document text and string values the redactor would alter. Count maps
// such as entities by type are flattened to "key.TYPE". Output is sorted
// by key.
func SafeAttributes(values map[string]interface{}) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if !blockedKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		switch v := values[k].(type) {
		case string:
			if clean(v) {
				attrs = append(attrs, attribute.String(k, v))
			}
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case []string:
			var kept []string
			for _, s := range v {
				if len(kept) == maxAttrSlice {
					break
				}
				if clean(s) {
					kept = append(kept, s)
				}
			}
			attrs = append(attrs, attribute.StringSlice(k, kept))
		case map[string]int:
			sub := make([]string, 0, len(v))
			for t := range v {
				sub = append(sub, t)
			}
			sort.Strings(sub)
			for _, t := range sub {
				if clean(t) {
					attrs = append(attrs, attribute.Int(k+"."+t, v[t]))
				}
			}
		}
	}
	return attrs
}
