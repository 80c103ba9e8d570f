package telemetry

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// toAttrs parses "key:value" tag strings into OTel attributes, skipping
// any tag missing the separator.
func toAttrs(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for _, tag := range tags {
		k, v, ok := strings.Cut(tag, ":")
		if !ok {
			continue
		}
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
