package utils

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// OrderedMapToString formats an ordered map into a single bracketed string, keeping insertion order.
// Example: {tick: 100, divergence: 0.5} => "[tick=100 divergence=0.5]".
func OrderedMapToString(data *orderedmap.OrderedMap[string, any]) string {
	if data == nil {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	for el := data.Front(); el != nil; el = el.Next() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&sb, "%s=%v", el.Key, el.Value)
	}
	sb.WriteByte(']')
	return sb.String()
}

// KeyValsToString formats slog-style keyvals into a single bracketed string.
// Example: KeyValsToString("foo", 1, "bar", true) => "[foo=1 bar=true]".
// If an odd number of values is provided, the last value is ignored.
func KeyValsToString(kv []any) string {
	if len(kv) < 2 {
		return "[]"
	}
	dataString := "["
	pairCount := len(kv) / 2
	for i := range pairCount {
		if i > 0 {
			dataString += " "
		}
		key := kv[i*2]
		val := kv[i*2+1]
		var keyStr string
		if s, ok := key.(string); ok {
			keyStr = s
		} else {
			keyStr = fmt.Sprintf("%v", key)
		}
		dataString += fmt.Sprintf("%s=%v", keyStr, val)
	}
	dataString += "]"
	return dataString
}
