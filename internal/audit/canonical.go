package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// canonicalize produces a deterministic byte encoding of an entry (minus
// its own Hash/Signature, which are computed from this output) for
// hashing. Per spec §9: UTF-8, sorted keys, no whitespace, no floats.
//
// A hand-written encoder (rather than encoding/json on a map) is used so
// the "no floats" rule is enforced structurally: MetaValue only accepts
// string, bool, and integer kinds, and anything else is rejected by
// canonicalizeMeta rather than silently round-tripped through float64 the
// way json.Unmarshal would.
func canonicalize(prevHash string, e *Entry) (string, error) {
	var b strings.Builder
	b.WriteString("id=")
	b.WriteString(e.ID)
	b.WriteString("|sequence=")
	b.WriteString(strconv.FormatInt(e.Sequence, 10))
	b.WriteString("|timestamp=")
	b.WriteString(strconv.FormatInt(e.Timestamp, 10))
	b.WriteString("|event=")
	b.WriteString(e.Event)
	b.WriteString("|level=")
	b.WriteString(string(e.Level))
	b.WriteString("|message=")
	b.WriteString(e.Message)
	b.WriteString("|userId=")
	b.WriteString(e.UserID)
	b.WriteString("|correlationId=")
	b.WriteString(e.CorrelationID)
	b.WriteString("|previousHash=")
	b.WriteString(prevHash)

	meta, err := canonicalizeMeta(e.Metadata)
	if err != nil {
		return "", err
	}
	b.WriteString("|metadata=")
	b.WriteString(meta)

	return b.String(), nil
}

// canonicalizeMeta renders metadata with sorted keys and a type-tagged
// value encoding so "1" (string) and 1 (int64) never collide.
func canonicalizeMeta(m map[string]MetaValue) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		val, err := canonicalizeValue(m[k])
		if err != nil {
			return "", fmt.Errorf("metadata key %q: %w", k, err)
		}
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(val)
	}
	b.WriteString("}")
	return b.String(), nil
}

func canonicalizeValue(v MetaValue) (string, error) {
	switch val := v.(type) {
	case nil:
		return "n:", nil
	case string:
		return "s:" + val, nil
	case bool:
		return "b:" + strconv.FormatBool(val), nil
	case int:
		return "i:" + strconv.FormatInt(int64(val), 10), nil
	case int32:
		return "i:" + strconv.FormatInt(int64(val), 10), nil
	case int64:
		return "i:" + strconv.FormatInt(val, 10), nil
	case float32, float64:
		return "", fmt.Errorf("floating-point metadata values are not permitted: %v", v)
	default:
		return "", fmt.Errorf("unsupported metadata value type %T", v)
	}
}
