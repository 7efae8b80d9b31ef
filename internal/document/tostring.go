package document

import (
	"strconv"
	"time"
)

// ToString produces the canonical string form of v used to key secondary
// indexes (§4.2.2): decimal for integers, shortest round-trip for doubles,
// the string itself for strings, "true"/"false" for booleans, ISO-8601 for
// dates. Ordering secondary selectors observe is lexicographic on this
// string, which is why numeric secondary fields do not sort numerically
// (§9, an accepted surprise carried over from the source).
func ToString(v Value) string {
	switch v.kind {
	case Int32:
		return strconv.FormatInt(int64(v.i32), 10)
	case Int64:
		return strconv.FormatInt(v.i64, 10)
	case Double:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case String:
		return v.str
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Date:
		return v.date.Format(time.RFC3339Nano)
	case Null:
		return ""
	default:
		return ""
	}
}
