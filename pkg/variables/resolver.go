// Package variables resolves $req./$ctx./$sys. references against a task
// context and performs the numeric/string coercions the condition layer
// needs.
package variables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

const (
	prefixReq = "$req."
	prefixCtx = "$ctx."
	prefixSys = "$sys."
)

// Resolve looks up ref against ctx, returning the raw value and whether it
// was present. A ref that does not start with one of the three recognized
// prefixes is itself considered unresolvable.
func Resolve(ref string, ctx *taskcontext.Context) (any, bool) {
	switch {
	case strings.HasPrefix(ref, prefixReq):
		v, ok := ctx.Request()[ref[len(prefixReq):]]
		return v, ok
	case strings.HasPrefix(ref, prefixCtx):
		v, ok := ctx.Ctx()[ref[len(prefixCtx):]]
		return v, ok
	case strings.HasPrefix(ref, prefixSys):
		v, ok := ctx.System()[ref[len(prefixSys):]]
		return v, ok
	default:
		return nil, false
	}
}

// ResolveAsFloat64 resolves ref and coerces it to float64. Numeric values
// coerce directly; strings are parsed; anything else (including a missing
// reference) yields ok=false.
func ResolveAsFloat64(ref string, ctx *taskcontext.Context) (float64, bool) {
	v, ok := Resolve(ref, ctx)
	if !ok {
		return 0, false
	}
	return toFloat64(v)
}

// ResolveAsInt64 resolves ref and coerces it to int64 via ResolveAsFloat64.
func ResolveAsInt64(ref string, ctx *taskcontext.Context) (int64, bool) {
	f, ok := ResolveAsFloat64(ref, ctx)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// ResolveAsString resolves ref and renders it as its string form.
func ResolveAsString(ref string, ctx *taskcontext.Context) (string, bool) {
	v, ok := Resolve(ref, ctx)
	if !ok {
		return "", false
	}
	return ToString(v), true
}

// ResolveAsFloat64Literal coerces a literal operand (as opposed to a ctx
// reference) to float64 using the same numeric/string coercion rules as
// ResolveAsFloat64. Used by numeric comparators to coerce the right-hand
// side of a comparison.
func ResolveAsFloat64Literal(v any) (float64, bool) {
	return toFloat64(v)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// ToString renders any resolved value in its canonical string form, used
// for string-form comparators (StartsWith, EndsWith, string Equals).
func ToString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(s)
	default:
		return stringify(v)
	}
}

// stringify handles integer kinds and falls back to fmt-style formatting
// for anything else (sequences, mappings) without importing fmt into the
// hot comparison path for the common cases above.
func stringify(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint:
		return strconv.FormatUint(uint64(n), 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
