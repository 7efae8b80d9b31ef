package query

import (
	"strings"

	"yardb/internal/document"
)

// Eval evaluates a parsed filter expression against doc (§4.3.1).
func Eval(expr *Expr, doc document.Value) bool {
	if expr == nil {
		return true
	}
	switch expr.Kind {
	case ExprOr:
		return Eval(expr.Left, doc) || Eval(expr.Right, doc)
	case ExprAnd:
		return Eval(expr.Left, doc) && Eval(expr.Right, doc)
	case ExprNot:
		return !Eval(expr.Inner, doc)
	case ExprCall:
		return evalCall(expr, doc)
	case ExprCompare:
		return evalCompare(expr, doc)
	default:
		return false
	}
}

func evalCall(expr *Expr, doc document.Value) bool {
	field, ok := doc.Get(expr.Ident)
	if !ok || field.Kind() != document.String || expr.Lit.Kind != LitString {
		return false
	}
	s := field.AsString()
	needle := expr.Lit.Str
	switch expr.Fn {
	case "startswith":
		return strings.HasPrefix(s, needle)
	case "endswith":
		return strings.HasSuffix(s, needle)
	case "contains":
		return strings.Contains(s, needle)
	default:
		return false
	}
}

func evalCompare(expr *Expr, doc document.Value) bool {
	field, ok := doc.Get(expr.Ident)
	if !ok {
		return expr.Op == "ne"
	}

	if expr.Lit.Kind == LitNull {
		switch expr.Op {
		case "eq":
			return field.IsNull()
		case "ne":
			return !field.IsNull()
		default:
			return false
		}
	}

	if expr.Lit.Kind == LitBool {
		if field.Kind() != document.Bool {
			return false
		}
		switch expr.Op {
		case "eq":
			return field.AsBool() == expr.Lit.Bool
		case "ne":
			return field.AsBool() != expr.Lit.Bool
		default:
			return false
		}
	}

	if expr.Lit.Kind == LitNumber {
		n, ok := field.AsNumber()
		if !ok {
			return false
		}
		return compareOrdered(expr.Op, n, expr.Lit.Num, func(a, b float64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		})
	}

	// LitString
	if field.Kind() != document.String {
		return false
	}
	return compareOrdered(expr.Op, field.AsString(), expr.Lit.Str, func(a, b string) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	})
}

func compareOrdered[T any](op string, a, b T, cmp func(T, T) int) bool {
	c := cmp(a, b)
	switch op {
	case "eq":
		return c == 0
	case "ne":
		return c != 0
	case "gt":
		return c > 0
	case "ge":
		return c >= 0
	case "lt":
		return c < 0
	case "le":
		return c <= 0
	default:
		return false
	}
}
