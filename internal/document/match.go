package document

// Operator keys recognized in a selector, either at the root or nested
// under a field name (§3).
const (
	OpEq   = "$eq"
	OpGt   = "$gt"
	OpGte  = "$gte"
	OpLt   = "$lt"
	OpLte  = "$lte"
	OpHead = "$head"
	OpTail = "$tail"
	OpDesc = "$desc"
	OpTop  = "$top"
	OpSkip = "$skip"
	OpIn   = "$in"
)

// hintKeys are root-level operators that drive index range analysis and
// pagination rather than document field predicates; Match ignores them.
var hintKeys = map[string]bool{
	OpHead: true,
	OpTail: true,
	OpDesc: true,
	OpTop:  true,
	OpSkip: true,
}

// valueOps are operators that compare a field's value against an operand,
// usable either at the root (applied to the whole selector's implicit
// subject) or nested under a field name.
var valueOps = map[string]bool{
	OpEq:  true,
	OpGt:  true,
	OpGte: true,
	OpLt:  true,
	OpLte: true,
	OpIn:  true,
}

// IsOperatorKey reports whether key is one of the selector's reserved
// operator keys ($-prefixed).
func IsOperatorKey(key string) bool {
	return len(key) > 0 && key[0] == '$'
}

// Match reports whether doc satisfies selector: every non-operator key in
// selector must be present in doc with a matching value (§3).
func Match(doc, selector Value) bool {
	if selector.Kind() != Object {
		return Equal(doc, selector)
	}
	for _, p := range selector.pairs {
		if hintKeys[p.Key] {
			continue
		}
		if valueOps[p.Key] {
			// A bare operator at the root applies to the document itself.
			if !matchOperators(doc, NewObject(p)) {
				return false
			}
			continue
		}
		fieldVal, present := doc.Get(p.Key)
		if !present {
			return false
		}
		if !matchField(fieldVal, p.Value) {
			return false
		}
	}
	return true
}

// matchField evaluates a single field's sub-selector against its value.
func matchField(fieldVal, sub Value) bool {
	if sub.Kind() == Object && hasAnyValueOp(sub) {
		return matchOperators(fieldVal, sub)
	}
	if sub.Kind() == Object {
		return Match(fieldVal, sub)
	}
	if sub.Kind() == Array {
		if fieldVal.Kind() != Array || len(fieldVal.items) != len(sub.items) {
			return false
		}
		for i := range sub.items {
			if !Equal(fieldVal.items[i], sub.items[i]) {
				return false
			}
		}
		return true
	}
	return Equal(fieldVal, sub)
}

func hasAnyValueOp(sub Value) bool {
	for _, p := range sub.pairs {
		if valueOps[p.Key] {
			return true
		}
	}
	return false
}

// matchOperators evaluates the operator keys of sub against val, ANDing
// every operator present.
func matchOperators(val, sub Value) bool {
	for _, p := range sub.pairs {
		switch p.Key {
		case OpEq:
			if !Equal(val, p.Value) {
				return false
			}
		case OpGt:
			if Compare(val, p.Value) <= 0 {
				return false
			}
		case OpGte:
			if Compare(val, p.Value) < 0 {
				return false
			}
		case OpLt:
			if Compare(val, p.Value) >= 0 {
				return false
			}
		case OpLte:
			if Compare(val, p.Value) > 0 {
				return false
			}
		case OpIn:
			if !inList(val, p.Value) {
				return false
			}
		}
	}
	return true
}

func inList(val, list Value) bool {
	if list.Kind() != Array {
		return false
	}
	for _, it := range list.items {
		if Equal(val, it) {
			return true
		}
	}
	return false
}
