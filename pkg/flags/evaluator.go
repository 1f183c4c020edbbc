package flags

import (
	"fmt"
	"reflect"
	"strings"
)

// Evaluate decides the outcome of a single flag definition for a subject
// without touching the network. The returned value is a bool or, for
// multivariate flags, the key of the selected variant.
//
// Inactive flags and flags with no condition groups evaluate to false: a flag
// must be explicit to activate. Condition groups are scanned in order and the
// first group whose properties and rollout gate both pass wins. Any panic
// during evaluation is recovered and returned as an *EvalError scoped to this
// flag only.
func Evaluate(flag FlagDefinition, subject Subject) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &EvalError{FlagKey: flag.Key, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if subject.DistinctID == "" {
		return nil, ErrMissingDistinctID
	}
	if !flag.Active {
		return false, nil
	}
	if len(flag.FilterGroups) == 0 {
		return false, nil
	}

	for _, group := range flag.FilterGroups {
		if !matchGroup(group, subject) {
			continue
		}
		if group.RolloutPercentage != nil &&
			Hash(flag.Key, subject.DistinctID, "") > *group.RolloutPercentage/100 {
			continue
		}

		// Explicit overrides bypass multivariate selection entirely.
		if group.VariantOverride != "" {
			return group.VariantOverride, nil
		}
		if len(flag.Multivariate) > 0 {
			return selectVariant(flag, subject.DistinctID), nil
		}
		return true, nil
	}

	return false, nil
}

// selectVariant picks the variant whose cumulative [min, max) bucket contains
// the subject's variant hash. Buckets are built in declaration order; a hash
// past the last bucket lands in the unallocated remainder and resolves to a
// plain true.
func selectVariant(flag FlagDefinition, distinctID string) any {
	h := Hash(flag.Key, distinctID, "variant")

	var min float64
	for _, v := range flag.Multivariate {
		max := min + v.RolloutPercentage/100
		if h >= min && h < max {
			return v.Key
		}
		min = max
	}
	return true
}

// matchGroup reports whether every property matcher in the group passes.
func matchGroup(group ConditionGroup, subject Subject) bool {
	for _, m := range group.Properties {
		if !matchProperty(m, subject) {
			return false
		}
	}
	return true
}

// matchProperty evaluates one matcher against the subject. Every ambiguous
// case fails closed: absent values, type mismatches between operands, and
// operators this version does not recognize all evaluate to non-match.
func matchProperty(m PropertyMatcher, subject Subject) bool {
	val, present := resolveProperty(m, subject)

	switch m.Operator {
	case OperatorIsSet:
		return present
	case OperatorIsNotSet:
		return !present
	}

	if !present {
		return false
	}

	switch m.Operator {
	case OperatorExact:
		return valuesEqual(val, m.Value)
	case OperatorIsNot:
		return !valuesEqual(val, m.Value)
	case OperatorIContains:
		s, target, ok := stringOperands(val, m.Value)
		return ok && strings.Contains(s, target)
	case OperatorNotIContains:
		s, target, ok := stringOperands(val, m.Value)
		return ok && !strings.Contains(s, target)
	case OperatorGT:
		a, b, ok := numericOperands(val, m.Value)
		return ok && a > b
	case OperatorGTE:
		a, b, ok := numericOperands(val, m.Value)
		return ok && a >= b
	case OperatorLT:
		a, b, ok := numericOperands(val, m.Value)
		return ok && a < b
	case OperatorLTE:
		a, b, ok := numericOperands(val, m.Value)
		return ok && a <= b
	default:
		// Unknown operators never grant access.
		return false
	}
}

// resolveProperty looks up the matcher's property value on the subject.
// Group-scoped matchers always resolve to absent: group property resolution
// is not implemented in this version, so those matchers fail closed.
func resolveProperty(m PropertyMatcher, subject Subject) (any, bool) {
	if m.Scope == ScopeGroup {
		return nil, false
	}
	val, ok := subject.PersonProperties[m.Key]
	return val, ok
}

// valuesEqual compares two property values, treating all numeric types as
// interchangeable so that a definition's float64 matches a caller's int.
func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		return bok && as == bs
	}
	if ab, aok := a.(bool); aok {
		bb, bok := b.(bool)
		return bok && ab == bb
	}
	return reflect.DeepEqual(a, b)
}

// stringOperands returns both operands case-folded if and only if both are
// strings.
func stringOperands(a, b any) (string, string, bool) {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return "", "", false
	}
	return strings.ToLower(as), strings.ToLower(bs), true
}

// numericOperands returns both operands as float64 if and only if both are
// numeric.
func numericOperands(a, b any) (float64, float64, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return af, bf, aok && bok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
