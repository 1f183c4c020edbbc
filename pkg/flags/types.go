package flags

import "time"

// Operator identifies a property comparison performed by a matcher.
type Operator string

const (
	OperatorExact        Operator = "exact"
	OperatorIsNot        Operator = "is_not"
	OperatorIContains    Operator = "icontains"
	OperatorNotIContains Operator = "not_icontains"
	OperatorGT           Operator = "gt"
	OperatorGTE          Operator = "gte"
	OperatorLT           Operator = "lt"
	OperatorLTE          Operator = "lte"
	OperatorIsSet        Operator = "is_set"
	OperatorIsNotSet     Operator = "is_not_set"
)

// Scope identifies where a matcher resolves its property value from.
type Scope string

const (
	ScopePerson Scope = "person"
	ScopeGroup  Scope = "group"
)

// PropertyMatcher is a single condition inside a condition group.
type PropertyMatcher struct {
	Key      string   `json:"key"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Scope    Scope    `json:"scope,omitempty"`
}

// ConditionGroup is one targeting rule of a flag. All property matchers must
// pass (logical AND), then the optional rollout gate is applied. A nil
// RolloutPercentage means no gate.
type ConditionGroup struct {
	Properties        []PropertyMatcher `json:"properties"`
	RolloutPercentage *float64          `json:"rollout_percentage,omitempty"`
	VariantOverride   string            `json:"variant_override,omitempty"`
}

// Variant is a named alternative of a multivariate flag. Cumulative rollout
// percentages in declaration order define contiguous hash buckets; a missing
// percentage contributes an empty bucket.
type Variant struct {
	Key               string  `json:"key"`
	RolloutPercentage float64 `json:"rollout_percentage"`
}

// FlagDefinition is the full ruleset of one feature flag as served by the
// control plane. Definitions are immutable once fetched; the poller replaces
// them wholesale on every successful fetch.
type FlagDefinition struct {
	Key          string           `json:"key"`
	Active       bool             `json:"active"`
	FilterGroups []ConditionGroup `json:"filter_groups"`
	Multivariate []Variant        `json:"multivariate,omitempty"`
}

// DefinitionsPayload is the body of a successful definitions fetch.
type DefinitionsPayload struct {
	Flags            []FlagDefinition  `json:"flags"`
	GroupTypeMapping map[string]string `json:"group_type_mapping,omitempty"`
	Cohorts          map[string]any    `json:"cohorts,omitempty"`
}

// Snapshot is an immutable view of the flag definitions committed by the
// last successful fetch. LastUpdated is the zero time until the first
// successful fetch completes.
type Snapshot struct {
	Flags            []FlagDefinition
	GroupTypeMapping map[string]string
	Cohorts          map[string]any
	LastUpdated      time.Time

	byKey map[string]int
}

// Flag returns the definition with the given key, if present.
func (s *Snapshot) Flag(key string) (FlagDefinition, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return FlagDefinition{}, false
	}
	return s.Flags[idx], true
}

// Subject carries the caller-supplied identity and properties a flag is
// evaluated against.
type Subject struct {
	DistinctID       string
	PersonProperties map[string]any
	Groups           map[string]string
	GroupProperties  map[string]map[string]any
}
