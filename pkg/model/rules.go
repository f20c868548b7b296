package model

// RuleSet maps a rule kind to its descriptor. A field has at most one rule
// per kind; validate rules accumulate their checks instead.
type RuleSet map[RuleKind]Rule

// Has reports whether the set carries a rule of the supplied kind.
func (s RuleSet) Has(kind RuleKind) bool {
	if s == nil {
		return false
	}
	_, ok := s[kind]
	return ok
}

// IsRequired reports whether the set carries a required rule.
func (s RuleSet) IsRequired() bool {
	return s.Has(RuleRequired)
}

// Merge returns a new set combining s with others. Later sets win for scalar
// kinds; validate checks are appended in order.
func (s RuleSet) Merge(others ...RuleSet) RuleSet {
	out := make(RuleSet, len(s))
	for kind, rule := range s {
		out[kind] = cloneRule(rule)
	}
	for _, other := range others {
		for kind, rule := range other {
			if kind == RuleValidate {
				existing, ok := out[RuleValidate]
				if !ok {
					out[RuleValidate] = cloneRule(rule)
					continue
				}
				existing.Checks = append(existing.Checks, rule.Checks...)
				out[RuleValidate] = existing
				continue
			}
			out[kind] = cloneRule(rule)
		}
	}
	return out
}

func cloneRule(rule Rule) Rule {
	if len(rule.Checks) > 0 {
		rule.Checks = append([]Check(nil), rule.Checks...)
	}
	return rule
}
