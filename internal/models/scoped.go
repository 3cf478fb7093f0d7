package models

// Scoped is implemented by every entity that lives inside a rule set.
type Scoped interface {
	EntityID() string
	ScopeRuleSetID() string
}

func (r Rule) EntityID() string       { return r.ID }
func (r Rule) ScopeRuleSetID() string { return r.RuleSetID }

func (p Practitioner) EntityID() string       { return p.ID }
func (p Practitioner) ScopeRuleSetID() string { return p.RuleSetID }

func (l Location) EntityID() string       { return l.ID }
func (l Location) ScopeRuleSetID() string { return l.RuleSetID }

func (a AppointmentType) EntityID() string       { return a.ID }
func (a AppointmentType) ScopeRuleSetID() string { return a.RuleSetID }

func (b BaseSchedule) EntityID() string       { return b.ID }
func (b BaseSchedule) ScopeRuleSetID() string { return b.RuleSetID }
