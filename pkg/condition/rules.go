package condition

import (
	"fmt"
	"sort"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

// Action is the outcome a matching rule produces.
type Action string

// Rule actions.
const (
	ActionBlock Action = "BLOCK"
	ActionAllow Action = "ALLOW"
)

// Valid reports whether a is BLOCK or ALLOW.
func (a Action) Valid() bool {
	return a == ActionBlock || a == ActionAllow
}

// DefaultMessage is returned when no enabled rule matches.
const DefaultMessage = "no matching rules"

// Zone is a secondary allow-list carve-out attached to a rule.
type Zone struct {
	TimeStart        string   `json:"timeStart,omitempty" yaml:"timeStart,omitempty"`
	TimeEnd          string   `json:"timeEnd,omitempty" yaml:"timeEnd,omitempty"`
	AppointmentTypes []string `json:"appointmentTypes,omitempty" yaml:"appointmentTypes,omitempty"`
	Practitioners    []string `json:"practitioners,omitempty" yaml:"practitioners,omitempty"`
}

// Rule is the evaluator's view of a stored scheduling rule.
type Rule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Priority  int       `json:"priority"`
	Action    Action    `json:"action"`
	Enabled   bool      `json:"enabled"`
	Message   string    `json:"message,omitempty"`
	Condition Condition `json:"condition"`
	Zones     []Zone    `json:"zones,omitempty"`
}

// Decision is the result of running a rule list against a slot.
type Decision struct {
	Action   Action `json:"action"`
	RuleID   string `json:"ruleId,omitempty"`
	RuleName string `json:"ruleName,omitempty"`
	Message  string `json:"message,omitempty"`
	Zones    []Zone `json:"zones,omitempty"`
}

// EvaluateRules runs enabled rules in ascending priority (stable on ties) and
// returns the first match. Evaluation errors abort with the failing rule named.
func EvaluateRules(rules []Rule, slot Slot, appointments []Appointment, ctx Context) (Decision, error) {
	ordered := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Enabled {
			ordered = append(ordered, rule)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	eval := newEvaluation(slot, appointments, ctx)
	for _, rule := range ordered {
		matched, err := eval.eval(rule.Condition.Node)
		if err != nil {
			return Decision{}, annotate(rule, err)
		}
		if !matched {
			continue
		}
		return Decision{
			Action:   rule.Action,
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Message:  rule.Message,
			Zones:    rule.Zones,
		}, nil
	}
	return Decision{Action: ActionAllow, Message: DefaultMessage}, nil
}

func annotate(rule Rule, err error) error {
	appErr := appErrors.FromError(err)
	clone := appErrors.Clone(appErr, fmt.Sprintf("rule %q (%s): %s", rule.Name, rule.ID, appErr.Message))
	return clone
}
