package dto

import "github.com/noah-isme/practice-rules-api/pkg/condition"

// EvaluateSlotRequest asks whether one slot may be booked. When Appointments
// is nil the stored appointments around the slot are used.
type EvaluateSlotRequest struct {
	RuleSetID    string                  `json:"ruleSetId" validate:"omitempty,max=64"`
	Slot         condition.Slot          `json:"slot"`
	Appointments []condition.Appointment `json:"appointments"`
	Context      map[string]interface{}  `json:"context"`
}

// EvaluateSlotResponse is the decision and the rule set that produced it.
type EvaluateSlotResponse struct {
	RuleSetID string             `json:"ruleSetId"`
	Decision  condition.Decision `json:"decision"`
}

// SimulateSlotsRequest evaluates many candidate slots against one rule set.
type SimulateSlotsRequest struct {
	RuleSetID    string                  `json:"ruleSetId" validate:"omitempty,max=64"`
	Slots        []condition.Slot        `json:"slots" validate:"required,min=1"`
	Appointments []condition.Appointment `json:"appointments"`
	Context      map[string]interface{}  `json:"context"`
}

// SimulatedSlot is the decision for one simulated slot.
type SimulatedSlot struct {
	Slot     condition.Slot     `json:"slot"`
	Decision condition.Decision `json:"decision"`
}

// SimulateSlotsResponse keeps results in request order.
type SimulateSlotsResponse struct {
	RuleSetID string          `json:"ruleSetId"`
	Results   []SimulatedSlot `json:"results"`
	Blocked   int             `json:"blocked"`
	Allowed   int             `json:"allowed"`
}
