package condition

import (
	"fmt"
	"time"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

// Slot is the candidate booking being evaluated.
type Slot struct {
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Type     string `json:"type" yaml:"type"`
	Duration int    `json:"duration" yaml:"duration"`
	Doctor   string `json:"doctor,omitempty" yaml:"doctor,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Appointment is an existing booking visible to the evaluator.
type Appointment struct {
	ID       string `json:"_id" yaml:"_id"`
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Doctor   string `json:"doctor,omitempty" yaml:"doctor,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Context carries free-form evaluation attributes (practiceId, ruleSetId, ...).
type Context map[string]any

func (s Slot) attribute(name string) (any, bool) {
	switch name {
	case "start":
		return s.Start, s.Start != ""
	case "end":
		return s.End, s.End != ""
	case "type":
		return s.Type, s.Type != ""
	case "duration":
		// Zero means the caller sent no duration.
		return s.Duration, s.Duration != 0
	case "doctor":
		return s.Doctor, s.Doctor != ""
	case "location":
		return s.Location, s.Location != ""
	}
	return nil, false
}

func (a Appointment) attribute(name string) (any, bool) {
	switch name {
	case "_id", "id":
		return a.ID, a.ID != ""
	case "start":
		return a.Start, a.Start != ""
	case "end":
		return a.End, a.End != ""
	case "type":
		return a.Type, a.Type != ""
	case "doctor":
		return a.Doctor, a.Doctor != ""
	case "location":
		return a.Location, a.Location != ""
	}
	return nil, false
}

func (c Context) attribute(name string) (any, bool) {
	value, ok := c[name]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// Evaluate interprets node against the slot, appointments and context.
func Evaluate(node Node, slot Slot, appointments []Appointment, ctx Context) (bool, error) {
	return newEvaluation(slot, appointments, ctx).eval(node)
}

type interval struct {
	start time.Time
	end   time.Time
}

// evaluation caches parsed timestamps for one call; it is never shared.
type evaluation struct {
	slot         Slot
	appointments []Appointment
	ctx          Context

	slotInterval *interval
	apptInterval []*interval
}

func newEvaluation(slot Slot, appointments []Appointment, ctx Context) *evaluation {
	return &evaluation{
		slot:         slot,
		appointments: appointments,
		ctx:          ctx,
		apptInterval: make([]*interval, len(appointments)),
	}
}

func (e *evaluation) eval(node Node) (bool, error) {
	switch n := node.(type) {
	case *PropertyNode:
		return e.property(n)
	case *CountNode:
		return e.count(n)
	case *TimeRangeFreeNode:
		return e.timeRangeFree(n)
	case *AdjacentNode:
		return e.adjacent(n)
	case *AndNode:
		for _, child := range n.Children {
			ok, err := e.eval(child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *OrNode:
		for _, child := range n.Children {
			ok, err := e.eval(child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *NotNode:
		ok, err := e.eval(n.Child)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case nil:
		return false, appErrors.Clone(appErrors.ErrInvalidConditionType, "condition node is nil")
	default:
		return false, appErrors.Clone(appErrors.ErrInvalidConditionType, fmt.Sprintf("unsupported condition node %T", node))
	}
}

func (e *evaluation) property(n *PropertyNode) (bool, error) {
	inScope, err := e.slotInScope(n.TimeStart, n.TimeEnd)
	if err != nil || !inScope {
		return false, err
	}

	var (
		value any
		ok    bool
	)
	switch n.Entity {
	case EntitySlot:
		value, ok = e.slot.attribute(n.Attr)
	case EntityContext:
		value, ok = e.ctx.attribute(n.Attr)
	default:
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Property entity must be Slot or Context, got %q", n.Entity))
	}
	if !ok {
		return false, nil
	}
	return Compare(value, n.Op, n.Value)
}

func (e *evaluation) count(n *CountNode) (bool, error) {
	if !n.Op.Valid() {
		return false, appErrors.Clone(appErrors.ErrUnknownOperator, fmt.Sprintf("unknown operator %q", n.Op))
	}
	matches := 0
	for i, appt := range e.appointments {
		ok, err := e.matchesFilter(i, appt, n.Filter, true)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if n.TimeStart != "" || n.TimeEnd != "" {
			inScope, err := IsWithinTimeOfDayRange(appt.Start, n.TimeStart, n.TimeEnd)
			if err != nil {
				return false, err
			}
			if !inScope {
				continue
			}
		}
		matches++
	}
	return Compare(matches, n.Op, n.Value)
}

func (e *evaluation) timeRangeFree(n *TimeRangeFreeNode) (bool, error) {
	inScope, err := e.slotInScope(n.TimeOfDayStart, n.TimeEnd)
	if err != nil || !inScope {
		return false, err
	}
	slot, err := e.slotTimes()
	if err != nil {
		return false, err
	}

	var anchor time.Time
	switch n.Start {
	case AnchorSlotStart:
		anchor = slot.start
	case AnchorSlotEnd:
		anchor = slot.end
	default:
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("TimeRangeFree start must be %s or %s, got %q", AnchorSlotStart, AnchorSlotEnd, n.Start))
	}
	length, err := ParseDuration(n.Duration)
	if err != nil {
		return false, err
	}
	windowEnd := anchor.Add(length)

	for i := range e.appointments {
		appt, err := e.appointmentTimes(i)
		if err != nil {
			return false, err
		}
		if TimeRangesOverlap(anchor, windowEnd, appt.start, appt.end) {
			return false, nil
		}
	}
	return true, nil
}

func (e *evaluation) adjacent(n *AdjacentNode) (bool, error) {
	inScope, err := e.slotInScope(n.TimeStart, n.TimeEnd)
	if err != nil || !inScope {
		return false, err
	}
	if n.Direction != DirectionBefore && n.Direction != DirectionAfter {
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Adjacent direction must be before or after, got %q", n.Direction))
	}
	slot, err := e.slotTimes()
	if err != nil {
		return false, err
	}

	for i, appt := range e.appointments {
		times, err := e.appointmentTimes(i)
		if err != nil {
			return false, err
		}
		touches := false
		if n.Direction == DirectionBefore {
			touches = times.end.Equal(slot.start)
		} else {
			touches = times.start.Equal(slot.end)
		}
		if !touches {
			continue
		}
		ok, err := e.matchesFilter(i, appt, n.Filter, false)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// matchesFilter applies exact-match filter keys, then the overlaps key. The
// overlaps key is honoured only when allowOverlap is set (Count); Adjacent
// ignores it. A failed exact match never reaches timestamp parsing.
func (e *evaluation) matchesFilter(idx int, appt Appointment, filter map[string]any, allowOverlap bool) (bool, error) {
	for key, expected := range filter {
		if key == FilterOverlaps {
			continue
		}
		actual, ok := appt.attribute(key)
		if !ok || !valuesEqual(actual, expected) {
			return false, nil
		}
	}
	if !allowOverlap {
		return true, nil
	}
	if flag, ok := filter[FilterOverlaps].(bool); !ok || !flag {
		return true, nil
	}
	slot, err := e.slotTimes()
	if err != nil {
		return false, err
	}
	times, err := e.appointmentTimes(idx)
	if err != nil {
		return false, err
	}
	return TimeRangesOverlap(slot.start, slot.end, times.start, times.end), nil
}

func (e *evaluation) slotInScope(start, end string) (bool, error) {
	if start == "" && end == "" {
		return true, nil
	}
	return IsWithinTimeOfDayRange(e.slot.Start, start, end)
}

func (e *evaluation) slotTimes() (*interval, error) {
	if e.slotInterval != nil {
		return e.slotInterval, nil
	}
	start, err := ParseDateTime(e.slot.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseDateTime(e.slot.End)
	if err != nil {
		return nil, err
	}
	e.slotInterval = &interval{start: start, end: end}
	return e.slotInterval, nil
}

func (e *evaluation) appointmentTimes(idx int) (*interval, error) {
	if cached := e.apptInterval[idx]; cached != nil {
		return cached, nil
	}
	appt := e.appointments[idx]
	start, err := ParseDateTime(appt.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseDateTime(appt.End)
	if err != nil {
		return nil, err
	}
	e.apptInterval[idx] = &interval{start: start, end: end}
	return e.apptInterval[idx], nil
}
