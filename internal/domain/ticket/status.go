package ticket

// Status is the lifecycle state of a case.
type Status string

const (
	StatusDetected   Status = "detected"
	StatusInProgress Status = "in_progress"
	StatusWaiting    Status = "waiting"
	StatusResolved   Status = "resolved"
)

// ValidTransitions defines the allowed moves. resolved is terminal.
var ValidTransitions = map[Status][]Status{
	StatusDetected:   {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusWaiting, StatusResolved},
	StatusWaiting:    {StatusInProgress, StatusResolved},
	StatusResolved:   {},
}

func (s Status) Valid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// IsOpen reports whether team replies still drive the case.
func (s Status) IsOpen() bool {
	return s == StatusDetected || s == StatusInProgress || s == StatusWaiting
}

func (s Status) IsTerminal() bool {
	return s == StatusResolved
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range ValidTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Priority of a case.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// PriorityFromUrgency maps an analysis urgency score (1..5) to a priority; unknown
// urgency is medium.
func PriorityFromUrgency(urgency *int) Priority {
	if urgency == nil {
		return PriorityMedium
	}
	switch {
	case *urgency >= 5:
		return PriorityUrgent
	case *urgency == 4:
		return PriorityHigh
	case *urgency == 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
