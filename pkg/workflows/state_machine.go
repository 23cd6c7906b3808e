package workflows

// StateMachine enforces status transitions for a single entity kind
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewOrderStateMachine returns the machine governing production order status.
// Transitions are one-directional except cancellation, which is reachable from
// planning and active and is terminal.
func NewOrderStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"planning":  {"active", "cancelled"},
			"active":    {"completed", "cancelled"},
			"completed": {},
			"cancelled": {},
		},
	}
}

// NewPhaseStateMachine returns the machine governing order phase status.
// No skip, no rollback.
func NewPhaseStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"pending":     {"in_progress"},
			"in_progress": {"completed"},
			"completed":   {},
		},
	}
}

// NewBatchStateMachine returns the machine governing batch status.
func NewBatchStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"active":    {"harvested", "lost", "archived"},
			"harvested": {"archived"},
			"lost":      {"archived"},
			"archived":  {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
