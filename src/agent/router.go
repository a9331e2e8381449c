package agent

import "fmt"

// routeAction maps a distress score to the recommended intervention and
// its rationale. Deliberately LLM-free: action selection stays
// deterministic and auditable independent of model variance. Evaluated
// top-down, first match wins.
func routeAction(score int) (ActionType, string) {
	switch {
	case score == 10:
		return ActionEmergencyAlert, "Score 10 indicates crisis - immediate emergency intervention required"
	case score >= 8:
		return ActionBookGPAppointment, fmt.Sprintf("Score %d indicates high distress - GP appointment needed", score)
	case score >= 6:
		return ActionNotifyCaretaker, fmt.Sprintf("Score %d indicates moderate concern - caretaker notification", score)
	case score >= 1:
		return ActionLogOnly, fmt.Sprintf("Score %d indicates low concern - monitoring only", score)
	default:
		return ActionOutOfDomain, "Message is out of domain"
	}
}
