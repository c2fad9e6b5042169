package model

type OrderStatus string

const (
	StatusPlaced        OrderStatus = "placed"
	StatusInPreparation OrderStatus = "in_preparation"
	StatusReady         OrderStatus = "ready"
	StatusCompleted     OrderStatus = "completed"
	StatusCancelled     OrderStatus = "cancelled"
)

// transitions is the full order lifecycle. Anything not listed here is
// rejected, including every move out of a terminal status.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPlaced:        {StatusInPreparation, StatusCancelled},
	StatusInPreparation: {StatusReady, StatusCancelled},
	StatusReady:         {StatusCompleted},
}

func ValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPlaced, StatusInPreparation, StatusReady, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0 && ValidStatus(s)
}

// Cancellable reports whether a student who owns the order may cancel it.
// Staff may additionally cancel orders already in preparation.
func (s OrderStatus) Cancellable(staff bool) bool {
	if s == StatusPlaced {
		return true
	}
	return staff && s == StatusInPreparation
}
