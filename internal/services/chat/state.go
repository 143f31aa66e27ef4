package chat

import "fmt"

// TurnState is the position of a turn in its pipeline.
type TurnState int

const (
	StateCreated TurnState = iota
	StateHistoryLoaded
	StateCondensed
	StateRetrieved
	StateGenerating
	StatePersisted
	StateFailed
	StateCanceled
)

var stateNames = map[TurnState]string{
	StateCreated:       "created",
	StateHistoryLoaded: "history_loaded",
	StateCondensed:     "condensed",
	StateRetrieved:     "retrieved",
	StateGenerating:    "generating",
	StatePersisted:     "persisted",
	StateFailed:        "failed",
	StateCanceled:      "canceled",
}

func (s TurnState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions are allowed.
func (s TurnState) Terminal() bool {
	return s == StatePersisted || s == StateFailed || s == StateCanceled
}

var allowedTransitions = map[TurnState][]TurnState{
	StateCreated:       {StateHistoryLoaded, StateFailed, StateCanceled},
	StateHistoryLoaded: {StateCondensed, StateFailed, StateCanceled},
	StateCondensed:     {StateRetrieved, StateFailed, StateCanceled},
	StateRetrieved:     {StateGenerating, StateFailed, StateCanceled},
	StateGenerating:    {StatePersisted, StateFailed, StateCanceled},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to TurnState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateObserver is told about every transition of every turn.
type StateObserver func(chatID string, from, to TurnState)
