package model

type State int

const (
	StateInitial State = iota
	StateAwaitingConfirmation
	StateAwaitingDay
	StateAwaitingHour
	StateSubscribed
	StateAwaitingQuestionResponse
)

var stateNames = map[State]string{
	StateInitial:                  "INITIAL",
	StateAwaitingConfirmation:     "AWAITING_CONFIRMATION",
	StateAwaitingDay:              "AWAITING_DAY",
	StateAwaitingHour:             "AWAITING_HOUR",
	StateSubscribed:               "SUBSCRIBED",
	StateAwaitingQuestionResponse: "AWAITING_QUESTION_RESPONSE",
}

// Valid reports whether s is one of the known conversation states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// String returns the state name. Unknown values render as INITIAL.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return stateNames[StateInitial]
}

// Normalize maps unknown stored values back to StateInitial.
func (s State) Normalize() State {
	if !s.Valid() {
		return StateInitial
	}
	return s
}

// ConversationState is the volatile position of a user in the subscription flow.
type ConversationState struct {
	State      State `json:"state"`
	PendingDay *int  `json:"pendingDay,omitempty"`
}

func Initial() ConversationState {
	return ConversationState{State: StateInitial}
}

// At returns a state with no staged data.
func At(s State) ConversationState {
	return ConversationState{State: s}
}
