package reservation

type Status string

const (
	StatusBooked    Status = "booked"
	StatusInUse     Status = "in_use"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusBooked, StatusInUse, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the reservation still holds its resources.
func (s Status) IsActive() bool {
	return s == StatusBooked || s == StatusInUse
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// ActiveStatuses are the statuses that take part in conflict detection.
func ActiveStatuses() []Status {
	return []Status{StatusBooked, StatusInUse}
}

type Transition string

const (
	TransitionStart  Transition = "start"
	TransitionEnd    Transition = "end"
	TransitionCancel Transition = "cancel"
	TransitionExtend Transition = "extend"
)

func (t Transition) String() string {
	return string(t)
}

var transitions = map[Status]map[Transition]Status{
	StatusBooked: {
		TransitionStart:  StatusInUse,
		TransitionCancel: StatusCancelled,
	},
	StatusInUse: {
		TransitionEnd:    StatusCompleted,
		TransitionCancel: StatusCancelled,
		TransitionExtend: StatusInUse,
	},
}

func (s Status) CanTransitionTo(t Transition) bool {
	_, ok := transitions[s][t]
	return ok
}

// Next resolves the status reached by applying t, or an IllegalTransitionError.
func (s Status) Next(t Transition) (Status, error) {
	next, ok := transitions[s][t]
	if !ok {
		return "", &IllegalTransitionError{Current: s, Requested: t}
	}
	return next, nil
}
