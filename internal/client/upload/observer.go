package upload

import "time"

// AttemptInfo identifies an attempt to observers.
type AttemptInfo struct {
	AttemptID   string
	OwnerID     string
	FileName    string
	ContentType string
	Size        int
	StartedAt   time.Time
}

// Observer is notified of attempt progress. Calls for one attempt are
// sequential; calls for different attempts may be concurrent. Observers
// must not block.
type Observer interface {
	OnTransition(info AttemptInfo, from, to State)
	// OnFinish is called once per Upload call, including rejected ones
	// (outcome.State is StateIdle then).
	OnFinish(info AttemptInfo, outcome Outcome, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Transition func(info AttemptInfo, from, to State)
	Finish     func(info AttemptInfo, outcome Outcome, err error)
}

func (f ObserverFuncs) OnTransition(info AttemptInfo, from, to State) {
	if f.Transition != nil {
		f.Transition(info, from, to)
	}
}

func (f ObserverFuncs) OnFinish(info AttemptInfo, outcome Outcome, err error) {
	if f.Finish != nil {
		f.Finish(info, outcome, err)
	}
}
