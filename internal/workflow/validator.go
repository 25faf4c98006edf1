package workflow

import (
	"context"
	"errors"
	"fmt"

	loopfsm "github.com/looplab/fsm"

	"github.com/nurpe/freight-contracts/internal/model"
)

// TransitionError is returned when an event is not valid from the current status.
type TransitionError struct {
	Event   model.AgreementEvent
	Current model.AgreementStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s agreement in status %s", e.Event, e.Current)
}

// events folds model.AgreementTransitions into looplab/fsm descriptors,
// merging sources that share an event and destination.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range model.AgreementTransitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator checks agreement transitions. looplab/fsm keeps its own current
// state, so a short-lived machine is built per call.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Apply returns the status the agreement moves to when event fires from current.
func (v *Validator) Apply(ctx context.Context, current model.AgreementStatus, event model.AgreementEvent) (model.AgreementStatus, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) {
			return "", &TransitionError{Event: event, Current: current}
		}
		return "", err
	}

	return model.AgreementStatus(machine.Current()), nil
}
