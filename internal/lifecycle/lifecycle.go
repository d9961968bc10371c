package lifecycle

import (
	"github.com/roach88/foodking/internal/model"
)

// transitions maps each status to the statuses reachable from it.
// The first entry is the forward step of the pipeline.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusPending:        {model.StatusAccepted, model.StatusRejected},
	model.StatusAccepted:       {model.StatusPreparing},
	model.StatusPreparing:      {model.StatusOutForDelivery},
	model.StatusOutForDelivery: {model.StatusDelivered},
}

// actionLabels names the staff action that moves an order forward.
var actionLabels = map[model.OrderStatus]string{
	model.StatusPending:        "Accept Order",
	model.StatusAccepted:       "Start Preparing",
	model.StatusPreparing:      "Dispatch",
	model.StatusOutForDelivery: "Mark Delivered",
}

// CanTransition reports whether an order in current may move to next.
func CanTransition(current, next model.OrderStatus) bool {
	for _, s := range transitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// Allowed returns the statuses reachable from current.
func Allowed(current model.OrderStatus) []model.OrderStatus {
	next := transitions[current]
	out := make([]model.OrderStatus, len(next))
	copy(out, next)
	return out
}

// Next returns the forward step from current. ok is false for terminal
// or unknown statuses.
func Next(current model.OrderStatus) (next model.OrderStatus, ok bool) {
	steps := transitions[current]
	if len(steps) == 0 {
		return "", false
	}
	return steps[0], true
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.OrderStatus) bool {
	return len(transitions[s]) == 0
}

// ActionLabel returns the button text for moving current forward, or "".
func ActionLabel(current model.OrderStatus) string {
	return actionLabels[current]
}

// Progress returns the position of s on the customer tracking bar,
// 0 (Pending) to 4 (Delivered). Rejected and unknown statuses return -1.
func Progress(s model.OrderStatus) int {
	for i, step := range model.Statuses[:5] {
		if s == step {
			return i
		}
	}
	return -1
}

// Apply moves o to next if the table allows it. On an illegal request o is
// left untouched and an INVALID_TRANSITION error is returned.
//
// Apply is for snapshots whose change the server has already confirmed;
// staff requests go through Transitioner.
func Apply(o *model.Order, next model.OrderStatus) error {
	if !CanTransition(o.Status, next) {
		return model.NewInvalidTransitionError("lifecycle.apply", o.Status, next)
	}
	o.Status = next
	return nil
}
