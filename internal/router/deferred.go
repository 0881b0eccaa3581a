package router

import (
	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
)

// deferredQueue holds actions recorded while disconnected, in call order.
// It is guarded by the Manager's mutex.
type deferredQueue struct {
	actions []router.DeferredAction
	max     int
}

func newDeferredQueue(max int) *deferredQueue {
	return &deferredQueue{max: max}
}

func (d *deferredQueue) push(action router.DeferredAction) error {
	if d.max > 0 && len(d.actions) >= d.max {
		return router.ErrDeferredQueueFull
	}
	d.actions = append(d.actions, action)
	return nil
}

// take removes and returns every action.
func (d *deferredQueue) take() []router.DeferredAction {
	actions := d.actions
	d.actions = nil
	return actions
}

func (d *deferredQueue) snapshot() []router.DeferredAction {
	out := make([]router.DeferredAction, len(d.actions))
	copy(out, d.actions)
	return out
}

func (d *deferredQueue) len() int {
	return len(d.actions)
}
