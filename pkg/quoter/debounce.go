package quoter

import (
	"sync"
	"time"

	"portal-swap/pkg/currency"
)

// tradeInput is the rapidly-changing (amount, other-currency) pair the
// debounce gate buffers.
type tradeInput struct {
	amount *currency.Amount
	other  *currency.Currency
}

func (a tradeInput) equal(b tradeInput) bool {
	if (a.amount == nil) != (b.amount == nil) {
		return false
	}
	if a.amount != nil && !a.amount.Equal(*b.amount) {
		return false
	}
	if (a.other == nil) != (b.other == nil) {
		return false
	}
	if a.other != nil && !a.other.Equal(*b.other) {
		return false
	}
	return true
}

// debouncer emits a new input snapshot only after the input has been quiet
// for a fixed window. The very first input is emitted immediately;
// subsequent changes are buffered. The emitted snapshot keeps its identity
// while its logical value is unchanged so downstream derivations do not
// recompute needlessly.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	started bool
	value   tradeInput
	pending tradeInput
	timer   *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

// update feeds the latest raw input and returns the currently emitted
// snapshot.
func (d *debouncer) update(in tradeInput) tradeInput {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		d.started = true
		d.value = in
		d.pending = in
		return d.value
	}
	if in.equal(d.pending) {
		return d.value
	}

	d.pending = in
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.value.equal(d.pending) {
			d.value = d.pending
		}
	})
	return d.value
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
