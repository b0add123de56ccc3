package effect

import "sync"

// Receiver applies payloads to the targets of one handle kind. It returns
// false when the target no longer exists; the effect is then dropped.
type Receiver interface {
	ReceiveEffect(target Handle, p Payload) bool
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(target Handle, p Payload) bool

// ReceiveEffect calls f.
func (f ReceiverFunc) ReceiveEffect(target Handle, p Payload) bool { return f(target, p) }

// Sink accepts emitted effects.
type Sink interface {
	Emit(e Effect)
}

// Report summarises one resolution cycle.
type Report struct {
	// Emitted counts effects taken from the queue at the start of the cycle.
	Emitted int
	// Merged counts effects folded into a representative during consolidation.
	Merged int
	// Applied counts effects a receiver accepted.
	Applied int
	// Dropped counts effects whose target had no receiver or no longer existed.
	Dropped int
}

// Bus queues effects and resolves them in a fixed stage order:
// consolidation, removal, application, reap.
//
// Emit may be called from any goroutine. Resolve must only be called from
// the simulation goroutine. Effects emitted while Resolve runs are kept for
// the next cycle.
type Bus struct {
	mu        sync.Mutex
	pending   []Effect
	receivers map[HandleKind]Receiver
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{receivers: make(map[HandleKind]Receiver)}
}

// Route registers r as the receiver for all handles of kind.
func (b *Bus) Route(kind HandleKind, r Receiver) {
	b.receivers[kind] = r
}

// Emit queues e for the next resolution cycle.
func (b *Bus) Emit(e Effect) {
	e.Handled = false
	b.mu.Lock()
	b.pending = append(b.pending, e)
	b.mu.Unlock()
}

// Pending returns a copy of the queued effects in emission order.
func (b *Bus) Pending() []Effect {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Effect, len(b.pending))
	copy(out, b.pending)
	return out
}

// Len reports the number of queued effects.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Discard drops every queued effect and returns how many were dropped.
func (b *Bus) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.pending)
	b.pending = nil
	return n
}

// Resolve runs one full cycle over the effects queued so far.
func (b *Bus) Resolve() Report {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	report := Report{Emitted: len(batch)}
	if len(batch) == 0 {
		return report
	}

	batch, report.Merged = consolidate(batch)

	for i := range batch {
		if batch[i].Payload.Kind.Removal() {
			b.apply(&batch[i], &report)
		}
	}
	for i := range batch {
		if !batch[i].Payload.Kind.Removal() {
			b.apply(&batch[i], &report)
		}
	}

	batch = reap(batch)
	if len(batch) > 0 {
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		b.mu.Unlock()
	}
	return report
}

func (b *Bus) apply(e *Effect, report *Report) {
	if e.Handled {
		return
	}
	e.Handled = true
	r, ok := b.receivers[e.Target.Kind]
	if !ok || !r.ReceiveEffect(e.Target, e.Payload) {
		report.Dropped++
		return
	}
	report.Applied++
}

type consolidationKey struct {
	target Handle
	kind   Kind
}

// consolidate folds additive effects sharing a target and kind into the
// first occurrence, preserving emission order of the survivors.
func consolidate(batch []Effect) ([]Effect, int) {
	index := make(map[consolidationKey]int, len(batch))
	out := make([]Effect, 0, len(batch))
	merged := 0
	for _, e := range batch {
		if !e.Payload.Kind.Additive() {
			out = append(out, e)
			continue
		}
		key := consolidationKey{target: e.Target, kind: e.Payload.Kind}
		if at, ok := index[key]; ok {
			rep := &out[at]
			rep.Payload = rep.Payload.merge(e.Payload)
			if rep.HasSender && (!e.HasSender || rep.Sender != e.Sender) {
				rep.HasSender = false
				rep.Sender = Handle{}
			}
			merged++
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out, merged
}

func reap(batch []Effect) []Effect {
	kept := batch[:0]
	for _, e := range batch {
		if !e.Handled {
			kept = append(kept, e)
		}
	}
	return kept
}
