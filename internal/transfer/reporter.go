package transfer

// Reporter publishes session and engine events.
type Reporter interface {
	Report(Event)
}

// ChanReporter writes events to a channel.
type ChanReporter struct {
	ch chan<- Event
}

func NewChanReporter(ch chan<- Event) *ChanReporter { return &ChanReporter{ch: ch} }

func (r *ChanReporter) Report(e Event) {
	if r == nil {
		return
	}
	r.ch <- e
}

// NopReporter discards events. Useful in tests and before wiring completes.
type NopReporter struct{}

func (NopReporter) Report(Event) {}
