package eventflow

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithSelfLoops controls whether an agent subscribing to an event it
// itself publishes is reported as a degenerate one-agent cycle.
// Disabled by default: such self-triggering is often an intentional
// retry or re-queue pattern.
func WithSelfLoops(enabled bool) DetectorOption {
	return func(d *Detector) {
		d.selfLoops = enabled
	}
}
