package clock

import "time"

// ClockBuilderOption is a functional option for configuring a Clock.
type ClockBuilderOption func(*Clock)

// WithSource replaces the time source. Tests inject a scripted source.
//
// Parameters:
//   - source: function returning the current time
//
// Returns:
//   - ClockBuilderOption: the option function
func WithSource(source func() time.Time) ClockBuilderOption {
	return func(c *Clock) {
		if source != nil {
			c.source = source
		}
	}
}
