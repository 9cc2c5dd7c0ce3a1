package audio

// Default energy validation parameters.
const (
	DefaultEnergyThreshold = 0.01
	DefaultEnergyWindow    = 1.0
)

// EnergyChecker confirms overlapping speech by measuring signal energy on
// both channels.
type EnergyChecker struct {
	user      *Clip
	agent     *Clip
	threshold float64
	window    float64
}

// NewEnergyChecker creates a checker over the two channels. A window or
// threshold of zero selects the default.
func NewEnergyChecker(user, agent *Clip, threshold, window float64) *EnergyChecker {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	if window <= 0 {
		window = DefaultEnergyWindow
	}
	return &EnergyChecker{user: user, agent: agent, threshold: threshold, window: window}
}

// BothActive reports whether the RMS of both channels over the window
// starting at start exceeds the threshold.
func (e *EnergyChecker) BothActive(start float64) bool {
	return RMS(e.user.Window(start, e.window)) > e.threshold &&
		RMS(e.agent.Window(start, e.window)) > e.threshold
}
