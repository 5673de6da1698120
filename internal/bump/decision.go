package bump

// Decision is the outcome of comparing the pinned reference against the
// latest upstream release.
type Decision int

const (
	// DecisionIndeterminate means the relationship between the pin and
	// the latest release could not be established.
	DecisionIndeterminate Decision = iota
	// DecisionUpToDate means the pin already contains the latest release.
	DecisionUpToDate
	// DecisionUpdateAvailable means the latest release is ahead of or
	// diverged from the pin.
	DecisionUpdateAvailable
)

func (d Decision) String() string {
	switch d {
	case DecisionUpToDate:
		return "up to date"
	case DecisionUpdateAvailable:
		return "update available"
	default:
		return "indeterminate"
	}
}
