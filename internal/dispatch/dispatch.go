package dispatch

// Event names pushed to riders and drivers over the notification channel.
const (
	EventRideRequested = "ride_requested"
	EventRideCancelled = "ride_cancelled"
	EventTripStarted   = "trip_started"
	EventTripFinished  = "trip_finished"
)

// Notifier delivers a fire-and-forget notification to a user. Delivery
// failures must never fail the operation that triggered them; implementations
// swallow errors after logging.
type Notifier interface {
	Notify(username, event string, payload map[string]any)
}

// NopNotifier discards everything; used in tests and when no transport is
// configured.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, map[string]any) {}
