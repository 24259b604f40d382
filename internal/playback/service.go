package playback

// Service defines the playback session contract.
type Service interface {
	// Commands. Ineffective commands are silent no-ops.
	LoadTrack(t Track)
	Start()
	Pause()
	Stop()
	Toggle()

	// Queries. Never block.
	Snapshot() State
	CurrentTrack() *Track
	CurrentPhase() Phase
	CurrentElapsed() int

	// Observers
	RegisterObserver(name string, o Observer) ObserverID
	Register(name string, deliver DeliverFunc) ObserverID
	UnregisterObserver(id ObserverID)
	Watch() *Stream

	// ReportFailure translates a backend failure into a Stop that clears
	// the track. Failures for an earlier generation are ignored.
	ReportFailure(generation uint64, err error)

	// Lifecycle
	Close() error
}
