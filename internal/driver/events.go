package driver

import "time"

// Stage describes a phase of handling one SIR unit.
type Stage string

const (
	// StageRead loads the unit from disk.
	StageRead Stage = "read"
	// StageDecode decodes the msgpack interchange format.
	StageDecode Stage = "decode"
	// StageValidate checks binding and typing of the SIR.
	StageValidate Stage = "validate"
	// StageLower is the lowering engine proper.
	StageLower Stage = "lower"
	StageCache Stage = "cache"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusCached marks a unit answered from the disk cache.
	StatusCached Status = "cached"
)

// Event reports progress for a unit (or for the whole batch when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	File    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted while a unit is processed.
type PhaseObserver func(PhaseEvent)
