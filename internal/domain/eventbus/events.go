package eventbus

import "time"

// Build lifecycle topics.
const (
	EventInvocationStarted   = "invocation:started"
	EventInvocationCompleted = "invocation:completed"
	EventInvocationFailed    = "invocation:failed"
	EventArtifactEmitted     = "artifact:emitted"
	EventSourceChanged       = "source:changed"
)

// InvocationEvent accompanies the invocation lifecycle topics.
type InvocationEvent struct {
	ID         string
	SourcePath string
	Artifacts  int
	CacheHit   bool
	Duration   time.Duration
	Err        string
}

// ArtifactEvent accompanies EventArtifactEmitted.
type ArtifactEvent struct {
	SourcePath string
	OutputPath string
	Width      int
	Height     int
	Bytes      int
}

// SourceChangedEvent accompanies EventSourceChanged from watch mode.
type SourceChangedEvent struct {
	Path string
	Op   string
}
