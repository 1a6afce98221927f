package engine

import "time"

const (
	EventNodeJoined EventType = iota + 1
	EventConnectorStarted
	EventConnectorFailed
	EventDirectiveSent
	EventWorkerConfigBuilt
	EventSingletonElected
	EventShutdownStep
)

// --- Event payloads ---

type NodeJoinedEvent struct {
	ServerName string
	ClusterID  int64
	JoinStatus string
	Accepted   bool
}

type ConnectorStartedEvent struct {
	Kind      string
	ID        int64
	PID       int
	StartedAt time.Time
}

type ConnectorFailedEvent struct {
	Kind   string
	ID     int64
	Detail string
}

type DirectiveSentEvent struct {
	Family string
	Topic  string
	Detail string // empty on success
}

type WorkerConfigBuiltEvent struct {
	BuiltAt   time.Time
	Routes    int
	BasicAuth int
	Replaced  bool
}

type SingletonElectedEvent struct {
	Leader bool
}

type ShutdownStepEvent struct {
	Step   string
	Detail string // empty on success
}
