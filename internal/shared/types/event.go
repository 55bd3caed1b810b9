package types

import "time"

// EventType classifies an Event
type EventType string

const (
	EventProgress  EventType = "progress"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
)

// Terminal reports whether no further events follow for the run
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError || t == EventCancelled
}

// Operation names the orchestrator action an event belongs to
type Operation string

const (
	OpInstall   Operation = "install"
	OpUpdate    Operation = "update"
	OpRepair    Operation = "repair"
	OpUninstall Operation = "uninstall"
)

// Phase is the progress phase shown to the user
type Phase string

const (
	PhaseDownloading  Phase = "downloading"
	PhaseExtracting   Phase = "extracting"
	PhaseInstalling   Phase = "installing"
	PhaseUninstalling Phase = "uninstalling"
)

// ErrorKind categorizes failures surfaced to the user
type ErrorKind string

const (
	ErrorNetwork    ErrorKind = "network"
	ErrorExtraction ErrorKind = "extraction"
	ErrorFilesystem ErrorKind = "filesystem"
	ErrorCatalog    ErrorKind = "catalog"
	ErrorState      ErrorKind = "state"
)

// Progress is a snapshot of a running transfer or extraction
type Progress struct {
	Percent          int     `json:"percent"`
	BytesDownloaded  int64   `json:"bytesDownloaded"`
	BytesTotal       int64   `json:"bytesTotal"`
	SpeedBytesPerSec float64 `json:"speedBytesPerSec"`
	ElapsedSeconds   float64 `json:"elapsedSeconds"`
	Phase            Phase   `json:"phase"`

	Downloaded string `json:"downloaded,omitempty"`
	Total      string `json:"total,omitempty"`
	Speed      string `json:"speed,omitempty"`
}

// Event is a notification for one app id
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AppID     string    `json:"appId"`
	Operation Operation `json:"operation"`
	Timestamp time.Time `json:"timestamp"`

	Progress  *Progress `json:"progress,omitempty"`
	FinalPath string    `json:"finalPath,omitempty"`
	Message   string    `json:"message,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
}
