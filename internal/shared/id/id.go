// Package id provides identifier generation for launcher events and jobs.
//
// Identifiers are monotonic ULIDs behind a short kind prefix (evt_, job_,
// req_), so ids of one kind sort in creation order and read well in logs.
// Distinct string types keep an event id from being passed as a job id.
package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventID identifies a single emitted progress/terminal event
type EventID string

// JobID identifies one install/update/repair/uninstall run
type JobID string

// RequestID identifies an API request
type RequestID string

const (
	EventPrefix   = "evt"
	JobPrefix     = "job"
	RequestPrefix = "req"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a ULID that sorts after every ULID this process made before
func NewULID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// New returns "<prefix>_<ulid>", or a bare ULID when prefix is empty
func New(prefix string) string {
	if prefix == "" {
		return NewULID().String()
	}
	return prefix + "_" + NewULID().String()
}

// NewEventID generates a new event ID
func NewEventID() EventID { return EventID(New(EventPrefix)) }

// NewJobID generates a new job ID
func NewJobID() JobID { return JobID(New(JobPrefix)) }

// NewRequestID generates a new request ID
func NewRequestID() RequestID { return RequestID(New(RequestPrefix)) }

func (id EventID) String() string   { return string(id) }
func (id JobID) String() string     { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsValid reports whether id is a bare or prefixed ULID
func IsValid(id string) bool {
	_, err := parse(id)
	return err == nil
}

// Timestamp extracts the creation time from a bare or prefixed ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

func parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		prefix := id[:i]
		if prefix == "" || strings.ContainsFunc(prefix, func(r rune) bool { return r < 'a' || r > 'z' }) {
			return ulid.ULID{}, ulid.ErrDataSize
		}
		id = id[i+1:]
	}
	return ulid.ParseStrict(id)
}
