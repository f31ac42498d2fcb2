package progress

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageRunHB      Stage = "RUN_HEARTBEAT"
	StageRunDone    Stage = "RUN_DONE"
	StageRunError   Stage = "RUN_ERROR"
	StageFetchStart Stage = "FETCH_START"
	StageFetchDone  Stage = "FETCH_DONE"
)

// StatusClass groups Gemini status codes by their leading digit, e.g. "2x".
// Attempts that never produced a status are StatusError.
type StatusClass string

// StatusError marks a fetch that failed before a status line was read.
const StatusError StatusClass = "error"

// Event captures a single crawl milestone.
type Event struct {
	// RunID identifies the crawl run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Host scopes fetch events to a host label.
	Host string
	URL  string
	// Bytes carries the body size of a finished fetch.
	Bytes int64
	// Pages is one for each finished fetch.
	Pages       int64
	StatusClass StatusClass
	Dur         time.Duration
	// Note carries low-volume context such as an error message.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunHB, StageRunDone, StageRunError:
	case StageFetchStart:
		if e.Host == "" {
			return errors.New("fetch start requires host")
		}
	case StageFetchDone:
		if e.Host == "" {
			return errors.New("fetch done requires host")
		}
		if e.StatusClass == "" {
			return errors.New("fetch done requires status class")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	return [16]byte(id)
}

// ClassifyStatus groups a two-digit Gemini status. Anything outside 10..69
// is StatusError.
func ClassifyStatus(code int) StatusClass {
	if code < 10 || code > 69 {
		return StatusError
	}
	return StatusClass(strconv.Itoa(code/10) + "x")
}
