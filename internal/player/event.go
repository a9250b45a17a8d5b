// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

// Status is the media state reported by the monitor.
type Status string

const (
	StatusNoMedia      Status = "no_media"
	StatusLoading      Status = "loading"
	StatusBuffered     Status = "buffered"
	StatusInvalidMedia Status = "invalid_media"
	StatusEndOfMedia   Status = "end_of_media"
)

// EventKind separates status transitions from error reports.
type EventKind int

const (
	EventStatus EventKind = iota + 1
	EventError
)

// Event is one asynchronous report for an attachment.
// AttachID identifies the Attach call that produced it.
type Event struct {
	AttachID uint64
	Kind     EventKind
	Status   Status
	Error    string
}

// Sink receives events from the monitor goroutine and must not block.
type Sink func(Event)
