package model

import (
	"errors"
	"fmt"
)

// Event drives the booking state machine.
type Event string

const (
	EventClaim    Event = "claim"
	EventConfirm  Event = "confirm"
	EventAssign   Event = "assign"
	EventMarkPaid Event = "mark_paid"
	EventComplete Event = "complete"
	EventReject   Event = "reject"
	EventCancel   Event = "cancel"
)

// ErrInvalidTransition is returned when an event is not accepted in the
// booking's current state.
var ErrInvalidTransition = errors.New("invalid transition")

type edge struct {
	from Status
	on   Event
}

// transitions lists every accepted (state, event) pair. Assign and
// mark_paid keep the status unchanged.
var transitions = map[edge]Status{
	{StatusPending, EventClaim}: StatusPicked,

	{StatusPicked, EventConfirm}:  StatusConfirmed,
	{StatusPending, EventConfirm}: StatusConfirmed, // admin pre-assigned job

	{StatusPending, EventAssign}:   StatusPending,
	{StatusPicked, EventAssign}:    StatusPicked,
	{StatusConfirmed, EventAssign}: StatusConfirmed,

	{StatusConfirmed, EventMarkPaid}: StatusConfirmed,
	{StatusConfirmed, EventComplete}: StatusCompleted,

	{StatusPending, EventReject}:   StatusRejected,
	{StatusPicked, EventReject}:    StatusRejected,
	{StatusConfirmed, EventReject}: StatusRejected,

	{StatusPending, EventCancel}:   StatusCancelled,
	{StatusPicked, EventCancel}:    StatusCancelled,
	{StatusConfirmed, EventCancel}: StatusCancelled,
}

// Next returns the state reached from s on ev.
func Next(s Status, ev Event) (Status, error) {
	to, ok := transitions[edge{s, ev}]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s booking", ErrInvalidTransition, ev, s)
	}
	return to, nil
}

// Sources lists the states from which ev is accepted, in a stable order.
func Sources(ev Event) []Status {
	var out []Status
	for _, s := range []Status{StatusPending, StatusPicked, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRejected} {
		if _, ok := transitions[edge{s, ev}]; ok {
			out = append(out, s)
		}
	}
	return out
}

// EventForTarget maps an admin requested status to the event producing it.
func EventForTarget(to Status) (Event, bool) {
	switch to {
	case StatusConfirmed:
		return EventConfirm, true
	case StatusCompleted:
		return EventComplete, true
	case StatusRejected:
		return EventReject, true
	case StatusCancelled:
		return EventCancel, true
	}
	return "", false
}
