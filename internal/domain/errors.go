package domain

import "errors"

// Sentinel errors returned by repositories and services. Controllers map
// these to HTTP status codes with errors.Is.
var (
	// ErrTemplateNotFound is returned when no template exists for the community and name.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrEventNotFound is returned when no event exists for the given key.
	ErrEventNotFound = errors.New("event not found")
	// ErrDuplicateTemplate is returned when a template with the same name already exists in the community.
	ErrDuplicateTemplate = errors.New("template name already in use")
	// ErrUnknownRole is returned when the role is not part of the event's schema.
	ErrUnknownRole = errors.New("unknown role")
	// ErrAlreadyRegistered is returned when the participant already holds a role in the event.
	ErrAlreadyRegistered = errors.New("participant already registered for this event")
	// ErrRoleFull is returned when the role's roster is at capacity.
	ErrRoleFull = errors.New("role is full")
	// ErrNotRegistered is returned on leave when the participant is not in the role's roster.
	ErrNotRegistered = errors.New("participant not registered for this role")
	// ErrInvalidTime is returned when a start time input cannot be parsed.
	ErrInvalidTime = errors.New("invalid start time")
)
