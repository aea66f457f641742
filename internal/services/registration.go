package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventroster/internal/domain"
)

type registrationService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
}

// NewRegistrationService creates a RegistrationService. The capacity and
// single-claim invariants are enforced by the repository's conditional
// writes; this service validates the role against the event's snapshotted
// schema and shapes the result.
func NewRegistrationService(eventRepo domain.EventRepository, timeout time.Duration) domain.RegistrationService {
	return &registrationService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
	}
}

func (s *registrationService) Join(ctx context.Context, communityID, eventID, role, participantID string) (domain.RosterState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if participantID == "" {
		return domain.RosterState{}, fmt.Errorf("participant id is required")
	}

	capacity, err := s.roleCapacity(ctx, communityID, eventID, role)
	if err != nil {
		return domain.RosterState{}, err
	}

	filled, err := s.eventRepo.AddParticipant(ctx, eventID, role, participantID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyRegistered),
			errors.Is(err, domain.ErrRoleFull),
			errors.Is(err, domain.ErrUnknownRole),
			errors.Is(err, domain.ErrEventNotFound):
			return domain.RosterState{}, err
		}
		return domain.RosterState{}, fmt.Errorf("add participant: %w", err)
	}
	return domain.RosterState{Role: role, Filled: filled, Capacity: capacity}, nil
}

func (s *registrationService) Leave(ctx context.Context, communityID, eventID, role, participantID string) (domain.RosterState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	capacity, err := s.roleCapacity(ctx, communityID, eventID, role)
	if err != nil {
		return domain.RosterState{}, err
	}

	filled, err := s.eventRepo.RemoveParticipant(ctx, eventID, role, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotRegistered) || errors.Is(err, domain.ErrEventNotFound) {
			return domain.RosterState{}, err
		}
		return domain.RosterState{}, fmt.Errorf("remove participant: %w", err)
	}
	return domain.RosterState{Role: role, Filled: filled, Capacity: capacity}, nil
}

func (s *registrationService) Counts(ctx context.Context, communityID, eventID string) ([]domain.RosterState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getScopedEvent(ctx, communityID, eventID)
	if err != nil {
		return nil, err
	}
	return event.Counts(), nil
}

// roleCapacity loads the event scoped to the community and resolves the
// role's snapshotted capacity.
func (s *registrationService) roleCapacity(ctx context.Context, communityID, eventID, role string) (int, error) {
	event, err := s.getScopedEvent(ctx, communityID, eventID)
	if err != nil {
		return 0, err
	}
	capacity, ok := event.Capacity(role)
	if !ok {
		return 0, domain.ErrUnknownRole
	}
	return capacity, nil
}

func (s *registrationService) getScopedEvent(ctx context.Context, communityID, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.CommunityID != communityID {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}
