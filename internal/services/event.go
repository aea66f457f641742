package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventroster/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	templateRepo   domain.TemplateRepository
	contextTimeout time.Duration
}

// NewEventService creates an EventService with the given repositories.
func NewEventService(eventRepo domain.EventRepository, templateRepo domain.TemplateRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		templateRepo:   templateRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) Instantiate(ctx context.Context, communityID, channelRef, eventName, templateName, startTimeInput string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	eventName = strings.TrimSpace(eventName)
	if communityID == "" {
		return nil, fmt.Errorf("community id is required")
	}
	if eventName == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if channelRef == "" {
		return nil, fmt.Errorf("channel ref is required")
	}

	tpl, err := s.templateRepo.GetByName(ctx, communityID, strings.TrimSpace(templateName))
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	startTime, err := domain.ParseStartTime(startTimeInput)
	if err != nil {
		return nil, domain.ErrInvalidTime
	}

	// Snapshot the template's schema and description; later template state
	// never affects an existing event.
	roles := make([]domain.RoleSlot, len(tpl.Roles))
	copy(roles, tpl.Roles)
	roster := make(map[string][]string, len(roles))
	for _, rs := range roles {
		roster[rs.Role] = []string{}
	}

	event := &domain.Event{
		ID:           uuid.NewString(),
		CommunityID:  communityID,
		ChannelRef:   channelRef,
		Name:         eventName,
		TemplateName: tpl.Name,
		Description:  tpl.Description,
		StartTime:    startTime,
		Roles:        roles,
		Roster:       roster,
		ReminderSent: false,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetByID(ctx context.Context, communityID, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

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

func (s *eventService) GetByName(ctx context.Context, communityID, name string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByName(ctx, communityID, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event by name: %w", err)
	}
	return event, nil
}

func (s *eventService) ListUpcoming(ctx context.Context, communityID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListUpcoming(ctx, communityID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}
