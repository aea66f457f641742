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

type templateService struct {
	templateRepo   domain.TemplateRepository
	contextTimeout time.Duration
}

// NewTemplateService creates a TemplateService backed by the given repository.
func NewTemplateService(templateRepo domain.TemplateRepository, timeout time.Duration) domain.TemplateService {
	return &templateService{
		templateRepo:   templateRepo,
		contextTimeout: timeout,
	}
}

func (s *templateService) Define(ctx context.Context, communityID, name, description, rawSpec string) (*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if communityID == "" {
		return nil, fmt.Errorf("community id is required")
	}
	if name == "" {
		return nil, fmt.Errorf("template name is required")
	}

	roles, err := domain.ParseSlotSpec(rawSpec)
	if err != nil {
		return nil, err
	}

	tpl := domain.NewTemplate(communityID, name, description, roles, time.Now().UTC())
	tpl.ID = uuid.NewString()

	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		if errors.Is(err, domain.ErrDuplicateTemplate) {
			return nil, domain.ErrDuplicateTemplate
		}
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tpl, nil
}

func (s *templateService) Get(ctx context.Context, communityID, name string) (*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	tpl, err := s.templateRepo.GetByName(ctx, communityID, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

func (s *templateService) List(ctx context.Context, communityID string) ([]*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	tpls, err := s.templateRepo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if tpls == nil {
		tpls = []*domain.Template{}
	}
	return tpls, nil
}
