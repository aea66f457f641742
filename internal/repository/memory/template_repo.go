package memory

import (
	"context"
	"sync"

	"eventroster/internal/domain"
)

// TemplateRepository is an in-memory domain.TemplateRepository. It backs the
// "memory" database driver and the service tests.
type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string][]*domain.Template // communityID -> creation order
}

func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{templates: make(map[string][]*domain.Template)}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.templates[tpl.CommunityID] {
		if existing.Name == tpl.Name {
			return domain.ErrDuplicateTemplate
		}
	}
	r.templates[tpl.CommunityID] = append(r.templates[tpl.CommunityID], cloneTemplate(tpl))
	return nil
}

func (r *TemplateRepository) GetByName(ctx context.Context, communityID, name string) (*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tpl := range r.templates[communityID] {
		if tpl.Name == name {
			return cloneTemplate(tpl), nil
		}
	}
	return nil, domain.ErrTemplateNotFound
}

func (r *TemplateRepository) ListByCommunity(ctx context.Context, communityID string) ([]*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpls := r.templates[communityID]
	out := make([]*domain.Template, 0, len(tpls))
	for _, tpl := range tpls {
		out = append(out, cloneTemplate(tpl))
	}
	return out, nil
}

func cloneTemplate(tpl *domain.Template) *domain.Template {
	c := *tpl
	c.Roles = make([]domain.RoleSlot, len(tpl.Roles))
	copy(c.Roles, tpl.Roles)
	return &c
}
