package domain

import (
	"context"
	"time"
)

// Template is a named, reusable role/capacity schema owned by a community.
// Templates are immutable once created.
// swagger:model Template
type Template struct {
	ID          string     `json:"id"`
	CommunityID string     `json:"community_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Roles       []RoleSlot `json:"roles"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewTemplate returns a Template with the given fields. ID is assigned by the service on create.
func NewTemplate(communityID, name, description string, roles []RoleSlot, createdAt time.Time) *Template {
	return &Template{
		CommunityID: communityID,
		Name:        name,
		Description: description,
		Roles:       roles,
		CreatedAt:   createdAt,
	}
}

// TemplateRepository defines storage operations for templates. All lookups
// are scoped by community.
type TemplateRepository interface {
	// Create persists the template. Returns ErrDuplicateTemplate when the
	// (community, name) pair already exists.
	Create(ctx context.Context, tpl *Template) error
	GetByName(ctx context.Context, communityID, name string) (*Template, error)
	// ListByCommunity returns the community's templates in creation order.
	ListByCommunity(ctx context.Context, communityID string) ([]*Template, error)
}

// TemplateService defines template catalog operations exposed to the delivery layer.
type TemplateService interface {
	// Define parses rawSpec as a slot schema and creates the template.
	Define(ctx context.Context, communityID, name, description, rawSpec string) (*Template, error)
	Get(ctx context.Context, communityID, name string) (*Template, error)
	List(ctx context.Context, communityID string) ([]*Template, error)
}
