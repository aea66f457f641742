package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventroster/internal/domain"
)

type templateDoc struct {
	ID          string    `bson:"_id"`
	CommunityID string    `bson:"communityId"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Roles       []roleDoc `bson:"roles"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type roleDoc struct {
	Role     string `bson:"role"`
	Capacity int    `bson:"capacity"`
}

type templateRepository struct {
	col *mongo.Collection
}

// NewTemplateRepository returns a TemplateRepository over the given
// collection. Call EnsureTemplateIndexes once at startup so the
// (communityId, name) unique index backs ErrDuplicateTemplate.
func NewTemplateRepository(col *mongo.Collection) domain.TemplateRepository {
	return &templateRepository{col: col}
}

// EnsureTemplateIndexes creates the unique per-community name index.
func EnsureTemplateIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "communityId", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *templateRepository) Create(ctx context.Context, tpl *domain.Template) error {
	_, err := r.col.InsertOne(ctx, toTemplateDoc(tpl))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateTemplate
		}
		return err
	}
	return nil
}

func (r *templateRepository) GetByName(ctx context.Context, communityID, name string) (*domain.Template, error) {
	var doc templateDoc
	err := r.col.FindOne(ctx, bson.M{"communityId": communityID, "name": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return fromTemplateDoc(&doc), nil
}

func (r *templateRepository) ListByCommunity(ctx context.Context, communityID string) ([]*domain.Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"communityId": communityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*domain.Template, 0)
	for cur.Next(ctx) {
		var doc templateDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, fromTemplateDoc(&doc))
	}
	return out, cur.Err()
}

func toTemplateDoc(tpl *domain.Template) *templateDoc {
	roles := make([]roleDoc, 0, len(tpl.Roles))
	for _, rs := range tpl.Roles {
		roles = append(roles, roleDoc{Role: rs.Role, Capacity: rs.Capacity})
	}
	return &templateDoc{
		ID:          tpl.ID,
		CommunityID: tpl.CommunityID,
		Name:        tpl.Name,
		Description: tpl.Description,
		Roles:       roles,
		CreatedAt:   tpl.CreatedAt,
	}
}

func fromTemplateDoc(doc *templateDoc) *domain.Template {
	roles := make([]domain.RoleSlot, 0, len(doc.Roles))
	for _, rd := range doc.Roles {
		roles = append(roles, domain.RoleSlot{Role: rd.Role, Capacity: rd.Capacity})
	}
	return &domain.Template{
		ID:          doc.ID,
		CommunityID: doc.CommunityID,
		Name:        doc.Name,
		Description: doc.Description,
		Roles:       roles,
		CreatedAt:   doc.CreatedAt,
	}
}
