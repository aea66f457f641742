package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventroster/internal/domain"
)

type eventDoc struct {
	ID           string      `bson:"_id"`
	CommunityID  string      `bson:"communityId"`
	ChannelRef   string      `bson:"channelRef"`
	Name         string      `bson:"name"`
	TemplateName string      `bson:"templateName"`
	Description  string      `bson:"description"`
	StartTime    time.Time   `bson:"startTime"`
	Roles        []roleDoc   `bson:"roles"`
	Roster       []rosterDoc `bson:"roster"`
	ReminderSent bool        `bson:"reminderSent"`
	CreatedAt    time.Time   `bson:"createdAt"`
}

type rosterDoc struct {
	Role         string   `bson:"role"`
	Participants []string `bson:"participants"`
}

type eventRepository struct {
	col *mongo.Collection
}

// NewEventRepository returns an EventRepository over the given collection.
// Roster mutation and the reminder flag are single filtered updates, so the
// capacity, single-claim, and at-most-once invariants hold across process
// instances sharing the collection.
func NewEventRepository(col *mongo.Collection) domain.EventRepository {
	return &eventRepository{col: col}
}

// EnsureEventIndexes creates the indexes backing the scheduler scan and the
// community listings.
func EnsureEventIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reminderSent", Value: 1}, {Key: "startTime", Value: 1}}},
		{Keys: bson.D{{Key: "communityId", Value: 1}, {Key: "startTime", Value: 1}}},
	})
	return err
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	_, err := r.col.InsertOne(ctx, toEventDoc(event))
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *eventRepository) GetByName(ctx context.Context, communityID, name string) (*domain.Event, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	return r.findOne(ctx, bson.M{"communityId": communityID, "name": name}, opts)
}

func (r *eventRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Event, error) {
	var doc eventDoc
	var err error
	if opts != nil {
		err = r.col.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = r.col.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventDoc(&doc), nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, communityID string, asOf time.Time) ([]*domain.Event, error) {
	filter := bson.M{"communityId": communityID, "startTime": bson.M{"$gte": asOf}}
	return r.find(ctx, filter)
}

func (r *eventRepository) ListDueForReminder(ctx context.Context, asOf time.Time, lead time.Duration) ([]*domain.Event, error) {
	filter := bson.M{
		"reminderSent": false,
		"startTime":    bson.M{"$gt": asOf, "$lte": asOf.Add(lead)},
	}
	return r.find(ctx, filter)
}

func (r *eventRepository) find(ctx context.Context, filter bson.M) ([]*domain.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}, {Key: "createdAt", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*domain.Event, 0)
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, fromEventDoc(&doc))
	}
	return out, cur.Err()
}

func (r *eventRepository) MarkReminderSent(ctx context.Context, eventID string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": eventID, "reminderSent": false},
		bson.M{"$set": bson.M{"reminderSent": true}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *eventRepository) AddParticipant(ctx context.Context, eventID, role, participantID string, joinedAt time.Time) (int, error) {
	event, err := r.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	capacity, ok := event.Capacity(role)
	if !ok {
		return 0, domain.ErrUnknownRole
	}

	// One filtered update carries the whole guard: the participant appears in
	// no roster, and the target roster has no element at index capacity-1
	// (i.e. its size is below capacity).
	filter := bson.M{
		"_id":                 eventID,
		"roster.participants": bson.M{"$ne": participantID},
		"roster": bson.M{"$elemMatch": bson.M{
			"role": role,
			fmt.Sprintf("participants.%d", capacity-1): bson.M{"$exists": false},
		}},
	}
	update := bson.M{"$push": bson.M{"roster.$[r].participants": participantID}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"r.role": role}},
	})

	const attempts = 2
	for i := 0; i < attempts; i++ {
		res, err := r.col.UpdateOne(ctx, filter, update, opts)
		if err != nil {
			return 0, err
		}
		if res.ModifiedCount == 1 {
			fresh, err := r.GetByID(ctx, eventID)
			if err != nil {
				return 0, err
			}
			return fresh.Filled(role), nil
		}

		// The guard rejected the write; re-read to report which invariant
		// held. A nil classification means a concurrent leave freed the slot
		// between the write and the read, so the guarded update is retried.
		fresh, err := r.GetByID(ctx, eventID)
		if err != nil {
			return 0, err
		}
		if err := classifyJoinRejection(fresh, role, participantID); err != nil {
			return 0, err
		}
	}
	return 0, domain.ErrRoleFull
}

// classifyJoinRejection explains a guarded join that matched no document,
// from a fresh read of the event. Nil means neither invariant holds on the
// read state and the write can be retried.
func classifyJoinRejection(e *domain.Event, role, participantID string) error {
	if _, held := e.ParticipantRole(participantID); held {
		return domain.ErrAlreadyRegistered
	}
	capacity, ok := e.Capacity(role)
	if !ok {
		return domain.ErrUnknownRole
	}
	if e.Filled(role) >= capacity {
		return domain.ErrRoleFull
	}
	return nil
}

func (r *eventRepository) RemoveParticipant(ctx context.Context, eventID, role, participantID string) (int, error) {
	filter := bson.M{
		"_id":    eventID,
		"roster": bson.M{"$elemMatch": bson.M{"role": role, "participants": participantID}},
	}
	update := bson.M{"$pull": bson.M{"roster.$[r].participants": participantID}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"r.role": role}},
	})
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return 0, err
	}
	if res.ModifiedCount == 0 {
		if _, err := r.GetByID(ctx, eventID); err != nil {
			return 0, err
		}
		return 0, domain.ErrNotRegistered
	}

	fresh, err := r.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return fresh.Filled(role), nil
}

func toEventDoc(event *domain.Event) *eventDoc {
	roles := make([]roleDoc, 0, len(event.Roles))
	roster := make([]rosterDoc, 0, len(event.Roles))
	for _, rs := range event.Roles {
		roles = append(roles, roleDoc{Role: rs.Role, Capacity: rs.Capacity})
		participants := event.Roster[rs.Role]
		if participants == nil {
			participants = []string{}
		}
		roster = append(roster, rosterDoc{Role: rs.Role, Participants: participants})
	}
	return &eventDoc{
		ID:           event.ID,
		CommunityID:  event.CommunityID,
		ChannelRef:   event.ChannelRef,
		Name:         event.Name,
		TemplateName: event.TemplateName,
		Description:  event.Description,
		StartTime:    event.StartTime,
		Roles:        roles,
		Roster:       roster,
		ReminderSent: event.ReminderSent,
		CreatedAt:    event.CreatedAt,
	}
}

func fromEventDoc(doc *eventDoc) *domain.Event {
	roles := make([]domain.RoleSlot, 0, len(doc.Roles))
	for _, rd := range doc.Roles {
		roles = append(roles, domain.RoleSlot{Role: rd.Role, Capacity: rd.Capacity})
	}
	roster := make(map[string][]string, len(doc.Roster))
	for _, rd := range doc.Roster {
		roster[rd.Role] = append([]string(nil), rd.Participants...)
	}
	return &domain.Event{
		ID:           doc.ID,
		CommunityID:  doc.CommunityID,
		ChannelRef:   doc.ChannelRef,
		Name:         doc.Name,
		TemplateName: doc.TemplateName,
		Description:  doc.Description,
		StartTime:    doc.StartTime,
		Roles:        roles,
		Roster:       roster,
		ReminderSent: doc.ReminderSent,
		CreatedAt:    doc.CreatedAt,
	}
}
