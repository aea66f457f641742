package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
)

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	instantiateErr    error
	instantiateResult *domain.Event
	getByIDErr        error
	getByIDResult     *domain.Event
	getByNameErr      error
	getByNameResult   *domain.Event
	listErr           error
	listResult        []*domain.Event
	lastCommunityID   string
	lastChannelRef    string
	lastEventName     string
	lastTemplateName  string
	lastStartInput    string
	lastEventID       string
}

func (f *fakeEventService) Instantiate(_ context.Context, communityID, channelRef, eventName, templateName, startTimeInput string) (*domain.Event, error) {
	f.lastCommunityID = communityID
	f.lastChannelRef = channelRef
	f.lastEventName = eventName
	f.lastTemplateName = templateName
	f.lastStartInput = startTimeInput
	if f.instantiateErr != nil {
		return nil, f.instantiateErr
	}
	return f.instantiateResult, nil
}

func (f *fakeEventService) GetByID(_ context.Context, communityID, eventID string) (*domain.Event, error) {
	f.lastCommunityID = communityID
	f.lastEventID = eventID
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.getByIDResult, nil
}

func (f *fakeEventService) GetByName(_ context.Context, communityID, name string) (*domain.Event, error) {
	f.lastCommunityID = communityID
	f.lastEventName = name
	if f.getByNameErr != nil {
		return nil, f.getByNameErr
	}
	return f.getByNameResult, nil
}

func (f *fakeEventService) ListUpcoming(_ context.Context, communityID string) ([]*domain.Event, error) {
	f.lastCommunityID = communityID
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResult, nil
}

func raidEvent() *domain.Event {
	return &domain.Event{
		ID:           "ev-1",
		CommunityID:  "guild-1",
		ChannelRef:   "https://hooks.example.com/raid",
		Name:         "Friday Raid",
		TemplateName: "raid-night",
		StartTime:    time.Date(2025, 6, 6, 20, 0, 0, 0, time.UTC),
		Roles: []domain.RoleSlot{
			{Role: "Tank", Capacity: 2},
			{Role: "Healer", Capacity: 2},
		},
		Roster: map[string][]string{
			"Tank":   {},
			"Healer": {},
		},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventController_Instantiate(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		fakeErr        error
		wantStatus     int
		wantBodySubstr string
		wantErrCode    string
		noIdentity     bool
	}{
		{
			name:       "success",
			body:       `{"name":"Friday Raid","template":"raid-night","channel_ref":"https://hooks.example.com/raid","start_time":"2025-06-06T20:00"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:           "no identity in context",
			body:           `{"name":"Friday Raid","template":"raid-night","start_time":"2025-06-06T20:00"}`,
			wantStatus:     http.StatusUnauthorized,
			wantErrCode:    helpers.ErrCodeUnauthorized,
			noIdentity:     true,
		},
		{
			name:           "missing template",
			body:           `{"name":"Friday Raid","start_time":"2025-06-06T20:00"}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "template is required",
			wantErrCode:    helpers.ErrCodeBadRequest,
		},
		{
			name:           "template not found",
			body:           `{"name":"Friday Raid","template":"nope","start_time":"2025-06-06T20:00"}`,
			fakeErr:        domain.ErrTemplateNotFound,
			wantStatus:     http.StatusNotFound,
			wantBodySubstr: "template not found",
			wantErrCode:    helpers.ErrCodeNotFound,
		},
		{
			name:           "unparseable start time",
			body:           `{"name":"Friday Raid","template":"raid-night","start_time":"next friday"}`,
			fakeErr:        domain.ErrInvalidTime,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "start_time",
			wantErrCode:    helpers.ErrCodeBadRequest,
		},
		{
			name:           "service error",
			body:           `{"name":"Friday Raid","template":"raid-night","start_time":"2025-06-06T20:00"}`,
			fakeErr:        errors.New("db error"),
			wantStatus:     http.StatusInternalServerError,
			wantBodySubstr: "db error",
			wantErrCode:    helpers.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEventService{instantiateErr: tt.fakeErr, instantiateResult: raidEvent()}
			ctrl := NewEventController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if !tt.noIdentity {
				req = req.WithContext(middleware.SetIdentity(req.Context(), "participant-1", "guild-1"))
			}
			rr := httptest.NewRecorder()

			ctrl.Instantiate(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusCreated {
				require.Nil(t, envelope.Error)
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var event domain.Event
				require.NoError(t, json.Unmarshal(dataBytes, &event))
				assert.Equal(t, "Friday Raid", event.Name)
				assert.Equal(t, "guild-1", fake.lastCommunityID)
				assert.Equal(t, "raid-night", fake.lastTemplateName)
				assert.Equal(t, "2025-06-06T20:00", fake.lastStartInput)
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantErrCode, envelope.Error.Code)
			if tt.wantBodySubstr != "" {
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
			}
		})
	}
}

func TestEventController_GetByID(t *testing.T) {
	tests := []struct {
		name        string
		eventID     string
		fakeErr     error
		wantStatus  int
		wantErrCode string
	}{
		{
			name:       "success",
			eventID:    "ev-1",
			wantStatus: http.StatusOK,
		},
		{
			name:        "not found",
			eventID:     "ev-unknown",
			fakeErr:     domain.ErrEventNotFound,
			wantStatus:  http.StatusNotFound,
			wantErrCode: helpers.ErrCodeNotFound,
		},
		{
			name:        "missing eventID",
			eventID:     "",
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEventService{getByIDErr: tt.fakeErr, getByIDResult: raidEvent()}
			ctrl := NewEventController(testLogger, fake)
			req := httptest.NewRequest(http.MethodGet, "/events/"+tt.eventID, nil)
			req.SetPathValue("eventID", tt.eventID)
			req = req.WithContext(middleware.SetIdentity(req.Context(), "participant-1", "guild-1"))
			rr := httptest.NewRecorder()

			ctrl.GetByID(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error)
				assert.Equal(t, "ev-1", fake.lastEventID)
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantErrCode, envelope.Error.Code)
		})
	}
}

func TestEventController_ListUpcoming(t *testing.T) {
	fake := &fakeEventService{listResult: []*domain.Event{raidEvent()}}
	ctrl := NewEventController(testLogger, fake)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(middleware.SetIdentity(req.Context(), "participant-1", "guild-1"))
	rr := httptest.NewRecorder()

	ctrl.ListUpcoming(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var envelope ListEventsSuccessResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.Nil(t, envelope.Error)
	require.Len(t, envelope.Data.Events, 1)
	assert.Equal(t, "ev-1", envelope.Data.Events[0].ID)
	assert.Equal(t, 1, envelope.Data.Pagination.Total)
}

func TestEventController_GetByName(t *testing.T) {
	tests := []struct {
		name        string
		eventName   string
		fakeErr     error
		wantStatus  int
		wantErrCode string
	}{
		{
			name:       "found",
			eventName:  "Friday Raid",
			wantStatus: http.StatusOK,
		},
		{
			name:        "not found",
			eventName:   "unknown",
			fakeErr:     domain.ErrEventNotFound,
			wantStatus:  http.StatusNotFound,
			wantErrCode: helpers.ErrCodeNotFound,
		},
		{
			name:        "missing name",
			eventName:   "",
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEventService{getByNameErr: tt.fakeErr, getByNameResult: raidEvent()}
			ctrl := NewEventController(testLogger, fake)
			req := httptest.NewRequest(http.MethodGet, "/events/by-name/"+tt.eventName, nil)
			req.SetPathValue("name", tt.eventName)
			req = req.WithContext(middleware.SetIdentity(req.Context(), "participant-1", "guild-1"))
			rr := httptest.NewRecorder()

			ctrl.GetByName(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error)
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var event domain.Event
				require.NoError(t, json.Unmarshal(dataBytes, &event))
				assert.Equal(t, "Friday Raid", event.Name)
				assert.Equal(t, "Friday Raid", fake.lastEventName)
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantErrCode, envelope.Error.Code)
		})
	}
}
