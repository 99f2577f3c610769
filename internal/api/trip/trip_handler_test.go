package trip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-trip-planner/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService is a mock implementation of Service
type MockService struct {
	mock.Mock
}

func (m *MockService) GenerateTrip(ctx context.Context, userID uuid.UUID, req types.GenerateTripRequest) (uuid.UUID, error) {
	args := m.Called(ctx, userID, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockService) ListTrips(ctx context.Context, userID uuid.UUID) ([]*types.Trip, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Trip), args.Error(1)
}

func (m *MockService) RenameTrip(ctx context.Context, tripID, userID uuid.UUID, title string) error {
	args := m.Called(ctx, tripID, userID, title)
	return args.Error(0)
}

func (m *MockService) DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error {
	args := m.Called(ctx, tripID, userID)
	return args.Error(0)
}

func (m *MockService) GetItinerary(ctx context.Context, tripID uuid.UUID) (map[int][]types.Place, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int][]types.Place), args.Error(1)
}

func (m *MockService) AddPlace(ctx context.Context, tripID uuid.UUID, req types.AddPlaceRequest) (uuid.UUID, error) {
	args := m.Called(ctx, tripID, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockService) ReorderPlaces(ctx context.Context, updates []types.PlaceOrderUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockService) UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error {
	args := m.Called(ctx, placeID, params)
	return args.Error(0)
}

func (m *MockService) DeletePlace(ctx context.Context, placeID uuid.UUID) error {
	args := m.Called(ctx, placeID)
	return args.Error(0)
}

func (m *MockService) PlaceDetails(ctx context.Context, placeID uuid.UUID) (*types.PlaceDetails, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceDetails), args.Error(1)
}

func testRouter(svc Service) chi.Router {
	h := NewHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Post("/trips/generate", h.GenerateTripHandler)
	r.Get("/trips", h.ListTripsHandler)
	r.Patch("/trips/{id}", h.RenameTripHandler)
	r.Patch("/trips/places/order", h.ReorderPlacesHandler)
	r.Post("/trips/{id}/itinerary", h.AddPlaceHandler)
	return r
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
	return req.WithContext(ctx)
}

func TestListTripsHandler_Unauthenticated(t *testing.T) {
	svc := new(MockService)
	router := testRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "ListTrips", mock.Anything, mock.Anything)
}

func TestGenerateTripHandler_MissingDestination(t *testing.T) {
	svc := new(MockService)
	router := testRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/trips/generate", `{"title": "Trip", "no_of_days": 3}`, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "GenerateTrip", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateTripHandler_FailureStillReportsTripID(t *testing.T) {
	svc := new(MockService)
	router := testRouter(svc)
	tripID := uuid.New()

	svc.On("GenerateTrip", mock.Anything, mock.Anything, mock.Anything).
		Return(tripID, fmt.Errorf("itinerary drafting failed: model unavailable"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/trips/generate",
		`{"destination": "Lisbon", "no_of_days": 3, "no_of_travelers": 2, "budget": "Low"}`, uuid.New()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Itinerary generation failed", resp["error"])
	assert.Equal(t, tripID.String(), resp["trip_id"])
}

func TestGenerateTripHandler_DefaultsApplied(t *testing.T) {
	svc := new(MockService)
	router := testRouter(svc)
	tripID := uuid.New()

	svc.On("GenerateTrip", mock.Anything, mock.Anything, mock.MatchedBy(func(req types.GenerateTripRequest) bool {
		return req.Budget == types.BudgetMedium && req.NoOfTravelers == 1
	})).Return(tripID, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/trips/generate",
		`{"destination": "Lisbon", "no_of_days": 2}`, uuid.New()))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestRenameTripHandler_EmptyTitle(t *testing.T) {
	svc := new(MockService)
	router := testRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/trips/"+uuid.NewString(), `{"title": ""}`, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "RenameTrip", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReorderPlacesHandler_EntryMissingOrderIndex(t *testing.T) {
	svc := new(MockService)
	router := testRouter(svc)

	body := fmt.Sprintf(`{"places": [
		{"place_id": %q, "order_index": 1},
		{"place_id": %q}
	]}`, uuid.NewString(), uuid.NewString())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/trips/places/order", body, uuid.New()))

	// One bad entry rejects the whole batch before the service runs.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "ReorderPlaces", mock.Anything, mock.Anything)
}

func TestAddPlaceHandler_MissingPlaceName(t *testing.T) {
	svc := new(MockService)
	router := testRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/trips/"+uuid.NewString()+"/itinerary",
		`{"day_number": 1, "destination": "Lisbon"}`, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "AddPlace", mock.Anything, mock.Anything, mock.Anything)
}
