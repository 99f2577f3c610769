package trip

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTrip(ctx context.Context, trip types.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockRepository) RenameTrip(ctx context.Context, tripID, userID uuid.UUID, title string) error {
	args := m.Called(ctx, tripID, userID, title)
	return args.Error(0)
}

func (m *MockRepository) DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error {
	args := m.Called(ctx, tripID, userID)
	return args.Error(0)
}

func (m *MockRepository) ListTripsByUser(ctx context.Context, userID uuid.UUID) ([]*types.Trip, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Trip), args.Error(1)
}

func (m *MockRepository) GetTrip(ctx context.Context, tripID uuid.UUID) (types.Trip, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).(types.Trip), args.Error(1)
}

func (m *MockRepository) CreateDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (uuid.UUID, error) {
	args := m.Called(ctx, tripID, dayNumber)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockRepository) GetDayID(ctx context.Context, tripID uuid.UUID, dayNumber int) (uuid.UUID, error) {
	args := m.Called(ctx, tripID, dayNumber)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockRepository) InsertPlace(ctx context.Context, dayID uuid.UUID, orderIndex int, stop types.EnrichedStop) (uuid.UUID, error) {
	args := m.Called(ctx, dayID, orderIndex, stop)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockRepository) GetItinerary(ctx context.Context, tripID uuid.UUID) (map[int][]types.Place, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int][]types.Place), args.Error(1)
}

func (m *MockRepository) NextOrderIndex(ctx context.Context, dayID uuid.UUID) (int, error) {
	args := m.Called(ctx, dayID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error {
	args := m.Called(ctx, placeID, params)
	return args.Error(0)
}

func (m *MockRepository) ReorderPlaces(ctx context.Context, updates []types.PlaceOrderUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockRepository) DeletePlace(ctx context.Context, placeID uuid.UUID) error {
	args := m.Called(ctx, placeID)
	return args.Error(0)
}

func (m *MockRepository) GetPlaceExternalID(ctx context.Context, placeID uuid.UUID) (*string, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockRepository) GetPlaceImage(ctx context.Context, placeID uuid.UUID) (*string, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockRepository) GetPlaceExtraDetails(ctx context.Context, placeID uuid.UUID) (json.RawMessage, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockRepository) TouchTrip(ctx context.Context, tripID uuid.UUID) error {
	args := m.Called(ctx, tripID)
	return args.Error(0)
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateContent(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	args := m.Called(ctx, prompt, cfg)
	return args.String(0), args.Error(1)
}

// MockPlacesService is a mock implementation of places.Service
type MockPlacesService struct {
	mock.Mock
}

func (m *MockPlacesService) ResolveID(ctx context.Context, name, destinationHint string) (string, error) {
	args := m.Called(ctx, name, destinationHint)
	return args.String(0), args.Error(1)
}

func (m *MockPlacesService) PhotoReference(ctx context.Context, placeID string) (string, error) {
	args := m.Called(ctx, placeID)
	return args.String(0), args.Error(1)
}

func (m *MockPlacesService) Geolocation(ctx context.Context, placeID string) (types.Geo, error) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(types.Geo), args.Error(1)
}

func (m *MockPlacesService) Details(ctx context.Context, placeID string) (*types.PlaceDetails, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceDetails), args.Error(1)
}

func (m *MockPlacesService) PhotoStream(ctx context.Context, name string, maxWidth, maxHeight int) (io.ReadCloser, string, error) {
	args := m.Called(ctx, name, maxWidth, maxHeight)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

func (m *MockPlacesService) FindTopHotels(ctx context.Context, destination string) ([]types.HotelCandidate, error) {
	args := m.Called(ctx, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.HotelCandidate), args.Error(1)
}

// MockMediaService is a mock implementation of media.Service
type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) RelayPhoto(ctx context.Context, name string, maxWidth, maxHeight int, keyPrefix string) (string, error) {
	args := m.Called(ctx, name, maxWidth, maxHeight, keyPrefix)
	return args.String(0), args.Error(1)
}

func (m *MockMediaService) RelayStream(ctx context.Context, stream io.Reader, key, contentType string) (string, error) {
	args := m.Called(ctx, stream, key, contentType)
	return args.String(0), args.Error(1)
}

func newTestService(repo *MockRepository, gen *MockGenerator, placesSvc *MockPlacesService, mediaSvc *MockMediaService) *ServiceImpl {
	return NewServiceImpl(repo, gen, placesSvc, mediaSvc, config.LLMConfig{
		Model:           "test-model",
		FallbackModel:   "test-fallback",
		Temperature:     0.1,
		MaxOutputTokens: 4096,
	}, testLogger())
}

func hotel(id, name string, rating float64) types.HotelCandidate {
	var h types.HotelCandidate
	h.ID = id
	h.DisplayName.Text = name
	h.FormattedAddress = "1 Main St"
	h.Rating = rating
	h.Location.Latitude = 40.0
	h.Location.Longitude = -74.0
	return h
}

const draftOneDayTwoStops = `{
  "1": [
    {"name": "Central Park", "description": "Iconic park.", "start": "9:00 AM", "end": "11:00 AM", "image": null, "geo_location": null},
    {"name": "The Met", "description": "Art museum.", "start": "11:30 AM", "end": "2:00 PM", "image": null, "geo_location": null}
  ]
}`

func TestGenerateTrip_Success(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	ctx := context.Background()
	userID := uuid.New()
	dayID := uuid.New()

	mediaSvc.On("RelayPhoto", mock.Anything, "New York", 1900, 1200, mock.Anything).Return("http://img/banner.jpg", nil)
	mediaSvc.On("RelayPhoto", mock.Anything, mock.Anything, 400, 300, "place").Return("http://img/place.jpg", nil)
	mediaSvc.On("RelayPhoto", mock.Anything, mock.Anything, 400, 300, "hotel").Return("http://img/hotel.jpg", nil)

	repo.On("CreateTrip", mock.Anything, mock.MatchedBy(func(trip types.Trip) bool {
		return trip.UserID == userID && trip.Destination == "New York" && trip.Banner != nil
	})).Return(nil)

	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(draftOneDayTwoStops, nil)

	placesSvc.On("ResolveID", mock.Anything, "Central Park", "New York").Return("place-1", nil)
	placesSvc.On("ResolveID", mock.Anything, "The Met", "New York").Return("place-2", nil)
	placesSvc.On("Geolocation", mock.Anything, mock.Anything).Return(types.Geo{Lat: 40.78, Lng: -73.96}, nil)
	placesSvc.On("FindTopHotels", mock.Anything, "New York").Return([]types.HotelCandidate{
		hotel("hotel-1", "The Plaza", 4.7),
		hotel("hotel-1", "The Plaza", 4.7), // duplicate dropped
		hotel("hotel-2", "Arlo SoHo", 4.4),
	}, nil)

	repo.On("CreateDay", mock.Anything, mock.Anything, 1).Return(dayID, nil)

	var inserted []types.EnrichedStop
	var orderIndexes []int
	repo.On("InsertPlace", mock.Anything, dayID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			orderIndexes = append(orderIndexes, args.Int(2))
			inserted = append(inserted, args.Get(3).(types.EnrichedStop))
		}).
		Return(uuid.New(), nil)

	tripID, err := svc.GenerateTrip(ctx, userID, types.GenerateTripRequest{
		Title:         "NYC Getaway",
		Destination:   "New York",
		NoOfDays:      1,
		NoOfTravelers: 2,
		Budget:        types.BudgetMedium,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tripID)

	// 2 stops + 2 unique hotels, appended after the stops with dense indexes
	require.Len(t, inserted, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, orderIndexes)
	assert.Equal(t, types.PlaceKindStop, inserted[0].Kind)
	assert.Equal(t, types.PlaceKindStop, inserted[1].Kind)
	assert.Equal(t, types.PlaceKindLodging, inserted[2].Kind)
	assert.Equal(t, types.HotelNamePrefix+"The Plaza", inserted[2].Name)
	assert.Equal(t, "14:00", inserted[2].Start)
	assert.Equal(t, "11:00", inserted[2].End)
	assert.Equal(t, "hotel-1", inserted[2].GooglePlaceID)
	repo.AssertExpectations(t)
}

func TestGenerateTrip_DraftFailureKeepsHeader(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	mediaSvc.On("RelayPhoto", mock.Anything, mock.Anything, 1900, 1200, mock.Anything).Return("", errors.New("no photo"))
	repo.On("CreateTrip", mock.Anything, mock.Anything).Return(nil)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))

	tripID, err := svc.GenerateTrip(context.Background(), uuid.New(), types.GenerateTripRequest{
		Destination: "Lisbon",
		NoOfDays:    3,
	})
	require.Error(t, err)
	// The header row was written; the caller gets its ID despite the failure.
	assert.NotEqual(t, uuid.Nil, tripID)
	repo.AssertNotCalled(t, "CreateDay", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateTrip_UnparseableDraftIsFatal(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	mediaSvc.On("RelayPhoto", mock.Anything, mock.Anything, 1900, 1200, mock.Anything).Return("", errors.New("no photo"))
	repo.On("CreateTrip", mock.Anything, mock.Anything).Return(nil)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return("Sure! Here is your itinerary:", nil)

	tripID, err := svc.GenerateTrip(context.Background(), uuid.New(), types.GenerateTripRequest{
		Destination: "Lisbon",
		NoOfDays:    2,
	})
	require.Error(t, err)
	assert.NotEqual(t, uuid.Nil, tripID)
	repo.AssertNotCalled(t, "CreateDay", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateTrip_DropsUnresolvedStops(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	dayID := uuid.New()
	mediaSvc.On("RelayPhoto", mock.Anything, mock.Anything, 1900, 1200, mock.Anything).Return("", errors.New("no photo"))
	mediaSvc.On("RelayPhoto", mock.Anything, mock.Anything, 400, 300, "place").Return("", errors.New("no photo"))
	repo.On("CreateTrip", mock.Anything, mock.Anything).Return(nil)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(draftOneDayTwoStops, nil)

	// First stop has no directory match, second resolves fine.
	placesSvc.On("ResolveID", mock.Anything, "Central Park", mock.Anything).Return("", nil)
	placesSvc.On("ResolveID", mock.Anything, "The Met", mock.Anything).Return("place-2", nil)
	placesSvc.On("Geolocation", mock.Anything, "place-2").Return(types.Geo{Lat: 40.77, Lng: -73.96}, nil)
	placesSvc.On("FindTopHotels", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	repo.On("CreateDay", mock.Anything, mock.Anything, 1).Return(dayID, nil)

	var inserted []types.EnrichedStop
	var orderIndexes []int
	repo.On("InsertPlace", mock.Anything, dayID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			orderIndexes = append(orderIndexes, args.Int(2))
			inserted = append(inserted, args.Get(3).(types.EnrichedStop))
		}).
		Return(uuid.New(), nil)

	_, err := svc.GenerateTrip(context.Background(), uuid.New(), types.GenerateTripRequest{
		Destination: "New York",
		NoOfDays:    1,
	})
	require.NoError(t, err)

	// Dropped stop leaves no gap: the surviving one holds index 1. A failed
	// image relay and a failed hotel search drop nothing.
	require.Len(t, inserted, 1)
	assert.Equal(t, []int{1}, orderIndexes)
	assert.Equal(t, "The Met", inserted[0].Name)
	assert.Nil(t, inserted[0].Image)
}

func TestDedupeHotels(t *testing.T) {
	candidates := make([]types.HotelCandidate, 0, 30)
	for i := 0; i < 15; i++ {
		h := hotel("dup", "Same Hotel", 4.0)
		candidates = append(candidates, h)
	}
	for _, id := range []string{"a", "b", "c", "a", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		candidates = append(candidates, hotel(id, "Hotel "+id, 4.2))
	}

	unique := dedupeHotels(candidates, hotelCap)
	require.LessOrEqual(t, len(unique), hotelCap)
	seen := map[string]bool{}
	for _, h := range unique {
		assert.False(t, seen[h.ID], "duplicate id %s survived", h.ID)
		seen[h.ID] = true
	}
	// First occurrence wins, so the dup block contributes exactly one entry.
	assert.Equal(t, "dup", unique[0].ID)
}

func TestAddPlace_NoDirectoryMatch(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	tripID := uuid.New()
	repo.On("GetDayID", mock.Anything, tripID, 2).Return(uuid.New(), nil)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(
		`{"name": "Atlantis Diner", "description": "Greasy spoon.", "start": "8:00 AM", "end": "9:00 AM", "image": null, "geo_location": null}`, nil)
	placesSvc.On("ResolveID", mock.Anything, "Atlantis Diner", "New York").Return("", nil)

	_, err := svc.AddPlace(context.Background(), tripID, types.AddPlaceRequest{
		DayNumber:   2,
		PlaceName:   "Atlantis Diner",
		Destination: "New York",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no directory match")
	repo.AssertNotCalled(t, "InsertPlace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddPlace_AppendsAtEndOfDay(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	tripID := uuid.New()
	dayID := uuid.New()
	newID := uuid.New()

	repo.On("GetDayID", mock.Anything, tripID, 1).Return(dayID, nil)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(
		"<think>resolving</think>\n```json\n{\"name\": \"Katz's Delicatessen\", \"description\": \"Famous deli.\", \"start\": \"12:00 PM\", \"end\": \"1:00 PM\", \"image\": null, \"geo_location\": null}\n```", nil)
	placesSvc.On("ResolveID", mock.Anything, "Katz's Delicatessen", "New York").Return("place-9", nil)
	placesSvc.On("Geolocation", mock.Anything, "place-9").Return(types.Geo{Lat: 40.72, Lng: -73.98}, nil)
	mediaSvc.On("RelayPhoto", mock.Anything, "Katz's Delicatessen", 400, 300, "place").Return("http://img/katz.jpg", nil)
	repo.On("NextOrderIndex", mock.Anything, dayID).Return(5, nil)
	repo.On("InsertPlace", mock.Anything, dayID, 5, mock.MatchedBy(func(stop types.EnrichedStop) bool {
		return stop.GooglePlaceID == "place-9" && stop.Kind == types.PlaceKindStop && stop.Image != nil
	})).Return(newID, nil)
	repo.On("TouchTrip", mock.Anything, tripID).Return(nil)

	placeID, err := svc.AddPlace(context.Background(), tripID, types.AddPlaceRequest{
		DayNumber:   1,
		PlaceName:   "Katz's Delicatessen",
		Destination: "New York",
	})
	require.NoError(t, err)
	assert.Equal(t, newID, placeID)
	repo.AssertExpectations(t)
}

func TestPlaceDetails_ServedFromRowCache(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	placeID := uuid.New()
	image := "http://img/met.jpg"
	cached := json.RawMessage(`{"displayName": {"text": "The Met"}, "rating": 4.8}`)

	repo.On("GetPlaceImage", mock.Anything, placeID).Return(&image, nil)
	repo.On("GetPlaceExtraDetails", mock.Anything, placeID).Return(cached, nil)

	details, err := svc.PlaceDetails(context.Background(), placeID)
	require.NoError(t, err)
	assert.Equal(t, "The Met", details.DisplayName.Text)
	assert.Equal(t, 4.8, details.Rating)
	require.NotNil(t, details.Image)
	assert.Equal(t, image, *details.Image)
	placesSvc.AssertNotCalled(t, "Details", mock.Anything, mock.Anything)
}

func TestPlaceDetails_FetchesAndCaches(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	placeID := uuid.New()
	externalID := "place-42"
	fetched := &types.PlaceDetails{Rating: 4.2}
	fetched.DisplayName.Text = "Brooklyn Bridge"

	repo.On("GetPlaceImage", mock.Anything, placeID).Return(nil, nil)
	repo.On("GetPlaceExtraDetails", mock.Anything, placeID).Return(nil, nil)
	repo.On("GetPlaceExternalID", mock.Anything, placeID).Return(&externalID, nil)
	placesSvc.On("Details", mock.Anything, externalID).Return(fetched, nil)
	repo.On("UpdatePlace", mock.Anything, placeID, mock.MatchedBy(func(params types.UpdatePlaceParams) bool {
		return params.ExtraDetails != nil
	})).Return(nil)

	details, err := svc.PlaceDetails(context.Background(), placeID)
	require.NoError(t, err)
	assert.Equal(t, "Brooklyn Bridge", details.DisplayName.Text)
	repo.AssertExpectations(t)
}

func TestPlaceDetails_NoExternalID(t *testing.T) {
	repo := new(MockRepository)
	gen := new(MockGenerator)
	placesSvc := new(MockPlacesService)
	mediaSvc := new(MockMediaService)
	svc := newTestService(repo, gen, placesSvc, mediaSvc)

	placeID := uuid.New()
	repo.On("GetPlaceImage", mock.Anything, placeID).Return(nil, nil)
	repo.On("GetPlaceExtraDetails", mock.Anything, placeID).Return(nil, nil)
	repo.On("GetPlaceExternalID", mock.Anything, placeID).Return(nil, nil)

	_, err := svc.PlaceDetails(context.Background(), placeID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no directory identifier")
}
