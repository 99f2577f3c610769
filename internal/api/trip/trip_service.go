package trip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/media"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// enrichConcurrency bounds the fan-out of per-stop directory lookups so a
// large itinerary cannot exhaust the upstream quota in one burst.
const enrichConcurrency = 8

var _ Service = (*ServiceImpl)(nil)

// Generator is the slice of the AI client the planner needs.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error)
}

// Service is the trip planning orchestrator: drafting via the language model,
// enrichment via the places directory, and persistence.
type Service interface {
	// GenerateTrip creates the trip header, drafts and enriches a full
	// itinerary, and persists it. When drafting fails after the header was
	// written, the returned trip ID is still valid and the header row remains.
	GenerateTrip(ctx context.Context, userID uuid.UUID, req types.GenerateTripRequest) (uuid.UUID, error)
	ListTrips(ctx context.Context, userID uuid.UUID) ([]*types.Trip, error)
	RenameTrip(ctx context.Context, tripID, userID uuid.UUID, title string) error
	DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error
	GetItinerary(ctx context.Context, tripID uuid.UUID) (map[int][]types.Place, error)
	// AddPlace drafts and enriches a single place and appends it to the end of
	// the given day.
	AddPlace(ctx context.Context, tripID uuid.UUID, req types.AddPlaceRequest) (uuid.UUID, error)
	// ReorderPlaces applies a validated batch of order and time updates
	// atomically; the owning trip's recency is bumped as part of the batch.
	ReorderPlaces(ctx context.Context, updates []types.PlaceOrderUpdate) error
	UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error
	DeletePlace(ctx context.Context, placeID uuid.UUID) error
	// PlaceDetails returns the detail view for a persisted place, serving the
	// cached copy from the place row when one exists.
	PlaceDetails(ctx context.Context, placeID uuid.UUID) (*types.PlaceDetails, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	ai     Generator
	places places.Service
	media  media.Service
	genCfg *genai.GenerateContentConfig
}

func NewServiceImpl(repo Repository, ai Generator, placesSvc places.Service, mediaSvc media.Service, llmCfg config.LLMConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		ai:     ai,
		places: placesSvc,
		media:  mediaSvc,
		genCfg: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(llmCfg.Temperature),
			MaxOutputTokens: llmCfg.MaxOutputTokens,
		},
	}
}

// GenerateTrip runs the full pipeline: best-effort banner, trip header, model
// draft, concurrent enrichment, hotel injection, then day-by-day persistence.
func (l *ServiceImpl) GenerateTrip(ctx context.Context, userID uuid.UUID, req types.GenerateTripRequest) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GenerateTrip", trace.WithAttributes(
		attribute.String("destination", req.Destination),
		attribute.Int("days", req.NoOfDays),
	))
	defer span.End()

	logger := l.logger.With(slog.String("method", "GenerateTrip"), slog.String("destination", req.Destination))

	var banner *string
	bannerKeyPrefix := fmt.Sprintf("banner_%s", userID)
	if url, err := l.media.RelayPhoto(ctx, req.Destination, 1900, 1200, bannerKeyPrefix); err != nil {
		metrics.Get().ImageRelayFailuresTotal.Add(ctx, 1)
		logger.WarnContext(ctx, "Banner relay failed, continuing without banner", slog.Any("error", err))
	} else {
		banner = &url
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}
	trip := types.Trip{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         req.Title,
		Destination:   req.Destination,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		NoOfTravelers: req.NoOfTravelers,
		Budget:        req.Budget,
		Notes:         notes,
		Banner:        banner,
	}
	if err := l.repo.CreateTrip(ctx, trip); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Trip creation failed")
		return uuid.Nil, err
	}
	span.SetAttributes(attribute.String("trip.id", trip.ID.String()))

	// From here on the header exists. Drafting failures return the trip ID so
	// the caller can surface the half-created trip instead of losing it.
	prompt := itineraryPrompt(req.Destination, req.NoOfDays, req.NoOfTravelers, req.Budget, req.Notes)
	raw, err := l.ai.GenerateContent(ctx, prompt, l.genCfg)
	if err != nil {
		metrics.Get().GenerationFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Itinerary drafting failed")
		return trip.ID, fmt.Errorf("itinerary drafting failed: %w", err)
	}

	draft, err := parseItineraryResponse(cleanModelResponse(raw))
	if err != nil {
		metrics.Get().GenerationFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Itinerary parsing failed")
		return trip.ID, fmt.Errorf("itinerary parsing failed: %w", err)
	}

	enriched := l.enrichItinerary(ctx, draft, req.Destination)
	l.appendHotels(ctx, enriched, req.Destination)

	if err := l.persistItinerary(ctx, trip.ID, enriched); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Itinerary persistence failed")
		return trip.ID, err
	}

	metrics.Get().GenerationsTotal.Add(ctx, 1)
	logger.InfoContext(ctx, "Trip generated", slog.String("trip_id", trip.ID.String()), slog.Int("days", len(enriched)))
	span.SetStatus(codes.Ok, "Trip generated")
	return trip.ID, nil
}

// enrichItinerary resolves identifiers, images, and coordinates for every
// drafted stop with bounded concurrency. Results land in position-keyed slots
// so day ordering survives the fan-out; dropped stops leave nil slots.
func (l *ServiceImpl) enrichItinerary(ctx context.Context, draft map[int][]types.DraftStop, destination string) map[int][]*types.EnrichedStop {
	ctx, span := otel.Tracer("TripService").Start(ctx, "enrichItinerary")
	defer span.End()

	enriched := make(map[int][]*types.EnrichedStop, len(draft))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for day, stops := range draft {
		slots := make([]*types.EnrichedStop, len(stops))
		enriched[day] = slots
		for i, stop := range stops {
			g.Go(func() error {
				slots[i] = l.enrichStop(gctx, stop, destination)
				return nil
			})
		}
	}
	// Workers never return errors; drops are per-stop, not per-trip.
	_ = g.Wait()
	return enriched
}

// enrichStop returns nil when the stop cannot be anchored to a real place,
// which removes it from the itinerary. A missing image never drops a stop.
func (l *ServiceImpl) enrichStop(ctx context.Context, stop types.DraftStop, destination string) *types.EnrichedStop {
	logger := l.logger.With(slog.String("method", "enrichStop"), slog.String("place", stop.Name))

	placeID, err := l.places.ResolveID(ctx, stop.Name, destination)
	if err != nil || placeID == "" {
		metrics.Get().StopsDroppedTotal.Add(ctx, 1)
		logger.WarnContext(ctx, "Dropping stop without directory identifier", slog.Any("error", err))
		return nil
	}

	geo, err := l.places.Geolocation(ctx, placeID)
	if err != nil {
		metrics.Get().StopsDroppedTotal.Add(ctx, 1)
		logger.WarnContext(ctx, "Dropping stop without coordinates", slog.Any("error", err))
		return nil
	}

	var image *string
	if url, err := l.media.RelayPhoto(ctx, stop.Name, 400, 300, "place"); err != nil {
		metrics.Get().ImageRelayFailuresTotal.Add(ctx, 1)
		logger.WarnContext(ctx, "Image relay failed, keeping stop without image", slog.Any("error", err))
	} else {
		image = &url
	}

	return &types.EnrichedStop{
		GooglePlaceID: placeID,
		Kind:          types.PlaceKindStop,
		Name:          stop.Name,
		Description:   stop.Description,
		Start:         stop.Start,
		End:           stop.End,
		Image:         image,
		Location:      geo,
	}
}

// persistItinerary writes days in ascending order and places in slot order,
// skipping dropped (nil) slots and numbering order_index from 1 per day.
func (l *ServiceImpl) persistItinerary(ctx context.Context, tripID uuid.UUID, enriched map[int][]*types.EnrichedStop) error {
	dayNumbers := make([]int, 0, len(enriched))
	for day := range enriched {
		dayNumbers = append(dayNumbers, day)
	}
	sort.Ints(dayNumbers)

	for _, day := range dayNumbers {
		dayID, err := l.repo.CreateDay(ctx, tripID, day)
		if err != nil {
			return err
		}
		orderIndex := 1
		for _, stop := range enriched[day] {
			if stop == nil {
				continue
			}
			if _, err := l.repo.InsertPlace(ctx, dayID, orderIndex, *stop); err != nil {
				return err
			}
			orderIndex++
		}
	}
	return nil
}

func (l *ServiceImpl) ListTrips(ctx context.Context, userID uuid.UUID) ([]*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ListTrips")
	defer span.End()
	return l.repo.ListTripsByUser(ctx, userID)
}

func (l *ServiceImpl) RenameTrip(ctx context.Context, tripID, userID uuid.UUID, title string) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "RenameTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()
	return l.repo.RenameTrip(ctx, tripID, userID, title)
}

func (l *ServiceImpl) DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "DeleteTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()
	return l.repo.DeleteTrip(ctx, tripID, userID)
}

func (l *ServiceImpl) GetItinerary(ctx context.Context, tripID uuid.UUID) (map[int][]types.Place, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GetItinerary", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()
	return l.repo.GetItinerary(ctx, tripID)
}

// AddPlace drafts one place via the model, enriches it with the same
// requirements as bulk generation, and appends it to the end of the day.
// Unlike bulk generation, an unresolvable place is an error here: the caller
// asked for this specific place and silence would look like success.
func (l *ServiceImpl) AddPlace(ctx context.Context, tripID uuid.UUID, req types.AddPlaceRequest) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "AddPlace", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
		attribute.String("place.name", req.PlaceName),
	))
	defer span.End()

	logger := l.logger.With(slog.String("method", "AddPlace"), slog.String("place", req.PlaceName))

	dayID, err := l.repo.GetDayID(ctx, tripID, req.DayNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Day lookup failed")
		return uuid.Nil, err
	}

	// Older clients omit the destination; the trip header has it.
	if req.Destination == "" {
		trip, err := l.repo.GetTrip(ctx, tripID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Trip lookup failed")
			return uuid.Nil, err
		}
		req.Destination = trip.Destination
	}

	raw, err := l.ai.GenerateContent(ctx, singlePlacePrompt(req.PlaceName, req.Destination), l.genCfg)
	if err != nil {
		metrics.Get().GenerationFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place drafting failed")
		return uuid.Nil, fmt.Errorf("place drafting failed: %w", err)
	}
	draft, err := parseSinglePlaceResponse(cleanModelResponse(raw))
	if err != nil {
		metrics.Get().GenerationFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place parsing failed")
		return uuid.Nil, fmt.Errorf("place parsing failed: %w", err)
	}

	placeID, err := l.places.ResolveID(ctx, draft.Name, req.Destination)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Identifier resolution failed")
		return uuid.Nil, fmt.Errorf("identifier resolution for %q failed: %w", draft.Name, err)
	}
	if placeID == "" {
		span.SetStatus(codes.Error, "Place not found in directory")
		return uuid.Nil, fmt.Errorf("no directory match for %q", draft.Name)
	}

	geo, err := l.places.Geolocation(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geolocation failed")
		return uuid.Nil, fmt.Errorf("geolocation for %q failed: %w", draft.Name, err)
	}

	var image *string
	if url, err := l.media.RelayPhoto(ctx, draft.Name, 400, 300, "place"); err != nil {
		metrics.Get().ImageRelayFailuresTotal.Add(ctx, 1)
		logger.WarnContext(ctx, "Image relay failed, keeping place without image", slog.Any("error", err))
	} else {
		image = &url
	}

	orderIndex, err := l.repo.NextOrderIndex(ctx, dayID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Order index lookup failed")
		return uuid.Nil, err
	}

	newID, err := l.repo.InsertPlace(ctx, dayID, orderIndex, types.EnrichedStop{
		GooglePlaceID: placeID,
		Kind:          types.PlaceKindStop,
		Name:          draft.Name,
		Description:   draft.Description,
		Start:         draft.Start,
		End:           draft.End,
		Image:         image,
		Location:      geo,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place insert failed")
		return uuid.Nil, err
	}

	if err := l.repo.TouchTrip(ctx, tripID); err != nil {
		logger.WarnContext(ctx, "Failed to touch trip after place insert", slog.Any("error", err))
	}
	span.SetStatus(codes.Ok, "Place added")
	return newID, nil
}

func (l *ServiceImpl) ReorderPlaces(ctx context.Context, updates []types.PlaceOrderUpdate) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ReorderPlaces", trace.WithAttributes(
		attribute.Int("count", len(updates)),
	))
	defer span.End()

	if err := l.repo.ReorderPlaces(ctx, updates); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Reorder failed")
		return err
	}
	span.SetStatus(codes.Ok, "Places reordered")
	return nil
}

func (l *ServiceImpl) UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "UpdatePlace", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()
	return l.repo.UpdatePlace(ctx, placeID, params)
}

func (l *ServiceImpl) DeletePlace(ctx context.Context, placeID uuid.UUID) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "DeletePlace", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()
	return l.repo.DeletePlace(ctx, placeID)
}

// PlaceDetails serves the stored detail payload when the place row already
// carries one; otherwise it fetches from the directory and writes the payload
// back so later reads skip the upstream call. The stored image URL is attached
// either way.
func (l *ServiceImpl) PlaceDetails(ctx context.Context, placeID uuid.UUID) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "PlaceDetails", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()

	image, err := l.repo.GetPlaceImage(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place lookup failed")
		return nil, err
	}

	cached, err := l.repo.GetPlaceExtraDetails(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cached details lookup failed")
		return nil, err
	}
	if len(cached) > 0 && string(cached) != "null" {
		var details types.PlaceDetails
		if err := json.Unmarshal(cached, &details); err == nil {
			details.Image = image
			span.SetStatus(codes.Ok, "Details served from row cache")
			return &details, nil
		}
		l.logger.WarnContext(ctx, "Discarding unreadable cached details", slog.String("place_id", placeID.String()))
	}

	externalID, err := l.repo.GetPlaceExternalID(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "External identifier lookup failed")
		return nil, err
	}
	if externalID == nil {
		err := fmt.Errorf("place %s has no directory identifier", placeID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "No directory identifier")
		return nil, err
	}

	details, err := l.places.Details(ctx, *externalID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Details fetch failed")
		return nil, err
	}

	if payload, err := json.Marshal(details); err == nil {
		if err := l.repo.UpdatePlace(ctx, placeID, types.UpdatePlaceParams{ExtraDetails: payload}); err != nil {
			l.logger.WarnContext(ctx, "Failed to cache place details", slog.Any("error", err))
		}
	}

	details.Image = image
	span.SetStatus(codes.Ok, "Details fetched")
	return details, nil
}
