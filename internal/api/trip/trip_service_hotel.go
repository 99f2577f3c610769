package trip

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// hotelCap limits how many recommended hotels are injected into a trip.
const hotelCap = 10

// appendHotels fetches ranked lodging for the destination and folds it into
// day one of the enriched itinerary. Hotel lookup is strictly additive: any
// failure leaves the itinerary untouched.
func (l *ServiceImpl) appendHotels(ctx context.Context, enriched map[int][]*types.EnrichedStop, destination string) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "appendHotels", trace.WithAttributes(
		attribute.String("destination", destination),
	))
	defer span.End()

	logger := l.logger.With(slog.String("method", "appendHotels"), slog.String("destination", destination))

	if _, ok := enriched[1]; !ok {
		span.SetStatus(codes.Ok, "No first day to attach hotels to")
		return
	}

	candidates, err := l.places.FindTopHotels(ctx, destination)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hotel search failed")
		logger.WarnContext(ctx, "Hotel search failed, continuing without hotels", slog.Any("error", err))
		return
	}

	hotels := dedupeHotels(candidates, hotelCap)
	for _, hotel := range hotels {
		var image *string
		if url, err := l.media.RelayPhoto(ctx, hotel.DisplayName.Text, 400, 300, "hotel"); err != nil {
			metrics.Get().ImageRelayFailuresTotal.Add(ctx, 1)
			logger.WarnContext(ctx, "Hotel image relay failed", slog.String("hotel", hotel.DisplayName.Text), slog.Any("error", err))
		} else {
			image = &url
		}
		enriched[1] = append(enriched[1], lodgingStop(hotel, image))
	}
	span.SetAttributes(attribute.Int("hotels", len(hotels)))
	span.SetStatus(codes.Ok, "Hotels appended")
}

// dedupeHotels drops duplicate directory identifiers, keeping first (highest
// ranked) occurrences, and caps the result.
func dedupeHotels(candidates []types.HotelCandidate, limit int) []types.HotelCandidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]types.HotelCandidate, 0, limit)
	for _, candidate := range candidates {
		if candidate.ID == "" || seen[candidate.ID] {
			continue
		}
		seen[candidate.ID] = true
		unique = append(unique, candidate)
		if len(unique) == limit {
			break
		}
	}
	return unique
}

// lodgingStop shapes a hotel candidate as an itinerary entry. Check-in and
// check-out default to the conventional 14:00/11:00 window.
func lodgingStop(hotel types.HotelCandidate, image *string) *types.EnrichedStop {
	return &types.EnrichedStop{
		GooglePlaceID: hotel.ID,
		Kind:          types.PlaceKindLodging,
		Name:          types.HotelNamePrefix + hotel.DisplayName.Text,
		Description:   fmt.Sprintf("Recommended Hotel. Rating: %.1f ⭐. %s", hotel.Rating, hotel.FormattedAddress),
		Start:         "14:00",
		End:           "11:00",
		Image:         image,
		Location: types.Geo{
			Lat: hotel.Location.Latitude,
			Lng: hotel.Location.Longitude,
		},
	}
}
