package maps

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
)

var _ Handler = (*HandlerImpl)(nil)

// Handler exposes raw directory lookups for the map UI, keyed by directory
// identifier rather than a persisted place row.
type Handler interface {
	PlaceDetailsHandler(w http.ResponseWriter, r *http.Request)
	GeolocationHandler(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger *slog.Logger
	places places.Service
}

func NewHandler(placesSvc places.Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger: logger,
		places: placesSvc,
	}
}

func (h *HandlerImpl) PlaceDetailsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MapsHandler").Start(r.Context(), "PlaceDetails")
	defer span.End()
	l := h.logger.With(slog.String("handler", "PlaceDetailsHandler"))

	placeID := chi.URLParam(r, "id")
	if placeID == "" {
		span.SetStatus(codes.Error, "Missing place identifier")
		api.ErrorResponse(w, r, http.StatusBadRequest, "place identifier is required")
		return
	}
	span.SetAttributes(attribute.String("place.external_id", placeID))

	details, err := h.places.Details(ctx, placeID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch place details", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Details fetch failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch place details")
		return
	}
	span.SetStatus(codes.Ok, "Details fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, details)
}

func (h *HandlerImpl) GeolocationHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MapsHandler").Start(r.Context(), "Geolocation")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GeolocationHandler"))

	placeID := chi.URLParam(r, "id")
	if placeID == "" {
		span.SetStatus(codes.Error, "Missing place identifier")
		api.ErrorResponse(w, r, http.StatusBadRequest, "place identifier is required")
		return
	}
	span.SetAttributes(attribute.String("place.external_id", placeID))

	geo, err := h.places.Geolocation(ctx, placeID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to geolocate place", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geolocation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to geolocate place")
		return
	}
	span.SetStatus(codes.Ok, "Geolocation fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, geo)
}
