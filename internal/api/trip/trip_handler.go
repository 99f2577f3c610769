package trip

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GenerateTripHandler(w http.ResponseWriter, r *http.Request)
	ListTripsHandler(w http.ResponseWriter, r *http.Request)
	RenameTripHandler(w http.ResponseWriter, r *http.Request)
	DeleteTripHandler(w http.ResponseWriter, r *http.Request)
	GetItineraryHandler(w http.ResponseWriter, r *http.Request)
	AddPlaceHandler(w http.ResponseWriter, r *http.Request)
	ReorderPlacesHandler(w http.ResponseWriter, r *http.Request)
	UpdatePlaceHandler(w http.ResponseWriter, r *http.Request)
	DeletePlaceHandler(w http.ResponseWriter, r *http.Request)
	PlaceDetailsHandler(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
	}
}

// authedUserID extracts and parses the authenticated user ID, writing the
// error response itself when the request cannot be attributed.
func (h *HandlerImpl) authedUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *HandlerImpl) GenerateTripHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "GenerateTrip")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GenerateTripHandler"))

	userID, ok := h.authedUserID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	span.SetAttributes(attribute.String("user.id", userID.String()))

	var req types.GenerateTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Destination == "" || req.NoOfDays < 1 {
		span.SetStatus(codes.Error, "Invalid generation request")
		api.ErrorResponse(w, r, http.StatusBadRequest, "destination and no_of_days are required")
		return
	}
	if req.NoOfTravelers < 1 {
		req.NoOfTravelers = 1
	}
	if req.Budget == "" {
		req.Budget = types.BudgetMedium
	}
	span.SetAttributes(attribute.String("destination", req.Destination), attribute.Int("days", req.NoOfDays))

	tripID, err := h.service.GenerateTrip(ctx, userID, req)
	if err != nil {
		l.ErrorContext(ctx, "Itinerary generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Itinerary generation failed")
		resp := map[string]interface{}{
			"success": false,
			"error":   "Itinerary generation failed",
			"message": err.Error(),
		}
		// A non-nil trip ID means the header was created before drafting
		// failed; the client can show or delete the empty trip.
		if tripID != uuid.Nil {
			resp["trip_id"] = tripID
		}
		api.WriteJSONResponse(w, r, http.StatusInternalServerError, resp)
		return
	}

	l.InfoContext(ctx, "Trip generated", slog.String("trip_id", tripID.String()))
	span.SetStatus(codes.Ok, "Trip generated")
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
		"trip_id": tripID,
	})
}

func (h *HandlerImpl) ListTripsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ListTrips")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListTripsHandler"))

	userID, ok := h.authedUserID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}

	trips, err := h.service.ListTrips(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list trips", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list trips")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list trips")
		return
	}
	if trips == nil {
		trips = []*types.Trip{}
	}
	span.SetStatus(codes.Ok, "Trips listed")
	api.WriteJSONResponse(w, r, http.StatusOK, trips)
}

func (h *HandlerImpl) RenameTripHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "RenameTrip")
	defer span.End()
	l := h.logger.With(slog.String("handler", "RenameTripHandler"))

	userID, ok := h.authedUserID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	tripID, ok := pathUUID(w, r, "id")
	if !ok {
		span.SetStatus(codes.Error, "Invalid trip ID")
		return
	}

	var req types.RenameTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" {
		span.SetStatus(codes.Error, "Missing title")
		api.ErrorResponse(w, r, http.StatusBadRequest, "title is required")
		return
	}

	if err := h.service.RenameTrip(ctx, tripID, userID, req.Title); err != nil {
		l.ErrorContext(ctx, "Failed to rename trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to rename trip")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to rename trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip renamed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *HandlerImpl) DeleteTripHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "DeleteTrip")
	defer span.End()
	l := h.logger.With(slog.String("handler", "DeleteTripHandler"))

	userID, ok := h.authedUserID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	tripID, ok := pathUUID(w, r, "id")
	if !ok {
		span.SetStatus(codes.Error, "Invalid trip ID")
		return
	}

	if err := h.service.DeleteTrip(ctx, tripID, userID); err != nil {
		l.ErrorContext(ctx, "Failed to delete trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete trip")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip deleted")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *HandlerImpl) GetItineraryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "GetItinerary")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetItineraryHandler"))

	if _, ok := h.authedUserID(w, r); !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	tripID, ok := pathUUID(w, r, "id")
	if !ok {
		span.SetStatus(codes.Error, "Invalid trip ID")
		return
	}

	itinerary, err := h.service.GetItinerary(ctx, tripID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get itinerary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get itinerary")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get itinerary")
		return
	}
	span.SetStatus(codes.Ok, "Itinerary fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, itinerary)
}

func (h *HandlerImpl) AddPlaceHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "AddPlace")
	defer span.End()
	l := h.logger.With(slog.String("handler", "AddPlaceHandler"))

	if _, ok := h.authedUserID(w, r); !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	tripID, ok := pathUUID(w, r, "id")
	if !ok {
		span.SetStatus(codes.Error, "Invalid trip ID")
		return
	}

	var req types.AddPlaceRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.DayNumber < 1 || req.PlaceName == "" {
		span.SetStatus(codes.Error, "Invalid add-place request")
		api.ErrorResponse(w, r, http.StatusBadRequest, "day_number and place_name are required")
		return
	}

	placeID, err := h.service.AddPlace(ctx, tripID, req)
	if err != nil {
		l.ErrorContext(ctx, "Place generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place generation failed")
		api.WriteJSONResponse(w, r, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Place generation failed",
			"message": err.Error(),
		})
		return
	}
	span.SetStatus(codes.Ok, "Place added")
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"place_id": placeID,
	})
}

func (h *HandlerImpl) ReorderPlacesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ReorderPlaces")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ReorderPlacesHandler"))

	if _, ok := h.authedUserID(w, r); !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}

	var req types.ReorderPlacesRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Places) == 0 {
		span.SetStatus(codes.Error, "Empty reorder request")
		api.ErrorResponse(w, r, http.StatusBadRequest, "places is required")
		return
	}
	// The whole batch is validated before any write so a malformed entry
	// cannot leave the itinerary half-reordered.
	for _, update := range req.Places {
		if update.PlaceID == uuid.Nil || update.OrderIndex == nil {
			span.SetStatus(codes.Error, "Invalid reorder entry")
			api.ErrorResponse(w, r, http.StatusBadRequest, "every entry needs place_id and order_index")
			return
		}
	}

	if err := h.service.ReorderPlaces(ctx, req.Places); err != nil {
		l.ErrorContext(ctx, "Failed to reorder places", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to reorder places")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to reorder places")
		return
	}
	span.SetStatus(codes.Ok, "Places reordered")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *HandlerImpl) UpdatePlaceHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UpdatePlace")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdatePlaceHandler"))

	if _, ok := h.authedUserID(w, r); !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	placeID, ok := pathUUID(w, r, "placeID")
	if !ok {
		span.SetStatus(codes.Error, "Invalid place ID")
		return
	}

	var params types.UpdatePlaceParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if params.StartTime == nil && params.EndTime == nil && params.OrderIndex == nil && params.ExtraDetails == nil {
		span.SetStatus(codes.Error, "Empty update")
		api.ErrorResponse(w, r, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.service.UpdatePlace(ctx, placeID, params); err != nil {
		l.ErrorContext(ctx, "Failed to update place", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update place")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update place")
		return
	}
	span.SetStatus(codes.Ok, "Place updated")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *HandlerImpl) DeletePlaceHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "DeletePlace")
	defer span.End()
	l := h.logger.With(slog.String("handler", "DeletePlaceHandler"))

	if _, ok := h.authedUserID(w, r); !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	placeID, ok := pathUUID(w, r, "placeID")
	if !ok {
		span.SetStatus(codes.Error, "Invalid place ID")
		return
	}

	if err := h.service.DeletePlace(ctx, placeID); err != nil {
		l.ErrorContext(ctx, "Failed to delete place", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete place")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete place")
		return
	}
	span.SetStatus(codes.Ok, "Place deleted")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *HandlerImpl) PlaceDetailsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "PlaceDetails")
	defer span.End()
	l := h.logger.With(slog.String("handler", "PlaceDetailsHandler"))

	if _, ok := h.authedUserID(w, r); !ok {
		span.SetStatus(codes.Error, "Unauthorized")
		return
	}
	placeID, ok := pathUUID(w, r, "placeID")
	if !ok {
		span.SetStatus(codes.Error, "Invalid place ID")
		return
	}

	details, err := h.service.PlaceDetails(ctx, placeID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get place details", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get place details")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get place details")
		return
	}
	span.SetStatus(codes.Ok, "Place details fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, details)
}
