package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-trip-planner/internal/api/maps"
	"github.com/FACorreiaa/go-trip-planner/internal/api/trip"
)

// Config contains dependencies needed for the router setup
type Config struct {
	TripHandler            trip.Handler
	MapsHandler            maps.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Raw directory lookups for the map UI carry no user data and stay
		// public, matching the trip pages that embed them pre-login.
		r.Route("/maps", func(r chi.Router) {
			r.Get("/{id}", cfg.MapsHandler.PlaceDetailsHandler)
			r.Get("/geolocation/{id}", cfg.MapsHandler.GeolocationHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Route("/trips", func(r chi.Router) {
				r.Post("/generate", cfg.TripHandler.GenerateTripHandler)
				r.Get("/", cfg.TripHandler.ListTripsHandler)

				r.Route("/places", func(r chi.Router) {
					r.Patch("/order", cfg.TripHandler.ReorderPlacesHandler)
					r.Patch("/{placeID}", cfg.TripHandler.UpdatePlaceHandler)
					r.Delete("/{placeID}", cfg.TripHandler.DeletePlaceHandler)
					r.Get("/{placeID}/details", cfg.TripHandler.PlaceDetailsHandler)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/", cfg.TripHandler.RenameTripHandler)
					r.Delete("/", cfg.TripHandler.DeleteTripHandler)
					r.Get("/itinerary", cfg.TripHandler.GetItineraryHandler)
					r.Post("/itinerary", cfg.TripHandler.AddPlaceHandler)
				})
			})
		})
	})

	return r
}
