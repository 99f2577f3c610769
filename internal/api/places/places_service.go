package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Service = (*ServiceImpl)(nil)

// Service resolves free-text place names against the places directory.
// Identifier resolution and geolocation are deliberately separate calls: the
// text-search/detail endpoint and the geocoding endpoint are independent
// upstream services with different field masks and quotas, and the enricher
// needs to fail one without blocking the other.
type Service interface {
	// ResolveID returns the directory identifier for a place name biased by a
	// destination hint, or "" when the search has no match.
	ResolveID(ctx context.Context, name, destinationHint string) (string, error)
	// PhotoReference returns the first photo resource name for a place, or ""
	// when the place has no photos.
	PhotoReference(ctx context.Context, placeID string) (string, error)
	// Geolocation resolves coordinates for a place identifier.
	Geolocation(ctx context.Context, placeID string) (types.Geo, error)
	// Details fetches the field-masked detail view used by detail pages.
	Details(ctx context.Context, placeID string) (*types.PlaceDetails, error)
	// PhotoStream composes ResolveID, PhotoReference, and the media fetch into
	// one sized byte stream. The error names the failed sub-step.
	PhotoStream(ctx context.Context, name string, maxWidth, maxHeight int) (io.ReadCloser, string, error)
	// FindTopHotels text-searches ranked lodging near the destination.
	FindTopHotels(ctx context.Context, destination string) ([]types.HotelCandidate, error)
}

const detailsFieldMask = "displayName.text,types,formattedAddress,googleMapsUri," +
	"googleMapsLinks.reviewsUri,regularOpeningHours.weekdayDescriptions," +
	"internationalPhoneNumber,rating,userRatingCount,websiteUri," +
	"postalAddress.locality,postalAddress.administrativeArea"

const hotelsFieldMask = "places.id,places.displayName.text,places.formattedAddress," +
	"places.rating,places.googleMapsUri,places.websiteUri,places.location"

type ServiceImpl struct {
	logger       *slog.Logger
	httpClient   *http.Client
	baseURL      string
	geocodeURL   string
	apiKey       string
	detailsCache *cache.Cache
}

func NewServiceImpl(baseURL, geocodeURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *ServiceImpl {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ServiceImpl{
		logger:       logger,
		httpClient:   httpClient,
		baseURL:      baseURL,
		geocodeURL:   geocodeURL,
		apiKey:       apiKey,
		detailsCache: cache.New(24*time.Hour, 1*time.Hour),
	}
}

func (s *ServiceImpl) ResolveID(ctx context.Context, name, destinationHint string) (string, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "ResolveID", trace.WithAttributes(
		attribute.String("place.name", name),
	))
	defer span.End()

	query := name
	if destinationHint != "" {
		query = name + " " + destinationHint
	}
	body, err := json.Marshal(map[string]string{"textQuery": query})
	if err != nil {
		return "", fmt.Errorf("failed to encode text search body: %w", err)
	}

	var result struct {
		Places []struct {
			ID string `json:"id"`
		} `json:"places"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.baseURL+"/places:searchText", "places.id", bytes.NewReader(body), &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Text search failed")
		return "", fmt.Errorf("text search for %q failed: %w", name, err)
	}
	if len(result.Places) == 0 {
		span.SetStatus(codes.Ok, "No match")
		return "", nil
	}
	span.SetStatus(codes.Ok, "Identifier resolved")
	return result.Places[0].ID, nil
}

func (s *ServiceImpl) PhotoReference(ctx context.Context, placeID string) (string, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "PhotoReference", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	var result struct {
		Photos []struct {
			Name string `json:"name"`
		} `json:"photos"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.baseURL+"/places/"+url.PathEscape(placeID), "photos", nil, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Photo lookup failed")
		return "", fmt.Errorf("photo lookup for %s failed: %w", placeID, err)
	}
	if len(result.Photos) == 0 {
		span.SetStatus(codes.Ok, "No photos")
		return "", nil
	}
	span.SetStatus(codes.Ok, "Photo reference found")
	return result.Photos[0].Name, nil
}

func (s *ServiceImpl) Geolocation(ctx context.Context, placeID string) (types.Geo, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "Geolocation", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	reqURL := fmt.Sprintf("%s?place_id=%s&key=%s", s.geocodeURL, url.QueryEscape(placeID), url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.Geo{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocode fetch failed")
		return types.Geo{}, fmt.Errorf("place geolocation fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("place geolocation fetch failed: status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocode fetch failed")
		return types.Geo{}, err
	}

	var result struct {
		Results []struct {
			Geometry struct {
				Location types.Geo `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return types.Geo{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(result.Results) == 0 {
		err := fmt.Errorf("no geolocation data found for place %s", placeID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "No geometry")
		return types.Geo{}, err
	}
	span.SetStatus(codes.Ok, "Geolocation resolved")
	return result.Results[0].Geometry.Location, nil
}

func (s *ServiceImpl) Details(ctx context.Context, placeID string) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "Details", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	if cached, found := s.detailsCache.Get(placeID); found {
		span.SetStatus(codes.Ok, "Details served from cache")
		return cached.(*types.PlaceDetails), nil
	}

	var details types.PlaceDetails
	if err := s.doJSON(ctx, http.MethodGet, s.baseURL+"/places/"+url.PathEscape(placeID), detailsFieldMask, nil, &details); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Detail fetch failed")
		return nil, fmt.Errorf("place detail fetch failed: %w", err)
	}

	s.detailsCache.Set(placeID, &details, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Details fetched")
	return &details, nil
}

func (s *ServiceImpl) PhotoStream(ctx context.Context, name string, maxWidth, maxHeight int) (io.ReadCloser, string, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "PhotoStream", trace.WithAttributes(
		attribute.String("place.name", name),
		attribute.Int("max_width", maxWidth),
		attribute.Int("max_height", maxHeight),
	))
	defer span.End()

	placeID, err := s.ResolveID(ctx, name, "")
	if err != nil {
		return nil, "", err
	}
	if placeID == "" {
		err := fmt.Errorf("could not find place ID for %q", name)
		span.RecordError(err)
		span.SetStatus(codes.Error, "No identifier")
		return nil, "", err
	}

	photoName, err := s.PhotoReference(ctx, placeID)
	if err != nil {
		return nil, "", err
	}
	if photoName == "" {
		err := fmt.Errorf("no photos found for place %q", name)
		span.RecordError(err)
		span.SetStatus(codes.Error, "No photo")
		return nil, "", err
	}

	mediaURL := fmt.Sprintf("%s/%s/media?key=%s&maxHeightPx=%d&maxWidthPx=%d",
		s.baseURL, photoName, url.QueryEscape(s.apiKey), maxHeight, maxWidth)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build photo media request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Media fetch failed")
		return nil, "", fmt.Errorf("failed to fetch photo for place %q with ID %q: %w", name, placeID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("failed to fetch photo for place %q with ID %q: status %d", name, placeID, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Media fetch failed")
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	span.SetStatus(codes.Ok, "Photo stream opened")
	return resp.Body, contentType, nil
}

func (s *ServiceImpl) FindTopHotels(ctx context.Context, destination string) ([]types.HotelCandidate, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "FindTopHotels", trace.WithAttributes(
		attribute.String("destination", destination),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "FindTopHotels"))

	body, err := json.Marshal(map[string]interface{}{
		"textQuery":      fmt.Sprintf("best hotels in %s", destination),
		"maxResultCount": 20,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode hotel search body: %w", err)
	}

	var result struct {
		Places []types.HotelCandidate `json:"places"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.baseURL+"/places:searchText", hotelsFieldMask, bytes.NewReader(body), &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hotel search failed")
		return nil, fmt.Errorf("hotel search for %q failed: %w", destination, err)
	}

	l.InfoContext(ctx, "Hotel search completed", slog.Int("count", len(result.Places)))
	span.SetAttributes(attribute.Int("hotels.count", len(result.Places)))
	span.SetStatus(codes.Ok, "Hotel search completed")
	if len(result.Places) > 20 {
		return result.Places[:20], nil
	}
	return result.Places, nil
}

// doJSON performs one field-masked places API call and decodes the response.
func (s *ServiceImpl) doJSON(ctx context.Context, method, reqURL, fieldMask string, body io.Reader, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", s.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("places API returned status %d: %s", resp.StatusCode, payload)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
