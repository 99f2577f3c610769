package places

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDirectory serves the subset of the places API the service touches.
func fakeDirectory(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /places:searchText", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Goog-FieldMask"))
		var body struct {
			TextQuery string `json:"textQuery"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if strings.HasPrefix(body.TextQuery, "best hotels in") {
			w.Write([]byte(`{"places": [
				{"id": "hotel-1", "displayName": {"text": "Grand Hotel"}, "formattedAddress": "1 Plaza", "rating": 4.5, "location": {"latitude": 38.7, "longitude": -9.1}},
				{"id": "hotel-1", "displayName": {"text": "Grand Hotel"}, "formattedAddress": "1 Plaza", "rating": 4.5, "location": {"latitude": 38.7, "longitude": -9.1}},
				{"id": "hotel-2", "displayName": {"text": "Harbor Inn"}, "formattedAddress": "2 Quay", "rating": 4.1, "location": {"latitude": 38.71, "longitude": -9.12}}
			]}`))
			return
		}
		if strings.Contains(body.TextQuery, "Nowhere") {
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`{"places": [{"id": "place-1"}, {"id": "place-2"}]}`))
	})

	mux.HandleFunc("GET /places/place-1", func(w http.ResponseWriter, r *http.Request) {
		mask := r.Header.Get("X-Goog-FieldMask")
		if mask == "photos" {
			w.Write([]byte(`{"photos": [{"name": "places/place-1/photos/abc"}]}`))
			return
		}
		w.Write([]byte(`{"displayName": {"text": "Belém Tower"}, "rating": 4.6, "formattedAddress": "Av. Brasília", "regularOpeningHours": {"weekdayDescriptions": ["Monday: Closed"]}}`))
	})

	mux.HandleFunc("GET /places/place-1/photos/abc/media", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "300", r.URL.Query().Get("maxHeightPx"))
		assert.Equal(t, "400", r.URL.Query().Get("maxWidthPx"))
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})

	// A geocode endpoint that knows one place.
	mux.HandleFunc("GET /geocode", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "place-1" {
			w.Write([]byte(`{"results": []}`))
			return
		}
		w.Write([]byte(`{"results": [{"geometry": {"location": {"lat": 38.6916, "lng": -9.216}}}]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T) *ServiceImpl {
	srv := fakeDirectory(t)
	return NewServiceImpl(srv.URL, srv.URL+"/geocode", "test-key", srv.Client(), testLogger())
}

func TestResolveID(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.ResolveID(context.Background(), "Belém Tower", "Lisbon")
	require.NoError(t, err)
	assert.Equal(t, "place-1", id)

	// No match is not an error; it reports as an empty identifier.
	id, err = svc.ResolveID(context.Background(), "Nowhere Special", "")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestGeolocation(t *testing.T) {
	svc := newTestService(t)

	geo, err := svc.Geolocation(context.Background(), "place-1")
	require.NoError(t, err)
	assert.InDelta(t, 38.6916, geo.Lat, 0.0001)
	assert.InDelta(t, -9.216, geo.Lng, 0.0001)

	_, err = svc.Geolocation(context.Background(), "place-unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no geolocation data")
}

func TestPhotoStream(t *testing.T) {
	svc := newTestService(t)

	stream, contentType, err := svc.PhotoStream(context.Background(), "Belém Tower", 400, 300)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "image/jpeg", contentType)
	payload, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(payload))
}

func TestPhotoStream_NoMatchNamesSubStep(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.PhotoStream(context.Background(), "Nowhere Special", 400, 300)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find place ID")
}

func TestDetails_CachedAfterFirstFetch(t *testing.T) {
	srv := fakeDirectory(t)
	var hits int
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		resp, err := srv.Client().Get(srv.URL + r.URL.String())
		require.NoError(t, err)
		defer resp.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		io.Copy(w, resp.Body)
	}))
	t.Cleanup(counting.Close)

	svc := NewServiceImpl(counting.URL, counting.URL+"/geocode", "test-key", counting.Client(), testLogger())

	first, err := svc.Details(context.Background(), "place-1")
	require.NoError(t, err)
	assert.Equal(t, "Belém Tower", first.DisplayName.Text)

	second, err := svc.Details(context.Background(), "place-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, hits)
}

func TestFindTopHotels(t *testing.T) {
	svc := newTestService(t)

	hotels, err := svc.FindTopHotels(context.Background(), "Lisbon")
	require.NoError(t, err)
	// Upstream ranking and duplicates are passed through untouched; the
	// itinerary layer owns dedup and capping.
	require.Len(t, hotels, 3)
	assert.Equal(t, "hotel-1", hotels[0].ID)
	assert.Equal(t, "Grand Hotel", hotels[0].DisplayName.Text)
	assert.Equal(t, 4.5, hotels[0].Rating)
}
