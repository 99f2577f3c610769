package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Place kinds. Lodging places are injected by the hotel finder rather than
// drafted by the model; presentation filters on this field.
const (
	PlaceKindStop    = "stop"
	PlaceKindLodging = "lodging"
)

// HotelNamePrefix marks lodging entries in the display name for older clients
// that predate the kind column.
const HotelNamePrefix = "🏨 "

type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DraftStop is a model-proposed stop before enrichment. Image and GeoLocation
// are schema placeholders the model must emit as null.
type DraftStop struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Image       *string `json:"image"`
	GeoLocation *Geo    `json:"geo_location"`
}

// EnrichedStop is a draft stop after identifier, image, and coordinate
// resolution. Every enriched stop has a resolved location.
type EnrichedStop struct {
	GooglePlaceID string
	Kind          string
	Name          string
	Description   string
	Start         string
	End           string
	Image         *string
	Location      Geo
}

// Place is a persisted itinerary entry as returned to clients.
type Place struct {
	ID            uuid.UUID `json:"place_id"`
	GooglePlaceID *string   `json:"google_place_id"`
	OrderIndex    int       `json:"order_index"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	Start         *string   `json:"start"`
	End           *string   `json:"end"`
	Image         *string   `json:"image"`
	Location      Geo       `json:"location"`
}

// UpdatePlaceParams is a partial update; nil fields are left untouched.
type UpdatePlaceParams struct {
	StartTime    *string         `json:"start_time"`
	EndTime      *string         `json:"end_time"`
	OrderIndex   *int            `json:"order_index"`
	ExtraDetails json.RawMessage `json:"extra_details"`
}

// PlaceOrderUpdate is one entry of the bulk reorder request.
type PlaceOrderUpdate struct {
	PlaceID    uuid.UUID `json:"place_id"`
	OrderIndex *int      `json:"order_index"`
	StartTime  *string   `json:"start_time"`
	EndTime    *string   `json:"end_time"`
}

type ReorderPlacesRequest struct {
	Places []PlaceOrderUpdate `json:"places"`
}

// HotelCandidate is one ranked result of the top-hotels text search.
type HotelCandidate struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string  `json:"formattedAddress"`
	Rating           float64 `json:"rating"`
	GoogleMapsURI    string  `json:"googleMapsUri"`
	WebsiteURI       string  `json:"websiteUri"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// PlaceDetails is the field-masked detail view fetched on demand and cached
// on the place row.
type PlaceDetails struct {
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Types               []string `json:"types"`
	FormattedAddress    string   `json:"formattedAddress"`
	GoogleMapsURI       string   `json:"googleMapsUri"`
	GoogleMapsLinks     struct {
		ReviewsURI string `json:"reviewsUri"`
	} `json:"googleMapsLinks"`
	RegularOpeningHours struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
	InternationalPhoneNumber string  `json:"internationalPhoneNumber"`
	Rating                   float64 `json:"rating"`
	UserRatingCount          int     `json:"userRatingCount"`
	WebsiteURI               string  `json:"websiteUri"`
	PostalAddress            struct {
		Locality           string `json:"locality"`
		AdministrativeArea string `json:"administrativeArea"`
	} `json:"postalAddress"`
	Image *string `json:"image,omitempty"`
}
