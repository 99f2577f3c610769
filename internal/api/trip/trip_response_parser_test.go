package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanModelResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain JSON untouched",
			input: `{"1": []}`,
			want:  `{"1": []}`,
		},
		{
			name:  "code fences stripped",
			input: "```json\n{\"1\": []}\n```",
			want:  `{"1": []}`,
		},
		{
			name:  "think block stripped",
			input: "<think>planning the route\nstep by step</think>{\"1\": []}",
			want:  `{"1": []}`,
		},
		{
			name:  "think block and fences together",
			input: "<THINK>hmm</THINK>\n```\n{\"1\": []}\n```\n",
			want:  `{"1": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelResponse(tt.input))
		})
	}
}

func TestParseItineraryResponse(t *testing.T) {
	itinerary, err := parseItineraryResponse(`{
		"2": [{"name": "Alfama", "description": "Old quarter.", "start": "9:00 AM", "end": "12:00 PM", "image": null, "geo_location": null}],
		"1": [{"name": "Belém Tower", "description": "Riverside fort.", "start": "10:00 AM", "end": "11:00 AM", "image": null, "geo_location": null}]
	}`)
	require.NoError(t, err)
	require.Len(t, itinerary, 2)
	assert.Equal(t, "Belém Tower", itinerary[1][0].Name)
	assert.Equal(t, "Alfama", itinerary[2][0].Name)
}

func TestParseItineraryResponse_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not JSON", "Here is your itinerary!"},
		{"empty object", `{}`},
		{"non-numeric day key", `{"day one": []}`},
		{"zero day key", `{"0": []}`},
		{"missing stop name", `{"1": [{"name": "", "description": "x", "start": "9:00 AM", "end": "10:00 AM", "image": null, "geo_location": null}]}`},
		{"missing time window", `{"1": [{"name": "Alfama", "description": "x", "start": "", "end": "10:00 AM", "image": null, "geo_location": null}]}`},
		{"model filled a placeholder", `{"1": [{"name": "Alfama", "description": "x", "start": "9:00 AM", "end": "10:00 AM", "image": "http://x.jpg", "geo_location": null}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseItineraryResponse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseSinglePlaceResponse(t *testing.T) {
	object := `{"name": "Time Out Market", "description": "Food hall.", "start": "1:00 PM", "end": "2:30 PM", "image": null, "geo_location": null}`

	stop, err := parseSinglePlaceResponse(object)
	require.NoError(t, err)
	assert.Equal(t, "Time Out Market", stop.Name)

	// Models occasionally wrap the object in a one-element array.
	stop, err = parseSinglePlaceResponse("[" + object + "]")
	require.NoError(t, err)
	assert.Equal(t, "Time Out Market", stop.Name)

	_, err = parseSinglePlaceResponse("[]")
	assert.Error(t, err)
}
