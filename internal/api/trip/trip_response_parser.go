package trip

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
	codeFenceRe  = regexp.MustCompile("```(?:json)?")
)

// cleanModelResponse strips reasoning delimiters and incidental code-fence
// markup some models emit despite instructions.
func cleanModelResponse(txt string) string {
	txt = thinkBlockRe.ReplaceAllString(txt, "")
	txt = codeFenceRe.ReplaceAllString(txt, "")
	return strings.TrimSpace(txt)
}

// parseItineraryResponse validates the model output against the drafting
// schema: day-number string keys mapping to stop arrays, each stop with a
// name and the fixed null enrichment placeholders. The model's output is
// untrusted text; anything off-schema is rejected rather than coerced.
func parseItineraryResponse(jsonStr string) (map[int][]types.DraftStop, error) {
	var raw map[string][]types.DraftStop
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse itinerary JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("itinerary JSON contains no days")
	}

	itinerary := make(map[int][]types.DraftStop, len(raw))
	for key, stops := range raw {
		dayNumber, err := strconv.Atoi(key)
		if err != nil || dayNumber < 1 {
			return nil, fmt.Errorf("invalid day key %q in itinerary JSON", key)
		}
		for i, stop := range stops {
			if err := validateDraftStop(stop); err != nil {
				return nil, fmt.Errorf("day %d stop %d: %w", dayNumber, i, err)
			}
		}
		itinerary[dayNumber] = stops
	}
	return itinerary, nil
}

// parseSinglePlaceResponse accepts the single-place schema either as a bare
// object or wrapped in a one-element array, which some models produce.
func parseSinglePlaceResponse(jsonStr string) (types.DraftStop, error) {
	var stop types.DraftStop
	if err := json.Unmarshal([]byte(jsonStr), &stop); err != nil {
		var arr []types.DraftStop
		if arrErr := json.Unmarshal([]byte(jsonStr), &arr); arrErr != nil || len(arr) == 0 {
			return types.DraftStop{}, fmt.Errorf("failed to parse place JSON: %w", err)
		}
		stop = arr[0]
	}
	if err := validateDraftStop(stop); err != nil {
		return types.DraftStop{}, err
	}
	return stop, nil
}

func validateDraftStop(stop types.DraftStop) error {
	if strings.TrimSpace(stop.Name) == "" {
		return fmt.Errorf("stop is missing a name")
	}
	if stop.Start == "" || stop.End == "" {
		return fmt.Errorf("stop %q is missing a time window", stop.Name)
	}
	if stop.Image != nil || stop.GeoLocation != nil {
		return fmt.Errorf("stop %q has non-null enrichment placeholders", stop.Name)
	}
	return nil
}
