package trip

import (
	"fmt"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func itineraryPrompt(destination string, noOfDays, noOfTravelers int, budget types.BudgetTier, notes string) string {
	notePart := ""
	if notes != "" {
		notePart = fmt.Sprintf("The person has provided this note with preferences and additional information: %q.", notes)
	}

	return fmt.Sprintf(`
You are a professional travel planner. Create a %d-day full-day itinerary for %s.
It should include touristy places as well as exciting and unique locations.
Be specific with location names so they can be found on Google Maps. Do not use generic names like "Broadway Show". Use specific venues.

The budget is %s for the whole trip.
Travelers: %d.
%s

Output strictly valid JSON. Do not include markdown formatting like `+"```json"+`. Just the raw JSON object.

The JSON structure must be exactly:
{
  "1": [
    {
      "name": "Exact Name of Place",
      "description": "Short engaging description.",
      "start": "9:00 AM",
      "end": "11:00 AM",
      "image": null,
      "geo_location": null
    },
    ...
  ],
  "2": [ ... ]
}

Guidelines:
- Keys "1", "2", etc. represent the day number.
- "name": Exact name of the point of interest. No verbs.
- "start" and "end": 12-hour format (e.g., "9:00 AM"). Times must be sequential within a day.
- "image": Always null.
- "geo_location": Always null.
`, noOfDays, destination, budget.RangeText(), noOfTravelers, notePart)
}

func singlePlacePrompt(placeName, destination string) string {
	return fmt.Sprintf(`I need information on %s, %s for a travel itinerary.
Output strictly valid JSON. Do not include markdown formatting.

JSON format:
{
  "name": %q,
  "description": "Engaging description or 'No description available.'",
  "start": "9:00 AM",
  "end": "10:00 AM",
  "image": null,
  "geo_location": null
}
`, placeName, destination, placeName)
}
