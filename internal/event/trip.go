package event

import (
	"github.com/gennadis/tripchat/internal/chat"
	"github.com/tidwall/gjson"
)

const itineraryKey = "daily_itinerary"

// NormalizeTrip converts a raw server trip record into a TripPlan.
// Absent, null or malformed input yields a plan with zero days.
//
// Days keep the order in which they appear in the server JSON. The day keys
// are discarded and never used for sorting, so a server that reorders its map
// reorders the plan.
func NormalizeTrip(raw string) chat.TripPlan {
	if !gjson.Valid(raw) {
		return chat.TripPlan{Days: []chat.DayPlan{}}
	}
	return normalizeTrip(gjson.Parse(raw))
}

func normalizeTrip(trip gjson.Result) chat.TripPlan {
	plan := chat.TripPlan{Days: []chat.DayPlan{}}
	if !trip.IsObject() {
		return plan
	}

	days := trip.Get(itineraryKey)
	if !days.Exists() {
		// older servers send the day map without the wrapper
		days = trip
	}
	if !days.IsObject() {
		return plan
	}

	days.ForEach(func(_, day gjson.Result) bool {
		if isDay(day) {
			plan.Days = append(plan.Days, toDayPlan(day))
		}
		return true
	})
	return plan
}

func isDay(v gjson.Result) bool {
	return v.IsObject() && (v.Get("date").Exists() || v.Get("activities").Exists())
}

func toDayPlan(day gjson.Result) chat.DayPlan {
	dp := chat.DayPlan{
		Date:   day.Get("date").String(),
		Places: []chat.PlaceVisit{},
	}

	for _, act := range day.Get("activities").Array() {
		if !act.IsObject() {
			continue
		}
		dp.Places = append(dp.Places, chat.PlaceVisit{
			Time:      act.Get("time").String(),
			Name:      act.Get("description").String(),
			Location:  act.Get("location").String(),
			Transport: chat.DefaultTransport,
			Lat:       act.Get("lat").Float(),
			Lng:       act.Get("lng").Float(),
		})
	}
	return dp
}
