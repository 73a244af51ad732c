package models

import (
	"strings"
)

const DefaultPassengers = 1

// SearchRequest holds the travel option search criteria from the query string
type SearchRequest struct {
	Type          string `form:"type" json:"type,omitempty"`
	Source        string `form:"source" json:"source"`
	Destination   string `form:"destination" json:"destination"`
	DepartureDate string `form:"departureDate" json:"departureDate"`
	Passengers    *int   `form:"passengers" json:"passengers,omitempty"`
	MaxPrice      string `form:"maxPrice" json:"maxPrice,omitempty"`
}

// SearchCriteria is a validated SearchRequest ready for the store
type SearchCriteria struct {
	Type          *TravelType
	Source        string
	Destination   string
	DepartureDate Date
	Passengers    int
	MaxPrice      *Money
}

// Validate validates the search request and returns normalized criteria.
// Source and destination are matched exactly, so they are not trimmed or case-folded.
func (r *SearchRequest) Validate() (*SearchCriteria, error) {
	if r.Source == "" {
		return nil, ErrInvalidField("source", "is required")
	}
	if r.Destination == "" {
		return nil, ErrInvalidField("destination", "is required")
	}
	if r.DepartureDate == "" {
		return nil, ErrInvalidField("departureDate", "is required")
	}
	date, err := ParseDate(r.DepartureDate)
	if err != nil {
		return nil, ErrInvalidField("departureDate", err.Error())
	}

	passengers := DefaultPassengers
	if r.Passengers != nil {
		passengers = *r.Passengers
	}
	if passengers < MinSeatsPerBooking || passengers > MaxSeatsPerBooking {
		return nil, ErrInvalidField("passengers", "must be between 1 and 10")
	}

	criteria := &SearchCriteria{
		Source:        r.Source,
		Destination:   r.Destination,
		DepartureDate: date,
		Passengers:    passengers,
	}

	if t := strings.TrimSpace(r.Type); t != "" && t != "all" {
		travelType := TravelType(t)
		if !travelType.IsValid() {
			return nil, ErrInvalidField("type", "must be one of flight, train, bus")
		}
		criteria.Type = &travelType
	}

	if r.MaxPrice != "" {
		maxPrice, err := ParseMoney(r.MaxPrice)
		if err != nil || maxPrice <= 0 {
			return nil, ErrInvalidField("maxPrice", "must be a positive amount")
		}
		criteria.MaxPrice = &maxPrice
	}

	return criteria, nil
}

// PopularRoute is a frequently searched source/destination pair
type PopularRoute struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	SearchCount int64  `json:"searchCount"`
}
