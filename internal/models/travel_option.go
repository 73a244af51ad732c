package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TravelType is the mode of transport of a travel option
type TravelType string

const (
	TravelTypeFlight TravelType = "flight"
	TravelTypeTrain  TravelType = "train"
	TravelTypeBus    TravelType = "bus"
)

// IsValid reports whether t is one of the supported modes
func (t TravelType) IsValid() bool {
	switch t {
	case TravelTypeFlight, TravelTypeTrain, TravelTypeBus:
		return true
	}
	return false
}

// MaxPrice is the largest price a NUMERIC(10,2) column holds
const MaxPrice = Money(9999999999)

// TravelOption is one bookable flight, train or bus departure with its remaining seats
type TravelOption struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Type           TravelType `json:"type" db:"type"`
	Source         string     `json:"source" db:"source"`
	Destination    string     `json:"destination" db:"destination"`
	DepartureDate  Date       `json:"departureDate" db:"departure_date"`
	DepartureTime  string     `json:"departureTime" db:"departure_time"`
	ArrivalTime    string     `json:"arrivalTime" db:"arrival_time"`
	Duration       string     `json:"duration" db:"duration"`
	Price          Money      `json:"price" db:"price"`
	AvailableSeats int        `json:"availableSeats" db:"available_seats"`
	TotalSeats     int        `json:"totalSeats" db:"total_seats"`
	Airline        *string    `json:"airline,omitempty" db:"airline"`
	TrainOperator  *string    `json:"trainOperator,omitempty" db:"train_operator"`
	BusOperator    *string    `json:"busOperator,omitempty" db:"bus_operator"`
	VehicleNumber  *string    `json:"vehicleNumber,omitempty" db:"vehicle_number"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// Operator returns the carrier name matching the option's mode of transport
func (t *TravelOption) Operator() string {
	var op *string
	switch t.Type {
	case TravelTypeFlight:
		op = t.Airline
	case TravelTypeTrain:
		op = t.TrainOperator
	case TravelTypeBus:
		op = t.BusOperator
	}
	if op == nil {
		return ""
	}
	return *op
}

// HasSeats reports whether n seats can currently be booked
func (t *TravelOption) HasSeats(n int) bool {
	return t.AvailableSeats >= n
}

// CreateTravelOptionRequest is the admin payload for adding inventory
type CreateTravelOptionRequest struct {
	Type          TravelType `json:"type" binding:"required"`
	Source        string     `json:"source" binding:"required"`
	Destination   string     `json:"destination" binding:"required"`
	DepartureDate string     `json:"departureDate" binding:"required"`
	DepartureTime string     `json:"departureTime"`
	ArrivalTime   string     `json:"arrivalTime"`
	Duration      string     `json:"duration"`
	Price         Money      `json:"price"`
	Seats         int        `json:"seats"`
	Operator      string     `json:"operator"`
	VehicleNumber string     `json:"vehicleNumber"`
}

// Validate validates the request
func (r *CreateTravelOptionRequest) Validate() error {
	if !r.Type.IsValid() {
		return ErrInvalidField("type", "must be one of flight, train, bus")
	}
	if strings.TrimSpace(r.Source) == "" {
		return ErrInvalidField("source", "is required")
	}
	if strings.TrimSpace(r.Destination) == "" {
		return ErrInvalidField("destination", "is required")
	}
	if _, err := ParseDate(r.DepartureDate); err != nil {
		return ErrInvalidField("departureDate", err.Error())
	}
	if r.Price <= 0 {
		return ErrInvalidField("price", "must be greater than zero")
	}
	if r.Price > MaxPrice {
		return ErrInvalidField("price", "must be at most "+MaxPrice.String())
	}
	if r.Seats < 1 {
		return ErrInvalidField("seats", "must be at least 1")
	}
	return nil
}

// ToTravelOption builds the record to insert. Validate must have passed.
func (r *CreateTravelOptionRequest) ToTravelOption() *TravelOption {
	date, _ := ParseDate(r.DepartureDate)
	opt := &TravelOption{
		Type:           r.Type,
		Source:         strings.TrimSpace(r.Source),
		Destination:    strings.TrimSpace(r.Destination),
		DepartureDate:  date,
		DepartureTime:  r.DepartureTime,
		ArrivalTime:    r.ArrivalTime,
		Duration:       r.Duration,
		Price:          r.Price,
		AvailableSeats: r.Seats,
		TotalSeats:     r.Seats,
	}
	if r.VehicleNumber != "" {
		vehicle := r.VehicleNumber
		opt.VehicleNumber = &vehicle
	}
	if r.Operator != "" {
		operator := r.Operator
		switch r.Type {
		case TravelTypeFlight:
			opt.Airline = &operator
		case TravelTypeTrain:
			opt.TrainOperator = &operator
		case TravelTypeBus:
			opt.BusOperator = &operator
		}
	}
	return opt
}

// InventoryDiscrepancy is a travel option whose seat counts break
// total_seats = available_seats + confirmed seats
type InventoryDiscrepancy struct {
	TravelOptionID uuid.UUID `json:"travelOptionId" db:"travel_option_id"`
	Source         string    `json:"source" db:"source"`
	Destination    string    `json:"destination" db:"destination"`
	TotalSeats     int       `json:"totalSeats" db:"total_seats"`
	AvailableSeats int       `json:"availableSeats" db:"available_seats"`
	ConfirmedSeats int       `json:"confirmedSeats" db:"confirmed_seats"`
}

// Drift is the number of seats unaccounted for (negative means oversold)
func (d InventoryDiscrepancy) Drift() int {
	return d.TotalSeats - d.AvailableSeats - d.ConfirmedSeats
}
