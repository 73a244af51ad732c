package services

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// SeedCities are the cities used for generated inventory
var SeedCities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose",
	"Austin", "Jacksonville", "San Francisco", "Seattle", "Denver",
	"Washington DC", "Boston", "Nashville", "Las Vegas", "Portland",
}

type seedProfile struct {
	minPrice, maxPrice int // whole dollars
	minHours, maxHours int
	capacities         []int
	operators          []string
	vehiclePrefix      string
}

var seedProfiles = map[models.TravelType]seedProfile{
	models.TravelTypeFlight: {150, 800, 1, 6, []int{120, 150, 180, 220}, []string{"Delta Airlines", "United Airlines", "American Airlines", "Southwest"}, "FL"},
	models.TravelTypeTrain:  {50, 300, 3, 12, []int{200, 300, 400}, []string{"Amtrak", "Brightline"}, "TR"},
	models.TravelTypeBus:    {20, 150, 4, 15, []int{30, 40, 50, 55}, []string{"Greyhound", "Megabus", "FlixBus"}, "BU"},
}

var seedTypes = []models.TravelType{models.TravelTypeFlight, models.TravelTypeTrain, models.TravelTypeBus}

// SampleTravelOptions returns the three demo options from New York to Los Angeles
func SampleTravelOptions() []*models.TravelOption {
	date := models.NewDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	str := func(s string) *string { return &s }

	return []*models.TravelOption{
		{
			Type: models.TravelTypeFlight, Source: "New York", Destination: "Los Angeles",
			DepartureDate: date, DepartureTime: "2:30 PM", ArrivalTime: "5:00 PM", Duration: "5h 30m",
			Price: models.NewMoneyFromCents(29900), AvailableSeats: 150, TotalSeats: 150,
			Airline: str("Delta Airlines"), VehicleNumber: str("DL 1234"),
		},
		{
			Type: models.TravelTypeTrain, Source: "New York", Destination: "Los Angeles",
			DepartureDate: date, DepartureTime: "8:45 AM", ArrivalTime: "8:00 PM", Duration: "8h 15m",
			Price: models.NewMoneyFromCents(18900), AvailableSeats: 200, TotalSeats: 200,
			TrainOperator: str("Amtrak"), VehicleNumber: str("AM 456"),
		},
		{
			Type: models.TravelTypeBus, Source: "New York", Destination: "Los Angeles",
			DepartureDate: date, DepartureTime: "11:30 PM", ArrivalTime: "3:15 PM", Duration: "12h 45m",
			Price: models.NewMoneyFromCents(8900), AvailableSeats: 50, TotalSeats: 50,
			BusOperator: str("Greyhound"), VehicleNumber: str("GH 789"),
		},
	}
}

// GenerateTravelOptions builds count random options between distinct cities departing
// within days of start. Every option starts fully available.
func GenerateTravelOptions(rng *rand.Rand, start time.Time, days, count int) []*models.TravelOption {
	if days < 1 {
		days = 1
	}

	opts := make([]*models.TravelOption, 0, count)
	for i := 0; i < count; i++ {
		travelType := seedTypes[rng.Intn(len(seedTypes))]
		profile := seedProfiles[travelType]

		source := SeedCities[rng.Intn(len(SeedCities))]
		destination := source
		for destination == source {
			destination = SeedCities[rng.Intn(len(SeedCities))]
		}

		departure := time.Date(start.Year(), start.Month(), start.Day(), 6+rng.Intn(18), 15*rng.Intn(4), 0, 0, time.UTC).
			AddDate(0, 0, rng.Intn(days))
		travelTime := time.Duration(profile.minHours+rng.Intn(profile.maxHours-profile.minHours+1))*time.Hour +
			time.Duration(rng.Intn(60))*time.Minute
		arrival := departure.Add(travelTime)

		seats := profile.capacities[rng.Intn(len(profile.capacities))]
		dollars := profile.minPrice + rng.Intn(profile.maxPrice-profile.minPrice+1)
		operator := profile.operators[rng.Intn(len(profile.operators))]
		vehicle := fmt.Sprintf("%s %d", profile.vehiclePrefix, 1000+rng.Intn(9000))

		req := models.CreateTravelOptionRequest{
			Type:          travelType,
			Source:        source,
			Destination:   destination,
			DepartureDate: departure.Format(models.DateLayout),
			DepartureTime: departure.Format("3:04 PM"),
			ArrivalTime:   arrival.Format("3:04 PM"),
			Duration:      formatDuration(travelTime),
			Price:         models.NewMoneyFromCents(int64(dollars) * 100),
			Seats:         seats,
			Operator:      operator,
			VehicleNumber: vehicle,
		}
		opts = append(opts, req.ToTravelOption())
	}
	return opts
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
