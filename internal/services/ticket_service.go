package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// TicketService renders e-tickets
type TicketService struct {
	compress bool
}

// NewTicketService creates a new ticket service
func NewTicketService() *TicketService {
	return &TicketService{compress: true}
}

// TicketFilename is the download name of a booking's e-ticket
func TicketFilename(booking *models.BookingWithTravelOption) string {
	return fmt.Sprintf("ticket-%s.pdf", booking.BookingReference)
}

// RenderTicket renders booking as a one-page PDF e-ticket
func (s *TicketService) RenderTicket(booking *models.BookingWithTravelOption) ([]byte, error) {
	option := booking.TravelOption

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(s.compress)
	pdf.SetTitle("E-Ticket "+booking.BookingReference, false)
	pdf.AddPage()
	// Core fonts are cp1252; user text arrives as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Booking reference: "+booking.BookingReference)
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Status: "+strings.ToUpper(string(booking.Status)))
	pdf.Ln(10)

	lines := []string{
		fmt.Sprintf("%s: %s -> %s", capitalize(string(option.Type)), option.Source, option.Destination),
		fmt.Sprintf("Departure: %s %s", option.DepartureDate.String(), option.DepartureTime),
		fmt.Sprintf("Arrival: %s   Duration: %s", dash(option.ArrivalTime), dash(option.Duration)),
		fmt.Sprintf("Operator: %s   Vehicle: %s", dash(option.Operator()), dash(deref(option.VehicleNumber))),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passenger")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	passenger := booking.PassengerDetails
	for _, line := range []string{
		"Name: " + passenger.Name,
		"Email: " + passenger.Email,
		"Phone: " + passenger.Phone,
		fmt.Sprintf("Seats: %d   Seat numbers: %s", booking.NumberOfSeats, dash(deref(booking.SeatNumbers))),
	} {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total paid: $"+booking.TotalPrice.String())
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this e-ticket with a photo ID at departure. Cancelled bookings are not valid for travel.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket: %w", err)
	}
	return buf.Bytes(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
