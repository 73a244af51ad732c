package utils

import (
	"strings"

	"github.com/google/uuid"
)

// BookingReferencePrefix starts every booking reference
const BookingReferencePrefix = "BK"

const bookingReferenceSuffixLength = 8

// GenerateBookingReference returns a short human-readable reference such as BK7F3A91C2.
// References are random, so callers must handle the rare collision.
func GenerateBookingReference() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:bookingReferenceSuffixLength]
	return BookingReferencePrefix + strings.ToUpper(suffix)
}
