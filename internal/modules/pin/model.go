// README: Pin documents as stored in Firestore.
package pin

import (
	"errors"
	"strings"
	"time"

	"bantay/internal/geo"
)

var (
	ErrNotFound   = errors.New("pin not found")
	ErrInvalidPin = errors.New("invalid pin")
)

type Pin struct {
	ID           string    `firestore:"-" json:"id"`
	Type         string    `firestore:"type" json:"type"`
	Title        string    `firestore:"title" json:"title"`
	Description  string    `firestore:"description,omitempty" json:"description,omitempty"`
	ReportID     string    `firestore:"reportId,omitempty" json:"reportId,omitempty"`
	LocationName string    `firestore:"locationName,omitempty" json:"locationName,omitempty"`
	Lat          float64   `firestore:"lat" json:"lat"`
	Lng          float64   `firestore:"lng" json:"lng"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

func (p Pin) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidPin
	}
	if !geo.Valid(p.Lat, p.Lng) {
		return ErrInvalidPin
	}
	return nil
}
