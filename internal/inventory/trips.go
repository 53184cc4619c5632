package inventory

import (
	"fmt"
	"sort"
	"strings"
)

// TripInput is a new trip
type TripInput struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Note      string `json:"note,omitempty"`
}

// CreateTrip saves a new trip. The start date defaults to today.
func (s *Service) CreateTrip(input TripInput) (*Trip, error) {
	trip := &Trip{
		ID:        s.idGenerator.Generate(),
		Name:      strings.TrimSpace(input.Name),
		StartDate: strings.TrimSpace(input.StartDate),
		EndDate:   strings.TrimSpace(input.EndDate),
		Note:      strings.TrimSpace(input.Note),
		CreatedAt: s.timeSource.Now(),
	}
	if trip.Name == "" {
		return nil, fmt.Errorf("trip name is required: %w", ErrInvalid)
	}
	if trip.StartDate == "" {
		trip.StartDate = s.today()
	}
	if !isDate(trip.StartDate) || (trip.EndDate != "" && !isDate(trip.EndDate)) {
		return nil, fmt.Errorf("trip dates must be YYYY-MM-DD: %w", ErrInvalid)
	}
	if trip.EndDate != "" && trip.EndDate < trip.StartDate {
		return nil, fmt.Errorf("trip ends before it starts: %w", ErrInvalid)
	}

	if err := s.db.SaveTrip(trip); err != nil {
		return nil, fmt.Errorf("saving trip: %w", err)
	}
	return trip, nil
}

// ListTrips returns trips, latest start first
func (s *Service) ListTrips() ([]*Trip, error) {
	trips, err := s.db.ListTrips()
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	sortTrips(trips)
	return trips, nil
}

func sortTrips(trips []*Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		if trips[i].StartDate != trips[j].StartDate {
			return trips[i].StartDate > trips[j].StartDate
		}
		return trips[i].CreatedAt.After(trips[j].CreatedAt)
	})
}

// DeleteTrip removes a trip. Its invoices are kept and detached from it.
func (s *Service) DeleteTrip(id string) error {
	if _, err := s.db.GetTrip(id); err != nil {
		return fmt.Errorf("getting trip for deletion: %w", err)
	}

	invoices, err := s.db.ListInvoicesByTrip(id)
	if err != nil {
		return fmt.Errorf("listing trip invoices: %w", err)
	}
	now := s.timeSource.Now()
	for _, invoice := range invoices {
		invoice.TripID = ""
		invoice.UpdatedAt = now
		if err := s.db.SaveInvoice(invoice); err != nil {
			return fmt.Errorf("detaching invoice %s: %w", invoice.ID, err)
		}
	}

	if err := s.db.DeleteTrip(id); err != nil {
		return fmt.Errorf("deleting trip: %w", err)
	}
	return nil
}
