package dto

type OccupiedRange struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Occupancy lists the nights taken at a unit inside the requested window.
type Occupancy struct {
	UnitID string          `json:"unit_id"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Nights []OccupiedRange `json:"nights"`
}
