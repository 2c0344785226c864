package models

import "time"

// Line identifies the transit line an intervention happened on. The set is
// closed except for LineOther, which carries a free-text label.
type Line string

const (
	LineA     Line = "A"
	LineB     Line = "B"
	LineC     Line = "C"
	LineOther Line = "Autres"
)

// Valid reports whether the line is one of the known values.
func (l Line) Valid() bool {
	switch l {
	case LineA, LineB, LineC, LineOther:
		return true
	default:
		return false
	}
}

// RequiresCustomLabel reports whether a free-text label must accompany the line.
func (l Line) RequiresCustomLabel() bool {
	return l == LineOther
}

// IncidentType pairs a counter key with its display label.
type IncidentType struct {
	Key   string
	Label string
}

// IncidentTypes is the fixed, ordered set of incident counters carried by
// every intervention record.
var IncidentTypes = []IncidentType{
	{Key: "regulation", Label: "Régulations"},
	{Key: "incivility", Label: "Incivilités"},
	{Key: "help", Label: "Aides"},
	{Key: "information", Label: "Renseignements"},
	{Key: "link", Label: "Liens"},
	{Key: "bike_scooter", Label: "Vélo/Trottinette"},
	{Key: "stroller", Label: "Poussettes"},
	{Key: "physical_aggression", Label: "Agressions physiques"},
	{Key: "verbal_aggression", Label: "Agressions verbales"},
	{Key: "other", Label: "Autres"},
}

// InterventionCounts tallies occurrences per incident type on one record.
type InterventionCounts struct {
	Regulation         int `db:"regulation" json:"regulation"`
	Incivility         int `db:"incivility" json:"incivility"`
	Help               int `db:"help" json:"help"`
	Information        int `db:"information" json:"information"`
	Link               int `db:"link" json:"link"`
	BikeScooter        int `db:"bike_scooter" json:"bike_scooter"`
	Stroller           int `db:"stroller" json:"stroller"`
	PhysicalAggression int `db:"physical_aggression" json:"physical_aggression"`
	VerbalAggression   int `db:"verbal_aggression" json:"verbal_aggression"`
	Other              int `db:"other" json:"other"`
}

// Values returns the counters in IncidentTypes order.
func (c InterventionCounts) Values() []int {
	return []int{
		c.Regulation,
		c.Incivility,
		c.Help,
		c.Information,
		c.Link,
		c.BikeScooter,
		c.Stroller,
		c.PhysicalAggression,
		c.VerbalAggression,
		c.Other,
	}
}

// Clamp floors every counter at zero. Counters are never allowed to go
// negative regardless of the delta a caller computed.
func (c *InterventionCounts) Clamp() {
	fields := []*int{
		&c.Regulation,
		&c.Incivility,
		&c.Help,
		&c.Information,
		&c.Link,
		&c.BikeScooter,
		&c.Stroller,
		&c.PhysicalAggression,
		&c.VerbalAggression,
		&c.Other,
	}
	for _, f := range fields {
		if *f < 0 {
			*f = 0
		}
	}
}

// Add accumulates another record's counters into this one.
func (c *InterventionCounts) Add(other InterventionCounts) {
	c.Regulation += other.Regulation
	c.Incivility += other.Incivility
	c.Help += other.Help
	c.Information += other.Information
	c.Link += other.Link
	c.BikeScooter += other.BikeScooter
	c.Stroller += other.Stroller
	c.PhysicalAggression += other.PhysicalAggression
	c.VerbalAggression += other.VerbalAggression
	c.Other += other.Other
}

// Total sums every counter.
func (c InterventionCounts) Total() int {
	total := 0
	for _, v := range c.Values() {
		total += v
	}
	return total
}

// Intervention is one vehicle registration with its incident tallies,
// owned by the operator who created it.
type Intervention struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Date          time.Time `db:"date" json:"date"`
	Time          string    `db:"time" json:"time"`
	Line          Line      `db:"line" json:"line"`
	CustomLine    *string   `db:"custom_line" json:"custom_line,omitempty"`
	VehicleNumber string    `db:"vehicle_number" json:"vehicle_number"`
	Stop          string    `db:"stop" json:"stop"`
	InterventionCounts
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DailySummary aggregates a single operator day. Derived on demand, never
// persisted, so it cannot go stale.
type DailySummary struct {
	Date        string             `json:"date"`
	OperatorID  string             `json:"operator_id"`
	RecordCount int                `json:"record_count"`
	Totals      InterventionCounts `json:"totals"`
	Details     []Intervention     `json:"details"`
}
