package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tier identifies a registration fee tier. Tiers partition a pool's
// capacity for pricing purposes; they never gate seats on their own.
type Tier string

const (
	TierGeneral    Tier = "general"    // walk-in registration, free
	TierSpecialist Tier = "specialist" // senior doctor consultation
	TierSpecial    Tier = "special"    // special-needs consultation
)

// Known reports whether the tier is one of the defined fee tiers.
func (t Tier) Known() bool {
	switch t {
	case TierGeneral, TierSpecialist, TierSpecial:
		return true
	}
	return false
}

// TierCounts maps a registration tier to an integer seat count.
type TierCounts map[Tier]int

// Extra is the availability row's metadata blob. The per-tier counters
// are typed and validated at the pool-write boundary; any other keys an
// operator stores alongside them are carried through verbatim.
type Extra struct {
	CapacityTypes TierCounts
	BookedTypes   TierCounts
	Passthrough   map[string]json.RawMessage
}

// MarshalJSON renders the typed counters next to the passthrough keys
// so the stored JSON round-trips unchanged.
func (e Extra) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Passthrough)+2)
	for k, v := range e.Passthrough {
		out[k] = v
	}
	if e.CapacityTypes != nil {
		b, err := json.Marshal(e.CapacityTypes)
		if err != nil {
			return nil, err
		}
		out["capacity_types"] = b
	}
	if e.BookedTypes != nil {
		b, err := json.Marshal(e.BookedTypes)
		if err != nil {
			return nil, err
		}
		out["booked_types"] = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the typed counters from passthrough keys.
func (e *Extra) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Extra{}
	if b, ok := raw["capacity_types"]; ok {
		if err := json.Unmarshal(b, &e.CapacityTypes); err != nil {
			return err
		}
		delete(raw, "capacity_types")
	}
	if b, ok := raw["booked_types"]; ok {
		if err := json.Unmarshal(b, &e.BookedTypes); err != nil {
			return err
		}
		delete(raw, "booked_types")
	}
	if len(raw) > 0 {
		e.Passthrough = raw
	}
	return nil
}

// Validate checks the typed counters on the pool-write boundary. Every
// tier must be a defined fee tier and every count non-negative.
// Passthrough keys are not inspected.
func (e Extra) Validate() error {
	for name, counts := range map[string]TierCounts{"capacity_types": e.CapacityTypes, "booked_types": e.BookedTypes} {
		for tier, n := range counts {
			if !tier.Known() {
				return fmt.Errorf("%s: unknown tier %q", name, tier)
			}
			if n < 0 {
				return fmt.Errorf("%s: negative count %d for tier %q", name, n, tier)
			}
		}
	}
	return nil
}

// AvailableByTier derives remaining seats per tier for calendar views.
// Returns nil when no per-tier capacities are configured.
func (e Extra) AvailableByTier() TierCounts {
	if len(e.CapacityTypes) == 0 {
		return nil
	}
	out := make(TierCounts, len(e.CapacityTypes))
	for tier, cap := range e.CapacityTypes {
		avail := cap - e.BookedTypes[tier]
		if avail < 0 {
			avail = 0
		}
		out[tier] = avail
	}
	return out
}

// Availability is one slot row of a doctor's daily pool. All rows
// sharing (doctor_id, date) hold identical capacity and booked values;
// slots are a calendar dimension over one shared day-level counter,
// not independent quotas.
//
// Fields:
//  ID        – primary key identifier.
//  DoctorID  – doctor whose day this row belongs to.
//  Date      – calendar day in YYYY-MM-DD form, no time component.
//  Slot      – time-window label such as "8-10".
//  Capacity  – shared day capacity, duplicated per slot row.
//  Booked    – shared day booked counter, duplicated per slot row.
//  Extra     – typed tier counters plus passthrough metadata.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Availability struct {
	ID        uint64     `json:"id"`         // doctor_availability.id
	DoctorID  uint64     `json:"doctor_id"`  // doctor_availability.doctor_id
	Date      string     `json:"date"`       // doctor_availability.date
	Slot      string     `json:"slot"`       // doctor_availability.slot
	Capacity  int        `json:"capacity"`   // doctor_availability.capacity
	Booked    int        `json:"booked"`     // doctor_availability.booked
	Extra     Extra      `json:"extra"`      // doctor_availability.extra
	CreatedAt time.Time  `json:"created_at"` // doctor_availability.created_at
	UpdatedAt time.Time  `json:"updated_at"` // doctor_availability.updated_at
	Available TierCounts `json:"available_by_tier,omitempty"`
}

// dateLayouts are the accepted inputs for pool dates. Whatever the
// caller sends, only the calendar day survives.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// NormalizeDate strips any time-of-day component and returns the bare
// calendar date in YYYY-MM-DD form. The pool is keyed by calendar date
// only.
func NormalizeDate(raw string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", raw)
}
