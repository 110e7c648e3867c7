// Package catalog resolves service codes to bookable procedures. Every
// clinic sees the system defaults; a clinic may override or extend them, and
// override entries fully replace same-keyed defaults.
package catalog

import "github.com/clinicware/booking-engine/internal/timeparse"

// FallbackCode is used whenever a referenced code cannot be resolved.
const FallbackCode = "consultation"

// defaultDurationMinutes applies when an entry carries no usable duration.
const defaultDurationMinutes = 30

// Entry describes one bookable procedure.
type Entry struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Defaults returns the system service catalog. The map is rebuilt on every
// call so callers can mutate their copy freely.
func Defaults() map[string]Entry {
	return map[string]Entry{
		"resin_filling": {
			Code:            "resin_filling",
			Name:            "Resin Filling",
			Description:     "Tooth-colored resin restoration for cavities and chipped teeth.",
			DurationMinutes: 50,
		},
		"botox": {
			Code:            "botox",
			Name:            "Botox",
			Description:     "Botulinum toxin application for fine lines and jaw tension.",
			DurationMinutes: 30,
		},
		"cleaning": {
			Code:            "cleaning",
			Name:            "Dental Cleaning",
			Description:     "Professional plaque and tartar removal with polishing.",
			DurationMinutes: 40,
		},
		"whitening": {
			Code:            "whitening",
			Name:            "Teeth Whitening",
			Description:     "In-office whitening session for a visibly brighter smile.",
			DurationMinutes: 60,
		},
		"consultation": {
			Code:            "consultation",
			Name:            "Consultation",
			Description:     "Initial evaluation to assess your needs and plan treatment.",
			DurationMinutes: 30,
		},
	}
}

// Resolver performs the two-tier code lookup: clinic override first, then
// system defaults, then the consultation fallback.
type Resolver struct {
	defaults map[string]Entry
}

// NewResolver builds a resolver over the system defaults.
func NewResolver() *Resolver {
	return &Resolver{defaults: Defaults()}
}

// Resolve returns the entry for code, consulting the clinic override map
// before the defaults. An unknown code resolves to the consultation entry.
func (r *Resolver) Resolve(override map[string]Entry, code string) Entry {
	if entry, ok := override[code]; ok {
		return entry
	}
	if entry, ok := r.defaults[code]; ok {
		return entry
	}
	if entry, ok := override[FallbackCode]; ok {
		return entry
	}
	return r.defaults[FallbackCode]
}

// DurationMinutes returns a positive appointment length for code, applying
// the unit heuristic and the 30-minute default for missing values.
func (r *Resolver) DurationMinutes(override map[string]Entry, code string) int {
	entry := r.Resolve(override, code)
	if entry.DurationMinutes <= 0 {
		return defaultDurationMinutes
	}
	return timeparse.NormalizeDurationMinutes(entry.DurationMinutes)
}

// Merged returns the effective catalog for a clinic: defaults plus override
// entries, override winning on key collisions (shallow merge).
func (r *Resolver) Merged(override map[string]Entry) map[string]Entry {
	merged := make(map[string]Entry, len(r.defaults)+len(override))
	for code, entry := range r.defaults {
		merged[code] = entry
	}
	for code, entry := range override {
		merged[code] = entry
	}
	return merged
}
