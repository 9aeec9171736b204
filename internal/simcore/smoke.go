package simcore

import "strconv"

// SmokeCloud is a time-bounded area that obscures visibility and degrades
// accuracy for units firing through or standing inside it.
type SmokeCloud struct {
	ID        string
	Center    Vec2
	Radius    float64
	Remaining float64 // seconds
}

// SmokeManager owns the set of active smoke clouds.
type SmokeManager struct {
	clouds map[string]*SmokeCloud
	nextID int
}

// NewSmokeManager constructs an empty SmokeManager.
func NewSmokeManager() *SmokeManager {
	return &SmokeManager{clouds: make(map[string]*SmokeCloud)}
}

// Spawn adds a new cloud at center, lasting durationSeconds.
func (s *SmokeManager) Spawn(center Vec2, radius, durationSeconds float64) *SmokeCloud {
	s.nextID++
	c := &SmokeCloud{ID: "smoke-" + strconv.Itoa(s.nextID), Center: center, Radius: radius, Remaining: durationSeconds}
	s.clouds[c.ID] = c
	return c
}

// Update decays every cloud's remaining lifetime by dt seconds and drops
// any that have expired.
func (s *SmokeManager) Update(dt float64) {
	for id, c := range s.clouds {
		c.Remaining -= dt
		if c.Remaining <= 0 {
			delete(s.clouds, id)
		}
	}
}

// IsPointObscured reports whether p falls inside any active cloud.
func (s *SmokeManager) IsPointObscured(p Vec2) bool {
	for _, c := range s.clouds {
		if p.DistanceTo(c.Center) <= c.Radius {
			return true
		}
	}
	return false
}

// Clouds returns the active clouds; callers must not mutate the slice's
// contents.
func (s *SmokeManager) Clouds() []*SmokeCloud {
	out := make([]*SmokeCloud, 0, len(s.clouds))
	for _, c := range s.clouds {
		out = append(out, c)
	}
	return out
}
