package simcore

import (
	"math"
	"sort"
)

// ChecksumUnits computes the deterministic per-tick checksum used to
// detect desyncs between lockstep clients. Units are folded in id-sorted
// order so that map iteration order never affects the result; fixed-point
// projections of floats (scaled x100 and floored) tolerate sub-centimeter
// float divergence between nodes. The hash is seeded with the RNG state
// so any RNG divergence is also detected.
func ChecksumUnits(units map[UnitId]*SimUnit, rngState uint32) uint32 {
	ids := make([]UnitId, 0, len(units))
	for id, u := range units {
		if u.Health > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	h := uint32(rngState)
	for _, id := range ids {
		u := units[id]
		h = foldString(h, string(id))
		h = fold(h, int64(math.Floor(u.Position.X*100)))
		h = fold(h, int64(math.Floor(u.Position.Z*100)))
		h = fold(h, int64(math.Floor(u.Health)))
		h = fold(h, int64(math.Floor(u.Morale)))
		h = fold(h, int64(math.Floor(u.Suppression)))
		h = foldBool(h, u.IsFrozen)
		h = foldBool(h, u.IsRouting())
	}
	return h
}

// fold combines v into the rolling hash using a djb2-variant step:
// h <- (h<<5 - h) + v.
func fold(h uint32, v int64) uint32 {
	return (h<<5)-h + uint32(int32(v))
}

func foldString(h uint32, s string) uint32 {
	for i := 0; i < len(s); i++ {
		h = (h<<5)-h + uint32(s[i])
	}
	return h
}

func foldBool(h uint32, b bool) uint32 {
	if b {
		return fold(h, 1)
	}
	return fold(h, 0)
}
