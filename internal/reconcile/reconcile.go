package reconcile

import (
	"fmt"
	"math"

	"shortreel/pkg/models"
)

// Reconciliation limits. Narration timing is authoritative: the placement
// timeline always covers the narration duration exactly, while declared
// clip minimums are soft targets.
const (
	// MaxClipSeconds caps any single placement's on-screen time
	MaxClipSeconds = 5.0
	// MinSpeedFactor is the lowest allowed slow-down before looping kicks in
	MinSpeedFactor = 0.8
	// SumTolerance is the permitted deviation of the placement sum from the
	// narration duration, absorbed by the last placement
	SumTolerance = 0.05

	// defaultMinSeconds stands in for requests that declare no minimum
	defaultMinSeconds = 3.0

	epsilon = 1e-9
)

// Missing marks an absent fetched length in the length table
const Missing = -1.0

// Plan is a reconciled segment timeline: ordered placements covering the
// narration duration contiguously, plus any soft-constraint warnings.
type Plan struct {
	Placements []models.ClipPlacement
	Warnings   []string
}

// TotalDuration returns the summed play duration of all placements
func (p *Plan) TotalDuration() float64 {
	var total float64
	for _, pl := range p.Placements {
		total += pl.PlayDuration
	}
	return total
}

// Reconcile builds the placement timeline for one segment. It is a pure
// function of the narration duration, the ordered b-roll requests and the
// fetched-length table (one entry per request, Missing for absent media;
// image entries may be zero since stills render to any length). It performs
// no I/O.
func Reconcile(segmentID int, narrationSec float64, requests []models.BrollRequest, fetched []float64) (*Plan, error) {
	if len(requests) == 0 {
		return nil, &models.ConfigError{Reason: fmt.Sprintf("segment %d has no b-roll requests", segmentID)}
	}
	if narrationSec <= 0 {
		return nil, &models.ConfigError{Reason: fmt.Sprintf("segment %d has non-positive narration duration", segmentID)}
	}
	if len(fetched) != len(requests) {
		return nil, &models.ConfigError{Reason: fmt.Sprintf(
			"segment %d: length table has %d entries for %d requests", segmentID, len(fetched), len(requests))}
	}

	// Every required asset must exist before any timing is computed.
	for i, req := range requests {
		if fetched[i] < 0 || (req.Kind == models.MediaKindVideo && fetched[i] == 0) {
			return nil, &models.MissingAssetError{
				SegmentID: segmentID,
				ClipIndex: i,
				Query:     req.SearchQuery,
			}
		}
	}

	plan := &Plan{}

	allocations := allocate(segmentID, narrationSec, requests, plan)

	// Map each allocation onto concrete placements, consuming clip footage
	// left to right so repeats of the same clip use different trim offsets.
	consumed := make([]float64, len(requests))
	for _, alloc := range allocations {
		plan.Placements = append(plan.Placements,
			place(alloc.clip, alloc.duration, effectiveLength(requests[alloc.clip], fetched[alloc.clip]), consumed)...)
	}

	return plan, nil
}

type allocation struct {
	clip     int
	duration float64
}

// allocate distributes the narration duration across clips proportionally to
// their declared minimums (a display override replaces the minimum as the
// weight), clamps each share into [minimum, MaxClipSeconds], redistributes
// the clamping remainder round-robin, and spills anything beyond the clips'
// combined cap into extra repeat slots.
func allocate(segmentID int, total float64, requests []models.BrollRequest, plan *Plan) []allocation {
	k := len(requests)

	weights := make([]float64, k)
	mins := make([]float64, k)
	var weightSum, minSum float64
	for i, req := range requests {
		mins[i] = req.MinDurationSec
		if mins[i] <= 0 {
			mins[i] = defaultMinSeconds
		}
		weights[i] = mins[i]
		if req.DisplayDurationSec > 0 {
			weights[i] = req.DisplayDurationSec
		}
		weightSum += weights[i]
		minSum += mins[i]
	}

	shares := make([]float64, k)
	for i := range shares {
		shares[i] = total * weights[i] / weightSum
	}

	if total < minSum-epsilon {
		// Narration is shorter than the declared minimums allow. Minimums
		// are soft: keep the proportional shares, cap at the maximum, warn.
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"segment %d: narration %.2fs is shorter than the %.2fs of declared clip minimums; shares scaled down",
			segmentID, total, minSum))
		for i := range shares {
			if shares[i] > MaxClipSeconds {
				shares[i] = MaxClipSeconds
			}
		}
	} else {
		for i := range shares {
			shares[i] = clamp(shares[i], mins[i], MaxClipSeconds)
		}
	}

	redistribute(total, shares, mins)

	allocations := make([]allocation, 0, k)
	var placed float64
	for i, share := range shares {
		if share > epsilon {
			allocations = append(allocations, allocation{clip: i, duration: share})
			placed += share
		}
	}

	// Anything the capped clips could not absorb becomes extra repeat slots,
	// cycling through the clip list so repeats favor visual variety.
	remainder := total - placed
	for slot := 0; remainder > epsilon; slot++ {
		d := math.Min(remainder, MaxClipSeconds)
		allocations = append(allocations, allocation{clip: slot % k, duration: d})
		remainder -= d
	}

	// Absorb residual float drift in the last allocation so the timeline
	// covers the narration exactly.
	var sum float64
	for _, a := range allocations {
		sum += a.duration
	}
	if diff := total - sum; math.Abs(diff) > epsilon && math.Abs(diff) <= SumTolerance+epsilon {
		allocations[len(allocations)-1].duration += diff
	}

	return allocations
}

// redistribute moves the clamping remainder between clips in round-robin
// order until the shares sum to the target or no clip has headroom left.
func redistribute(total float64, shares, mins []float64) {
	k := len(shares)

	for pass := 0; pass < 64; pass++ {
		var sum float64
		for _, s := range shares {
			sum += s
		}
		remainder := total - sum
		if math.Abs(remainder) <= epsilon {
			return
		}

		if remainder > 0 {
			moved := false
			for i := 0; i < k && remainder > epsilon; i++ {
				headroom := MaxClipSeconds - shares[i]
				if headroom <= epsilon {
					continue
				}
				delta := math.Min(headroom, remainder/float64(k-i))
				shares[i] += delta
				remainder -= delta
				moved = true
			}
			if !moved {
				return // All clips at the cap: the caller spills into repeats
			}
		} else {
			deficit := -remainder
			moved := false
			for i := 0; i < k && deficit > epsilon; i++ {
				slack := shares[i] - mins[i]
				if slack <= epsilon {
					continue
				}
				delta := math.Min(slack, deficit/float64(k-i))
				shares[i] -= delta
				deficit -= delta
				moved = true
			}
			if !moved {
				// Floors block further reduction: scale below the declared
				// minimums, narration duration stays authoritative.
				scale := total / (total + deficit)
				for i := range shares {
					shares[i] *= scale
				}
				return
			}
		}
	}
}

// place renders one allocation as placements against the clip's fetched
// length: trim when the footage covers the allocation, otherwise slow down
// within [MinSpeedFactor, 1] and loop seamlessly for any remainder.
func place(clip int, alloc, length float64, consumed []float64) []models.ClipPlacement {
	if length >= alloc {
		// Trim. Prefer a fresh offset when the same clip repeats, wrapping
		// back to the start once the footage is used up.
		offset := consumed[clip]
		if offset+alloc > length {
			offset = 0
			consumed[clip] = 0
		}
		consumed[clip] += alloc
		return []models.ClipPlacement{{
			ClipIndex:    clip,
			StartOffset:  offset,
			PlayDuration: alloc,
			SpeedFactor:  1.0,
		}}
	}

	if speed := length / alloc; speed >= MinSpeedFactor {
		return []models.ClipPlacement{{
			ClipIndex:    clip,
			StartOffset:  0,
			PlayDuration: alloc,
			SpeedFactor:  speed,
		}}
	}

	// Even the maximum slow-down cannot cover the allocation: stretch at the
	// floor, then cut back to the start and loop to fill the rest.
	placements := []models.ClipPlacement{{
		ClipIndex:    clip,
		StartOffset:  0,
		PlayDuration: length / MinSpeedFactor,
		SpeedFactor:  MinSpeedFactor,
	}}

	remainder := alloc - length/MinSpeedFactor
	for remainder > epsilon {
		d := math.Min(remainder, math.Min(length, MaxClipSeconds))
		placements = append(placements, models.ClipPlacement{
			ClipIndex:    clip,
			StartOffset:  0,
			PlayDuration: d,
			SpeedFactor:  1.0,
		})
		remainder -= d
	}

	return placements
}

// effectiveLength treats stills as indefinitely long: an image renders to
// whatever duration its allocation needs.
func effectiveLength(req models.BrollRequest, fetched float64) float64 {
	if req.Kind == models.MediaKindImage {
		return math.Inf(1)
	}
	return fetched
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
