package spacedrep

import (
	"math"
	"time"
)

const (
	// MinQuality and MaxQuality bound the SM-2 recall quality scale.
	MinQuality = 0
	MaxQuality = 5

	// PassQuality is the lowest quality that does not count as a lapse.
	PassQuality = 3
)

// Schedule applies one review of the given quality at now and returns the
// updated state. It is pure: the input is not modified and identical inputs
// always produce identical output. Quality outside 0..5 is clamped.
//
// Version passes through unchanged; the store bumps it on write.
func Schedule(state ReviewState, quality int, now time.Time) ReviewState {
	q := clampQuality(quality)
	prevEF := state.EasinessFactor
	if prevEF < MinEasinessFactor {
		prevEF = MinEasinessFactor
	}

	next := state
	if q < PassQuality {
		next.RepetitionCount = 0
		next.IntervalDays = 1
		next.LapseCount++
	} else {
		next.RepetitionCount++
		switch next.RepetitionCount {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * prevEF))
			if next.IntervalDays < 1 {
				next.IntervalDays = 1
			}
		}
	}

	next.EasinessFactor = nextEasiness(prevEF, q)
	next.LastQuality = q
	next.LastReviewedAt = now
	next.DueAt = now.AddDate(0, 0, next.IntervalDays)
	return next
}

// nextEasiness is the SM-2 easiness update, floored at MinEasinessFactor.
func nextEasiness(ef float64, q int) float64 {
	d := float64(MaxQuality - q)
	ef += 0.1 - d*(0.08+d*0.02)
	if ef < MinEasinessFactor {
		return MinEasinessFactor
	}
	return ef
}

func clampQuality(q int) int {
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}
