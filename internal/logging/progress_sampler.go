package logging

import "math"

// ProgressSampler thins per-line ffmpeg progress down to one debug log per
// percentage bucket. A change of track starts a fresh series.
type ProgressSampler struct {
	bucketSize float64
	lastTrack  int
	lastBucket int
}

// NewProgressSampler constructs a sampler emitting when the percent crosses a
// bucket boundary (default 5%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress for track at percent should be logged.
// Negative or NaN percentages mean "unknown" and only log on a track change.
func (s *ProgressSampler) ShouldLog(track int, percent float64) bool {
	if s == nil {
		return true
	}
	emit := false
	if track != s.lastTrack {
		s.lastTrack = track
		s.lastBucket = -1
		emit = true
	}
	if percent < 0 || math.IsNaN(percent) {
		return emit
	}
	bucket := int(min(percent, 100) / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}
