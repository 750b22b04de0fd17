package logging

import (
	"math"
	"testing"
)

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(1, 50) {
		t.Error("ShouldLog on nil sampler should always return true")
	}
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{4, false},
		{10, true},
		{19.9, false},
		{55, true},
		{100, true},
		{130, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(1, step.percent); got != step.want {
			t.Fatalf("ShouldLog(1, %v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSampler_TrackChangeResets(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(1, 90)
	if !s.ShouldLog(2, 5) {
		t.Fatal("new track should log")
	}
	if !s.ShouldLog(2, 10) {
		t.Fatal("bucket should restart after track change")
	}
}

func TestProgressSampler_UnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(3, -1) {
		t.Fatal("first call for a track should log")
	}
	if s.ShouldLog(3, -1) {
		t.Fatal("unknown percent should not log again")
	}
	if s.ShouldLog(3, math.NaN()) {
		t.Fatal("NaN percent should not log")
	}
}
