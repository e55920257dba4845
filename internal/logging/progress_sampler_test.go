package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)

	var logged []int
	for done := 1; done <= 10; done++ {
		if s.ShouldLog(done, 10) {
			logged = append(logged, done)
		}
	}

	want := []int{1, 3, 5, 8, 10}
	if len(logged) != len(want) {
		t.Fatalf("logged %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged %v, want %v", logged, want)
		}
	}
}

func TestProgressSamplerDefaultsAndReset(t *testing.T) {
	s := NewProgressSampler(0)
	if s.bucketSize != 10 {
		t.Fatalf("bucketSize = %v, want 10", s.bucketSize)
	}
	if !s.ShouldLog(1, 100) {
		t.Fatal("first call should log")
	}
	if s.ShouldLog(2, 100) {
		t.Fatal("same bucket should not log")
	}
	s.Reset()
	if !s.ShouldLog(2, 100) {
		t.Fatal("reset sampler should log again")
	}
}

func TestProgressSamplerNilAndEmpty(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(1, 2) {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
	if !NewProgressSampler(5).ShouldLog(0, 0) {
		t.Fatal("zero total should log")
	}
}
