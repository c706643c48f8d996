package parallel

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestWorkers(t *testing.T) {
	tests := []struct {
		name  string
		nJobs int
		items int
		want  int
	}{
		{"explicit", 2, 10, 2},
		{"capped by items", 8, 3, 3},
		{"all cores", -1, 1000, min(runtime.NumCPU(), 1000)},
		{"none", 0, 1, 1},
		{"no items", 4, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Workers(tt.nJobs, tt.items); got != tt.want {
				t.Errorf("Workers(%d, %d) = %d, want %d", tt.nJobs, tt.items, got, tt.want)
			}
		})
	}
}

func TestForEach(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		var calls atomic.Int64
		seen := make([]int, 50)
		err := ForEach(len(seen), workers, func(i int) error {
			calls.Add(1)
			seen[i] = i * i
			return nil
		})
		if err != nil {
			t.Fatalf("workers=%d: unexpected error %v", workers, err)
		}
		if calls.Load() != 50 {
			t.Errorf("workers=%d: fn called %d times, want 50", workers, calls.Load())
		}
		for i, v := range seen {
			if v != i*i {
				t.Fatalf("workers=%d: item %d = %d", workers, i, v)
			}
		}
	}
}

func TestForEach_FirstError(t *testing.T) {
	errLow := errors.New("low")
	errHigh := errors.New("high")
	for _, workers := range []int{1, 4} {
		err := ForEach(20, workers, func(i int) error {
			switch i {
			case 5:
				return errLow
			case 15:
				return errHigh
			}
			return nil
		})
		if !errors.Is(err, errLow) {
			t.Errorf("workers=%d: got %v, want error of the lowest index", workers, err)
		}
	}

	if err := ForEach(0, 4, func(int) error { return errLow }); err != nil {
		t.Errorf("empty range returned %v", err)
	}
}
