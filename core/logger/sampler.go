package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio is the sampling fraction; every == 0 disables sampling.
type ratio struct {
	keep, every uint64
}

// ratioSampler passes keep out of every consecutive events.
type ratioSampler struct {
	cfg  atomic.Pointer[ratio]
	seen atomic.Uint64
}

func newRatioSampler(keep, every int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(keep, every)
	return s
}

// Set replaces the ratio and restarts the cycle. Non-positive values let every event through.
func (s *ratioSampler) Set(keep, every int) {
	r := &ratio{}
	if keep > 0 && every > 0 {
		r.keep, r.every = uint64(min(keep, every)), uint64(every)
	}
	s.cfg.Store(r)
	s.seen.Store(0)
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	r := s.cfg.Load()
	if r == nil || r.every == 0 {
		return true
	}
	n := s.seen.Add(1) - 1
	return n%r.every < r.keep
}

// parseRatioSpec accepts "k/n" or "n" (shorthand for 1/n).
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if num, den, ok := strings.Cut(spec, "/"); ok {
		k, err1 := strconv.Atoi(strings.TrimSpace(num))
		n, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return k, n
	}
	n, err := strconv.Atoi(spec)
	if err != nil || n <= 0 {
		return 0, 0
	}
	return 1, n
}
