package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets numerator out of every denominator events through.
// A zero ratio disables sampling.
type ratioSampler struct {
	ratio atomic.Uint64 // numerator<<32 | denominator
	seq   atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

func (s *ratioSampler) Set(numerator, denominator int) {
	if numerator <= 0 || denominator <= 0 {
		numerator, denominator = 0, 0
	}
	numerator = min(numerator, denominator)
	s.ratio.Store(uint64(uint32(numerator))<<32 | uint64(uint32(denominator)))
	s.seq.Store(0)
}

func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	num, den := r>>32, r&0xffffffff
	if num == 0 || den == 0 {
		return true
	}
	return (s.seq.Add(1)-1)%den < num
}

// parseRatioSpec accepts "n/d" or a bare "d" meaning 1/d.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if n, d, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	v, err := strconv.Atoi(spec)
	if err != nil || v <= 0 {
		return 0, 0
	}
	return 1, v
}
