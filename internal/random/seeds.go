package random

// SeedCap is the first seed value the sequence will not advance past. Once
// the run-wide trial count reaches it, later trials keep drawing from the
// capped seed rather than failing the run.
const SeedCap uint64 = 1 << 32

// SeedSequence hands out one seed per trial for an entire run: a gap-free,
// strictly increasing sequence starting at the configured initial seed.
// It is owned by the orchestrator and advanced exactly once per trial,
// accepted or rejected, across all encounters.
type SeedSequence struct {
	next uint64
}

// NewSeedSequence returns a sequence whose first Next() yields start.
// A start at or beyond SeedCap begins exhausted.
func NewSeedSequence(start uint64) SeedSequence {
	if start > SeedCap {
		start = SeedCap
	}
	return SeedSequence{next: start}
}

// Next returns the seed for the upcoming trial and advances the sequence.
// At the cap it returns SeedCap without advancing.
func (s *SeedSequence) Next() uint64 {
	if s.next >= SeedCap {
		return SeedCap
	}
	v := s.next
	s.next++
	return v
}

// Pos returns the seed the next trial would receive.
func (s *SeedSequence) Pos() uint64 { return s.next }

// Exhausted reports whether the sequence has reached the cap.
func (s *SeedSequence) Exhausted() bool { return s.next >= SeedCap }
