// Package selection picks the winner of an equb round.
//
// Both policies work on the round's frozen eligible member set, in the stable
// join order it was frozen in, never on live membership.
package selection

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/mmynk/equb/internal/models"
)

var (
	ErrNoCandidates    = errors.New("no eligible members to select from")
	ErrInvalidRound    = errors.New("round number must be positive")
	ErrUnknownMethod   = errors.New("unknown selection method")
	ErrIndexOutOfRange = errors.New("random source returned an index out of range")
)

// Source supplies uniform random indexes in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSource returns a PCG source seeded from the operating system.
// Fairness, not unpredictability, is what the lottery needs.
func NewSource() Source {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("selection: failed to seed random source: %v", err))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:])))
}

// NewSeededSource returns a deterministic source, for tests and replays.
func NewSeededSource(seed1, seed2 uint64) Source {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// lockedSource serializes access to a Source. *rand.Rand is not safe for
// concurrent use and draws in different groups share one source.
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// Selector picks winners. It is safe for concurrent use.
type Selector struct {
	src Source
}

// NewSelector creates a Selector drawing lottery picks from src.
func NewSelector(src Source) *Selector {
	return &Selector{src: &lockedSource{src: src}}
}

// Select returns the index into candidates of the winner for roundNumber.
func (s *Selector) Select(method models.SelectionMethod, roundNumber int, candidates []string) (int, error) {
	switch method {
	case models.SelectionLottery:
		return Lottery(s.src, candidates)
	case models.SelectionFixedTurn:
		return FixedTurn(roundNumber, candidates)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// Lottery picks an index uniformly at random.
func Lottery(src Source, candidates []string) (int, error) {
	n := len(candidates)
	if n == 0 {
		return 0, ErrNoCandidates
	}
	idx := src.IntN(n)
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, idx, n)
	}
	return idx, nil
}

// FixedTurn picks (roundNumber - 1) mod n, so n consecutive rounds over a stable
// ordering visit every member exactly once.
func FixedTurn(roundNumber int, candidates []string) (int, error) {
	n := len(candidates)
	if n == 0 {
		return 0, ErrNoCandidates
	}
	if roundNumber < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRound, roundNumber)
	}
	return (roundNumber - 1) % n, nil
}
