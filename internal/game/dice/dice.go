// Package dice provides the randomness used by battles: a seeded source that
// is identical on every host of a networked game, a fast unsynchronized
// source for simulation, and a scripted source that replays given faces.
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	ErrInvalidDice = errors.New("invalid dice request")
	ErrExhausted   = errors.New("scripted dice exhausted")
)

// Source produces the next count faces of dice with the given number of
// sides. Faces are in [1, sides].
type Source interface {
	Roll(count, sides int) ([]int, error)
}

func checkRequest(count, sides int) error {
	if sides <= 0 {
		return fmt.Errorf("%w: %d sides", ErrInvalidDice, sides)
	}
	if count < 0 {
		return fmt.Errorf("%w: %d dice", ErrInvalidDice, count)
	}
	return nil
}

// pcgStream is the second PCG word. It is fixed so that a single uint64 is
// enough to reproduce a sequence on another host.
const pcgStream = 0x9e3779b97f4a7c15

// Synchronized is a seeded source. Two sources with the same seed return the
// same faces for the same sequence of Roll calls. It is safe for concurrent
// use, though the order of concurrent calls is then up to the scheduler.
type Synchronized struct {
	mu    sync.Mutex
	seed  uint64
	rng   *rand.Rand
	calls int
}

// NewSynchronized creates a source seeded with seed.
func NewSynchronized(seed uint64) *Synchronized {
	return &Synchronized{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, pcgStream)),
	}
}

// Roll implements Source.
func (s *Synchronized) Roll(count, sides int) ([]int, error) {
	if err := checkRequest(count, sides); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return roll(s.rng, count, sides), nil
}

// Seed returns the seed the source was created with.
func (s *Synchronized) Seed() uint64 { return s.seed }

// Calls returns the number of successful Roll calls so far.
func (s *Synchronized) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Fast is an unsynchronized, randomly seeded source. It is not safe for
// concurrent use; give each simulation worker its own.
type Fast struct {
	rng *rand.Rand
}

// NewFast creates a randomly seeded source.
func NewFast() *Fast {
	return &Fast{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// Roll implements Source.
func (f *Fast) Roll(count, sides int) ([]int, error) {
	if err := checkRequest(count, sides); err != nil {
		return nil, err
	}
	return roll(f.rng, count, sides), nil
}

func roll(rng *rand.Rand, count, sides int) []int {
	faces := make([]int, count)
	for i := range faces {
		faces[i] = rng.IntN(sides) + 1
	}
	return faces
}

// Scripted replays faces supplied from outside, such as dice agreed over the
// network or fixed test rolls.
type Scripted struct {
	mu    sync.Mutex
	faces []int
}

// NewScripted creates a source that returns faces in order.
func NewScripted(faces ...int) *Scripted {
	return &Scripted{faces: append([]int(nil), faces...)}
}

// Append queues more faces.
func (s *Scripted) Append(faces ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faces = append(s.faces, faces...)
}

// Remaining returns the number of queued faces.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces)
}

// Roll implements Source. A face outside [1, sides] is an ErrInvalidDice;
// nothing is consumed on error.
func (s *Scripted) Roll(count, sides int) ([]int, error) {
	if err := checkRequest(count, sides); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if count > len(s.faces) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrExhausted, count, len(s.faces))
	}
	out := append([]int(nil), s.faces[:count]...)
	for _, f := range out {
		if f < 1 || f > sides {
			return nil, fmt.Errorf("%w: face %d on a d%d", ErrInvalidDice, f, sides)
		}
	}
	s.faces = s.faces[count:]
	return out, nil
}
