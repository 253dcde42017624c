package dice

import "fmt"

// Result is an evaluated roll: the faces, the threshold each die had to meet
// and the number of hits. It is immutable once produced.
type Result struct {
	faces      []int
	thresholds []int
	hits       int
}

// Evaluate counts hits: die i hits when faces[i] <= thresholds[i].
func Evaluate(faces, thresholds []int) (Result, error) {
	if len(faces) != len(thresholds) {
		return Result{}, fmt.Errorf("%w: %d faces for %d thresholds", ErrInvalidDice, len(faces), len(thresholds))
	}
	r := Result{
		faces:      append([]int(nil), faces...),
		thresholds: append([]int(nil), thresholds...),
	}
	for i, f := range faces {
		if f <= thresholds[i] {
			r.hits++
		}
	}
	return r, nil
}

// RollAgainst rolls one die per threshold and evaluates the result.
func RollAgainst(src Source, sides int, thresholds []int) (Result, error) {
	faces, err := src.Roll(len(thresholds), sides)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(faces, thresholds)
}

// Hits returns the number of dice that hit.
func (r Result) Hits() int { return r.hits }

// Len returns the number of dice rolled.
func (r Result) Len() int { return len(r.faces) }

// Faces returns a copy of the rolled faces.
func (r Result) Faces() []int { return append([]int(nil), r.faces...) }

// Thresholds returns a copy of the per-die thresholds.
func (r Result) Thresholds() []int { return append([]int(nil), r.thresholds...) }

// String renders the roll as "[3 5 1] vs [3 3 1]: 2 hits".
func (r Result) String() string {
	return fmt.Sprintf("%v vs %v: %d hits", r.faces, r.thresholds, r.hits)
}
