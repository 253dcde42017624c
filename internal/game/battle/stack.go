package battle

// Stack is the LIFO execution stack of one battle. It is owned by a single
// battle and is not safe for concurrent use.
type Stack struct {
	steps []Step
}

// Push puts a step on top of the stack.
func (s *Stack) Push(step Step) {
	s.steps = append(s.steps, step)
}

// PushAll pushes steps so that steps[0] ends up on top and executes first.
func (s *Stack) PushAll(steps ...Step) {
	for i := len(steps) - 1; i >= 0; i-- {
		s.steps = append(s.steps, steps[i])
	}
}

// Pop removes and returns the top step.
func (s *Stack) Pop() (Step, bool) {
	if len(s.steps) == 0 {
		return Step{}, false
	}
	top := s.steps[len(s.steps)-1]
	s.steps[len(s.steps)-1] = Step{}
	s.steps = s.steps[:len(s.steps)-1]
	return top, true
}

// Len returns the number of pending steps.
func (s *Stack) Len() int { return len(s.steps) }

// Remove cancels every pending step of the given kind and returns how many
// were removed.
func (s *Stack) Remove(kind StepKind) int {
	kept := s.steps[:0]
	removed := 0
	for _, st := range s.steps {
		if st.Kind == kind {
			removed++
			continue
		}
		kept = append(kept, st)
	}
	for i := len(kept); i < len(s.steps); i++ {
		s.steps[i] = Step{}
	}
	s.steps = kept
	return removed
}

// Snapshot returns the pending steps in execution order, top first.
func (s *Stack) Snapshot() []Step {
	out := make([]Step, len(s.steps))
	for i, st := range s.steps {
		out[len(s.steps)-1-i] = st
	}
	return out
}
