// Package casualty decides which units absorb the hits a firing group scored.
package casualty

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

var (
	// ErrAwaitingInput is returned by a Chooser that needs a decision from a
	// player before the battle can continue.
	ErrAwaitingInput    = errors.New("awaiting casualty selection")
	ErrInvalidSelection = errors.New("invalid casualty selection")
)

// Request asks a policy to allocate Hits among Targets.
type Request struct {
	BattleID string
	Round    int
	// Side is the side taking the hits.
	Side    core.Side
	Targets core.UnitGroup
	Hits    int
	// AA hits kill outright and never damage multi hit point units.
	AA bool
}

// Capacity returns the number of hits the targets can absorb.
func (r Request) Capacity() int {
	if r.AA {
		return len(r.Targets)
	}
	return r.Targets.HitPoints()
}

// Allocated returns the hits that must be allocated after capping at
// capacity. Hits beyond what the targets can absorb are lost.
func (r Request) Allocated() int {
	h := r.Hits
	if h < 0 {
		h = 0
	}
	if c := r.Capacity(); h > c {
		h = c
	}
	return h
}

// Casualties is a policy's decision. A unit appears in Damaged once for
// every hit it absorbs without dying. Selecting units does not modify them.
type Casualties struct {
	Killed  core.UnitGroup
	Damaged core.UnitGroup
}

// Empty reports whether nothing was hit.
func (c Casualties) Empty() bool {
	return len(c.Killed) == 0 && len(c.Damaged) == 0
}

// Policy selects casualties. Implementations must return exactly
// req.Allocated() hits worth of casualties or an error.
type Policy interface {
	Select(ctx context.Context, req Request) (Casualties, error)
}

// Order returns a copy of g in cheapest-first order, ties broken by ascending
// unit ID.
func Order(g core.UnitGroup) core.UnitGroup {
	c := append(core.UnitGroup(nil), g...)
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Type.Cost != c[j].Type.Cost {
			return c[i].Type.Cost < c[j].Type.Cost
		}
		return c[i].ID < c[j].ID
	})
	return c
}

// CheapestFirst is the forced policy used by the AI and by simulation. Units
// with spare hit points absorb hits first, then units die cheapest first.
type CheapestFirst struct{}

// Select implements Policy. It never blocks and never fails.
func (CheapestFirst) Select(_ context.Context, req Request) (Casualties, error) {
	return Default(req), nil
}

// Default computes the cheapest-first casualties for req. It is also offered
// to a Chooser as the suggested selection.
func Default(req Request) Casualties {
	return allocate(req, Order(req.Targets))
}

// allocate spends req's hits on spare hit points first, then kills units in
// the given order.
func allocate(req Request, ordered core.UnitGroup) Casualties {
	hits := req.Allocated()
	var c Casualties

	if !req.AA {
		for _, u := range ordered {
			for left := u.HitsLeft(); left > 1 && hits > 0; left-- {
				c.Damaged = append(c.Damaged, u)
				hits--
			}
		}
	}
	for _, u := range ordered {
		if hits == 0 {
			break
		}
		c.Killed = append(c.Killed, u)
		hits--
	}
	if len(c.Killed) > 0 {
		c.Damaged = c.Damaged.Filter(func(u *core.Unit) bool { return !c.Killed.Contains(u) })
	}
	return c
}

// Validate checks that c is a legal answer to req: only targets are hit,
// no unit is killed twice and exactly req.Allocated() hits are absorbed.
func Validate(req Request, c Casualties) error {
	damage := make(map[int]int)
	for _, u := range c.Damaged {
		if !req.Targets.Contains(u) {
			return fmt.Errorf("%w: damaged unit %d is not a target", ErrInvalidSelection, u.ID)
		}
		if req.AA {
			return fmt.Errorf("%w: AA hits cannot damage unit %d", ErrInvalidSelection, u.ID)
		}
		damage[u.ID]++
	}

	absorbed := 0
	for id, n := range damage {
		absorbed += n
		for _, u := range req.Targets {
			if u.ID == id && n >= u.HitsLeft() {
				return fmt.Errorf("%w: unit %d damaged beyond its hit points", ErrInvalidSelection, id)
			}
		}
	}

	killed := make(map[int]struct{}, len(c.Killed))
	for _, u := range c.Killed {
		if !req.Targets.Contains(u) {
			return fmt.Errorf("%w: killed unit %d is not a target", ErrInvalidSelection, u.ID)
		}
		if _, dup := killed[u.ID]; dup {
			return fmt.Errorf("%w: unit %d killed twice", ErrInvalidSelection, u.ID)
		}
		killed[u.ID] = struct{}{}
		if req.AA {
			absorbed++
			continue
		}
		absorbed += u.HitsLeft() - damage[u.ID]
	}

	if want := req.Allocated(); absorbed != want {
		return fmt.Errorf("%w: %d hits absorbed, want %d", ErrInvalidSelection, absorbed, want)
	}
	return nil
}
