package casualty

import (
	"context"
	"sort"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

// Ordered is a forced policy following a player's order of losses. Types
// named in Order die first, in the order given; unnamed types follow
// cheapest first. Multi hit point units still absorb hits before anything
// dies. With KeepLand set, the last land unit among the targets dies only
// once nothing else is left to take the hit, so a captured territory
// stays capturable.
type Ordered struct {
	Order    []string
	KeepLand bool
}

// Select implements Policy. It never blocks and never fails.
func (o Ordered) Select(_ context.Context, req Request) (Casualties, error) {
	return allocate(req, o.Sequence(req.Targets)), nil
}

// Sequence returns a copy of g in the order its units die.
func (o Ordered) Sequence(g core.UnitGroup) core.UnitGroup {
	seq := Order(g)
	if len(o.Order) > 0 {
		rank := make(map[string]int, len(o.Order))
		for i, name := range o.Order {
			if _, seen := rank[name]; !seen {
				rank[name] = i
			}
		}
		sort.SliceStable(seq, func(i, j int) bool {
			ri, iok := rank[seq[i].Type.Name]
			rj, jok := rank[seq[j].Type.Name]
			if iok && jok {
				return ri < rj
			}
			return iok && !jok
		})
	}
	if o.KeepLand {
		seq = spareLastLand(seq)
	}
	return seq
}

// spareLastLand moves the land unit that would die last to the back.
func spareLastLand(seq core.UnitGroup) core.UnitGroup {
	last := -1
	for i, u := range seq {
		if u.Type.Domain == core.Land {
			last = i
		}
	}
	if last < 0 || last == len(seq)-1 {
		return seq
	}
	keep := seq[last]
	copy(seq[last:], seq[last+1:])
	seq[len(seq)-1] = keep
	return seq
}
