package casualty

import (
	"context"
	"fmt"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

// Chooser is the hook for a human player's casualty decision. suggested is
// the cheapest-first selection, which a UI can offer as the default.
// Returning ErrAwaitingInput suspends the battle until the choice is made.
type Chooser interface {
	Choose(ctx context.Context, req Request, suggested Casualties) (Casualties, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, req Request, suggested Casualties) (Casualties, error)

// Choose implements Chooser.
func (f ChooserFunc) Choose(ctx context.Context, req Request, suggested Casualties) (Casualties, error) {
	return f(ctx, req, suggested)
}

// PlayerChosen delegates to a Chooser and validates its answer.
type PlayerChosen struct {
	Chooser Chooser
}

// Select implements Policy.
func (p PlayerChosen) Select(ctx context.Context, req Request) (Casualties, error) {
	if req.Allocated() == 0 {
		return Casualties{}, nil
	}
	c, err := p.Chooser.Choose(ctx, req, Default(req))
	if err != nil {
		return Casualties{}, err
	}
	if err := Validate(req, c); err != nil {
		return Casualties{}, err
	}
	return c, nil
}

// AA narrows the pool to units AA fire can hit and marks the request as AA
// before delegating.
type AA struct {
	Inner Policy
}

// Select implements Policy.
func (a AA) Select(ctx context.Context, req Request) (Casualties, error) {
	req.AA = true
	req.Targets = req.Targets.Filter(func(u *core.Unit) bool {
		return u.Type.IsAir() && !u.Type.NotTargetedByAA
	})
	inner := a.Inner
	if inner == nil {
		inner = CheapestFirst{}
	}
	c, err := inner.Select(ctx, req)
	if err != nil {
		return Casualties{}, fmt.Errorf("aa casualties: %w", err)
	}
	return c, nil
}

// Pending is a Chooser that holds decisions supplied from outside, keyed by
// battle, round, side and fire kind. It reports ErrAwaitingInput until
// Provide is called for the request.
type Pending struct {
	choices map[pendingKey]Casualties
}

type pendingKey struct {
	battleID string
	round    int
	side     core.Side
	aa       bool
}

// NewPending creates an empty Pending chooser.
func NewPending() *Pending {
	return &Pending{choices: make(map[pendingKey]Casualties)}
}

// Provide records the decision for the request it answers.
func (p *Pending) Provide(req Request, c Casualties) {
	p.choices[keyOf(req)] = c
}

func keyOf(req Request) pendingKey {
	return pendingKey{battleID: req.BattleID, round: req.Round, side: req.Side, aa: req.AA}
}

// Choose implements Chooser.
func (p *Pending) Choose(_ context.Context, req Request, _ Casualties) (Casualties, error) {
	k := keyOf(req)
	c, ok := p.choices[k]
	if !ok {
		return Casualties{}, ErrAwaitingInput
	}
	delete(p.choices, k)
	return c, nil
}
