package core

import "sync/atomic"

// UnitType is the static rule data shared by every unit of a kind.
// Strengths are expressed in die faces: a unit with Attack 3 hits on a roll
// of 3 or less.
type UnitType struct {
	Name         string
	Cost         int
	Attack       int
	Defense      int
	AttackRolls  int
	DefenseRolls int
	HitPoints    int
	Domain       Domain

	// FirstStrike units fire before general combat and their casualties do
	// not fire back, unless the enemy has a destroyer.
	FirstStrike bool
	// Destroyer cancels the enemy's first strike and lets friendly air
	// units target enemy first-strike units.
	Destroyer bool
	// CannotTargetAir units never hit air units.
	CannotTargetAir bool
	// CannotBeTargetedByAir units can only be hit by air units when a
	// friendly destroyer is present on the air units' side.
	CannotBeTargetedByAir bool
	CanSubmerge           bool

	IsAA bool
	// AAStrength is the hit threshold of AA dice.
	AAStrength int
	// AAMaxDice caps the dice a single AA unit rolls per round.
	AAMaxDice        int
	NotTargetedByAA  bool
	Bombard          int
	SuicideOnHit     bool
	IsInfrastructure bool
}

// Strength returns the base strength for a side.
func (ut *UnitType) Strength(side Side) int {
	if side == Attacker {
		return ut.Attack
	}
	return ut.Defense
}

// Rolls returns the base number of dice for a side, defaulting to one.
func (ut *UnitType) Rolls(side Side) int {
	r := ut.DefenseRolls
	if side == Attacker {
		r = ut.AttackRolls
	}
	if r <= 0 {
		return 1
	}
	return r
}

// MaxHitPoints returns the hit points of a fresh unit, defaulting to one.
func (ut *UnitType) MaxHitPoints() int {
	if ut.HitPoints <= 0 {
		return 1
	}
	return ut.HitPoints
}

// IsAir reports whether the type fights in the air.
func (ut *UnitType) IsAir() bool { return ut.Domain == Air }

// IsCombatant reports whether units of this type take part in general combat.
func (ut *UnitType) IsCombatant() bool {
	return !ut.IsInfrastructure
}

// Unit is a single combatant. ID reflects creation order and is the stable
// tie-break wherever units are otherwise equal.
type Unit struct {
	ID    int
	Type  *UnitType
	Owner string
	Hits  int

	// Fired is set once the unit has rolled in the current round.
	Fired     bool
	Submerged bool
}

// HitsLeft returns the number of additional hits the unit can absorb before
// it dies.
func (u *Unit) HitsLeft() int {
	return u.Type.MaxHitPoints() - u.Hits
}

// Damaged reports whether the unit has taken hits but is still alive.
func (u *Unit) Damaged() bool {
	return u.Hits > 0 && u.HitsLeft() > 0
}

// Clone returns an independent copy of the unit sharing only the immutable
// unit type.
func (u *Unit) Clone() *Unit {
	c := *u
	return &c
}

// UnitFactory hands out units with increasing IDs. It is safe for concurrent
// use.
type UnitFactory struct {
	next atomic.Int64
}

// NewUnitFactory creates a factory whose first unit gets ID 1.
func NewUnitFactory() *UnitFactory {
	return &UnitFactory{}
}

// New creates a unit of the given type.
func (f *UnitFactory) New(ut *UnitType, owner string) *Unit {
	return &Unit{
		ID:    int(f.next.Add(1)),
		Type:  ut,
		Owner: owner,
	}
}

// Create creates count units of the given type.
func (f *UnitFactory) Create(ut *UnitType, owner string, count int) UnitGroup {
	g := make(UnitGroup, 0, count)
	for i := 0; i < count; i++ {
		g = append(g, f.New(ut, owner))
	}
	return g
}
