package events

import "time"

// Event type constants
const (
	TypeBattleStarted    = "battle.started"
	TypeBattleEnded      = "battle.ended"
	TypeBattleSuspended  = "battle.suspended"
	TypeBattleRetreated  = "battle.retreated"
	TypeRoundStarted     = "round.started"
	TypeDiceRolled       = "dice.rolled"
	TypeCasualties       = "casualties.removed"
	TypeUnitsSubmerged   = "units.submerged"
	TypeStatusTransition = "battle.status"
)

// BattleStartedEvent is published when a battle begins
type BattleStartedEvent struct {
	BaseEvent
	Location    string `json:"location"`
	Attacker    string `json:"attacker"`
	Defender    string `json:"defender"`
	AttackerTUV int    `json:"attacker_tuv"`
	DefenderTUV int    `json:"defender_tuv"`
}

// NewBattleStartedEvent creates a new BattleStartedEvent
func NewBattleStartedEvent(battleID, location, attacker, defender string, attackerTUV, defenderTUV int) *BattleStartedEvent {
	return &BattleStartedEvent{
		BaseEvent:   newBase(TypeBattleStarted, battleID),
		Location:    location,
		Attacker:    attacker,
		Defender:    defender,
		AttackerTUV: attackerTUV,
		DefenderTUV: defenderTUV,
	}
}

// RoundStartedEvent is published at the beginning of each combat round
type RoundStartedEvent struct {
	BaseEvent
	Round int `json:"round"`
}

// NewRoundStartedEvent creates a new RoundStartedEvent
func NewRoundStartedEvent(battleID string, round int) *RoundStartedEvent {
	return &RoundStartedEvent{BaseEvent: newBase(TypeRoundStarted, battleID), Round: round}
}

// DiceRolledEvent is published for every firing group roll
type DiceRolledEvent struct {
	BaseEvent
	Round int    `json:"round"`
	Side  string `json:"side"`
	Class string `json:"class"`
	Faces []int  `json:"faces"`
	Hits  int    `json:"hits"`
}

// NewDiceRolledEvent creates a new DiceRolledEvent
func NewDiceRolledEvent(battleID string, round int, side, class string, faces []int, hits int) *DiceRolledEvent {
	return &DiceRolledEvent{
		BaseEvent: newBase(TypeDiceRolled, battleID),
		Round:     round,
		Side:      side,
		Class:     class,
		Faces:     faces,
		Hits:      hits,
	}
}

// CasualtiesEvent is published when casualties are removed or damaged
type CasualtiesEvent struct {
	BaseEvent
	Round   int    `json:"round"`
	Side    string `json:"side"`
	Killed  string `json:"killed"`
	Damaged int    `json:"damaged"`
	Lost    int    `json:"tuv_lost"`
}

// NewCasualtiesEvent creates a new CasualtiesEvent. side is the side that
// took the losses.
func NewCasualtiesEvent(battleID string, round int, side, killed string, damaged, tuvLost int) *CasualtiesEvent {
	return &CasualtiesEvent{
		BaseEvent: newBase(TypeCasualties, battleID),
		Round:     round,
		Side:      side,
		Killed:    killed,
		Damaged:   damaged,
		Lost:      tuvLost,
	}
}

// UnitsSubmergedEvent is published when submarines leave the battle
type UnitsSubmergedEvent struct {
	BaseEvent
	Round int    `json:"round"`
	Side  string `json:"side"`
	Units string `json:"units"`
}

// NewUnitsSubmergedEvent creates a new UnitsSubmergedEvent
func NewUnitsSubmergedEvent(battleID string, round int, side, units string) *UnitsSubmergedEvent {
	return &UnitsSubmergedEvent{
		BaseEvent: newBase(TypeUnitsSubmerged, battleID),
		Round:     round,
		Side:      side,
		Units:     units,
	}
}

// BattleRetreatedEvent is published when the attacker withdraws
type BattleRetreatedEvent struct {
	BaseEvent
	Round int    `json:"round"`
	Units string `json:"units"`
}

// NewBattleRetreatedEvent creates a new BattleRetreatedEvent
func NewBattleRetreatedEvent(battleID string, round int, units string) *BattleRetreatedEvent {
	return &BattleRetreatedEvent{BaseEvent: newBase(TypeBattleRetreated, battleID), Round: round, Units: units}
}

// BattleSuspendedEvent is published when the battle waits for a player
type BattleSuspendedEvent struct {
	BaseEvent
	Round int    `json:"round"`
	Side  string `json:"side"`
	Hits  int    `json:"hits"`
}

// NewBattleSuspendedEvent creates a new BattleSuspendedEvent
func NewBattleSuspendedEvent(battleID string, round int, side string, hits int) *BattleSuspendedEvent {
	return &BattleSuspendedEvent{
		BaseEvent: newBase(TypeBattleSuspended, battleID),
		Round:     round,
		Side:      side,
		Hits:      hits,
	}
}

// BattleEndedEvent is published once when a battle reaches its outcome
type BattleEndedEvent struct {
	BaseEvent
	Winner            string        `json:"winner"`
	Rounds            int           `json:"rounds"`
	AttackerRemaining string        `json:"attacker_remaining"`
	DefenderRemaining string        `json:"defender_remaining"`
	Duration          time.Duration `json:"duration"`
}

// NewBattleEndedEvent creates a new BattleEndedEvent
func NewBattleEndedEvent(battleID, winner string, rounds int, attackerRemaining, defenderRemaining string, duration time.Duration) *BattleEndedEvent {
	return &BattleEndedEvent{
		BaseEvent:         newBase(TypeBattleEnded, battleID),
		Winner:            winner,
		Rounds:            rounds,
		AttackerRemaining: attackerRemaining,
		DefenderRemaining: defenderRemaining,
		Duration:          duration,
	}
}

// StatusTransitionEvent is published when a battle changes status
type StatusTransitionEvent struct {
	BaseEvent
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// NewStatusTransitionEvent creates a new StatusTransitionEvent
func NewStatusTransitionEvent(battleID, from, to, reason string) *StatusTransitionEvent {
	return &StatusTransitionEvent{
		BaseEvent: newBase(TypeStatusTransition, battleID),
		From:      from,
		To:        to,
		Reason:    reason,
	}
}
