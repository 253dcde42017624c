package battle

import (
	"fmt"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

// Winner is the result of a battle from the attacker's point of view.
type Winner int

const (
	WinnerAttacker Winner = iota
	WinnerDefender
	Draw
)

// String returns the string representation of a Winner
func (w Winner) String() string {
	switch w {
	case WinnerAttacker:
		return "attacker"
	case WinnerDefender:
		return "defender"
	case Draw:
		return "draw"
	default:
		return fmt.Sprintf("Unknown(%d)", int(w))
	}
}

// ParseWinner converts a string to a Winner
func ParseWinner(s string) (Winner, error) {
	switch s {
	case "attacker":
		return WinnerAttacker, nil
	case "defender":
		return WinnerDefender, nil
	case "draw":
		return Draw, nil
	default:
		return Draw, fmt.Errorf("unknown winner %q", s)
	}
}

// Outcome is the terminal record of one battle. Remaining groups hold every
// surviving unit, including submerged and non-combatant units that left the
// fighting.
type Outcome struct {
	BattleID          string
	Winner            Winner
	Rounds            int
	AttackerRemaining core.UnitGroup
	DefenderRemaining core.UnitGroup
	AttackerTUVLost   int
	DefenderTUVLost   int
	Retreated         bool
	Stalemate         bool
}

// TUVSwing is the defender's loss minus the attacker's loss. Positive values
// favour the attacker.
func (o Outcome) TUVSwing() int {
	return o.DefenderTUVLost - o.AttackerTUVLost
}

func (o Outcome) String() string {
	s := fmt.Sprintf("%s after %d rounds (attacker: %s; defender: %s)",
		o.Winner, o.Rounds, o.AttackerRemaining, o.DefenderRemaining)
	switch {
	case o.Retreated:
		s += ", attacker retreated"
	case o.Stalemate:
		s += ", stalemate"
	}
	return s
}

// MarshalText encodes the winner by name.
func (w Winner) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText decodes a winner name.
func (w *Winner) UnmarshalText(text []byte) error {
	parsed, err := ParseWinner(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
