package core

import "fmt"

// Side identifies which half of a battle a unit group belongs to.
type Side int

const (
	Attacker Side = iota
	Defender
)

// String returns the string representation of a Side
func (s Side) String() string {
	switch s {
	case Attacker:
		return "attacker"
	case Defender:
		return "defender"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Attacker {
		return Defender
	}
	return Attacker
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == Attacker || s == Defender
}

// ParseSide converts a string to a Side
func ParseSide(s string) (Side, error) {
	switch s {
	case "attacker", "offence", "offense":
		return Attacker, nil
	case "defender", "defence", "defense":
		return Defender, nil
	default:
		return Attacker, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Domain is where a unit fights: on land, at sea or in the air.
type Domain int

const (
	Land Domain = iota
	Sea
	Air
)

// String returns the string representation of a Domain
func (d Domain) String() string {
	switch d {
	case Land:
		return "land"
	case Sea:
		return "sea"
	case Air:
		return "air"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// ParseDomain converts a string to a Domain
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "land", "":
		return Land, nil
	case "sea":
		return Sea, nil
	case "air":
		return Air, nil
	default:
		return Land, fmt.Errorf("unknown domain %q", s)
	}
}
