package calculator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchelldurbincs/wargame/internal/odds"
)

// Status is the outcome of a calculation as shown to the user.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	// StatusCouldNotCompute means the estimator produced no valid outcome.
	StatusCouldNotCompute Status = "could_not_compute"
)

// Retreat describes when the simulated attacker withdraws. Zero values
// disable a condition.
type Retreat struct {
	AfterRound      int     `json:"after_round,omitempty"`
	UnitsLeft       int     `json:"units_left,omitempty"`
	OnlyAirLeft     bool    `json:"only_air_left,omitempty"`
	WhenOutnumbered float64 `json:"when_outnumbered,omitempty"`
}

// Request is one odds calculation. Unit groups are given as type name to
// count.
type Request struct {
	Location   string         `json:"location"`
	Water      bool           `json:"water,omitempty"`
	Effects    []string       `json:"territory_effects,omitempty"`
	Attacker   map[string]int `json:"attacker"`
	Defender   map[string]int `json:"defender"`
	Bombarding map[string]int `json:"bombarding,omitempty"`

	// Orders of losses name unit types, first to die first. Types left out
	// die cheapest first after the named ones.
	AttackerOrder []string `json:"attacker_order_of_losses,omitempty"`
	DefenderOrder []string `json:"defender_order_of_losses,omitempty"`
	// KeepOneAttackingLandUnit keeps a land unit alive to take the
	// territory while other attackers can die instead.
	KeepOneAttackingLandUnit bool `json:"keep_one_attacking_land_unit,omitempty"`
	// Amphibious attacking land units came from transports and cannot
	// retreat.
	Amphibious bool `json:"amphibious,omitempty"`

	// Estimator is monte_carlo (default), lanchester or adaptive.
	Estimator string   `json:"estimator,omitempty"`
	RunCount  int      `json:"run_count,omitempty"`
	Exponent  float64  `json:"attrition_exponent,omitempty"`
	MaxRounds int      `json:"max_rounds,omitempty"`
	TimeoutMS int      `json:"timeout_ms,omitempty"`
	Retreat   *Retreat `json:"retreat,omitempty"`
}

// Response carries the result, or the reason none could be computed.
type Response struct {
	Status    Status                `json:"status"`
	Estimator string                `json:"estimator,omitempty"`
	Result    *odds.AggregateResult `json:"result,omitempty"`
	Reason    string                `json:"reason,omitempty"`
}

// ParseUnits parses a unit list such as "infantry=3,armour=2". A bare type
// name counts as one unit and repeated types add up.
func ParseUnits(s string) (map[string]int, error) {
	units := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, count, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		n := 1
		if found {
			var err error
			n, err = strconv.Atoi(strings.TrimSpace(count))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad count in %q", ErrBadRequest, part)
			}
		}
		if name == "" {
			return nil, fmt.Errorf("%w: missing unit type in %q", ErrBadRequest, part)
		}
		units[name] += n
	}
	return units, nil
}

// ParseOrder parses an order of losses such as "armour,infantry".
func ParseOrder(s string) []string {
	var order []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			order = append(order, name)
		}
	}
	return order
}
