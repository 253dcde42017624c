package odds

import (
	"sync"
	"time"

	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

// AggregateResult summarizes one or many battle outcomes. Percentages are
// fractions in [0, 1].
type AggregateResult struct {
	RunCount int `json:"run_count"`
	Skipped  int `json:"skipped"`

	AttackerWinPercent float64 `json:"attacker_win_percent"`
	DefenderWinPercent float64 `json:"defender_win_percent"`
	DrawPercent        float64 `json:"draw_percent"`

	AverageRounds            float64 `json:"average_rounds"`
	AverageAttackerUnitsLeft float64 `json:"average_attacker_units_left"`
	AverageDefenderUnitsLeft float64 `json:"average_defender_units_left"`
	AverageAttackerTUVLeft   float64 `json:"average_attacker_tuv_left"`
	AverageDefenderTUVLeft   float64 `json:"average_defender_tuv_left"`
	AverageTUVSwing          float64 `json:"average_tuv_swing"`

	// Averaged over the runs the named side won; zero when it never won.
	AverageAttackerUnitsLeftWhenAttackerWon float64 `json:"average_attacker_units_left_when_attacker_won"`
	AverageDefenderUnitsLeftWhenDefenderWon float64 `json:"average_defender_units_left_when_defender_won"`

	Winner battle.Winner `json:"winner"`

	// Remaining units are only known for single-pass estimates.
	AttackerRemaining core.UnitGroup `json:"-"`
	DefenderRemaining core.UnitGroup `json:"-"`
	AttackerSurvivors map[string]int `json:"attacker_survivors,omitempty"`
	DefenderSurvivors map[string]int `json:"defender_survivors,omitempty"`

	Partial   bool          `json:"partial"`
	Cached    bool          `json:"cached"`
	Estimator string        `json:"estimator"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Valid reports whether the result is backed by at least one outcome.
func (r AggregateResult) Valid() bool {
	return r.RunCount > 0
}

// Collector accumulates battle outcomes as running sums. It is safe for
// concurrent use and its memory does not grow with the number of outcomes.
type Collector struct {
	mu sync.Mutex

	runs    int
	skipped int
	wins    [3]int

	rounds       int
	attUnitsLeft int
	defUnitsLeft int
	attTUVLeft   int
	defTUVLeft   int
	tuvSwing     int
	attLeftWon   int
	defLeftWon   int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record adds one terminal outcome.
func (c *Collector) Record(o battle.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runs++
	if o.Winner >= battle.WinnerAttacker && o.Winner <= battle.Draw {
		c.wins[o.Winner]++
	}
	c.rounds += o.Rounds
	c.attUnitsLeft += len(o.AttackerRemaining)
	c.defUnitsLeft += len(o.DefenderRemaining)
	c.attTUVLeft += o.AttackerRemaining.TUV()
	c.defTUVLeft += o.DefenderRemaining.TUV()
	c.tuvSwing += o.TUVSwing()
	switch o.Winner {
	case battle.WinnerAttacker:
		c.attLeftWon += len(o.AttackerRemaining)
	case battle.WinnerDefender:
		c.defLeftWon += len(o.DefenderRemaining)
	}
}

// Skip counts an iteration that produced no outcome.
func (c *Collector) Skip() {
	c.mu.Lock()
	c.skipped++
	c.mu.Unlock()
}

// Count returns the number of recorded plus skipped iterations.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs + c.skipped
}

// Merge adds the sums of other into c.
func (c *Collector) Merge(other *Collector) {
	if other == nil || other == c {
		return
	}
	other.mu.Lock()
	o := Collector{
		runs:         other.runs,
		skipped:      other.skipped,
		wins:         other.wins,
		rounds:       other.rounds,
		attUnitsLeft: other.attUnitsLeft,
		defUnitsLeft: other.defUnitsLeft,
		attTUVLeft:   other.attTUVLeft,
		defTUVLeft:   other.defTUVLeft,
		tuvSwing:     other.tuvSwing,
		attLeftWon:   other.attLeftWon,
		defLeftWon:   other.defLeftWon,
	}
	other.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs += o.runs
	c.skipped += o.skipped
	for i := range c.wins {
		c.wins[i] += o.wins[i]
	}
	c.rounds += o.rounds
	c.attUnitsLeft += o.attUnitsLeft
	c.defUnitsLeft += o.defUnitsLeft
	c.attTUVLeft += o.attTUVLeft
	c.defTUVLeft += o.defTUVLeft
	c.tuvSwing += o.tuvSwing
	c.attLeftWon += o.attLeftWon
	c.defLeftWon += o.defLeftWon
}

// Finalize computes percentages and averages from the running sums. With
// nothing recorded every figure is zero and the winner is a draw.
func (c *Collector) Finalize() AggregateResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := AggregateResult{
		RunCount: c.runs,
		Skipped:  c.skipped,
		Winner:   battle.Draw,
	}
	if c.runs == 0 {
		return res
	}

	n := float64(c.runs)
	res.AttackerWinPercent = float64(c.wins[battle.WinnerAttacker]) / n
	res.DefenderWinPercent = float64(c.wins[battle.WinnerDefender]) / n
	res.DrawPercent = float64(c.wins[battle.Draw]) / n
	res.AverageRounds = float64(c.rounds) / n
	res.AverageAttackerUnitsLeft = float64(c.attUnitsLeft) / n
	res.AverageDefenderUnitsLeft = float64(c.defUnitsLeft) / n
	res.AverageAttackerTUVLeft = float64(c.attTUVLeft) / n
	res.AverageDefenderTUVLeft = float64(c.defTUVLeft) / n
	res.AverageTUVSwing = float64(c.tuvSwing) / n
	if w := c.wins[battle.WinnerAttacker]; w > 0 {
		res.AverageAttackerUnitsLeftWhenAttackerWon = float64(c.attLeftWon) / float64(w)
	}
	if w := c.wins[battle.WinnerDefender]; w > 0 {
		res.AverageDefenderUnitsLeftWhenDefenderWon = float64(c.defLeftWon) / float64(w)
	}
	res.Winner = modalWinner(c.wins)
	return res
}

// modalWinner picks the most frequent result. An attacker/defender tie is a
// draw.
func modalWinner(wins [3]int) battle.Winner {
	att, def, draw := wins[battle.WinnerAttacker], wins[battle.WinnerDefender], wins[battle.Draw]
	switch {
	case att > def && att > draw:
		return battle.WinnerAttacker
	case def > att && def > draw:
		return battle.WinnerDefender
	default:
		return battle.Draw
	}
}
