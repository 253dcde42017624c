package events

import (
	"fmt"
	"strings"
)

func (e *BattleStartedEvent) Narrate() string {
	where := e.Location
	if where == "" {
		where = "an unnamed territory"
	}
	return fmt.Sprintf("Battle in %s: %s (TUV %d) attack %s (TUV %d)",
		where, e.Attacker, e.AttackerTUV, e.Defender, e.DefenderTUV)
}

func (e *RoundStartedEvent) Narrate() string {
	return fmt.Sprintf("Round %d", e.Round)
}

func (e *DiceRolledEvent) Narrate() string {
	faces := make([]string, len(e.Faces))
	for i, f := range e.Faces {
		faces[i] = fmt.Sprint(f)
	}
	return fmt.Sprintf("%s %s fire rolls [%s]: %d hit(s)",
		e.Side, e.Class, strings.Join(faces, " "), e.Hits)
}

func (e *CasualtiesEvent) Narrate() string {
	msg := fmt.Sprintf("%s loses %s (TUV %d)", e.Side, e.Killed, e.Lost)
	if e.Damaged > 0 {
		msg += fmt.Sprintf(", %d damaged", e.Damaged)
	}
	return msg
}

func (e *UnitsSubmergedEvent) Narrate() string {
	return fmt.Sprintf("%s submerges %s", e.Side, e.Units)
}

func (e *BattleRetreatedEvent) Narrate() string {
	return fmt.Sprintf("Attacker retreats with %s after round %d", e.Units, e.Round)
}

func (e *BattleSuspendedEvent) Narrate() string {
	return fmt.Sprintf("Waiting for %s to choose %d casualties", e.Side, e.Hits)
}

func (e *BattleEndedEvent) Narrate() string {
	return fmt.Sprintf("%s wins after %d round(s); attacker left %s, defender left %s",
		capitalize(e.Winner), e.Rounds, e.AttackerRemaining, e.DefenderRemaining)
}

func (e *StatusTransitionEvent) Narrate() string {
	return fmt.Sprintf("Status %s -> %s (%s)", e.From, e.To, e.Reason)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
