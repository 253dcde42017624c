package subscribers

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/wargame/internal/game/events"
)

// tally is what the logger has seen of one battle so far.
type tally struct {
	hits map[string]int
	tuv  map[string]int
}

// LoggerSubscriber writes one structured line per battle event. It keeps a
// running tally per battle and adds the hit and TUV totals to the battle
// ended line; with a filter set, only the events it receives are counted.
type LoggerSubscriber struct {
	id      string
	logger  zerolog.Logger
	level   zerolog.Level
	only    map[string]bool
	devMode bool

	mu      sync.Mutex
	battles map[string]*tally
}

// NewLoggerSubscriber creates a subscriber logging at level.
func NewLoggerSubscriber(id string, logger zerolog.Logger, level zerolog.Level) *LoggerSubscriber {
	switch level {
	case zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel:
	default:
		level = zerolog.InfoLevel
	}
	return &LoggerSubscriber{
		id:      id,
		logger:  logger.With().Str("subscriber", "battle_log").Logger(),
		level:   level,
		battles: make(map[string]*tally),
	}
}

func (ls *LoggerSubscriber) ID() string { return ls.id }

// SetEventFilter limits logging to eventTypes. Empty logs everything.
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.only = nil
		return
	}
	ls.only = make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		ls.only[t] = true
	}
}

// SetDevMode adds the full event payload to each line.
func (ls *LoggerSubscriber) SetDevMode(enabled bool) { ls.devMode = enabled }

func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	return ls.only == nil || ls.only[eventType]
}

func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	line := ls.logger.WithLevel(ls.level).
		Str("event_type", event.Type()).
		Str("battle_id", event.BattleID()).
		Time("timestamp", event.Timestamp())

	switch e := event.(type) {
	case *events.BattleStartedEvent:
		ls.open(e.BattleID())
		line.Str("location", e.Location).
			Str("attacker", e.Attacker).
			Str("defender", e.Defender).
			Int("attacker_tuv", e.AttackerTUV).
			Int("defender_tuv", e.DefenderTUV)
	case *events.RoundStartedEvent:
		line.Int("round", e.Round)
	case *events.DiceRolledEvent:
		ls.update(e.BattleID(), func(t *tally) { t.hits[e.Side] += e.Hits })
		line.Int("round", e.Round).
			Str("side", e.Side).
			Str("class", e.Class).
			Ints("faces", e.Faces).
			Int("hits", e.Hits)
	case *events.CasualtiesEvent:
		ls.update(e.BattleID(), func(t *tally) { t.tuv[e.Side] += e.Lost })
		line.Int("round", e.Round).
			Str("side", e.Side).
			Str("killed", e.Killed).
			Int("damaged", e.Damaged).
			Int("tuv_lost", e.Lost)
	case *events.UnitsSubmergedEvent:
		line.Int("round", e.Round).Str("side", e.Side).Str("units", e.Units)
	case *events.BattleRetreatedEvent:
		line.Int("round", e.Round).Str("units", e.Units)
	case *events.BattleSuspendedEvent:
		line.Int("round", e.Round).Str("side", e.Side).Int("hits", e.Hits)
	case *events.BattleEndedEvent:
		line.Str("winner", e.Winner).
			Int("rounds", e.Rounds).
			Str("attacker_remaining", e.AttackerRemaining).
			Str("defender_remaining", e.DefenderRemaining).
			Dur("duration", e.Duration)
		if t := ls.close(e.BattleID()); t != nil {
			line.Int("attacker_hits", t.hits["attacker"]).
				Int("defender_hits", t.hits["defender"]).
				Int("attacker_tuv_lost", t.tuv["attacker"]).
				Int("defender_tuv_lost", t.tuv["defender"])
		}
	case *events.StatusTransitionEvent:
		line.Str("from", e.From).Str("to", e.To).Str("reason", e.Reason)
	}

	if ls.devMode {
		if raw, err := json.Marshal(event); err == nil {
			line.RawJSON("event_data", raw)
		}
	}
	line.Msg(events.Narrate(event))
}

func (ls *LoggerSubscriber) open(battleID string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.battles[battleID] = &tally{hits: map[string]int{}, tuv: map[string]int{}}
}

// update applies fn to the battle's tally if the start was seen.
func (ls *LoggerSubscriber) update(battleID string, fn func(*tally)) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if t, ok := ls.battles[battleID]; ok {
		fn(t)
	}
}

func (ls *LoggerSubscriber) close(battleID string) *tally {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	t := ls.battles[battleID]
	delete(ls.battles, battleID)
	return t
}

// Open returns how many battles have started without ending.
func (ls *LoggerSubscriber) Open() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.battles)
}
