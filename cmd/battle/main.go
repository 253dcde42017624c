package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
	"github.com/mitchelldurbincs/wargame/internal/config"
	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/dice"
	"github.com/mitchelldurbincs/wargame/internal/game/events"
	"github.com/mitchelldurbincs/wargame/internal/game/events/subscribers"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	attacker := flag.String("attacker", "infantry=3,armour=2", "Attacking units")
	defender := flag.String("defender", "infantry=4", "Defending units")
	bombarding := flag.String("bombard", "", "Bombarding ships")
	location := flag.String("location", "Ukraine", "Territory name")
	water := flag.Bool("water", false, "Battle at sea")
	effects := flag.String("effects", "", "Comma separated territory effects")
	seed := flag.Uint64("seed", 0, "Dice seed (0 for a time based seed)")
	retreatAfter := flag.Int("retreat-after", 0, "Attacker retreats after this round")
	amphibious := flag.Bool("amphibious", false, "Attacking land units come from transports")
	dev := flag.Bool("dev", false, "Log full event payloads")
	narrate := flag.Bool("narrate", false, "Print a plain narrative instead of log lines")
	flag.Parse()

	// Pretty console output; this tool is for watching a battle unfold
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	rs, err := config.Get().Combat.Ruleset()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ruleset")
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	fmt.Printf("Dice seed: %d\n", *seed)

	factory := core.NewUnitFactory()
	group := func(owner, spec string) core.UnitGroup {
		counts, err := calculator.ParseUnits(spec)
		if err != nil {
			log.Fatal().Err(err).Str("side", owner).Msg("Bad unit list")
		}
		g, err := rs.Group(factory, owner, counts)
		if err != nil {
			log.Fatal().Err(err).Str("side", owner).Msg("Bad unit list")
		}
		return g
	}
	att := group("attacker", *attacker)
	def := group("defender", *defender)
	bomb := group("attacker", *bombarding)

	var effectNames []string
	if *effects != "" {
		effectNames = strings.Split(*effects, ",")
	}
	territory, err := rs.Territory(*location, *water, effectNames...)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad territory")
	}

	bus := events.NewEventBus(log.Logger)
	if *narrate {
		bus.SubscribeFunc(events.AllEvents, func(e events.Event) {
			if e.Type() != events.TypeStatusTransition {
				fmt.Println(events.Narrate(e))
			}
		})
	} else {
		logSub := subscribers.NewLoggerSubscriber("battle-log", log.Logger, zerolog.InfoLevel)
		logSub.SetDevMode(*dev)
		bus.Subscribe(logSub)
	}

	var retreat battle.RetreatPolicy
	if *retreatAfter > 0 {
		retreat = battle.RetreatAfterRound{Round: *retreatAfter}
	}

	b, err := battle.New(battle.Config{
		Location:   *location,
		Attacker:   att,
		Defender:   def,
		Bombarding: bomb,
		Rules:      rs,
		Territory:  territory,
		Dice:       dice.NewSynchronized(*seed),
		Retreat:    retreat,
		Amphibious: *amphibious,
		Events:     bus,
		Logger:     log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create battle")
	}

	out, err := b.Fight(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Battle failed")
	}

	fmt.Println()
	fmt.Printf("Winner:            %s after %d rounds\n", out.Winner, out.Rounds)
	if out.Retreated {
		fmt.Println("The attacker retreated")
	}
	if out.Stalemate {
		fmt.Println("Neither side could damage the other")
	}
	fmt.Printf("Attacker left:     %s (lost %d TUV)\n", out.AttackerRemaining, out.AttackerTUVLost)
	fmt.Printf("Defender left:     %s (lost %d TUV)\n", out.DefenderRemaining, out.DefenderTUVLost)
	fmt.Printf("Status history:    %d transitions\n", len(b.History()))
}
