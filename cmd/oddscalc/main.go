package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
	"github.com/mitchelldurbincs/wargame/internal/config"
	"github.com/mitchelldurbincs/wargame/internal/odds"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	attacker := flag.String("attacker", "", "Attacking units, e.g. infantry=3,armour=2")
	defender := flag.String("defender", "", "Defending units")
	bombarding := flag.String("bombard", "", "Bombarding ships")
	location := flag.String("location", "", "Territory name")
	water := flag.Bool("water", false, "Battle at sea")
	effects := flag.String("effects", "", "Comma separated territory effects")
	estimator := flag.String("estimator", "monte_carlo", "monte_carlo, lanchester or adaptive")
	runs := flag.Int("runs", 0, "Monte-Carlo run count (0 to use config default)")
	exponent := flag.Float64("exponent", 0, "Lanchester attrition exponent (0 to use config default)")
	maxRounds := flag.Int("max-rounds", 0, "Round limit (0 to use the ruleset's)")
	timeout := flag.Duration("timeout", 0, "Time budget (0 to use config default)")
	retreatAfter := flag.Int("retreat-after", 0, "Attacker retreats after this round")
	retreatUnits := flag.Int("retreat-units", 0, "Attacker retreats when this many units are left")
	attackerOrder := flag.String("attacker-ool", "", "Attacker order of losses, e.g. armour,infantry")
	defenderOrder := flag.String("defender-ool", "", "Defender order of losses")
	keepLand := flag.Bool("keep-land", false, "One attacking land unit must live")
	amphibious := flag.Bool("amphibious", false, "Attacking land units come from transports")
	progress := flag.Bool("progress", false, "Print Monte-Carlo progress")
	asJSON := flag.Bool("json", false, "Print the response as JSON")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	cfg := config.Get()

	rs, err := cfg.Combat.Ruleset()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ruleset")
	}

	opts := calculator.OptionsFromConfig(cfg.Estimator)
	if *runs > opts.MaxRunCount {
		opts.MaxRunCount = *runs
	}
	calc, err := calculator.New(rs, opts, nil, nil, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create calculator")
	}

	req := calculator.Request{
		Location:  *location,
		Water:     *water,
		Estimator: *estimator,
		RunCount:  *runs,
		Exponent:  *exponent,
		MaxRounds: *maxRounds,
		TimeoutMS: int(timeout.Milliseconds()),

		AttackerOrder:            calculator.ParseOrder(*attackerOrder),
		DefenderOrder:            calculator.ParseOrder(*defenderOrder),
		KeepOneAttackingLandUnit: *keepLand,
		Amphibious:               *amphibious,
	}
	if *effects != "" {
		for _, e := range strings.Split(*effects, ",") {
			req.Effects = append(req.Effects, strings.TrimSpace(e))
		}
	}
	if *retreatAfter > 0 || *retreatUnits > 0 {
		req.Retreat = &calculator.Retreat{AfterRound: *retreatAfter, UnitsLeft: *retreatUnits}
	}
	for _, side := range []struct {
		spec string
		dst  *map[string]int
	}{
		{*attacker, &req.Attacker},
		{*defender, &req.Defender},
		{*bombarding, &req.Bombarding},
	} {
		units, err := calculator.ParseUnits(side.spec)
		if err != nil {
			fatalf("%v", err)
		}
		*side.dst = units
	}

	var onProgress func(odds.AggregateResult)
	if *progress {
		onProgress = func(snap odds.AggregateResult) {
			fmt.Fprintf(os.Stderr, "  %d runs: attacker %.1f%%\n", snap.RunCount, 100*snap.AttackerWinPercent)
		}
	}

	resp, err := calc.Calculate(context.Background(), req, onProgress)
	if err != nil {
		fatalf("%v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fatalf("%v", err)
		}
		return
	}
	printResponse(resp)
}

func printResponse(resp calculator.Response) {
	if resp.Status == calculator.StatusCouldNotCompute {
		fmt.Printf("Could not compute: %s\n", resp.Reason)
		return
	}
	r := resp.Result
	fmt.Printf("Estimator:        %s", resp.Estimator)
	if r.Cached {
		fmt.Print(" (cached)")
	}
	fmt.Println()
	if resp.Status == calculator.StatusPartial {
		fmt.Println("Result is partial: the time budget ran out")
	}
	fmt.Printf("Runs:             %d (%d skipped) in %s\n", r.RunCount, r.Skipped, r.Elapsed.Round(time.Millisecond))
	fmt.Printf("Attacker wins:    %6.2f%%\n", 100*r.AttackerWinPercent)
	fmt.Printf("Defender wins:    %6.2f%%\n", 100*r.DefenderWinPercent)
	fmt.Printf("Draw:             %6.2f%%\n", 100*r.DrawPercent)
	fmt.Printf("Average rounds:   %.2f\n", r.AverageRounds)
	fmt.Printf("Units left:       attacker %.2f, defender %.2f\n", r.AverageAttackerUnitsLeft, r.AverageDefenderUnitsLeft)
	fmt.Printf("Left when won:    attacker %.2f, defender %.2f\n", r.AverageAttackerUnitsLeftWhenAttackerWon, r.AverageDefenderUnitsLeftWhenDefenderWon)
	fmt.Printf("TUV left:         attacker %.2f, defender %.2f\n", r.AverageAttackerTUVLeft, r.AverageDefenderTUVLeft)
	fmt.Printf("TUV swing:        %+.2f\n", r.AverageTUVSwing)
	fmt.Printf("Most likely:      %s\n", r.Winner)
	if len(r.AttackerSurvivors) > 0 || len(r.DefenderSurvivors) > 0 {
		fmt.Printf("Survivors:        attacker %v, defender %v\n", r.AttackerSurvivors, r.DefenderSurvivors)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "oddscalc: "+format+"\n", args...)
	os.Exit(1)
}
