package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pellston/hexhammer/internal/bot"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		scenario   string
		redPolicy  string
		bluePolicy string
		numMatches int
		workers    int
		maxTurns   int
		seed       int64
		modelPath  string
		jsonOut    bool
	)

	flag.StringVar(&scenario, "scenario", "crossfire", "Scenario name")
	flag.StringVar(&redPolicy, "red", "greedy", "Red policy (random, greedy, onnx)")
	flag.StringVar(&bluePolicy, "blue", "greedy", "Blue policy (random, greedy, onnx)")
	flag.IntVar(&numMatches, "n", 1, "Number of matches to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel matches)")
	flag.IntVar(&maxTurns, "max-turns", 5, "Turn limit per match")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.StringVar(&modelPath, "model", os.Getenv("POLICY_MODEL"), "ONNX policy model path")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Run matches
	results := make([]*bot.ArenaResult, numMatches)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for i := 0; i < numMatches; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			matchSeed := seed
			if seed != 0 {
				matchSeed = seed + int64(idx)
			}

			cfg := bot.ArenaConfig{
				Scenario:   scenario,
				RedPolicy:  redPolicy,
				BluePolicy: bluePolicy,
				MaxTurns:   maxTurns,
				Seed:       matchSeed,
				ModelPath:  modelPath,
			}

			result, err := bot.RunMatch(ctx, cfg)
			if err != nil {
				log.Error().Err(err).Int("match", idx+1).Msg("Match failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("match", idx+1).Str("winner", winnerLabel(result.Winner)).
				Int("turns", result.Turns).Int("actions", result.Actions).Msg("Match completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numMatches, errCount)
	} else {
		printSummary(results, scenario, redPolicy, bluePolicy, errCount)
	}
}

func winnerLabel(w string) string {
	if w == "" {
		return "draw"
	}
	return w
}

func printSummary(results []*bot.ArenaResult, scenario, redPolicy, bluePolicy string, errCount int) {
	type stats struct {
		wins    int
		totalVP int
	}
	red := &stats{}
	blue := &stats{}

	completed := 0
	draws := 0
	totalTurns := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		totalTurns += r.Turns
		red.totalVP += r.VictoryPoints["red"]
		blue.totalVP += r.VictoryPoints["blue"]
		switch r.Winner {
		case "red":
			red.wins++
		case "blue":
			blue.wins++
		default:
			draws++
		}
	}

	fmt.Printf("\nResults on %s (%d matches):\n", scenario, completed)
	if errCount > 0 {
		fmt.Printf("  (%d matches failed)\n", errCount)
	}
	if completed == 0 {
		return
	}

	avgVP := func(s *stats) float64 { return float64(s.totalVP) / float64(completed) }
	fmt.Printf("  red  (%-6s): %d wins  -- avg VP: %.1f\n", redPolicy, red.wins, avgVP(red))
	fmt.Printf("  blue (%-6s): %d wins  -- avg VP: %.1f\n", bluePolicy, blue.wins, avgVP(blue))
	fmt.Printf("  draws: %d, avg turns: %.1f\n", draws, float64(totalTurns)/float64(completed))
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	out := struct {
		Total   int                `json:"total"`
		Errors  int                `json:"errors"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
