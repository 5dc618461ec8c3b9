// Command replay rebuilds a game from a stored action log and checks that
// the replay reproduces the recorded log.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/cards"
	"github.com/magefree/mage-engine-go/internal/repository"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	file       = flag.String("file", "", "replay file to load instead of the configured store")
	gameID     = flag.String("game", "", "id of the game to load from the replay store")
	actions    = flag.Int("actions", -1, "replay only the first n actions")
	viewer     = flag.String("viewer", "", "print the final view as this player sees it")
	printView  = flag.Bool("view", false, "print the final game view as JSON")
	verbose    = flag.Bool("v", false, "log engine events")
)

func main() {
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	if err := run(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	log, err := loadLog(ctx, logger)
	if err != nil {
		return err
	}

	g, err := game.ReplayActions(log, cards.Default(), *actions, game.WithLogger(logger))
	if err != nil {
		return err
	}

	fmt.Printf("game     %s\n", log.GameID)
	fmt.Printf("seed     %d\n", log.Seed)
	fmt.Printf("actions  %d\n", len(log.Actions()))
	fmt.Printf("state    %s\n", g.State())
	fmt.Printf("turn     %d (%s)\n", g.TurnNumber(), g.Step())
	if w := g.Winner(); w != "" {
		fmt.Printf("winner   %s\n", w)
	}

	if *actions < 0 {
		want, err := log.Checksum()
		if err != nil {
			return fmt.Errorf("checksum of stored log: %w", err)
		}
		got, err := g.Log().Checksum()
		if err != nil {
			return fmt.Errorf("checksum of replayed log: %w", err)
		}
		if want != got {
			return fmt.Errorf("replay diverged: stored %s, replayed %s",
				hex.EncodeToString(want[:]), hex.EncodeToString(got[:]))
		}
		fmt.Printf("checksum %s ok\n", hex.EncodeToString(want[:]))
	}

	if *printView {
		data, err := json.MarshalIndent(g.View(*viewer), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	return nil
}

func loadLog(ctx context.Context, logger *zap.Logger) (*game.ActionLog, error) {
	if *file != "" {
		return game.LoadActionLog(*file)
	}
	if *gameID == "" {
		return nil, errors.New("either -file or -game is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	store, err := repository.Open(ctx, cfg.Database, cfg.Replay.Dir, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LoadReplay(ctx, *gameID)
}
