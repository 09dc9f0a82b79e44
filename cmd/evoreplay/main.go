// Command evoreplay inspects game fixtures, snapshots and replay files.
//
//	evoreplay fixture game.yaml --player u0   print a fixture as a (projected) snapshot
//	evoreplay checksum game.yaml|state.json   print the public checksum of a state
//	evoreplay view game.replay --frame 3      print one replay frame
//	evoreplay verify game.replay              re-run a replay and compare checksums
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/fixture"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	playerFlag := &cli.StringFlag{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "project the state for this player; empty prints the full state",
	}
	return &cli.Command{
		Name:  "evoreplay",
		Usage: "inspect evolution game states and replays",
		Commands: []*cli.Command{
			{
				Name:      "fixture",
				Usage:     "build a state from a YAML fixture",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{playerFlag},
				Action: func(_ context.Context, cmd *cli.Command) error {
					s, err := loadState(cmd.Args().First())
					if err != nil {
						return err
					}
					return printState(out, s, cmd.String("player"), cmd.IsSet("player"))
				},
			},
			{
				Name:      "checksum",
				Usage:     "print the checksum of a fixture or JSON snapshot",
				ArgsUsage: "FILE",
				Action: func(_ context.Context, cmd *cli.Command) error {
					s, err := loadState(cmd.Args().First())
					if err != nil {
						return err
					}
					sum, err := game.Checksum(s)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(out, "%s v%d\n", sum.Hash, sum.Version)
					return err
				},
			},
			{
				Name:      "view",
				Usage:     "print one frame of a replay file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					playerFlag,
					&cli.Int64Flag{
						Name:  "frame",
						Value: -1,
						Usage: "frame index; negative counts from the end",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					replay, err := readReplay(cmd.Args().First())
					if err != nil {
						return err
					}
					index := int(cmd.Int64("frame"))
					if index < 0 {
						index += replay.Size()
					}
					s, err := replay.StateAt(index)
					if err != nil {
						return err
					}
					return printState(out, s, cmd.String("player"), cmd.IsSet("player"))
				},
			},
			{
				Name:      "verify",
				Usage:     "re-apply every recorded action and compare checksums",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log engine output"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					replay, err := readReplay(cmd.Args().First())
					if err != nil {
						return err
					}
					logger := zap.NewNop()
					if cmd.Bool("verbose") {
						if logger, err = zap.NewDevelopment(); err != nil {
							return err
						}
						defer logger.Sync()
					}
					if err := replay.Verify(ctx, game.NewEngine(logger)); err != nil {
						return fmt.Errorf("replay %s diverged: %w", replay.GameID, err)
					}
					_, err = fmt.Fprintf(out, "replay %s ok: %d frames\n", replay.GameID, replay.Size())
					return err
				},
			},
		},
	}
}

// loadState reads a JSON snapshot (.json) or a YAML fixture (anything else).
func loadState(path string) (*game.State, error) {
	if path == "" {
		return nil, errors.New("missing FILE argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		s, err := game.Decode(data)
		if err != nil {
			return nil, err
		}
		return s, game.Validate(s)
	}
	return fixture.Parse(string(data))
}

func readReplay(path string) (*game.Replay, error) {
	if path == "" {
		return nil, errors.New("missing FILE argument")
	}
	return game.ReadReplayFile(path)
}

func printState(out io.Writer, s *game.State, player string, project bool) error {
	if project {
		s = game.Project(s, player)
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}
