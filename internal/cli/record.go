package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelrun/internal/record"
)

func newRecordCmd(g *globals) *cobra.Command {
	var cutPath string
	var components []string
	var outDir string
	var rangeFlag string
	var timeoutSecs float64
	var showTimestamp bool
	var showDuration bool

	cmd := &cobra.Command{
		Use:   "record <reel_dir> <reel_name> [merge_cut...]",
		Short: "Run every frame of a reel against a live service",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reelDir, reelName := args[0], args[1]
			mergeCuts := args[2:]

			opts := record.Options{
				Base:          g.base(time.Duration(timeoutSecs * float64(time.Second))),
				CutPath:       cutPath,
				ReelDir:       reelDir,
				ReelName:      reelName,
				Components:    components,
				MergeCutPaths: mergeCuts,
				TakeOutDir:    outDir,
				CutOutPath:    g.cutOut,
			}
			if rangeFlag != "" {
				start, end, err := parseRange(rangeFlag)
				if err != nil {
					return err
				}
				opts.HasRange = true
				opts.RangeStart = start
				opts.RangeEnd = end
			}

			start := time.Now()
			_, err := record.Run(context.Background(), senders(), opts)
			if showDuration {
				fmt.Printf("record took %s\n", time.Since(start))
			}
			if showTimestamp {
				fmt.Println(time.Now().UTC().Format(time.RFC3339))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&cutPath, "cut", "c", "", "cut file path")
	cmd.Flags().StringArrayVarP(&components, "component", "b", nil, `component reel reference "dir&name" (repeatable)`)
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "take artifact output directory")
	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "", `sequence range filter "start-end"`)
	cmd.Flags().Float64VarP(&timeoutSecs, "timeout", "t", 0, "per-request timeout in seconds")
	cmd.Flags().BoolVar(&showTimestamp, "timestamp", false, "print a timestamp after the run")
	cmd.Flags().BoolVar(&showDuration, "duration", false, "print the run's wall-clock duration")
	return cmd
}

// parseRange parses "start-end" into an inclusive [start, end] pair.
func parseRange(s string) (int, int, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range must be \"start-end\", got %q", s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
