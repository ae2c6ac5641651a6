package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"reelrun/internal/record"
	"reelrun/internal/vreel"
)

func newVRecordCmd(g *globals) *cobra.Command {
	var outDir string
	var timeoutSecs float64

	cmd := &cobra.Command{
		Use:   "vrecord <vreel_path_or_json>",
		Short: "Run a virtual reel against a live service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := args[0]
			data, err := os.ReadFile(arg)
			if err != nil {
				data = []byte(arg)
			}
			vr, err := vreel.Parse(data)
			if err != nil {
				return err
			}

			opts := record.VirtualOptions{
				Base:       g.base(time.Duration(timeoutSecs * float64(time.Second))),
				Reel:       vr,
				TakeOutDir: outDir,
				CutOutPath: g.cutOut,
			}
			_, err = record.RunVirtual(context.Background(), senders(), opts)
			return err
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "take artifact output directory")
	cmd.Flags().Float64VarP(&timeoutSecs, "timeout", "t", 0, "per-request timeout in seconds")
	return cmd
}
