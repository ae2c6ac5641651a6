package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reelrun/internal/frame"
	"reelrun/internal/logx"
	"reelrun/internal/register"
	"reelrun/internal/take"
)

func newTakeCmd(g *globals) *cobra.Command {
	var cutPath string
	var noCut bool
	var output string

	cmd := &cobra.Command{
		Use:   "take <frame> [merge_cut...]",
		Short: "Run one frame against a live service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			framePath := args[0]
			mergeCuts := args[1:]

			data, err := os.ReadFile(framePath)
			if err != nil {
				return err
			}
			fr, err := frame.Parse(data)
			if err != nil {
				return err
			}

			reg := register.New()
			if !noCut && cutPath != "" {
				cutData, err := os.ReadFile(cutPath)
				if err != nil {
					return err
				}
				reg, err = register.FromJSON(cutData)
				if err != nil {
					return err
				}
			}
			for _, p := range mergeCuts {
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				extra, err := register.FromJSON(data)
				if err != nil {
					return err
				}
				reg.Merge(extra)
			}

			result, err := take.Run(context.Background(), senders(), g.base(0), reg, fr)
			if err != nil {
				logx.ReportMismatch(framePath, fr.Response, frame.Response{}, err)
				return err
			}

			out, err := result.Artifact()
			if err != nil {
				return err
			}
			if output != "" {
				return os.WriteFile(output, out, 0o644)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&cutPath, "cut", "c", "", "cut file path")
	cmd.Flags().BoolVar(&noCut, "no-cut", false, "run with an empty cut register")
	cmd.Flags().StringVarP(&output, "output", "o", "", "take artifact output path; defaults to stdout")
	return cmd
}
