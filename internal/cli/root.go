// Package cli wires the thin command-line surface described in the
// EXTERNAL INTERFACES section: take/record/vrecord subcommands sharing a
// set of global transport flags, grounded on the spf13/cobra +
// spf13/pflag command style the rest of the pack reaches for.
package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/transport"
	"reelrun/internal/transport/grpctx"
	"reelrun/internal/transport/httptx"
)

// globals holds the persistent flag values shared by every subcommand.
type globals struct {
	address     string
	header      string
	tls         bool
	protoDirs   []string
	protoFiles  []string
	cutOut      string
	interactive bool
	verbose     bool
}

// NewRoot builds the "reelrun" root command.
func NewRoot() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "reelrun",
		Short: "Run declarative request/response contract tests against a live service",
	}
	flags := root.PersistentFlags()
	flags.StringVar(&g.address, "address", "", "default request entrypoint, overridden by a frame's own request.entrypoint")
	flags.StringVarP(&g.header, "header", "H", "", "default request header JSON object, overridden by a frame's own request.header")
	flags.BoolVar(&g.tls, "tls", false, "use TLS for the HTTP/gRPC transport")
	flags.StringArrayVar(&g.protoDirs, "proto-dir", nil, "gRPC proto import directory (repeatable)")
	flags.StringArrayVarP(&g.protoFiles, "proto", "p", nil, "gRPC proto file (repeatable)")
	flags.StringVar(&g.cutOut, "cut-out", "", "path (or directory) to persist the final cut register to (record and vrecord only)")
	flags.BoolVarP(&g.interactive, "interactive", "i", false, "prompt before sending each request")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "show hidden cut variables unmasked in take artifacts")

	root.AddCommand(newTakeCmd(g))
	root.AddCommand(newRecordCmd(g))
	root.AddCommand(newVRecordCmd(g))
	return root
}

// base builds a params.BaseParams from the global flags, applying timeout
// (0 disables it) separately since only record/vrecord expose it.
func (g *globals) base(timeout time.Duration) params.BaseParams {
	var header json.RawMessage
	if g.header != "" {
		header = json.RawMessage(g.header)
	}
	return params.BaseParams{
		TLS:          g.tls,
		Header:       header,
		Address:      g.address,
		ProtoDirs:    g.protoDirs,
		ProtoImports: g.protoFiles,
		Timeout:      timeout,
		Interactive:  g.interactive,
		Hide:         !g.verbose,
	}
}

// senders builds the protocol registry both transport adapters serve.
func senders() transport.Registry {
	return transport.Registry{
		frame.HTTP: httptx.New(),
		frame.GRPC: grpctx.New(),
	}
}
