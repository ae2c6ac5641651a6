// Package params implements the run-wide parameters a take or record run
// carries (address, headers, TLS, proto descriptors, retry policy,
// timeout, interactive/hide flags) and the per-frame overlay that lets a
// frame's own request.header/request.entrypoint take precedence over them.
package params

import (
	"encoding/json"
	"errors"
	"time"

	"reelrun/internal/frame"
)

// RetryPolicy is the optional {times, ms} retry declaration read from a
// frame's request.etc.attempts.
type RetryPolicy struct {
	Times int `json:"times"`
	Ms    int `json:"ms"`
}

// Params is the fully-resolved parameter set for one take, after a frame's
// own header/entrypoint have been overlaid onto the run-wide BaseParams.
type Params struct {
	Address      string
	Header       json.RawMessage
	TLS          bool
	ProtoDirs    []string
	ProtoImports []string
	Timeout      time.Duration // 0 disables the transport timeout
	Interactive  bool
	Hide         bool
}

// BaseParams is the run-wide configuration supplied by the CLI or the
// record runner before any per-frame overlay is applied.
type BaseParams struct {
	TLS          bool
	Header       json.RawMessage
	Address      string // may be empty; a frame's entrypoint can still supply it
	ProtoDirs    []string
	ProtoImports []string
	Timeout      time.Duration
	Interactive  bool
	Hide         bool
}

// Init overlays request's header and entrypoint on top of b's run-wide
// values, producing the Params for one take. It fails if no address is
// available from either source.
func (b BaseParams) Init(request frame.Request) (Params, error) {
	header := b.Header
	if len(request.Header) > 0 {
		header = request.Header
	}

	address := b.Address
	if len(request.Entrypoint) > 0 {
		var s string
		if err := json.Unmarshal(request.Entrypoint, &s); err == nil {
			address = s
		}
	}
	if address == "" {
		return Params{}, errors.New("missing address: neither the run nor the frame's entrypoint supplied one")
	}

	return Params{
		Address:      address,
		Header:       header,
		TLS:          b.TLS,
		ProtoDirs:    b.ProtoDirs,
		ProtoImports: b.ProtoImports,
		Timeout:      b.Timeout,
		Interactive:  b.Interactive,
		Hide:         b.Hide,
	}, nil
}
