// Package transport defines the Sender contract both protocol adapters
// (httptx, grpctx) implement, so the take runner can depend on the
// interface rather than a concrete client.
package transport

import (
	"context"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/rerrors"
)

// Sender sends one hydrated request over a protocol and returns the
// response the engine will extract writes from and validate.
type Sender interface {
	Send(ctx context.Context, p params.Params, req frame.Request) (frame.Response, error)
}

// Registry routes a frame's declared protocol to the Sender that handles
// it, so a single take or record run can carry frames of mixed protocol.
type Registry map[frame.Protocol]Sender

// For returns the Sender registered for p.
func (r Registry) For(p frame.Protocol) (Sender, error) {
	s, ok := r[p]
	if !ok {
		return nil, rerrors.New(rerrors.Transport, "no transport adapter registered for protocol", string(p))
	}
	return s, nil
}
