// Package take implements the take runner: §4.8's hydrate-send-match-verify
// cycle for one frame against a live transport. Grounded on the original
// CLI's run_take (hydrate once, print, used for inspection) and extended to
// the full send/extract/validate loop record.rs's run_record drives per
// frame; the retry policy and tolerance-rule application are this module's
// own generalization of that cycle into a reusable, protocol-agnostic step.
package take

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/register"
	"reelrun/internal/rerrors"
	"reelrun/internal/transport"
	"reelrun/internal/validate"
)

// Result is the outcome of one successful take.
type Result struct {
	Frame   *frame.Frame   // the frame after hydration with writes visible
	Payload frame.Response // the live response actually received
	Writes  map[string]any // cut variables captured from Payload, if any

	// CorrelationID is a random UUID assigned to each successful take,
	// replacing the teacher's hand-rolled generateUUID. It is not part of
	// the serialized Artifact.
	CorrelationID string

	// masked is Frame re-hydrated with hide=true: hidden variables render
	// as "${_HIDDEN}" instead of their live value. Only built when the run
	// asked for it (hide flag set, i.e. not verbose).
	masked *frame.Frame
}

// Artifact renders the take artifact the way it's written to disk: the same
// deterministic, lexicographically-keyed encoding every frame document
// uses. Hidden variables are masked unless the run was verbose — masking is
// a display/serialization concern, never applied to the live request that
// was actually sent.
func (res *Result) Artifact() ([]byte, error) {
	fr := res.Frame
	if res.masked != nil {
		fr = res.masked
	}
	return json.MarshalIndent(fr, "", "  ")
}

// Run executes one frame against sender: it resolves per-frame params,
// hydrates with writes hidden, sends, extracts any declared writes from the
// live response into reg, re-hydrates with writes now visible, applies the
// frame's tolerance rules to the payload, and compares the two responses
// structurally. It retries per request.etc.attempts on any failure.
func Run(ctx context.Context, senders transport.Registry, base params.BaseParams, reg *register.Register, fr *frame.Frame) (*Result, error) {
	sender, err := senders.For(fr.Protocol)
	if err != nil {
		return nil, err
	}

	retry, err := parseRetryPolicy(fr.Request.Etc)
	if err != nil {
		return nil, err
	}
	attempts := retry.Times
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := attemptOnce(ctx, sender, base, reg, fr)
		if err == nil {
			reg.FlushIgnored()
			return result, nil
		}
		lastErr = err
		if attempt < attempts-1 && retry.Ms > 0 {
			select {
			case <-time.After(time.Duration(retry.Ms) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func attemptOnce(ctx context.Context, sender transport.Sender, base params.BaseParams, reg *register.Register, fr *frame.Frame) (*Result, error) {
	working := *fr

	p, err := base.Init(working.Request)
	if err != nil {
		return nil, err
	}

	// hide=false: the transport needs the live secret value, not the
	// "${_HIDDEN}" placeholder. Hiding is a display/serialization concern
	// (register.MarshalHidden), not something that belongs on the wire.
	if err := working.Hydrate(reg, false); err != nil {
		return nil, err
	}

	if err := confirmSend(p, fr); err != nil {
		return nil, err
	}

	payload, err := sender.Send(ctx, p, working.Request)
	if err != nil {
		return nil, err
	}

	writes, err := working.MatchPayload(payload)
	if err != nil {
		return nil, err
	}
	for name, v := range writes {
		if _, _, err := reg.WriteOp(name, v); err != nil {
			return nil, err
		}
	}

	working.Cut.HydrateWrites = true
	if err := working.Hydrate(reg, false); err != nil {
		return nil, err
	}

	frameRoot, err := frame.ResponseRoot(working.Response)
	if err != nil {
		return nil, err
	}
	payloadRoot, err := frame.ResponseRoot(payload)
	if err != nil {
		return nil, err
	}
	if err := validate.Apply(working.Response.Validation, frameRoot, payloadRoot); err != nil {
		return nil, err
	}

	expectedResp := frameRoot["response"].(map[string]any)
	actualResp := payloadRoot["response"].(map[string]any)
	if !reflect.DeepEqual(expectedResp, actualResp) {
		return nil, rerrors.New(rerrors.ValueMismatch, "live response did not match the frame's expected response", "")
	}

	var masked *frame.Frame
	if p.Hide {
		m := *fr
		m.Cut.HydrateWrites = true
		if err := m.Hydrate(reg, true); err != nil {
			return nil, err
		}
		masked = &m
	}

	return &Result{Frame: &working, Payload: payload, Writes: writes, CorrelationID: uuid.New().String(), masked: masked}, nil
}

// parseRetryPolicy reads request.etc.attempts, defaulting to a single,
// non-retried attempt when absent.
func parseRetryPolicy(etcRaw json.RawMessage) (params.RetryPolicy, error) {
	if len(etcRaw) == 0 {
		return params.RetryPolicy{Times: 1}, nil
	}
	var etc struct {
		Attempts *params.RetryPolicy `json:"attempts"`
	}
	if err := json.Unmarshal(etcRaw, &etc); err != nil {
		return params.RetryPolicy{}, rerrors.Wrap(rerrors.FrameParse, "invalid request.etc", string(etcRaw), err)
	}
	if etc.Attempts == nil {
		return params.RetryPolicy{Times: 1}, nil
	}
	if etc.Attempts.Times < 1 {
		etc.Attempts.Times = 1
	}
	return *etc.Attempts, nil
}
