// Package grpctx is the gRPC transport adapter: it shells out to the
// external grpcurl binary, grounded directly on the original CLI's grpcurl
// invocation and its YAML error-status decoding.
package grpctx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"gopkg.in/yaml.v3"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/rerrors"
)

// grpcStatusCodes maps grpcurl's textual status names to their numeric
// gRPC status codes.
var grpcStatusCodes = map[string]uint32{
	"Canceled":           1,
	"Unknown":            2,
	"InvalidArgument":    3,
	"DeadlineExceeded":   4,
	"NotFound":           5,
	"AlreadyExists":      6,
	"PermissionDenied":   7,
	"ResourceExhausted":  8,
	"FailedPrecondition": 9,
	"Aborted":            10,
	"OutOfRange":         11,
	"Unimplemented":      12,
	"Internal":           13,
	"Unavailable":        14,
	"DataLoss":           15,
	"Unauthenticated":    16,
}

type grpcurlError struct {
	Error struct {
		Code    string `yaml:"Code"`
		Message string `yaml:"Message"`
	} `yaml:"ERROR"`
}

// Client invokes grpcurl as a subprocess per request.
type Client struct{}

// New returns a ready-to-use Client.
func New() *Client { return &Client{} }

// ValidateAvailable reports whether grpcurl is discoverable on PATH.
func ValidateAvailable() error {
	if _, err := exec.LookPath("grpcurl"); err != nil {
		return rerrors.Wrap(rerrors.Transport, "grpcurl was not found on PATH", "", err)
	}
	return nil
}

// Send invokes grpcurl with the resolved params and hydrated request,
// returning the decoded response. A zero exit status yields Response{Status:
// 0, Body: stdout}; a nonzero exit status decodes grpcurl's YAML error
// block into (status, message).
func (c *Client) Send(ctx context.Context, p params.Params, req frame.Request) (frame.Response, error) {
	var args []string

	if len(p.Header) > 0 {
		var hm map[string]any
		if err := json.Unmarshal(p.Header, &hm); err == nil {
			for k, v := range hm {
				args = append(args, "-H", fmt.Sprintf("%s: %v", k, v))
			}
		}
	}
	if !p.TLS {
		args = append(args, "-plaintext")
	}
	for _, dir := range p.ProtoDirs {
		args = append(args, "-import-path", dir)
	}
	for _, f := range p.ProtoImports {
		args = append(args, "-proto", f)
	}

	body := req.Body
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	args = append(args, "-d", string(body), p.Address, req.URI)

	runCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "grpcurl", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code, message, parseErr := decodeGrpcurlError(stderr.Bytes())
		if parseErr != nil {
			return frame.Response{}, rerrors.Wrap(rerrors.Transport, "grpcurl failed", stderr.String(), err)
		}
		bodyRaw, merr := json.Marshal(message)
		if merr != nil {
			return frame.Response{}, rerrors.Wrap(rerrors.Transport, "could not encode grpc error message", message, merr)
		}
		return frame.Response{Status: code, Body: bodyRaw}, nil
	}

	var bodyVal any
	if err := json.Unmarshal(stdout.Bytes(), &bodyVal); err != nil {
		return frame.Response{}, rerrors.Wrap(rerrors.Transport, "invalid grpcurl response body", stdout.String(), err)
	}
	bodyRaw, err := json.Marshal(bodyVal)
	if err != nil {
		return frame.Response{}, rerrors.Wrap(rerrors.Transport, "could not encode response body", "", err)
	}
	return frame.Response{Status: 0, Body: bodyRaw}, nil
}

func decodeGrpcurlError(stderr []byte) (uint32, string, error) {
	var e grpcurlError
	if err := yaml.Unmarshal(stderr, &e); err != nil {
		return 0, "", err
	}
	code, ok := grpcStatusCodes[e.Error.Code]
	if !ok {
		return 0, "", fmt.Errorf("unexpected grpc error code %q", e.Error.Code)
	}
	return code, e.Error.Message, nil
}
