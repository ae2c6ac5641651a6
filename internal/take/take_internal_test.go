package take

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/register"
	"reelrun/internal/transport"
)

func TestParseRetryPolicyDefaultsToOneAttempt(t *testing.T) {
	policy, err := parseRetryPolicy(nil)
	require.NoError(t, err)
	require.Equal(t, 1, policy.Times)
}

func TestParseRetryPolicyReadsAttemptsBlock(t *testing.T) {
	policy, err := parseRetryPolicy([]byte(`{"attempts":{"times":3,"ms":10}}`))
	require.NoError(t, err)
	require.Equal(t, 3, policy.Times)
	require.Equal(t, 10, policy.Ms)
}

func TestParseRetryPolicyClampsTimesBelowOne(t *testing.T) {
	policy, err := parseRetryPolicy([]byte(`{"attempts":{"times":0}}`))
	require.NoError(t, err)
	require.Equal(t, 1, policy.Times)
}

type flakySender struct {
	failuresLeft int
	resp         frame.Response
}

func (f *flakySender) Send(ctx context.Context, p params.Params, req frame.Request) (frame.Response, error) {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return frame.Response{Status: 500, Body: []byte(`{}`)}, nil
	}
	return f.resp, nil
}

func TestRunRetriesUntilSuccessWithinAttemptsBudget(t *testing.T) {
	fr := &frame.Frame{
		Protocol: frame.HTTP,
		Cut:      frame.NewInstructionSet(),
		Request:  frame.Request{URI: "GET /x", Body: []byte("{}"), Etc: []byte(`{"attempts":{"times":3,"ms":1}}`)},
		Response: frame.Response{Status: 200, Body: []byte(`{"ok":true}`)},
	}
	sender := &flakySender{failuresLeft: 2, resp: frame.Response{Status: 200, Body: []byte(`{"ok":true}`)}}
	senders := transport.Registry{frame.HTTP: sender}

	result, err := Run(context.Background(), senders, params.BaseParams{Address: "x"}, register.New(), fr)
	require.NoError(t, err)
	require.EqualValues(t, 200, result.Payload.Status)
	require.NotEmpty(t, result.CorrelationID)
}

func TestConfirmSendNoOpWhenNotInteractive(t *testing.T) {
	fr := &frame.Frame{Protocol: frame.HTTP, Request: frame.Request{URI: "GET /x"}}
	err := confirmSend(params.Params{Interactive: false}, fr)
	require.NoError(t, err)
}

func TestRunExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	fr := &frame.Frame{
		Protocol: frame.HTTP,
		Cut:      frame.NewInstructionSet(),
		Request:  frame.Request{URI: "GET /x", Body: []byte("{}"), Etc: []byte(`{"attempts":{"times":2,"ms":1}}`)},
		Response: frame.Response{Status: 200, Body: []byte(`{"ok":true}`)},
	}
	sender := &flakySender{failuresLeft: 10, resp: frame.Response{Status: 200, Body: []byte(`{"ok":true}`)}}
	senders := transport.Registry{frame.HTTP: sender}

	_, err := Run(context.Background(), senders, params.BaseParams{Address: "x"}, register.New(), fr)
	require.Error(t, err)
}
