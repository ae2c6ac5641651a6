package httptx_test

import (
	"context"
	"net"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"reelrun/internal/frame"
	"reelrun/internal/mockserver"
	"reelrun/internal/params"
	"reelrun/internal/transport/httptx"
)

func startMock(t *testing.T, stub mockserver.Stub) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	s := mockserver.New(logr.Discard())
	s.AddStub(stub)
	go func() { _ = s.Serve(ln) }()
	return ln.Addr().String()
}

func TestSendDecodesJSONResponseBody(t *testing.T) {
	addr := startMock(t, mockserver.Stub{
		Request:  mockserver.RequestMatcher{Method: "GET", URLPath: "/widgets/1"},
		Response: mockserver.StubResponse{Status: 200, Body: `{"id":"1"}`},
	})

	c := httptx.New()
	resp, err := c.Send(context.Background(), params.Params{Address: addr}, frame.Request{URI: "GET /widgets/1", Body: []byte("{}")})
	require.NoError(t, err)
	require.EqualValues(t, 200, resp.Status)
	require.JSONEq(t, `{"id":"1"}`, string(resp.Body))
}

func TestSendAppliesQueryFromEtc(t *testing.T) {
	addr := startMock(t, mockserver.Stub{
		Request:  mockserver.RequestMatcher{Method: "GET", URLPath: "/widgets", Query: map[string]mockserver.QueryMatcher{"id": {EqualTo: "7"}}},
		Response: mockserver.StubResponse{Status: 200, Body: `{"matched":true}`},
	})

	c := httptx.New()
	resp, err := c.Send(context.Background(), params.Params{Address: addr}, frame.Request{
		URI:  "GET /widgets",
		Body: []byte("{}"),
		Etc:  []byte(`{"query":{"id":"7"}}`),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"matched":true}`, string(resp.Body))
}

func TestSendReturnsNotFoundStatusOnNoMatch(t *testing.T) {
	addr := startMock(t, mockserver.Stub{
		Request:  mockserver.RequestMatcher{Method: "GET", URLPath: "/other"},
		Response: mockserver.StubResponse{Status: 200},
	})

	c := httptx.New()
	resp, err := c.Send(context.Background(), params.Params{Address: addr}, frame.Request{URI: "GET /widgets/1", Body: []byte("{}")})
	require.NoError(t, err)
	require.EqualValues(t, 404, resp.Status)
}
