package mockserver

import (
	"net"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	s := New(logr.Discard())
	go func() { _ = s.Serve(ln) }()
	return s, ln.Addr().String()
}

func TestServerMatchesRegisteredStub(t *testing.T) {
	s, addr := startTestServer(t)
	s.AddStub(Stub{
		Request:  RequestMatcher{Method: "GET", URLPath: "/widgets/1"},
		Response: StubResponse{Status: 200, Body: `{"id":"1"}`},
	})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + addr + "/widgets/1")
	req.Header.SetMethod("GET")
	require.NoError(t, fasthttp.Do(req, resp))
	require.Equal(t, 200, resp.StatusCode())
	require.JSONEq(t, `{"id":"1"}`, string(resp.Body()))
}

func TestServerReturnsNotFoundOnNoMatch(t *testing.T) {
	s, addr := startTestServer(t)
	s.AddStub(Stub{Request: RequestMatcher{Method: "GET", URLPath: "/widgets/1"}, Response: StubResponse{Status: 200}})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + addr + "/widgets/2")
	req.Header.SetMethod("GET")
	require.NoError(t, fasthttp.Do(req, resp))
	require.Equal(t, 404, resp.StatusCode())
}

func TestServerResetClearsStubs(t *testing.T) {
	s, addr := startTestServer(t)
	s.AddStub(Stub{Request: RequestMatcher{Method: "GET", URLPath: "/x"}, Response: StubResponse{Status: 200}})
	s.Reset()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + addr + "/x")
	req.Header.SetMethod("GET")
	require.NoError(t, fasthttp.Do(req, resp))
	require.Equal(t, 404, resp.StatusCode())
}

func TestMoreSpecificStubWinsTie(t *testing.T) {
	s, addr := startTestServer(t)
	s.AddStub(Stub{
		Request:  RequestMatcher{Method: "GET", URLPath: "/widgets"},
		Response: StubResponse{Status: 200, Body: `{"match":"loose"}`},
	})
	s.AddStub(Stub{
		Request:  RequestMatcher{Method: "GET", URLPath: "/widgets", Query: map[string]QueryMatcher{"id": {EqualTo: "7"}}},
		Response: StubResponse{Status: 200, Body: `{"match":"specific"}`},
	})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + addr + "/widgets?id=7")
	req.Header.SetMethod("GET")
	require.NoError(t, fasthttp.Do(req, resp))
	require.JSONEq(t, `{"match":"specific"}`, string(resp.Body()))
}
