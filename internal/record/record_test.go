package record_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"reelrun/internal/frame"
	"reelrun/internal/mockserver"
	"reelrun/internal/params"
	"reelrun/internal/record"
	"reelrun/internal/transport"
	"reelrun/internal/transport/httptx"
	"reelrun/internal/vreel"
)

func startMock(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	s := mockserver.New(logr.Discard())
	s.AddStub(mockserver.Stub{
		Request:  mockserver.RequestMatcher{Method: "GET", URLPath: "/widgets/1"},
		Response: mockserver.StubResponse{Status: 200, Body: `{"id":"1"}`},
	})
	go func() { _ = s.Serve(ln) }()
	return "http://" + ln.Addr().String()
}

func writeFrame(t *testing.T, dir, name string) {
	t.Helper()
	doc := `{
		"protocol": "HTTP",
		"request": {"uri": "GET /widgets/1", "body": {}},
		"response": {"status": 200, "body": {"id": "1"}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
}

func TestRunDrivesReelAndPersistsCut(t *testing.T) {
	addr := startMock(t)
	dir := t.TempDir()
	writeFrame(t, dir, "widgets.1s.getOne.fr.json")
	cutPath := filepath.Join(dir, "base.cut.json")
	require.NoError(t, os.WriteFile(cutPath, []byte(`{}`), 0o644))

	opts := record.Options{
		Base:       params.BaseParams{Address: addr},
		CutPath:    cutPath,
		ReelDir:    dir,
		ReelName:   "widgets",
		CutOutPath: dir,
	}
	senders := transport.Registry{frame.HTTP: httptx.New()}

	_, err := record.Run(context.Background(), senders, opts)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".widgets.cut.json"))
	require.NoError(t, err)
}

func TestRunVirtualDrivesListedFrames(t *testing.T) {
	addr := startMock(t)
	dir := t.TempDir()
	writeFrame(t, dir, "only.fr.json")

	vr, err := vreel.Parse([]byte(`{"name":"widgets","frames":["` + filepath.Join(dir, "only.fr.json") + `"],"cut":{}}`))
	require.NoError(t, err)

	opts := record.VirtualOptions{Base: params.BaseParams{Address: addr}, Reel: vr}
	senders := transport.Registry{frame.HTTP: httptx.New()}

	_, err = record.RunVirtual(context.Background(), senders, opts)
	require.NoError(t, err)
}
