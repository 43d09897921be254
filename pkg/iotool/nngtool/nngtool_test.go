package nngtool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
)

func startServer(t *testing.T, addr string, tool iotool.Tool) {
	t.Helper()
	srv, err := Listen(addr, tool, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
}

func TestClientServerRoundTrip(t *testing.T) {
	const addr = "inproc://nngtool-roundtrip"
	backing := iotool.NewMemoryTool()
	startServer(t, addr, backing)

	client, err := Dial(addr, 2*time.Second)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	resp, err := client.Store(ctx, "lab", []byte("<a> <b> \"c\" ."))
	require.NoError(t, err)
	assert.Equal(t, iotool.CodeOK, resp.Code)
	assert.Equal(t, 1, backing.Len())

	resp, err = client.Request(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lab": "<a> <b> \"c\" ."}, resp.Data)

	resp, err = client.Drop(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, iotool.CodeOK, resp.Code)

	resp, err = client.Drop(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, iotool.CodeNotFound, resp.Code)
}

func TestGatewayOverNNG(t *testing.T) {
	const addr = "inproc://nngtool-gateway"
	startServer(t, addr, iotool.NewMemoryTool())

	client, err := Dial(addr, 2*time.Second)
	require.NoError(t, err)
	defer client.Close()

	g := iotool.NewGateway(client, iotool.WithLogger(logging.NewNopLogger()))
	res, err := g.StoreTopology(context.Background(), "x", []byte("y"))
	require.NoError(t, err)
	assert.Equal(t, iotool.StatusSuccess, res.Status)
	assert.Equal(t, iotool.StateIdle, g.State())
}

func TestUnreachableServer(t *testing.T) {
	client, err := Dial("inproc://nngtool-nobody", 100*time.Millisecond)
	require.NoError(t, err)
	defer client.Close()

	g := iotool.NewGateway(client, iotool.WithLogger(logging.NewNopLogger()))
	res, err := g.RequestTopology(context.Background(), "x")

	var terr *iotool.ExternalToolError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, iotool.CodeUnreachable, res.Code)
	assert.Equal(t, iotool.StateIdle, g.State())
}

func TestServerRejectsUnknownOperation(t *testing.T) {
	srv := &Server{tool: iotool.NewMemoryTool(), logger: logging.NewNopLogger()}

	resp := srv.handle(context.Background(), []byte(`{"op":"format","id":"x"}`))
	assert.Equal(t, iotool.CodeInvalid, resp.Code)

	resp = srv.handle(context.Background(), []byte(`not json`))
	assert.Equal(t, iotool.CodeInvalid, resp.Code)
}
