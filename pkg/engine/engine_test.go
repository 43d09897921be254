package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-topology/pkg/graphsync"
	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/metrics"
	"github.com/dd0wney/cluso-topology/pkg/semgraph"
	"github.com/dd0wney/cluso-topology/pkg/topology"
	"github.com/dd0wney/cluso-topology/pkg/validation"
)

type fixture struct {
	engine *Engine
	store  *topology.Store
	tool   *iotool.MemoryTool
	reg    *metrics.Registry
}

func newFixture(t *testing.T, store *topology.Store, syncOpts ...graphsync.Option) *fixture {
	t.Helper()
	if store == nil {
		store = topology.NewStore()
	}
	nop := logging.NewNopLogger()
	reg := metrics.NewRegistry()
	tool := iotool.NewMemoryTool()

	s := graphsync.New(store, semgraph.NewModel(), append([]graphsync.Option{graphsync.WithLogger(nop)}, syncOpts...)...)
	g := iotool.NewGateway(tool, iotool.WithLogger(nop))
	e := New(s, g, WithLogger(nop), WithMetrics(reg))
	return &fixture{engine: e, store: store, tool: tool, reg: reg}
}

func network(address string, prefix int, version string) validation.NetworkRequest {
	return validation.NetworkRequest{Address: address, SubnetMask: validation.Mask(prefix), Version: version}
}

type brokenCodec struct {
	graphsync.DefaultCodec
}

func (brokenCodec) Encode(topology.Snapshot) (*semgraph.Graph, error) {
	return nil, errors.New("graph store offline")
}

func TestCreateNetwork_Success(t *testing.T) {
	f := newFixture(t, nil)

	res := f.engine.CreateNetwork(network("192.168.1.0", 24, "4"))

	require.Equal(t, StatusSuccess, res.Status, res.Message)
	require.Len(t, res.Topology.Networks, 1)
	n := res.Topology.Networks[0]
	assert.Equal(t, "192.168.1.0", n.Address)
	assert.Equal(t, 24, n.PrefixLength)
	assert.Equal(t, n.ID, res.ElementID)
	assert.Equal(t, RecoveryNone, res.Recovery)
	assert.True(t, f.engine.Synchronizer().InSync(), "graph follows every mutation")
}

func TestCreateNetwork_Malformed(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, StatusSuccess, f.engine.CreateNetwork(network("10.0.0.0", 8, "v4")).Status)
	before := f.store.Len()

	tests := []struct {
		name string
		req  validation.NetworkRequest
	}{
		{"bad octet", network("192.168.1.999", 24, "4")},
		{"prefix too long", network("192.168.1.0", 33, "4")},
		{"family mismatch", network("2001:db8::", 32, "4")},
		{"unknown version", network("192.168.1.0", 24, "7")},
		{"non-numeric mask", validation.NetworkRequest{Address: "192.168.1.0", SubnetMask: "eight", Version: "4"}},
		{"fractional mask", validation.NetworkRequest{Address: "192.168.1.0", SubnetMask: "24.5", Version: "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.engine.CreateNetwork(tt.req)

			assert.Equal(t, StatusGeneralError, res.Status)
			assert.Equal(t, MalformedNetworkMessage, res.Message)
			assert.Equal(t, before, res.Topology.Len())
			assert.Equal(t, before, f.store.Len())
		})
	}
}

func TestMissingArguments(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	results := map[string]Result{
		"network without mask": f.engine.CreateNetwork(validation.NetworkRequest{Address: "10.0.0.0", Version: "4"}),
		"host without name":    f.engine.CreateHost(validation.HostRequest{Network: "net-1"}),
		"link without source":  f.engine.CreateLink(validation.LinkRequest{Target: "host-1"}),
		"remove without id":    f.engine.RemoveElement(validation.IDRequest{}),
		"load without id":      f.engine.LoadTopology(ctx, validation.LoadRequest{}),
		"drop without id":      f.engine.DropTopology(ctx, validation.IDRequest{}),
		"store without any id": f.engine.StoreTopology(ctx, validation.StoreRequest{}),
	}
	for name, res := range results {
		assert.Equal(t, StatusMissingArguments, res.Status, name)
	}
	assert.Equal(t, 0, f.store.Len())
}

func TestHostAndLinkLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	n := f.engine.CreateNetwork(network("10.1.0.0", 16, "ipv4"))
	a := f.engine.CreateHost(validation.HostRequest{Name: "web", Network: n.ElementID, Address: "10.1.0.10"})
	b := f.engine.CreateHost(validation.HostRequest{Name: "db", Network: n.ElementID})
	l := f.engine.CreateLink(validation.LinkRequest{Source: a.ElementID, Target: b.ElementID})
	require.Equal(t, StatusSuccess, l.Status, l.Message)
	assert.Equal(t, 4, l.Topology.Len())

	missing := f.engine.CreateHost(validation.HostRequest{Name: "x", Network: "net-404"})
	assert.Equal(t, StatusGeneralError, missing.Status)
	assert.Equal(t, "NotFoundError", missing.ErrorType)

	removed := f.engine.RemoveElement(validation.IDRequest{ID: n.ElementID})
	require.Equal(t, StatusSuccess, removed.Status)
	assert.ElementsMatch(t, []string{n.ElementID, a.ElementID, b.ElementID, l.ElementID}, removed.Removed)
	assert.Equal(t, 0, removed.Topology.Len())

	again := f.engine.RemoveElement(validation.IDRequest{ID: n.ElementID})
	assert.Equal(t, StatusGeneralError, again.Status)
	assert.Equal(t, "NotFoundError", again.ErrorType)
}

func TestLoadTopology_ReplacesStore(t *testing.T) {
	// Build the persisted form with a separate engine.
	src := newFixture(t, nil)
	n := src.engine.CreateNetwork(network("192.168.1.0", 24, "4"))
	src.engine.CreateHost(validation.HostRequest{Name: "router", Network: n.ElementID, Address: "192.168.1.1"})
	src.store.SetTopologyID("topo-1")
	raw, err := src.engine.Synchronizer().Export()
	require.NoError(t, err)

	f := newFixture(t, nil)
	f.tool.Seed("topo-1", raw)
	f.engine.CreateNetwork(network("172.16.0.0", 12, "4"))

	res := f.engine.LoadTopology(context.Background(), validation.LoadRequest{ID: "topo-1"})

	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, "topo-1", f.store.TopologyID())
	assert.Equal(t, "topo-1", res.Topology.TopologyID)
	assert.Equal(t, src.store.Snapshot().Content, res.Topology.Content)
	assert.NotEmpty(t, f.engine.Gateway().LastReturnData()["topo-1"])
	require.NotNil(t, res.ReturnCode)
	assert.Equal(t, iotool.CodeOK, *res.ReturnCode)
	assert.True(t, f.engine.Synchronizer().InSync())
}

func TestLoadTopology_Merge(t *testing.T) {
	src := newFixture(t, nil)
	src.engine.CreateNetwork(network("192.168.1.0", 24, "4"))
	src.store.SetTopologyID("topo-2")
	raw, err := src.engine.Synchronizer().Export()
	require.NoError(t, err)

	f := newFixture(t, nil)
	f.tool.Seed("topo-2", raw)
	first := f.engine.CreateNetwork(network("172.16.0.0", 12, "4"))
	second := f.engine.CreateNetwork(network("10.0.0.0", 8, "4"))
	idBefore := f.store.TopologyID()

	res := f.engine.LoadTopology(context.Background(), validation.LoadRequest{ID: "topo-2", Merge: true})

	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, idBefore, f.store.TopologyID(), "merge keeps the topology id")
	assert.Equal(t, 2, f.store.Len())

	replaced, ok := f.store.Get(first.ElementID)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.0", replaced.(topology.Network).Address, "incoming identifiers win")
	_, ok = f.store.Get(second.ElementID)
	assert.True(t, ok)
	assert.True(t, f.engine.Synchronizer().InSync())
}

func TestLoadTopology_RejectedContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantType string
	}{
		{"not n-triples", "this is not rdf", "ParseError"},
		{"dangling reference", "<https://cluso.dev/topology/x/host-1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <" + semgraph.Namespace + "Host> .\n" +
			"<https://cluso.dev/topology/x/host-1> <" + semgraph.Namespace + "name> \"a\" .\n" +
			"<https://cluso.dev/topology/x/host-1> <" + semgraph.Namespace + "inNetwork> <https://cluso.dev/topology/x/net-9> .\n", "SemanticError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.engine.CreateNetwork(network("10.0.0.0", 8, "4"))
			before := f.store.Snapshot()
			f.tool.Seed("x", []byte(tt.content))

			res := f.engine.LoadTopology(context.Background(), validation.LoadRequest{ID: "x"})

			assert.Equal(t, StatusException, res.Status)
			assert.Equal(t, tt.wantType, res.ErrorType)
			assert.Equal(t, before, *res.Topology)
			assert.Equal(t, before, f.store.Snapshot())
		})
	}
}

// flakyCodec fails encoding while armed is set, once.
type flakyCodec struct {
	graphsync.DefaultCodec
	armed *atomic.Bool
}

func (c flakyCodec) Encode(snap topology.Snapshot) (*semgraph.Graph, error) {
	if c.armed.CompareAndSwap(true, false) {
		return nil, errors.New("graph store hiccup")
	}
	return c.DefaultCodec.Encode(snap)
}

func TestLoadTopology_FailureAfterApplyRunsRecovery(t *testing.T) {
	src := newFixture(t, nil)
	n := src.engine.CreateNetwork(network("192.168.1.0", 24, "4"))
	src.engine.CreateHost(validation.HostRequest{Name: "router", Network: n.ElementID})
	src.store.SetTopologyID("topo-1")
	raw, err := src.engine.Synchronizer().Export()
	require.NoError(t, err)
	want := src.store.Snapshot().Content

	t.Run("resync succeeds", func(t *testing.T) {
		armed := &atomic.Bool{}
		f := newFixture(t, nil, graphsync.WithCodec(flakyCodec{armed: armed}))
		f.tool.Seed("topo-1", raw)
		armed.Store(true)

		res := f.engine.LoadTopology(context.Background(), validation.LoadRequest{ID: "topo-1"})

		assert.Equal(t, StatusRecovered, res.Status)
		assert.Equal(t, Recovered, res.Recovery)
		assert.Equal(t, "UnexpectedFailure", res.ErrorType)
		require.NotNil(t, res.ReturnCode)
		assert.Equal(t, iotool.CodeOK, *res.ReturnCode)
		assert.Equal(t, "topo-1", res.Topology.TopologyID)
		assert.Equal(t, want, res.Topology.Content)
		assert.True(t, f.engine.Synchronizer().InSync())
	})

	t.Run("resync fails", func(t *testing.T) {
		f := newFixture(t, nil, graphsync.WithCodec(brokenCodec{}))
		f.tool.Seed("topo-1", raw)

		res := f.engine.LoadTopology(context.Background(), validation.LoadRequest{ID: "topo-1"})

		assert.Equal(t, StatusUnresolved, res.Status)
		assert.Equal(t, Unresolved, res.Recovery)
		assert.Equal(t, 0, res.Topology.Len())
		assert.Equal(t, 0, f.store.Len())
		assert.Equal(t, "", f.store.TopologyID())
		assert.Equal(t, 0, f.engine.Synchronizer().Model().Current().Len())
	})

	t.Run("observer panics", func(t *testing.T) {
		store := topology.NewStore(topology.WithObserver(func(ev topology.Event) {
			if ev.Type == topology.EventLoaded {
				panic("observer exploded")
			}
		}))
		f := newFixture(t, store)
		f.tool.Seed("topo-1", raw)

		var res Result
		require.NotPanics(t, func() {
			res = f.engine.LoadTopology(context.Background(), validation.LoadRequest{ID: "topo-1"})
		})

		assert.Equal(t, StatusRecovered, res.Status)
		assert.Contains(t, res.Message, "observer exploded")
		assert.Equal(t, want, res.Topology.Content)
		assert.True(t, f.engine.Synchronizer().InSync())
	})
}

func TestLoadTopology_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	res := f.engine.LoadTopology(context.Background(), validation.LoadRequest{ID: "ghost"})

	assert.Equal(t, StatusGeneralError, res.Status)
	require.NotNil(t, res.ReturnCode)
	assert.Equal(t, iotool.CodeNotFound, *res.ReturnCode)
	assert.NotNil(t, res.Topology)
}

func TestStoreAndDrop(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.NewTopology()
	f.engine.CreateNetwork(network("10.0.0.0", 8, "4"))
	ctx := context.Background()

	res := f.engine.StoreTopology(ctx, validation.StoreRequest{})
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, 1, f.tool.Len())

	res = f.engine.StoreTopology(ctx, validation.StoreRequest{ID: "copy"})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, f.tool.Len())

	res = f.engine.DropTopology(ctx, validation.IDRequest{ID: "copy"})
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, f.tool.Len())
	assert.Equal(t, 1, f.store.Len(), "drop does not touch the store")

	res = f.engine.DropTopology(ctx, validation.IDRequest{ID: "copy"})
	assert.Equal(t, StatusGeneralError, res.Status)
}

type unreachableTool struct{ *iotool.MemoryTool }

func (unreachableTool) Request(context.Context, string) (iotool.Response, error) {
	return iotool.Response{}, errors.New("connection refused")
}

func TestLoadTopology_Unreachable(t *testing.T) {
	nop := logging.NewNopLogger()
	s := graphsync.New(topology.NewStore(), semgraph.NewModel(), graphsync.WithLogger(nop))
	g := iotool.NewGateway(unreachableTool{iotool.NewMemoryTool()}, iotool.WithLogger(nop))
	e := New(s, g, WithLogger(nop))

	res := e.LoadTopology(context.Background(), validation.LoadRequest{ID: "x"})

	assert.Equal(t, StatusException, res.Status)
	assert.Equal(t, "ExternalToolError", res.ErrorType)
	assert.NotNil(t, res.Topology)
	assert.Equal(t, iotool.StateIdle, g.State())
	assert.Equal(t, iotool.CodeUnreachable, e.IOToolStatus().IOTool.ReturnCode)
}

type gatedTool struct {
	*iotool.MemoryTool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTool) Request(ctx context.Context, id string) (iotool.Response, error) {
	close(g.entered)
	<-g.release
	return g.MemoryTool.Request(ctx, id)
}

func TestIOToolBusy(t *testing.T) {
	nop := logging.NewNopLogger()
	tool := &gatedTool{MemoryTool: iotool.NewMemoryTool(), entered: make(chan struct{}), release: make(chan struct{})}
	s := graphsync.New(topology.NewStore(), semgraph.NewModel(), graphsync.WithLogger(nop))
	e := New(s, iotool.NewGateway(tool, iotool.WithLogger(nop)), WithLogger(nop))

	done := make(chan Result)
	go func() { done <- e.LoadTopology(context.Background(), validation.LoadRequest{ID: "a"}) }()
	<-tool.entered

	busy := e.DropTopology(context.Background(), validation.IDRequest{ID: "b"})
	assert.Equal(t, StatusBusy, busy.Status)
	assert.Nil(t, busy.ReturnCode)
	assert.Equal(t, "BUSY", e.IOToolStatus().IOTool.StateName)

	close(tool.release)
	first := <-done
	assert.Equal(t, StatusGeneralError, first.Status)
	assert.Equal(t, "IDLE", e.IOToolStatus().IOTool.StateName)
}

func TestUnexpectedFailure_Recovered(t *testing.T) {
	var armed atomic.Bool
	store := topology.NewStore(topology.WithObserver(func(ev topology.Event) {
		if armed.Load() && ev.Type == topology.EventCreated {
			panic("observer exploded")
		}
	}))
	f := newFixture(t, store)
	require.Equal(t, StatusSuccess, f.engine.CreateNetwork(network("10.0.0.0", 8, "4")).Status)

	armed.Store(true)
	res := f.engine.CreateNetwork(network("192.168.1.0", 24, "4"))

	assert.Equal(t, StatusRecovered, res.Status)
	assert.Equal(t, Recovered, res.Recovery)
	assert.Equal(t, "UnexpectedFailure", res.ErrorType)
	assert.Contains(t, res.Message, "observer exploded")
	// No rollback: the network inserted before the failure is reported.
	require.Len(t, res.Topology.Networks, 2)
	assert.Equal(t, "192.168.1.0", res.Topology.Networks[1].Address)
	assert.True(t, f.engine.Synchronizer().InSync())
}

func TestUnexpectedFailure_Unresolved(t *testing.T) {
	store := topology.NewStore()
	n, err := store.CreateNetwork("10.0.0.0", 8, topology.V4)
	require.NoError(t, err)
	f := newFixture(t, store, graphsync.WithCodec(brokenCodec{}))

	res := f.engine.CreateHost(validation.HostRequest{Name: "web", Network: n.ID})

	assert.Equal(t, StatusUnresolved, res.Status)
	assert.Equal(t, Unresolved, res.Recovery)
	assert.Equal(t, 0, res.Topology.Len())
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, "", f.store.TopologyID())
	assert.Equal(t, 0, f.engine.Synchronizer().Model().Current().Len())
	t.Logf("✓ Failed resync cleared the topology")
}

func TestNewTopology(t *testing.T) {
	nop := logging.NewNopLogger()
	s := graphsync.New(topology.NewStore(), semgraph.NewModel(), graphsync.WithLogger(nop))
	e := New(s, iotool.NewGateway(iotool.NewMemoryTool(), iotool.WithLogger(nop)),
		WithLogger(nop), WithIDGenerator(func() string { return "fresh" }))
	e.CreateNetwork(network("10.0.0.0", 8, "4"))

	res := e.NewTopology()

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "fresh", res.Topology.TopologyID)
	assert.Equal(t, 0, res.Topology.Len())

	nt, err := e.Graph()
	require.NoError(t, err)
	assert.Contains(t, string(nt), "https://cluso.dev/topology/fresh")
}

func TestNewTopology_DefaultIDIsUUID(t *testing.T) {
	f := newFixture(t, nil)
	res := f.engine.NewTopology()
	assert.Len(t, res.Topology.TopologyID, 36)
}

func TestRecoveryMetrics(t *testing.T) {
	store := topology.NewStore()
	f := newFixture(t, store, graphsync.WithCodec(brokenCodec{}))
	f.engine.CreateNetwork(network("10.0.0.0", 8, "4"))

	families, err := f.reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() != "topoeditor_recoveries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == "unresolved" {
					found = true
					assert.Equal(t, 1.0, m.GetCounter().GetValue())
				}
			}
		}
	}
	assert.True(t, found)
}
