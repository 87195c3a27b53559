package handlers

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/metrics"
	"github.com/talvera/resolverd/internal/ratelimit"
	"github.com/talvera/resolverd/internal/rc"
	"github.com/talvera/resolverd/internal/rc/dispatch"
	"github.com/talvera/resolverd/internal/resolver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLifecycle struct {
	stopped    bool
	reloaded   bool
	keepCache  bool
}

func (f *fakeLifecycle) Stop() { f.stopped = true }
func (f *fakeLifecycle) Reload(keepCache bool) {
	f.reloaded = true
	f.keepCache = keepCache
}

func testEnv(t *testing.T) (*dispatch.Env, *resolver.Collaborators) {
	t.Helper()
	collab := resolver.NewCollaborators(resolver.Config{RPZZones: []string{"rpz.example."}})
	cfg := &config.Config{}
	shared := &dispatch.Shared{
		Collab:        collab,
		ConfigService: config.NewConfigService(cfg, "", time.Now(), config.ConfigSourceDefaults),
		RateLimiters:  ratelimit.NewRegistry(ratelimit.Config{QPS: 10, Burst: 20, IPQPS: 5, IPBurst: 10}),
		Metrics:       metrics.NewRecorder(prometheus.NewRegistry()),
		Lifecycle:     &fakeLifecycle{},
		Logger:        discardLogger(),
		StartedAt:     time.Now(),
	}
	return &dispatch.Env{Shared: shared}, collab
}

func sessionPair(t *testing.T) (*rc.Session, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })
	return rc.NewSession(serverConn, discardLogger()), clientConn
}

func TestStopRequestsLifecycle(t *testing.T) {
	env, _ := testEnv(t)
	_, err := Stop(context.Background(), env)
	require.NoError(t, err)
	require.True(t, env.Lifecycle.(*fakeLifecycle).stopped)
}

func TestReloadKeepCache(t *testing.T) {
	env, _ := testEnv(t)
	_, err := Reload(true)(context.Background(), env)
	require.NoError(t, err)
	fl := env.Lifecycle.(*fakeLifecycle)
	require.True(t, fl.reloaded)
	require.True(t, fl.keepCache)
}

func TestStatusReportsUptime(t *testing.T) {
	env, _ := testEnv(t)
	res, err := Status(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	require.Contains(t, res.Lines[0], "resolverd is running")
}

func TestStatsReportsCounters(t *testing.T) {
	env, _ := testEnv(t)
	env.Metrics.SessionAccepted()
	res, err := Stats(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines, "total.sessions_accepted=1")
}

func TestVerbosityRequiresLevelVar(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "2"
	_, err := Verbosity(context.Background(), env)
	require.Error(t, err)
}

func TestVerbositySetsLevel(t *testing.T) {
	env, _ := testEnv(t)
	var lv slog.LevelVar
	lv.Set(slog.LevelInfo)
	env.LevelVar = &lv
	env.Args = "3"
	_, err := Verbosity(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lv.Level())
}

func TestLocalZoneAndDataRoundTrip(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "example.com. static"
	_, err := LocalZone(context.Background(), env)
	require.NoError(t, err)

	env.Args = "example.com. 3600 IN A 10.0.0.1"
	_, err = LocalData(context.Background(), env)
	require.NoError(t, err)

	zone, ok := env.Collab.Locals.Get("example.com.")
	require.True(t, ok)
	require.Equal(t, "static", zone.Type)
	require.Contains(t, zone.Data, "example.com. 3600 IN A 10.0.0.1")
}

func TestLocalZoneRemove(t *testing.T) {
	env, _ := testEnv(t)
	env.Collab.Locals.Put("example.com.", resolver.LocalZone{Name: "example.com.", Type: "static"})
	env.Args = "example.com."
	_, err := LocalZoneRemove(context.Background(), env)
	require.NoError(t, err)
	_, ok := env.Collab.Locals.Get("example.com.")
	require.False(t, ok)
}

func TestForwardAddAndRemove(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "+i example. 1.2.3.4"
	_, err := Forward(context.Background(), env)
	require.NoError(t, err)

	fz, ok := env.Collab.Forwards.Get("example.")
	require.True(t, ok)
	require.True(t, fz.Insecure)
	require.Equal(t, []string{"1.2.3.4"}, fz.Servers)

	env.Args = "example."
	_, err = ForwardRemove(context.Background(), env)
	require.NoError(t, err)
	_, ok = env.Collab.Forwards.Get("example.")
	require.False(t, ok)
}

func TestStubAddPrimeFlag(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "+p stub.example. 9.9.9.9"
	_, err := StubAdd(context.Background(), env)
	require.NoError(t, err)

	sz, ok := env.Collab.Stubs.Get("stub.example.")
	require.True(t, ok)
	require.True(t, sz.Prime)
}

func TestFlushZoneReportsCounts(t *testing.T) {
	env, collab := testEnv(t)
	collab.RRsets.Put(&resolver.RRSet{Owner: "www.example.", Type: 1, Expires: time.Now().Add(time.Hour)})
	env.Args = "example."
	res, err := FlushZone(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "ok removed 1 rrsets")
}

func TestFlushTypeUnknownType(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "example.com. BOGUSTYPE"
	_, err := FlushType(context.Background(), env)
	require.Error(t, err)
}

func TestFlushInfraAll(t *testing.T) {
	env, collab := testEnv(t)
	collab.Infra.Put("1.2.3.4", &resolver.HostInfo{Expires: time.Now().Add(time.Hour)})

	env.Args = ""
	res, err := FlushInfra(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "removed 1 hosts")
}

func TestRPZEnableDisable(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "rpz.example."
	_, err := RPZDisable(context.Background(), env)
	require.NoError(t, err)
	require.False(t, env.Collab.RPZ.Enabled("rpz.example."))

	_, err = RPZEnable(context.Background(), env)
	require.NoError(t, err)
	require.True(t, env.Collab.RPZ.Enabled("rpz.example."))
}

func TestRPZEnableUnknownZone(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "missing.example."
	_, err := RPZEnable(context.Background(), env)
	require.Error(t, err)
}

func TestGetSetOption(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "log.level debug"
	_, err := SetOption(context.Background(), env)
	require.NoError(t, err)

	env.Args = "log.level"
	res, err := GetOption(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "debug")
}

func TestInsecureAddRemove(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "example.com."
	_, err := InsecureAdd(context.Background(), env)
	require.NoError(t, err)
	require.True(t, env.Collab.Anchors.IsNegativeAnchor("example.com."))

	_, err = InsecureRemove(context.Background(), env)
	require.NoError(t, err)
	require.False(t, env.Collab.Anchors.IsNegativeAnchor("example.com."))
}

func TestRatelimitBackoffToggle(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "on"
	_, err := RatelimitBackoff(context.Background(), env)
	require.NoError(t, err)
	require.True(t, env.RateLimiters.GlobalBackoff())
}

func TestLookupFindsLocalZone(t *testing.T) {
	env, collab := testEnv(t)
	collab.Locals.Put("example.com.", resolver.LocalZone{Name: "example.com.", Type: "static"})
	env.Args = "www.example.com."
	res, err := Lookup(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "local zone example.com.")
}

func TestLookupSurfacesLocalData(t *testing.T) {
	env, collab := testEnv(t)
	collab.Locals.Put("example.com.", resolver.LocalZone{
		Name: "example.com.",
		Type: "static",
		Data: []string{"example.com. 3600 IN A 10.0.0.1"},
	})
	env.Args = "example.com."
	res, err := Lookup(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	require.Contains(t, res.Lines[1], "10.0.0.1")
}

func TestListForwardsAndLocalZones(t *testing.T) {
	env, collab := testEnv(t)
	collab.Forwards.Put("example.", resolver.ForwardZone{Zone: "example.", Insecure: true, Servers: []string{"1.2.3.4"}})
	collab.Locals.Put("example.com.", resolver.LocalZone{Name: "example.com.", Type: "static"})

	res, err := ListForwards(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "example. IN forward +i 1.2.3.4")

	res, err = ListLocalZones(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "example.com. static")
}

func TestFlushStatsResetsBaseline(t *testing.T) {
	env, _ := testEnv(t)
	env.Metrics.SessionAccepted()

	res, err := FlushStats(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "sessions_accepted=1")

	snap := env.Metrics.Snapshot()
	require.Equal(t, float64(0), snap.SessionsAccepted)
}

func TestFlushRequestlistClearsMesh(t *testing.T) {
	env, collab := testEnv(t)
	collab.Mesh.Track("example.com.")
	collab.Mesh.Track("other.example.")

	res, err := FlushRequestlist(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "flushed 2 requests")
	require.Equal(t, 0, collab.Mesh.Total())
}

func TestDumpCache(t *testing.T) {
	env, collab := testEnv(t)
	collab.RRsets.Put(&resolver.RRSet{Owner: "a.example.", Type: 1, Expires: time.Now().Add(time.Hour)})

	res, err := DumpCache(context.Background(), env)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Lines), 3)
}

func TestViewLocalZoneAndList(t *testing.T) {
	env, _ := testEnv(t)
	env.Args = "trusted example.com. static"
	_, err := ViewLocalZone(context.Background(), env)
	require.NoError(t, err)

	env.Args = "trusted"
	res, err := ViewListLocalZones(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "example.com. static")
}

func TestBulkLocalZonesAppliesEachLine(t *testing.T) {
	env, _ := testEnv(t)
	session, client := sessionPair(t)
	env.Session = session

	go func() {
		client.Write([]byte("a.example. static\nb.example. deny\n\n"))
	}()

	res, err := LocalZones(context.Background(), env)
	require.NoError(t, err)
	require.Contains(t, res.Lines[0], "2 entries applied")

	_, ok := env.Collab.Locals.Get("a.example.")
	require.True(t, ok)
}
