package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/shared/paths"
)

type fakeClient struct {
	mu        sync.Mutex
	state     State
	stateErr  error
	chats     []Chat
	chatsErr  error
	logoutErr error
	killErr   error
	pid       int
	loggedOut int
	killed    int
	onState   func(State)
	onMessage func(media.Message)
}

func (c *fakeClient) ConnectionState(context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.stateErr
}

func (c *fakeClient) Chats(context.Context) ([]Chat, error) {
	return c.chats, c.chatsErr
}

func (c *fakeClient) Logout(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut++
	return c.logoutErr
}

func (c *fakeClient) Kill(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killed++
	return c.killErr
}

func (c *fakeClient) PID() int { return c.pid }

func (c *fakeClient) OnStateChanged(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *fakeClient) OnMessage(fn func(media.Message)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

func (c *fakeClient) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *fakeClient) kills() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.killed
}

type fakeEngine struct {
	calls  atomic.Int32
	create func(ctx context.Context, opts Options) (Client, error)
}

func (e *fakeEngine) Create(ctx context.Context, opts Options) (Client, error) {
	e.calls.Add(1)
	return e.create(ctx, opts)
}

func connectedEngine(client *fakeClient) *fakeEngine {
	return &fakeEngine{create: func(context.Context, Options) (Client, error) {
		return client, nil
	}}
}

type fakeReaper struct {
	mu      sync.Mutex
	saved   map[string]int
	found   map[string]int
	killed  []string
	forgot  []string
	findHit int
}

func newFakeReaper() *fakeReaper {
	return &fakeReaper{saved: map[string]int{}, found: map[string]int{}}
}

func (r *fakeReaper) Save(id string, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[id] = pid
}

func (r *fakeReaper) Find(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findHit++
	pid, ok := r.found[id]
	return pid, ok
}

func (r *fakeReaper) Kill(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killed = append(r.killed, id)
	_, ok := r.saved[id]
	delete(r.saved, id)
	return ok
}

func (r *fakeReaper) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgot = append(r.forgot, id)
	delete(r.saved, id)
}

func (r *fakeReaper) killedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.killed...)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) QRReady(ctx context.Context, sessionID, qr string) error {
	return m.Called(ctx, sessionID, qr).Error(0)
}

func (m *mockNotifier) StatusChanged(ctx context.Context, sessionID, status string) error {
	return m.Called(ctx, sessionID, status).Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(sessionID, kind string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sessionID+":"+kind)
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type testManager struct {
	*Manager
	reaper   *fakeReaper
	notifier *mockNotifier
	push     *recordingPublisher
	layout   paths.Layout
}

func newTestManager(t *testing.T, engine Engine, relay MessageHandler) *testManager {
	t.Helper()

	notifier := &mockNotifier{}
	notifier.On("QRReady", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	layout := paths.Layout{SessionsRoot: t.TempDir(), TempDir: t.TempDir()}
	tm := &testManager{
		reaper:   newFakeReaper(),
		notifier: notifier,
		push:     &recordingPublisher{},
		layout:   layout,
	}
	tm.Manager = NewManager(Config{
		QRTimeout:     time.Second,
		AuthTimeout:   time.Second,
		NotifyTimeout: time.Second,
	}, Dependencies{
		Engine:   engine,
		Reaper:   tm.reaper,
		Notifier: notifier,
		Relay:    relay,
		Layout:   layout,
	}, nil).WithPublisher(tm.push)

	t.Cleanup(tm.Wait)
	return tm
}

func TestStartSingleFlight(t *testing.T) {
	client := &fakeClient{state: StateConnected, pid: 4242}
	gate := make(chan struct{})
	engine := &fakeEngine{}
	tm := newTestManager(t, engine, nil)

	engine.create = func(ctx context.Context, opts Options) (Client, error) {
		tm.Dispatch(QREvent{SessionID: opts.SessionID, Code: "qr-1"})
		<-gate
		return client, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tm.Start(context.Background(), "u1", false)
		}(i)
	}

	require.Eventually(t, func() bool { return engine.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), engine.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Contains(t, []string{"qr-1", ""}, results[i])
	}

	e, ok := tm.Registry().Get("u1")
	require.True(t, ok)
	assert.Equal(t, StateConnected, e.State())
	assert.Equal(t, 4242, tm.reaper.saved["u1"])

	tm.Wait()
	tm.notifier.AssertCalled(t, "QRReady", mock.Anything, "u1", "qr-1")
	assert.Contains(t, tm.push.kinds(), "u1:qr")
}

func TestStartReturnsQR(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	engine := &fakeEngine{}
	tm := newTestManager(t, engine, nil)
	engine.create = func(ctx context.Context, opts Options) (Client, error) {
		tm.Dispatch(QREvent{SessionID: opts.SessionID, Code: "old"})
		tm.Dispatch(QREvent{SessionID: opts.SessionID, Code: "latest"})
		return client, nil
	}

	qr, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "latest", qr)
}

func TestStartConnectedIsNoop(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	engine := connectedEngine(client)
	tm := newTestManager(t, engine, nil)

	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)

	qr, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "", qr)
	assert.Equal(t, int32(1), engine.calls.Load())
}

func TestStartReplacesDisconnectedSession(t *testing.T) {
	first := &fakeClient{state: StateConnected}
	second := &fakeClient{state: StateConnected}
	engine := &fakeEngine{}
	clients := []*fakeClient{first, second}
	engine.create = func(context.Context, Options) (Client, error) {
		return clients[engine.calls.Load()-1], nil
	}
	tm := newTestManager(t, engine, nil)

	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)

	first.setState(StateDisconnected)
	_, err = tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)

	assert.Equal(t, int32(2), engine.calls.Load())
	e, ok := tm.Registry().Get("u1")
	require.True(t, ok)
	assert.Same(t, second, e.Client())

	tm.Wait()
	assert.Equal(t, 1, first.kills())
}

func TestStartForceResetClearsSessionDir(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	engine := connectedEngine(client)
	tm := newTestManager(t, engine, nil)

	dir := filepath.Join(tm.layout.SessionsRoot, "u1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "stale.json")
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o600))

	_, err := tm.Start(context.Background(), "u1", true)
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir)
	assert.NoError(t, err, "session dir is recreated for the new client")

	// forcing again replaces a connected session
	_, err = tm.Start(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), engine.calls.Load())
}

func TestStartForceResetDropsProcessRecord(t *testing.T) {
	client := &fakeClient{state: StateConnected, pid: 4242}
	tm := newTestManager(t, connectedEngine(client), nil)

	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	require.Equal(t, 4242, tm.reaper.saved["u1"])

	// the replacement reports no pid and the table scan finds nothing
	client.pid = 0
	_, err = tm.Start(context.Background(), "u1", true)
	require.NoError(t, err)
	tm.Wait()

	tm.reaper.mu.Lock()
	defer tm.reaper.mu.Unlock()
	_, ok := tm.reaper.saved["u1"]
	assert.False(t, ok, "old pid must not survive the reset")
	assert.Contains(t, tm.reaper.forgot, "u1")
	assert.Empty(t, tm.reaper.killed)
}

func TestStartCreationFailure(t *testing.T) {
	engine := &fakeEngine{create: func(context.Context, Options) (Client, error) {
		return nil, errors.New("browser crashed")
	}}
	tm := newTestManager(t, engine, nil)

	_, err := tm.Start(context.Background(), "u1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser crashed")
	assert.Zero(t, tm.Registry().Len())
	assert.Equal(t, StateNotFound, tm.State(context.Background(), "u1"))
}

func TestStartCreationTimeout(t *testing.T) {
	engine := &fakeEngine{create: func(ctx context.Context, _ Options) (Client, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	tm := newTestManager(t, engine, nil)
	tm.cfg.QRTimeout = 20 * time.Millisecond
	tm.cfg.AuthTimeout = 10 * time.Millisecond

	_, err := tm.Start(context.Background(), "u1", false)
	assert.ErrorIs(t, err, ErrCreationTimeout)
	assert.Zero(t, tm.Registry().Len())
}

func TestStartCallerContextDoesNotCancelCreation(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{state: StateConnected}
	engine := &fakeEngine{create: func(context.Context, Options) (Client, error) {
		<-gate
		return client, nil
	}}
	tm := newTestManager(t, engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tm.Start(ctx, "u1", false)
	assert.ErrorIs(t, err, context.Canceled)

	close(gate)
	_, err = tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), engine.calls.Load())
}

func TestPIDFallsBackToProcessScan(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	tm := newTestManager(t, connectedEngine(client), nil)
	tm.reaper.found["u1"] = 999

	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 999, tm.reaper.saved["u1"])
}

func TestTerminalStatesRemoveSession(t *testing.T) {
	for _, state := range []State{StateConflict, StateUnpaired, StateUnlaunched} {
		t.Run(string(state), func(t *testing.T) {
			client := &fakeClient{state: StateConnected, pid: 4242}
			tm := newTestManager(t, connectedEngine(client), nil)
			_, err := tm.Start(context.Background(), "u1", false)
			require.NoError(t, err)
			require.Equal(t, 4242, tm.reaper.saved["u1"])

			tm.Dispatch(StateEvent{SessionID: "u1", State: state})

			_, ok := tm.Registry().Get("u1")
			assert.False(t, ok)
			_, saved := tm.reaper.saved["u1"]
			assert.False(t, saved, "pid record is dropped with the session")
			assert.Equal(t, []string{"u1"}, tm.reaper.forgot)
			assert.Equal(t, StateNotFound, tm.State(context.Background(), "u1"))
			assert.Equal(t, "DISCONNECTED", tm.Status(context.Background(), "u1"))

			tm.Wait()
			tm.notifier.AssertCalled(t, "StatusChanged", mock.Anything, "u1", string(state))
		})
	}
}

func TestClientStateListenerRemovesSession(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	tm := newTestManager(t, connectedEngine(client), nil)
	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)

	require.NotNil(t, client.onState)
	client.onState(StateUnpaired)

	_, ok := tm.Registry().Get("u1")
	assert.False(t, ok)
}

func TestNonTerminalStateIsCached(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	tm := newTestManager(t, connectedEngine(client), nil)
	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)

	tm.Dispatch(StateChangedEvent{SessionID: "u1", State: StateTimeout})

	e, ok := tm.Registry().Get("u1")
	require.True(t, ok)
	assert.Equal(t, StateTimeout, e.State())

	tm.Wait()
	assert.Contains(t, tm.push.kinds(), "u1:status")
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	tm := newTestManager(t, connectedEngine(client), nil)
	tm.notifier.ExpectedCalls = nil
	tm.notifier.On("StatusChanged", mock.Anything, "u1", "PAIRING").Return(errors.New("backend down")).Once()

	tm.Dispatch(StateEvent{SessionID: "u1", State: StatePairing})
	tm.Wait()

	tm.notifier.AssertExpectations(t)
}

func TestStateQueries(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	tm := newTestManager(t, connectedEngine(client), nil)
	ctx := context.Background()

	assert.Equal(t, StateNotFound, tm.State(ctx, "u1"))
	assert.Equal(t, "DISCONNECTED", tm.Status(ctx, "u1"))

	_, err := tm.Start(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, tm.State(ctx, "u1"))
	assert.Equal(t, "CONNECTED", tm.Status(ctx, "u1"))

	client.mu.Lock()
	client.stateErr = errors.New("page closed")
	client.mu.Unlock()
	assert.Equal(t, StateNotFound, tm.State(ctx, "u1"))
}

func TestStatePendingReturnsCached(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	engine := &fakeEngine{}
	tm := newTestManager(t, engine, nil)
	engine.create = func(ctx context.Context, opts Options) (Client, error) {
		<-gate
		return nil, errors.New("aborted")
	}

	go tm.Start(context.Background(), "u1", false) //nolint:errcheck
	require.Eventually(t, func() bool { return tm.Registry().Len() == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, StateInitializing, tm.State(context.Background(), "u1"))
	tm.Dispatch(QREvent{SessionID: "u1", Code: "qr"})
	assert.Equal(t, StateQRPending, tm.State(context.Background(), "u1"))
}

func TestListGroups(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{
		state: StateConnected,
		chats: []Chat{
			{ID: "g1@g.us", Name: "Family", IsGroup: true, Icon: "https://icons/1"},
			{ID: "p1@c.us", Name: "Ada"},
			{ID: "g2@g.us", Name: "Work", IsGroup: true},
		},
	}
	tm := newTestManager(t, connectedEngine(client), nil)

	_, err := tm.ListGroups(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tm.Start(ctx, "u1", false)
	require.NoError(t, err)

	groups, err := tm.ListGroups(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Name: "Family", ID: "g1@g.us", Icon: "https://icons/1"},
		{Name: "Work", ID: "g2@g.us"},
	}, groups)

	client.chatsErr = errors.New("detached frame")
	_, err = tm.ListGroups(ctx, "u1")
	assert.Error(t, err)
}

func TestRegisterGroupsReplaces(t *testing.T) {
	tm := newTestManager(t, connectedEngine(&fakeClient{}), nil)

	tm.RegisterGroups("u1", []string{"g1", "g2"})
	tm.RegisterGroups("u1", []string{"g3"})

	assert.False(t, tm.Registry().HasGroup("u1", "g1"))
	assert.True(t, tm.Registry().HasGroup("u1", "g3"))
	assert.Equal(t, []string{"g3"}, tm.Registry().Groups("u1"))
}

func TestCancelNotFound(t *testing.T) {
	tm := newTestManager(t, connectedEngine(&fakeClient{}), nil)

	_, err := tm.Cancel(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelRefusesLiveSession(t *testing.T) {
	for _, state := range []State{StateConnected, StateSyncing} {
		t.Run(string(state), func(t *testing.T) {
			client := &fakeClient{state: StateConnected}
			tm := newTestManager(t, connectedEngine(client), nil)
			_, err := tm.Start(context.Background(), "u1", false)
			require.NoError(t, err)
			client.setState(state)

			detail, err := tm.Cancel(context.Background(), "u1")
			require.ErrorIs(t, err, ErrInvalidState)
			assert.Empty(t, detail)
			assert.Equal(t, "cannot cancel session in state: "+string(state), err.Error())

			var stateErr *StateError
			require.ErrorAs(t, err, &stateErr)
			assert.Equal(t, state, stateErr.State)

			_, ok := tm.Registry().Get("u1")
			assert.True(t, ok)
			assert.Zero(t, client.loggedOut)
		})
	}
}

func TestCancelGraceful(t *testing.T) {
	client := &fakeClient{state: StateConnected, pid: 10}
	tm := newTestManager(t, connectedEngine(client), nil)
	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	tm.RegisterGroups("u1", []string{"g1"})
	client.setState(StatePairing)

	detail, err := tm.Cancel(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DetailCancelled, detail)

	assert.Equal(t, 1, client.loggedOut)
	assert.Equal(t, 1, client.kills())
	assert.Zero(t, tm.Registry().Len())
	assert.False(t, tm.Registry().HasGroup("u1", "g1"))
	assert.Equal(t, []string{"u1"}, tm.reaper.forgot)
	assert.Empty(t, tm.reaper.killedIDs())
}

func TestCancelLogoutFailureForces(t *testing.T) {
	client := &fakeClient{state: StateConnected, pid: 10, logoutErr: errors.New("page crashed")}
	tm := newTestManager(t, connectedEngine(client), nil)
	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	tm.RegisterGroups("u1", []string{"g1"})
	client.setState(StateOpening)

	detail, err := tm.Cancel(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DetailForceCancelled, detail)

	_, ok := tm.Registry().Get("u1")
	assert.False(t, ok)
	assert.False(t, tm.Registry().HasGroup("u1", "g1"))
	assert.Equal(t, []string{"u1"}, tm.reaper.killedIDs())
}

func TestCancelDuringFailingCreation(t *testing.T) {
	gate := make(chan struct{})
	engine := &fakeEngine{create: func(context.Context, Options) (Client, error) {
		<-gate
		return nil, errors.New("auth rejected")
	}}
	tm := newTestManager(t, engine, nil)

	startErr := make(chan error, 1)
	go func() {
		_, err := tm.Start(context.Background(), "u1", false)
		startErr <- err
	}()
	require.Eventually(t, func() bool { return tm.Registry().Len() == 1 }, time.Second, time.Millisecond)

	type result struct {
		detail string
		err    error
	}
	cancelled := make(chan result, 1)
	go func() {
		d, err := tm.Cancel(context.Background(), "u1")
		cancelled <- result{d, err}
	}()

	// let Cancel reach the pending slot before creation fails
	time.Sleep(20 * time.Millisecond)
	close(gate)
	res := <-cancelled
	require.NoError(t, res.err)
	assert.Equal(t, DetailForceCancelled, res.detail)
	assert.Error(t, <-startErr)
	assert.Zero(t, tm.Registry().Len())
	assert.Equal(t, []string{"u1"}, tm.reaper.killedIDs())
}

func TestCreationCompletingAfterRemovalDisposesClient(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{state: StateConnected}
	engine := &fakeEngine{create: func(context.Context, Options) (Client, error) {
		<-gate
		return client, nil
	}}
	tm := newTestManager(t, engine, nil)

	go tm.Start(context.Background(), "u1", false) //nolint:errcheck
	require.Eventually(t, func() bool { return tm.Registry().Len() == 1 }, time.Second, time.Millisecond)

	tm.Dispatch(StateEvent{SessionID: "u1", State: StateUnlaunched})
	close(gate)

	require.Eventually(t, func() bool { return client.kills() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, tm.Registry().Len())
}

func TestDispatchTableIsExhaustive(t *testing.T) {
	tm := newTestManager(t, connectedEngine(&fakeClient{}), nil)

	assert.Len(t, tm.handlers, len(EventKinds))
	for _, kind := range EventKinds {
		assert.Contains(t, tm.handlers, kind)
	}

	events := []Event{
		QREvent{}, SessionDataEvent{}, StateEvent{}, ErrorEvent{}, StateChangedEvent{}, MessageEvent{},
	}
	seen := map[EventKind]bool{}
	for _, ev := range events {
		seen[ev.Kind()] = true
	}
	assert.Len(t, seen, len(EventKinds))
}

func TestErrorEventIsPublished(t *testing.T) {
	client := &fakeClient{state: StateConnected}
	tm := newTestManager(t, connectedEngine(client), nil)
	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)

	tm.Dispatch(ErrorEvent{SessionID: "u1", Message: "navigation failed"})
	tm.Dispatch(SessionDataEvent{SessionID: "u1", Data: map[string]any{"k": "v"}})

	assert.Equal(t, []string{"u1:error"}, tm.push.kinds())
	_, ok := tm.Registry().Get("u1")
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	a := &fakeClient{state: StateConnected}
	tm := newTestManager(t, connectedEngine(a), nil)
	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	_, err = tm.Start(context.Background(), "u2", false)
	require.NoError(t, err)
	tm.Dispatch(StateEvent{SessionID: "u2", State: StatePairing})

	assert.Equal(t, map[State]int{StateConnected: 1, StatePairing: 1}, tm.Stats())
}

func TestShutdownKillsEverything(t *testing.T) {
	a := &fakeClient{state: StateConnected, pid: 1}
	tm := newTestManager(t, connectedEngine(a), nil)
	_, err := tm.Start(context.Background(), "u1", false)
	require.NoError(t, err)
	tm.RegisterGroups("u1", []string{"g1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tm.Shutdown(ctx))

	assert.Equal(t, 1, a.kills())
	assert.Equal(t, []string{"u1"}, tm.reaper.killedIDs())
	assert.Zero(t, tm.Registry().Len())
	assert.False(t, tm.Registry().HasGroup("u1", "g1"))
}
