// Package engine is the node's process-scoped context: it owns every
// long-lived collaborator, runs the join-driven startup and tears things
// down in a fixed order on interrupt.
package engine

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"busnode/config"
	"busnode/connector"
	"busnode/dispatch"
	"busnode/join"
	"busnode/messaging"
	"busnode/monitor"
	"busnode/scheduler"
	"busnode/singleton"
	"busnode/store"
	"busnode/topology"
	"busnode/workerconfig"
)

// Store is everything the engine reads from the persisted store, plus Close.
type Store interface {
	join.ServerReader
	workerconfig.Reader
	connector.Lister
	singleton.JobLister
	Token() string
	Close() error
}

var _ Store = (*store.DB)(nil)

type Config struct {
	AppConfig *config.Config
	DB        Store
	Fabric    *messaging.Context
	Launcher  connector.Launcher
	// Leases is nil when no lease store is configured; the singleton
	// setting in AppConfig then decides alone.
	Leases  singleton.LeaseStore
	Metrics *monitor.Metrics
	Logger  hclog.Logger
}

type Engine struct {
	cfg     *config.Config
	db      Store
	fabric  *messaging.Context
	metrics *monitor.Metrics
	logger  hclog.Logger
	Events  *EventBus

	holder     *workerconfig.Holder
	builder    *workerconfig.Builder
	supervisor *connector.Supervisor
	elector    *singleton.Elector
	dispatcher *dispatch.Dispatcher
	shutdown   *Shutdown

	mu              sync.Mutex
	identity        join.NodeIdentity
	endpoints       topology.Endpoints
	client          *messaging.Client
	singletonSrv    *singleton.Server
	singletonCancel context.CancelFunc
	started         bool
}

func New(c Config) *Engine {
	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Engine{
		cfg:     c.AppConfig,
		db:      c.DB,
		fabric:  c.Fabric,
		metrics: c.Metrics,
		logger:  logger,
		Events:  NewEventBus(),
		holder:  workerconfig.NewHolder(nil),
	}
	e.builder = workerconfig.NewBuilder(c.DB, c.AppConfig.Connectors.RepoLocation, logger)
	e.supervisor = connector.NewSupervisor(connector.Config{
		Lister:       c.DB,
		Launcher:     c.Launcher,
		Emitter:      &connectorEmitter{bus: e.Events},
		Metrics:      c.Metrics,
		RepoLocation: c.AppConfig.Connectors.RepoLocation,
		Token:        c.DB.Token(),
		SettleDelay:  c.AppConfig.Connectors.SettleDelay,
		Logger:       logger,
	})
	if c.Leases != nil {
		e.elector = singleton.NewElector(c.Leases, c.AppConfig.Singleton.LeaseKey, c.AppConfig.Singleton.LeaseTTL, c.Metrics, logger)
	}
	e.shutdown = NewShutdown(e.shutdownSteps(), e.Events, c.Metrics, logger)
	e.wireEventHandlers()
	return e
}

// Accessors
func (e *Engine) Holder() *workerconfig.Holder { return e.holder }
func (e *Engine) Supervisor() *connector.Supervisor { return e.supervisor }
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }
func (e *Engine) Shutdown() *Shutdown { return e.shutdown }
func (e *Engine) Fabric() *messaging.Context { return e.fabric }
func (e *Engine) Metrics() *monitor.Metrics { return e.metrics }

func (e *Engine) Identity() join.NodeIdentity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// Client is the node's broker client, nil when the node is not accepted.
func (e *Engine) Client() *messaging.Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client
}

// Singleton is the singleton server, nil unless this node won the election.
func (e *Engine) Singleton() *singleton.Server {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.singletonSrv
}

// Start runs the join-driven initialization and builds the dispatcher. Any
// error it returns is fatal.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine: already started")
	}
	e.started = true
	e.mu.Unlock()

	coord := join.NewCoordinator(e.db, e.logger)
	id, err := coord.Initialize(ctx, join.Phases{
		Common:      e.initCommon,
		Accepted:    e.initAccepted,
		NotAccepted: e.initNotAccepted,
	})
	if err != nil {
		return err
	}

	accepted := id.State() == join.Accepted
	e.metrics.SetJoinAccepted(accepted)
	e.Events.Emit(Event{Type: EventNodeJoined, Payload: NodeJoinedEvent{
		ServerName: id.Name,
		ClusterID:  id.ClusterID,
		JoinStatus: id.JoinStatus,
		Accepted:   accepted,
	}})

	// Not-accepted nodes have no broker client; their channels answer 500.
	var sender dispatch.Sender
	if client := e.Client(); client != nil {
		sender = client
	}
	web := e.cfg.Web
	e.dispatcher = dispatch.New(dispatch.Config{
		Addr:         net.JoinHostPort(web.Host, strconv.Itoa(web.Port)),
		Workers:      web.Workers,
		PollInterval: web.PollInterval,
		Metrics:      e.metrics,
	}, dispatch.NewChannelHandler(dispatch.NewBrokerInvoker(sender)), e.holder, e.logger)
	return nil
}

// Run starts the engine, serves until ctx is cancelled and then shuts down.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		e.teardown()
		return err
	}
	serveErr := e.dispatcher.RunForever(ctx)
	e.teardown()
	return serveErr
}

// teardown runs the shutdown sequence on a context of its own, since the
// one that triggered it is already cancelled.
func (e *Engine) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Web.ShutdownTimeout+e.settleBudget())
	defer cancel()
	e.shutdown.Run(ctx)
}

func (e *Engine) settleBudget() time.Duration {
	return 3 * e.cfg.Connectors.SettleDelay
}

func (e *Engine) initCommon(ctx context.Context, id join.NodeIdentity) error {
	eps, err := id.Endpoints()
	if err != nil {
		return &join.ConfigurationError{Err: err}
	}
	e.mu.Lock()
	e.identity = id
	e.endpoints = eps
	e.mu.Unlock()

	for _, n := range eps.All() {
		e.logger.Debug("broker endpoint", "name", n.Name, "address", n.Address)
	}

	if !e.electSingleton(ctx) {
		return nil
	}
	return e.startSingleton(ctx, id, eps)
}

func (e *Engine) electSingleton(ctx context.Context) bool {
	fallback := e.cfg.Singleton.Enabled
	leader := fallback
	if e.elector != nil {
		leader = e.elector.Decide(ctx, fallback)
		if e.elector.Held() {
			e.elector.Hold(context.Background())
		}
	}
	e.metrics.SetSingletonLeader(leader)
	e.Events.Emit(Event{Type: EventSingletonElected, Payload: SingletonElectedEvent{Leader: leader}})
	return leader
}

func (e *Engine) startSingleton(ctx context.Context, id join.NodeIdentity, eps topology.Endpoints) error {
	srv := singleton.NewServer(e.fabric, id.BrokerToken, e.db, e.logger)
	srv.SetScheduler(scheduler.New(srv.Fire, e.metrics, e.logger))

	runCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(runCtx, eps) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		cancel()
		return fmt.Errorf("start singleton: %w", err)
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	e.mu.Lock()
	e.singletonSrv = srv
	e.singletonCancel = cancel
	e.mu.Unlock()
	return nil
}

// initAccepted builds the snapshot and brings the broker client up before
// any connector is spawned, so a failed build leaves nothing running and
// every spawned connector can be sent its close directive.
func (e *Engine) initAccepted(ctx context.Context, id join.NodeIdentity) error {
	if err := e.buildWorkerConfig(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	eps := e.endpoints
	e.mu.Unlock()

	client, err := e.fabric.NewClient(id.Name, id.BrokerToken, eps.Worker())
	if err != nil {
		return fmt.Errorf("create broker client: %w", err)
	}
	if err := client.Init(ctx); err != nil {
		client.Close()
		return fmt.Errorf("init broker client: %w", err)
	}
	receiver, err := e.newReceiver(id)
	if err != nil {
		client.Close()
		return err
	}
	client.SetReceiver(receiver)
	if err := client.Start(); err != nil {
		client.Close()
		return fmt.Errorf("start broker client: %w", err)
	}

	e.mu.Lock()
	e.client = client
	srv := e.singletonSrv
	e.mu.Unlock()
	e.supervisor.SetSender(client)

	e.supervisor.StartAll(ctx, id)

	if srv != nil {
		if _, err := srv.LoadJobs(ctx, id.ClusterID); err != nil {
			e.logger.Error("could not load scheduler jobs", "error", err)
		}
	}
	return nil
}

func (e *Engine) initNotAccepted(ctx context.Context, id join.NodeIdentity) error {
	return e.buildWorkerConfig(ctx, id)
}

func (e *Engine) buildWorkerConfig(ctx context.Context, id join.NodeIdentity) error {
	snap, err := e.builder.Build(ctx, id)
	if err != nil {
		return err
	}
	old := e.holder.Swap(snap)
	e.metrics.SetSnapshotBuilt(snap.BuiltAt())

	c := snap.Counts()
	e.Events.Emit(Event{Type: EventWorkerConfigBuilt, Payload: WorkerConfigBuiltEvent{
		BuiltAt:   snap.BuiltAt(),
		Routes:    c.Routes,
		BasicAuth: c.BasicAuth,
		Replaced:  old != nil,
	}})
	return nil
}

// newReceiver registers the actions the node's broker client answers to.
// Messages carrying another cluster's broker token are dropped.
func (e *Engine) newReceiver(id join.NodeIdentity) (*messaging.Receiver, error) {
	r := messaging.NewReceiver(e.logger.Named("receiver"))
	r.SetFilter(func(env *messaging.Envelope) bool { return env.Token == id.BrokerToken })
	err := r.Register(messaging.ActionWorkerConfigReload, func(*messaging.Envelope) error {
		return e.buildWorkerConfig(context.Background(), id)
	})
	if err != nil {
		return nil, fmt.Errorf("register broker actions: %w", err)
	}
	return r, nil
}

func (e *Engine) shutdownSteps() []Step {
	return []Step{
		{Name: "connectors", Run: func(ctx context.Context) error {
			e.supervisor.ShutdownAll(ctx)
			return nil
		}},
		{Name: "broker-client", Run: func(context.Context) error {
			if c := e.Client(); c != nil {
				return c.Close()
			}
			return nil
		}},
		{Name: "singleton", Run: e.stopSingleton},
		{Name: "messaging", Run: func(context.Context) error {
			return e.fabric.Term()
		}},
		{Name: "store", Run: func(context.Context) error {
			return e.db.Close()
		}},
		{Name: "dispatcher", Run: func(ctx context.Context) error {
			if e.dispatcher == nil {
				return nil
			}
			return e.dispatcher.Stop(ctx)
		}},
	}
}

func (e *Engine) stopSingleton(ctx context.Context) error {
	e.mu.Lock()
	srv, cancel := e.singletonSrv, e.singletonCancel
	e.mu.Unlock()

	var err error
	if srv != nil {
		if c := srv.Client(); c != nil {
			err = c.Close()
		}
		cancel()
	}
	if e.elector != nil {
		if rerr := e.elector.Release(ctx); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
