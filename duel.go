// Package duel wires the world, its storage and the HTTP server together and runs the tick loop.
package duel

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/config"
	"pkg.world.dev/duel/server"
	"pkg.world.dev/duel/stage"
	"pkg.world.dev/duel/statsd"
	"pkg.world.dev/duel/storage/redis"
	"pkg.world.dev/duel/world"
)

const (
	RedisDialTimeOut = 15 * time.Second
)

var ErrAlreadyStarted = eris.New("duel server was already started")

type Duel struct {
	cancel      context.CancelFunc
	cancelMu    sync.Mutex
	tickChannel <-chan time.Time
	config      *config.Config
	cards       *card.Set
	redisClient *goredis.Client

	storage redis.Storage
	stats   *redis.StatsCache
	world   *world.World
	server  *server.Server
	stage   *stage.Manager

	tracer trace.Tracer

	subscribers []chan *world.Report
	mu          *sync.RWMutex
	closed      bool
}

func New(opts ...DuelOption) (*Duel, error) {
	duelOpts, worldOpts := separateOptions(opts)
	d := &Duel{
		stage:  stage.NewManager(),
		tracer: otel.Tracer("duel"),
		mu:     &sync.RWMutex{},
	}
	for _, opt := range duelOpts {
		opt(d)
	}

	if d.config == nil {
		cfg, err := config.Load(nil)
		if err != nil {
			return nil, eris.Wrap(err, "failed to load config to start duel server")
		}
		d.config = cfg
	}
	if err := d.config.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}

	if d.cards == nil {
		set, err := loadCards(d.config.CardFile)
		if err != nil {
			return nil, err
		}
		d.cards = set
	}

	if d.config.StatsdAddress != "" {
		if err := statsd.Init(d.config.StatsdAddress, []string{"namespace:" + d.config.Namespace}); err != nil {
			return nil, eris.Wrap(err, "failed to init statsd")
		}
	}

	limits := redis.Limits{MaxChatHistory: d.config.MaxChatHistory, MaxMatches: d.config.RecentMatchLimit}
	if d.redisClient != nil {
		d.storage = redis.NewStorageFromClient(d.redisClient, d.config.Namespace, limits)
	} else {
		d.storage = redis.NewRedisStorage(redis.Options{
			Addr:        d.config.RedisAddress,
			Password:    d.config.RedisPassword,
			DB:          0, // use default DB
			DialTimeout: RedisDialTimeOut,
		}, d.config.Namespace, limits)
	}
	d.stats = redis.NewStatsCache(&d.storage, redis.DefaultStatsCacheSize, redis.DefaultStatsCacheTTL)

	w, err := world.New(*d.config, d.cards, append([]world.Option{
		world.WithStores(world.Stores{
			Chat:    &d.storage,
			Matches: &d.storage,
			Stats:   d.stats,
			Rooms:   d.storage.Rooms,
		}),
	}, worldOpts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create world")
	}
	d.world = w

	s, err := server.New(w,
		server.WithReaders(server.Readers{Chat: &d.storage, Matches: &d.storage, Stats: d.stats}),
		server.WithGameLoopCheck(d.IsRunning),
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create server")
	}
	d.server = s

	return d, nil
}

func loadCards(path string) (*card.Set, error) {
	if path == "" {
		set, err := card.Default()
		return set, eris.Wrap(err, "failed to load embedded card set")
	}
	set, err := card.LoadFile(path)
	return set, eris.Wrapf(err, "failed to load card set from %s", path)
}

// Start runs the HTTP server and the tick loop until Stop is called, a termination signal arrives or one of them
// fails.
func (d *Duel) Start() error {
	if !d.stage.CompareAndSwap(stage.Init, stage.Starting) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancelMu.Lock()
	d.cancel = cancel
	d.cancelMu.Unlock()

	if err := d.storage.Ping(ctx); err != nil {
		d.Stop()
		d.shutdown()
		return eris.Wrap(err, "failed to reach redis")
	}

	// Handles SIGINT and SIGTERM signals and starts the shutdown process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("Received shutdown signal")
			d.Stop()
		case <-ctx.Done():
		}
	}()

	if d.tickChannel == nil {
		d.tickChannel = time.Tick(d.config.TickInterval) //nolint:staticcheck // the ticker lives as long as the process
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return d.server.Serve(ctx)
	})
	eg.Go(func() error {
		d.stage.Store(stage.Running)
		return d.tickLoop(ctx)
	})

	err := eg.Wait()
	d.Stop()
	d.shutdown()
	return err
}

func (d *Duel) tickLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-d.tickChannel:
			if err := d.nextTick(ctx, now); err != nil {
				return eris.Wrap(err, "failed to apply tick")
			}
		}
	}
}

func (d *Duel) nextTick(ctx context.Context, now time.Time) error {
	ctx, span := d.tracer.Start(ctx, "duel.tick")
	defer span.End()

	startTime := time.Now()
	report, err := d.world.Tick(ctx, now)
	if err != nil {
		span.SetStatus(codes.Error, eris.ToString(err, true))
		span.RecordError(err)
		return eris.Wrap(err, "failed to tick world")
	}
	span.SetAttributes(
		attribute.Int64("tick", int64(report.ID)), //nolint:gosec // tick ids fit in int64
		attribute.Int("requests", report.Requests),
		attribute.Int("events", report.Events),
		attribute.Int("rooms", report.Rooms),
	)
	statsd.EmitTickStat(startTime, "tick")

	d.publishTick(ctx, report)

	event := log.Debug()
	if len(report.Outcomes) > 0 {
		event = log.Info()
	}
	event.
		Uint64("tick", report.ID).
		Dur("duration", time.Since(startTime)).
		Int("requests", report.Requests).
		Int("events", report.Events).
		Int("finished_matches", len(report.Outcomes)).
		Msg("Tick completed")

	return nil
}

// Subscribe returns a channel that receives the report of every tick. The channel must be drained; it is closed
// when the server stops.
func (d *Duel) Subscribe() <-chan *world.Report {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	r := make(chan *world.Report)

	d.subscribers = append(d.subscribers, r)

	return r
}

func (d *Duel) publishTick(ctx context.Context, report *world.Report) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	for _, ch := range d.subscribers {
		select {
		case ch <- report:
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the server. Start returns once everything has shut down.
func (d *Duel) Stop() {
	d.stage.CompareAndSwap(stage.Running, stage.ShuttingDown)

	// cancel first so a blocked publishTick releases its read lock
	d.cancelMu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.cancelMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	for _, ch := range d.subscribers {
		close(ch)
	}
}

func (d *Duel) shutdown() {
	d.world.Shutdown()
	if err := d.storage.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close storage")
	}
	d.stage.Store(stage.ShutDown)
}

func (d *Duel) IsRunning() bool {
	return d.stage.Current() == stage.Running
}

func (d *Duel) Stage() stage.Stage {
	return d.stage.Current()
}

// NotifyOnStage returns a channel that is closed once the server reaches s.
func (d *Duel) NotifyOnStage(s stage.Stage) <-chan struct{} {
	return d.stage.NotifyOnStage(s)
}

func (d *Duel) World() *world.World {
	return d.world
}

func (d *Duel) Server() *server.Server {
	return d.server
}

func (d *Duel) Config() config.Config {
	return *d.config
}

func (d *Duel) Cards() *card.Set {
	return d.cards
}
