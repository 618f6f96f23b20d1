package lobby

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cryptic-backend/internal/engine"
	"github.com/DoyleJ11/cryptic-backend/pkg/types"
)

var ErrSessionClosed = errors.New("lobby session closed")
var ErrInboxFull = errors.New("lobby inbox full")
var ErrWrongPhase = errors.New("event not accepted in the current phase")

type Msg interface{ isLobbyMsg() }

// FromClient carries one player event. Reply, when set, receives the
// outcome once the event has been processed; it must be buffered.
type FromClient struct {
	Event engine.Event
	Reply chan error
}

func (FromClient) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Version        int
	Phase          Phase
	NumSubscribers int
	State          engine.Lobby
}

type Options struct {
	Clock         Clock
	Logger        *zap.Logger
	Rand          *rand.Rand
	Bank          engine.WordBank
	Defaults      engine.GameConfig
	TickInterval  time.Duration
	ReapInterval  time.Duration
	IdleTimeout   time.Duration
	GameOverGrace time.Duration
	InboxSize     int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = RealClock()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 200 * time.Millisecond
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = time.Minute
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	if o.GameOverGrace <= 0 {
		o.GameOverGrace = 2 * time.Second
	}
	if o.InboxSize <= 0 {
		o.InboxSize = 64
	}
	return o
}

// published is the immutable state the ticker, reaper and membership
// checks read without touching the engine goroutine.
type published struct {
	version int
	phase   Phase
	state   engine.Lobby
}

// Session owns one lobby: its state, the protocol goroutine that mutates
// it, and the ticker that streams snapshots to subscribers.
type Session struct {
	code  string
	opts  Options
	log   *zap.Logger
	inbox chan Msg

	// owned by the protocol goroutine
	state   engine.Lobby
	version int
	phase   Phase

	current atomic.Pointer[published]

	mu         sync.Mutex
	subs       map[uuid.UUID]func(types.Snapshot)
	hooks      []func()
	disposed   bool
	disposeOne sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(parent context.Context, code, leader string, opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		code:   code,
		opts:   opts,
		log:    opts.Logger.With(zap.String("lobby", code)),
		inbox:  make(chan Msg, opts.InboxSize),
		state:  engine.NewLobby(leader),
		phase:  PhaseLobby,
		subs:   make(map[uuid.UUID]func(types.Snapshot)),
		ctx:    ctx,
		cancel: cancel,
	}
	s.publish()

	go s.run()
	go s.tickLoop()
	go s.reapLoop()

	// a parent cancellation tears the session down like Dispose
	context.AfterFunc(ctx, s.Dispose)

	s.log.Info("lobby created", zap.String("leader", leader))
	return s
}

func (s *Session) Code() string { return s.code }

// Inbox exposes the raw message queue for tests and transports that need
// GetState or Shutdown.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session has been disposed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Send enqueues a player event without waiting for it to be processed.
func (s *Session) Send(ev engine.Event) error {
	return s.enqueue(FromClient{Event: ev})
}

// StartGame enqueues a StartGame event and waits for its outcome, so
// configuration problems reach the caller as typed errors.
func (s *Session) StartGame(ctx context.Context, player string, cfg engine.GameSettings) error {
	reply := make(chan error, 1)
	msg := FromClient{
		Event: engine.Event{Type: engine.EvtStartGame, PlayerName: player, Config: cfg},
		Reply: reply,
	}
	if err := s.enqueue(msg); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

func (s *Session) enqueue(m Msg) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.inbox <- m:
		return nil
	default:
		return ErrInboxFull
	}
}

// HasPlayer is the membership check the transport runs before forwarding
// a player's events.
func (s *Session) HasPlayer(name string) bool {
	return s.current.Load().state.HasPlayer(name)
}

func (s *Session) IsLeader(name string) bool {
	return s.current.Load().state.Leader == name
}

// Snapshot returns the redacted view of the latest published state.
func (s *Session) Snapshot() types.Snapshot {
	p := s.current.Load()
	return Redact(s.code, p.version, p.phase, p.state)
}

// Subscribe registers fn for every tick and calls it once right away with
// the current snapshot. fn runs on the ticker goroutine and must not block.
func (s *Session) Subscribe(fn func(types.Snapshot)) (unsubscribe func()) {
	id := uuid.New()
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return func() {}
	}
	s.subs[id] = fn
	s.mu.Unlock()

	fn(s.Snapshot())

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// OnDispose registers fn to run once when the session is disposed. If the
// session is already gone fn runs immediately.
func (s *Session) OnDispose(fn func()) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		fn()
		return
	}
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Dispose stops the protocol, the ticker and the reaper and drops every
// subscriber. It is safe to call more than once and from any goroutine.
func (s *Session) Dispose() {
	s.disposeOne.Do(func() {
		s.cancel()

		s.mu.Lock()
		s.disposed = true
		clear(s.subs)
		hooks := s.hooks
		s.hooks = nil
		s.mu.Unlock()

		for _, h := range hooks {
			h()
		}
		s.log.Info("lobby disposed")
	})
}

func (s *Session) publish() {
	s.current.Store(&published{version: s.version, phase: s.phase, state: s.state})
}

func (s *Session) view() View {
	return View{
		Version:        s.version,
		Phase:          s.phase,
		NumSubscribers: s.subscriberCount(),
		State:          s.state,
	}
}

func (s *Session) tickLoop() {
	t := time.NewTicker(s.opts.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			s.broadcast()
		}
	}
}

func (s *Session) broadcast() {
	s.mu.Lock()
	fns := make([]func(types.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}
