package hub

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cryptic-backend/internal/lobby"
)

var ErrHubClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Leader string
	Reply  chan Created
}

type Created struct {
	Session *lobby.Session
	Err     error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Session
}

// RemoveLobby is sent by a session's dispose hook. Session guards against
// removing a newer lobby that reused the code.
type RemoveLobby struct {
	Code    string
	Session *lobby.Session
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Options struct {
	// Session is the template for every lobby. A non-nil Session.Rand only
	// seeds the per-lobby sources and is never shared between lobbies.
	Session lobby.Options
	Logger  *zap.Logger
	CodeTTL time.Duration
	Now     func() time.Time
	// Entropy for lobby codes; crypto/rand when nil.
	Entropy io.Reader
}

// Hub is the registry of live lobbies. A single goroutine owns the map.
type Hub struct {
	opts    Options
	log     *zap.Logger
	inbox   chan HubMsg
	lobbies map[string]*lobby.Session
	codes   *codeBook
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		opts:    opts,
		log:     opts.Logger,
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Session),
		codes:   newCodeBook(opts.Entropy, opts.CodeTTL),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub loop has exited and every lobby is disposed.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Create opens a new lobby with leader seated on the first team.
func (h *Hub) Create(ctx context.Context, leader string) (*lobby.Session, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateLobby{Leader: leader, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Session, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Get looks a lobby up by code, ignoring case and surrounding spaces.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Session, bool) {
	reply := make(chan *lobby.Session, 1)
	if err := h.send(ctx, GetLobby{Code: NormalizeCode(code), Reply: reply}); err != nil {
		return nil, false
	}
	select {
	case s := <-reply:
		return s, s != nil
	case <-ctx.Done():
		return nil, false
	case <-h.done:
		return nil, false
	}
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.done:
		return 0, ErrHubClosed
	}
}

// Shutdown disposes every lobby and waits for the hub loop to exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.create(msg.Leader)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Session {
					delete(h.lobbies, msg.Code)
					h.log.Debug("lobby removed", zap.String("lobby", msg.Code), zap.Int("live", len(h.lobbies)))
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(leader string) Created {
	code, err := h.codes.next(h.opts.Now(), func(c string) bool { return h.lobbies[c] != nil })
	if err != nil {
		h.log.Error("lobby code allocation failed", zap.Error(err))
		return Created{Err: err}
	}
	s := lobby.NewSession(h.ctx, code, leader, h.sessionOptions())
	h.lobbies[code] = s
	s.OnDispose(func() {
		select {
		case h.inbox <- RemoveLobby{Code: code, Session: s}:
		case <-h.ctx.Done():
		}
	})
	return Created{Session: s}
}

// sessionOptions copies the session template. Each lobby runs its own
// goroutine, so it gets a source seeded from the template's.
func (h *Hub) sessionOptions() lobby.Options {
	opts := h.opts.Session
	if opts.Rand != nil {
		opts.Rand = rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64()))
	}
	return opts
}

func (h *Hub) shutdown() {
	h.cancel()
	for _, s := range h.lobbies {
		s.Dispose()
	}
	h.log.Info("hub stopped", zap.Int("lobbies", len(h.lobbies)))
	clear(h.lobbies)
}
