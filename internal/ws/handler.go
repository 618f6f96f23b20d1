package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/cryptic-backend/internal/engine"
	"github.com/DoyleJ11/cryptic-backend/internal/hub"
	"github.com/DoyleJ11/cryptic-backend/internal/lobby"
	"github.com/DoyleJ11/cryptic-backend/internal/types"
	api "github.com/DoyleJ11/cryptic-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 8
)

type Options struct {
	Logger *zap.Logger
	// OriginPatterns is passed to websocket.Accept; empty means same origin.
	OriginPatterns []string
}

// Handler upgrades GET /ws?code=ABCD&playerName=ann. The player is joined
// to the lobby if not already seated; every inbound message is sent as
// that player.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		player := r.URL.Query().Get("playerName")
		if code == "" || player == "" {
			http.Error(w, "missing code or playerName", http.StatusBadRequest)
			return
		}

		s, ok := h.Get(r.Context(), code)
		if !ok {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			id:     uuid.New(),
			player: player,
			conn:   conn,
			s:      s,
			log:    log.With(zap.String("lobby", s.Code()), zap.String("player", player)),
		}
		c.serve(r.Context())
	}
}

type client struct {
	id     uuid.UUID
	player string
	conn   *websocket.Conn
	s      *lobby.Session
	log    *zap.Logger
}

func (c *client) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if !c.s.HasPlayer(c.player) {
		if err := c.s.Send(engine.Event{Type: engine.EvtJoinLobby, PlayerName: c.player}); err != nil {
			c.conn.Close(websocket.StatusTryAgainLater, err.Error())
			return
		}
	}

	// Snapshots are dropped rather than queued when the client is slow;
	// the next tick carries the full state anyway.
	out := make(chan api.Snapshot, outboxSize)
	unsubscribe := c.s.Subscribe(func(snap api.Snapshot) {
		select {
		case out <- snap:
		default:
		}
	})
	defer unsubscribe()

	c.log.Debug("client connected", zap.String("conn", c.id.String()))
	defer c.log.Debug("client disconnected", zap.String("conn", c.id.String()))

	go c.writeLoop(ctx, cancel, out)
	c.readLoop(ctx)
}

func (c *client) writeLoop(ctx context.Context, cancel context.CancelFunc, out <-chan api.Snapshot) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.s.Done():
			c.conn.Close(websocket.StatusGoingAway, "lobby closed")
			return
		case snap := <-out:
			if err := c.write(ctx, types.SnapshotMessage(snap)); err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					c.log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			_ = c.write(ctx, types.ErrorMessage(errors.New("bad json")))
			continue
		}
		// the connection speaks for one player only
		cm.PlayerName = c.player

		if err := c.handle(ctx, cm); err != nil {
			_ = c.write(ctx, types.ErrorMessage(err))
		}
	}
}

func (c *client) handle(ctx context.Context, cm types.ClientMessage) error {
	ev, err := cm.ToEvent()
	if err != nil {
		return err
	}
	if ev.Type == engine.EvtStartGame {
		return c.s.StartGame(ctx, ev.PlayerName, ev.Config)
	}
	return c.s.Send(ev)
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, payload)
}
