package lobby

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cryptic-backend/internal/engine"
)

type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhaseEncoding Phase = "ENCODING"
	PhaseDecoding Phase = "DECODING"
	PhaseGameOver Phase = "GAME_OVER"

	phaseStopped Phase = ""
)

// Events honoured in every phase on top of the phase's own set.
var alwaysAccepted = []engine.EventType{engine.EvtLeaveLobby, engine.EvtDisbandLobby}

var phaseEvents = map[Phase][]engine.EventType{
	PhaseLobby: {
		engine.EvtJoinLobby, engine.EvtJoinTeam,
		engine.EvtPromoteEncoder, engine.EvtDemoteEncoder,
		engine.EvtStartGame,
	},
	PhaseEncoding: {engine.EvtEncodeSecret},
	PhaseDecoding: {engine.EvtDecodeSecret, engine.EvtCancelDecodeSecret, engine.EvtSkipDecoding},
	PhaseGameOver: {},
}

func accepts(p Phase, t engine.EventType) bool {
	return slices.Contains(alwaysAccepted, t) || slices.Contains(phaseEvents[p], t)
}

// run is the protocol goroutine: one phase at a time, each phase owning its
// timer, until the session is disposed.
func (s *Session) run() {
	defer s.Dispose()
	for {
		var next Phase
		switch s.phase {
		case PhaseLobby:
			next = s.lobbyPhase()
		case PhaseEncoding:
			next = s.encodingPhase()
		case PhaseDecoding:
			next = s.decodingPhase()
		case PhaseGameOver:
			next = s.gameOverPhase()
		}
		if next == phaseStopped {
			return
		}
		if next != s.phase {
			s.log.Debug("phase change", zap.String("from", string(s.phase)), zap.String("to", string(next)))
		}
		s.phase = next
		s.publish()
	}
}

func (s *Session) lobbyPhase() Phase {
	for {
		select {
		case <-s.ctx.Done():
			return phaseStopped
		case m := <-s.inbox:
			if stop := s.dispatch(m); stop {
				return phaseStopped
			}
			if g := s.state.ActiveGame; g != nil {
				s.log.Info("game started",
					zap.String("first_team", string(g.ActiveTeamColor)),
					zap.Int("secrets", len(g.Secrets)))
				return PhaseEncoding
			}
		}
	}
}

func (s *Session) encodingPhase() Phase {
	g := s.state.ActiveGame
	turn := g.Turn
	timer := s.opts.Clock.NewTimer(seconds(g.Config.EncodeTimeLimitSec))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return phaseStopped
		case <-timer.C():
			s.log.Debug("encode timed out", zap.String("team", string(g.ActiveTeamColor)))
			s.reduce(engine.EndTurn(s.opts.Clock.Now()))
			return s.gamePhase(PhaseEncoding, turn)
		case m := <-s.inbox:
			if stop := s.dispatch(m); stop {
				return phaseStopped
			}
			if next := s.gamePhase(PhaseEncoding, turn); next != PhaseEncoding || s.state.ActiveGame.Turn != turn {
				return next
			}
		}
	}
}

func (s *Session) decodingPhase() Phase {
	g := s.state.ActiveGame
	turn := g.Turn
	timer := s.opts.Clock.NewTimer(seconds(g.Config.DecodeTimeLimitSec))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return phaseStopped
		case <-timer.C():
			s.log.Debug("decode timed out", zap.String("team", string(g.ActiveTeamColor)))
			s.reduce(engine.EndTurn(s.opts.Clock.Now()))
			return s.gamePhase(PhaseDecoding, turn)
		case m := <-s.inbox:
			if stop := s.dispatch(m); stop {
				return phaseStopped
			}
			if next := s.gamePhase(PhaseDecoding, turn); next != PhaseDecoding {
				return next
			}
		}
	}
}

func (s *Session) gameOverPhase() Phase {
	if winner, ok := s.state.WinningTeam(); ok {
		s.log.Info("game over", zap.String("winner", string(winner)))
	}
	timer := s.opts.Clock.NewTimer(s.opts.GameOverGrace)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return phaseStopped
		case <-timer.C():
			s.reduce(engine.EndGame())
			return PhaseLobby
		case m := <-s.inbox:
			if stop := s.dispatch(m); stop {
				return phaseStopped
			}
		}
	}
}

// gamePhase reads the phase the game is in after a reduction: a winner
// ends the game, a new turn restarts encoding, a submitted signal moves
// encoding on to decoding.
func (s *Session) gamePhase(cur Phase, turn int) Phase {
	g := s.state.ActiveGame
	if g == nil {
		return PhaseLobby
	}
	if _, won := s.state.WinningTeam(); won {
		return PhaseGameOver
	}
	if g.Turn != turn {
		return PhaseEncoding
	}
	if cur == PhaseEncoding && g.InDecodePhase() {
		return PhaseDecoding
	}
	return cur
}

// dispatch handles one inbox message. It reports true when the session
// should stop.
func (s *Session) dispatch(m Msg) (stop bool) {
	switch msg := m.(type) {
	case GetState:
		msg.Reply <- s.view()
		return false

	case Shutdown:
		return true

	case FromClient:
		ev := msg.Event
		if !accepts(s.phase, ev.Type) {
			s.log.Debug("event dropped",
				zap.String("event", string(ev.Type)),
				zap.String("player", ev.PlayerName),
				zap.String("phase", string(s.phase)))
			reply(msg.Reply, ErrWrongPhase)
			return false
		}
		err := s.apply(ev)
		reply(msg.Reply, err)
		if err == nil && ev.Type == engine.EvtDisbandLobby {
			s.log.Info("lobby disbanded", zap.String("player", ev.PlayerName))
			return true
		}
		return false
	}
	return false
}

func (s *Session) apply(ev engine.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reducer panic: %v", r)
			s.log.Error("engine fault", zap.String("event", string(ev.Type)), zap.Error(err))
		}
	}()

	env := engine.Env{
		Now:      s.opts.Clock.Now(),
		Rand:     s.opts.Rand,
		Bank:     s.opts.Bank,
		Defaults: s.opts.Defaults,
	}
	next, err := engine.Apply(s.state, ev, env)
	if err != nil {
		s.logRejected(ev, err)
		return err
	}
	s.commit(next)
	return nil
}

func (s *Session) logRejected(ev engine.Event, err error) {
	fields := []zap.Field{
		zap.String("event", string(ev.Type)),
		zap.String("player", ev.PlayerName),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, engine.ErrInsufficientWords),
		errors.Is(err, engine.ErrInvalidConfig),
		errors.Is(err, engine.ErrNoEligibleTeams),
		errors.Is(err, engine.ErrNotLeader):
		s.log.Info("event rejected", fields...)
	default:
		s.log.Warn("engine fault", fields...)
	}
}

func (s *Session) reduce(r engine.Reducer) {
	s.commit(r(s.state))
}

func (s *Session) commit(next engine.Lobby) {
	s.state = next
	s.version++
	s.publish()
}

func reply(ch chan error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
