package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"ctchen222/galactic-tictactoe/internal/apperror"
	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/game"
	"ctchen222/galactic-tictactoe/internal/validator"
	"ctchen222/galactic-tictactoe/pkg/proto"
)

// DefaultAIDelay is the pause before the bot's reply is applied.
const DefaultAIDelay = 500 * time.Millisecond

// Mode is the kind of match a session plays.
type Mode string

// Phase is the state of the session's state machine.
type Phase string

const (
	ModeNone         Mode = ""
	ModeSinglePlayer Mode = "single"
	ModeTwoPlayer    Mode = "multi"

	PhaseMenu             Phase = "menu"
	PhaseAwaitingOpponent Phase = "awaiting_opponent"
	PhaseInProgress       Phase = "in_progress"
	PhaseFinished         Phase = "finished"
)

// MoveSelector chooses the bot's cell. found is false on a full board.
type MoveSelector interface {
	SelectMove(board game.Board, difficulty bot.Difficulty, botMark game.PlayerMark) (cell int, found bool)
}

// Scheduler runs at most one delayed action. Scheduling replaces the pending
// action and Cancel drops it.
type Scheduler interface {
	Schedule(delay time.Duration, action func())
	Cancel()
}

//go:generate mockgen -destination=mocks/transport.go -package=mocks ctchen222/galactic-tictactoe/internal/session Transport

// Transport moves session messages between the two ends of a match.
type Transport interface {
	Host(ctx context.Context, code string, init *proto.Message) error
	Join(ctx context.Context, code string) (*proto.Message, error)
	Publish(ctx context.Context, code string, msg *proto.Message) error
	Leave(ctx context.Context, code string) error
}

// Config wires the session's collaborators.
type Config struct {
	Selector  MoveSelector
	Scheduler Scheduler
	// Transport is only required for two-player matches.
	Transport Transport
	AIDelay   time.Duration
	// Rand draws session codes. Nil uses a randomly seeded source.
	Rand *rand.Rand
}

// Session is the turn/session state machine of one participant. It is not
// safe for concurrent use; callers serialize every call, including the
// actions handed to the Scheduler.
type Session struct {
	selector  MoveSelector
	scheduler Scheduler
	transport Transport
	aiDelay   time.Duration
	rng       *rand.Rand

	mode       Mode
	phase      Phase
	board      game.Board
	localMark  game.PlayerMark
	turn       game.PlayerMark
	difficulty bot.Difficulty
	outcome    game.Outcome
	code       string
	peerAlive  bool
	matchCount int
	generation uint64
}

// New returns a session in the menu phase.
func New(cfg Config) *Session {
	if cfg.AIDelay <= 0 {
		cfg.AIDelay = DefaultAIDelay
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Session{
		selector:  cfg.Selector,
		scheduler: cfg.Scheduler,
		transport: cfg.Transport,
		aiDelay:   cfg.AIDelay,
		rng:       cfg.Rand,
	}
	s.resetToMenu()
	return s
}

// StartSinglePlayer starts a match against the bot. The human plays X for the
// first two matches of every four-match cycle and O for the other two; when the
// human plays O the bot's opening move is scheduled immediately.
func (s *Session) StartSinglePlayer(ctx context.Context, difficulty bot.Difficulty) {
	if s.phase != PhaseMenu {
		s.ReturnToMenu(ctx)
	}
	if difficulty == "" {
		difficulty = bot.DefaultDifficulty
	}
	s.mode = ModeSinglePlayer
	s.difficulty = difficulty
	s.beginSinglePlayerMatch(ctx)
	slog.DebugContext(ctx, "single player match started", "difficulty", difficulty, "local.mark", s.localMark)
}

// StartMultiplayerHost creates a two-player session, publishes it and waits
// for an opponent. The host always plays X.
func (s *Session) StartMultiplayerHost(ctx context.Context) error {
	if s.phase != PhaseMenu {
		s.ReturnToMenu(ctx)
	}
	if s.transport == nil {
		return fmt.Errorf("%w: no transport configured", apperror.ErrTransportFailure)
	}

	code := NewCode(s.rng)
	s.mode = ModeTwoPlayer
	s.code = code
	s.localMark = game.PlayerX
	s.clearBoard()
	s.phase = PhaseAwaitingOpponent

	if err := s.transport.Host(ctx, code, proto.NewStateMessage(proto.TypeInit, s.board, s.turn)); err != nil {
		s.resetToMenu()
		return fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}
	slog.DebugContext(ctx, "multiplayer session hosted", "session.code", code)
	return nil
}

// JoinMultiplayer joins the session published under code as O. The board and
// the side to move come from the host's stored state; nothing is assumed locally.
// A failed join leaves the session unchanged.
func (s *Session) JoinMultiplayer(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return fmt.Errorf("%w: malformed code %q", apperror.ErrSessionNotFound, code)
	}
	if s.transport == nil {
		return fmt.Errorf("%w: no transport configured", apperror.ErrTransportFailure)
	}

	init, err := s.transport.Join(ctx, code)
	if err != nil {
		if errors.Is(err, apperror.ErrSessionNotFound) || errors.Is(err, apperror.ErrSessionFull) || errors.Is(err, apperror.ErrSessionExpired) {
			return err
		}
		return fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}
	board, err := game.BoardFromSlice(init.Board)
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}

	if s.phase != PhaseMenu {
		s.ReturnToMenu(ctx)
	}
	s.mode = ModeTwoPlayer
	s.code = code
	s.localMark = game.PlayerO
	s.peerAlive = true
	s.replaceState(board, init.Turn)
	slog.DebugContext(ctx, "joined multiplayer session", "session.code", code, "turn", s.turn)
	return nil
}

// ApplyLocalMove places the local player's mark on cell. Moves on an occupied
// or out-of-range cell, out of turn, or after the outcome is decided are
// ignored and report false. err is only set when publishing to the peer fails,
// in which case the session has returned to the menu.
func (s *Session) ApplyLocalMove(ctx context.Context, cell int) (accepted bool, err error) {
	if s.phase != PhaseInProgress || s.outcome.IsTerminal() {
		return false, nil
	}
	if !game.ValidCell(cell) || s.board[cell] != game.None || s.turn != s.localMark {
		return false, nil
	}

	s.place(cell, s.localMark)

	switch s.mode {
	case ModeSinglePlayer:
		if !s.outcome.IsTerminal() {
			s.scheduleBotMove()
		}
	case ModeTwoPlayer:
		if err := s.publish(ctx, proto.NewStateMessage(proto.TypeMove, s.board, s.turn)); err != nil {
			return true, err
		}
	}
	return true, nil
}

// ApplyRemoteState reconciles a message from the peer. State messages replace
// the board and turn wholesale; applying the same state twice changes nothing.
// changed reports whether the session was modified.
func (s *Session) ApplyRemoteState(ctx context.Context, msg *proto.Message) (changed bool, err error) {
	if msg == nil || s.mode != ModeTwoPlayer || s.phase == PhaseMenu {
		return false, nil
	}
	if err := validator.GetValidator().Struct(msg); err != nil {
		slog.WarnContext(ctx, "ignoring invalid remote message", "session.code", s.code, "error", err)
		return false, nil
	}

	switch msg.Type {
	case proto.TypeJoined:
		if s.peerAlive && s.phase != PhaseAwaitingOpponent {
			return false, nil
		}
		s.peerAlive = true
		if s.phase == PhaseAwaitingOpponent {
			s.phase = PhaseInProgress
		}
		if s.localMark == game.PlayerX {
			// The host's state is authoritative for the joining side.
			if err := s.publish(ctx, proto.NewStateMessage(proto.TypeInit, s.board, s.turn)); err != nil {
				return true, err
			}
		}
		return true, nil

	case proto.TypeLeft:
		if !s.peerAlive {
			return false, nil
		}
		s.peerAlive = false
		return true, nil

	case proto.TypeReset:
		if s.phase == PhaseAwaitingOpponent {
			return false, nil
		}
		if s.board.IsEmpty() && s.turn == game.PlayerX && s.phase == PhaseInProgress {
			return false, nil
		}
		s.clearBoard()
		s.phase = PhaseInProgress
		return true, nil

	case proto.TypeInit, proto.TypeMove:
		board, err := game.BoardFromSlice(msg.Board)
		if err != nil || !msg.Turn.IsPlayer() {
			slog.WarnContext(ctx, "ignoring remote state without board or turn", "session.code", s.code)
			return false, nil
		}
		if board == s.board && msg.Turn == s.turn && s.phase != PhaseAwaitingOpponent {
			return false, nil
		}
		if msg.Type == proto.TypeInit {
			s.peerAlive = true
		}
		s.replaceState(board, msg.Turn)
		return true, nil
	}
	return false, nil
}

// Restart clears the board for a new match. In single-player mode the match
// counter advances, which rotates the symbol assignment. In two-player mode the
// reset is published to the peer.
func (s *Session) Restart(ctx context.Context) error {
	if s.phase != PhaseInProgress && s.phase != PhaseFinished {
		return nil
	}
	s.cancelPending()

	switch s.mode {
	case ModeSinglePlayer:
		s.matchCount++
		s.beginSinglePlayerMatch(ctx)
	case ModeTwoPlayer:
		s.clearBoard()
		s.phase = PhaseInProgress
		return s.publish(ctx, &proto.Message{Type: proto.TypeReset})
	}
	return nil
}

// ReturnToMenu tears the session down from any phase. Pending bot moves are
// cancelled, the peer is told we left, and counters and difficulty are reset.
func (s *Session) ReturnToMenu(ctx context.Context) {
	s.cancelPending()
	if s.mode == ModeTwoPlayer && s.code != "" && s.transport != nil {
		if err := s.transport.Leave(ctx, s.code); err != nil {
			slog.WarnContext(ctx, "failed to leave multiplayer session", "session.code", s.code, "error", err)
		}
	}
	s.resetToMenu()
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:       s.mode,
		Phase:      s.phase,
		Board:      game.BoardToSlice(s.board),
		LocalMark:  s.localMark,
		Turn:       s.turn,
		Outcome:    s.outcome,
		Code:       s.code,
		PeerAlive:  s.peerAlive,
		MatchCount: s.matchCount,
	}
	if s.mode == ModeSinglePlayer {
		snap.Difficulty = s.difficulty
		snap.CycleMatch = s.matchCount%2 + 1
	}
	return snap
}

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Board returns a copy of the board.
func (s *Session) Board() game.Board { return s.board }

// Outcome returns the outcome derived from the current board.
func (s *Session) Outcome() game.Outcome { return s.outcome }

func (s *Session) beginSinglePlayerMatch(ctx context.Context) {
	s.clearBoard()
	s.phase = PhaseInProgress
	s.localMark = humanMarkForMatch(s.matchCount)
	if s.localMark == game.PlayerO {
		slog.DebugContext(ctx, "bot opens the match", "match.count", s.matchCount)
		s.scheduleBotMove()
	}
}

// humanMarkForMatch assigns X for two matches, then O for two, repeating.
func humanMarkForMatch(matchCount int) game.PlayerMark {
	if matchCount%4 < 2 {
		return game.PlayerX
	}
	return game.PlayerO
}

func (s *Session) scheduleBotMove() {
	if s.scheduler == nil || s.selector == nil {
		return
	}
	s.generation++
	generation := s.generation
	s.scheduler.Schedule(s.aiDelay, func() {
		s.playBotMove(generation)
	})
}

// playBotMove applies the bot's reply unless the match it was scheduled for
// has been superseded.
func (s *Session) playBotMove(generation uint64) {
	botMark := s.localMark.Opponent()
	if generation != s.generation || s.mode != ModeSinglePlayer || s.phase != PhaseInProgress || s.turn != botMark {
		return
	}
	cell, found := s.selector.SelectMove(s.board, s.difficulty, botMark)
	if !found || !game.ValidCell(cell) || s.board[cell] != game.None {
		return
	}
	s.place(cell, botMark)
}

func (s *Session) cancelPending() {
	s.generation++
	if s.scheduler != nil {
		s.scheduler.Cancel()
	}
}

// place writes mark, re-evaluates the board and either finishes the match or
// hands the turn over.
func (s *Session) place(cell int, mark game.PlayerMark) {
	s.board[cell] = mark
	s.outcome = game.Evaluate(s.board)
	if s.outcome.IsTerminal() {
		s.phase = PhaseFinished
		return
	}
	s.turn = mark.Opponent()
}

func (s *Session) replaceState(board game.Board, turn game.PlayerMark) {
	if !turn.IsPlayer() {
		turn = game.PlayerX
	}
	s.board = board
	s.turn = turn
	s.outcome = game.Evaluate(board)
	if s.outcome.IsTerminal() {
		s.phase = PhaseFinished
	} else {
		s.phase = PhaseInProgress
	}
}

func (s *Session) clearBoard() {
	s.board = game.Board{}
	s.outcome = game.Outcome{}
	s.turn = game.PlayerX
}

func (s *Session) publish(ctx context.Context, msg *proto.Message) error {
	if s.transport == nil {
		return nil
	}
	if err := s.transport.Publish(ctx, s.code, msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish session state", "session.code", s.code, "message.type", msg.Type, "error", err)
		s.cancelPending()
		s.resetToMenu()
		return fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}
	return nil
}

func (s *Session) resetToMenu() {
	s.mode = ModeNone
	s.phase = PhaseMenu
	s.clearBoard()
	s.localMark = game.None
	s.difficulty = bot.DefaultDifficulty
	s.code = ""
	s.peerAlive = false
	s.matchCount = 0
}
