// Package host runs a hosted room: the session transport, the lobby and
// the round timers. All session state is owned by a single loop goroutine;
// transport pumps and callers reach it through channels.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/dependencies/random"
	"github.com/mcoot/mathlan/internal/discovery"
	"github.com/mcoot/mathlan/internal/events"
	"github.com/mcoot/mathlan/internal/metrics"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/protocol"
	"github.com/mcoot/mathlan/internal/services/lobby"
	"github.com/mcoot/mathlan/internal/services/questions"
	"github.com/mcoot/mathlan/internal/services/round"
	"github.com/mcoot/mathlan/internal/services/scoring"
	"github.com/mcoot/mathlan/internal/services/weakfacts"
	"github.com/mcoot/mathlan/internal/storage"
)

const (
	// maxSeed bounds randomly chosen round seeds
	maxSeed = 1_000_000_000

	storageTimeout = 5 * time.Second
)

// Deps are the collaborators shared by every session of a Host
type Deps struct {
	Clock   clock.Clock
	Random  random.Random
	Bus     *events.Bus
	Storage storage.Storage // optional
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type request struct {
	fn   func()
	done chan struct{}
}

// Session is one running room
type Session struct {
	cfg     Config
	room    model.RoomInfo
	clock   clock.Clock
	random  random.Random
	bus     *events.Bus
	storage storage.Storage
	metrics *metrics.Metrics
	logger  *slog.Logger

	// Loop-owned state
	roster    *lobby.Roster
	tracker   *weakfacts.Tracker
	scheduler *round.Scheduler
	conns     map[uint64]*conn
	countdown clock.Timer
	cadence   clock.Ticker

	nextConnID atomic.Uint64
	inbox      chan inbound
	control    chan request
	stopped    chan struct{}

	server   *Server
	group    *errgroup.Group
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopErr  error
}

// Start binds the session port and starts serving. A bind failure is
// returned with its cause and leaves nothing running.
func Start(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus(deps.Clock, deps.Logger)
	}

	ln, err := Listen(cfg.BindHost, cfg.Port)
	if err != nil {
		deps.Logger.Error("failed to bind session port", slog.Int("port", cfg.Port), slog.Any("error", err))
		return nil, err
	}
	port := cfg.Port
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	hostIP := cfg.AdvertiseIP
	if hostIP == "" {
		hostIP = discovery.LocalIPv4()
	}
	room := model.RoomInfo{
		RoomCode:   lobby.NewRoomCode(deps.Random),
		HostName:   cfg.HostName,
		HostIP:     hostIP,
		WsPort:     port,
		Mode:       cfg.Mode,
		MaxPlayers: cfg.MaxPlayers,
	}

	s := &Session{
		cfg:     cfg,
		room:    room,
		clock:   deps.Clock,
		random:  deps.Random,
		bus:     deps.Bus,
		storage: deps.Storage,
		metrics: deps.Metrics,
		logger:  deps.Logger.With(slog.String("component", "host"), slog.String("room", string(room.RoomCode))),
		conns:   make(map[uint64]*conn),
		inbox:   make(chan inbound, 64),
		control: make(chan request),
		stopped: make(chan struct{}),
	}

	s.roster = lobby.NewRoster(room, deps.Random)
	if cfg.LocalPlayer != nil {
		s.roster.AddLocalPlayer(cfg.LocalPlayer.Name, cfg.LocalPlayer.Color)
	}
	s.tracker = weakfacts.NewTracker(s.loadWeakFacts(ctx))
	s.scheduler = round.New(
		round.Config{Game: cfg.Game, Countdown: cfg.Countdown},
		s.roster,
		s.tracker,
		questions.New(deps.Clock, questions.Unseeded(deps.Random)),
		scoring.New(cfg.Points),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.server = NewServer(runCtx, newRouter(s), cfg.Server, s.logger)

	group, groupCtx := errgroup.WithContext(runCtx)
	s.group = group
	started := s.roster.Snapshot()
	s.updatePlayerMetrics()

	group.Go(func() error { return s.server.Serve(ln) })
	group.Go(func() error { return s.run(groupCtx) })
	if !cfg.DisableAnnounce {
		announcer := discovery.NewAnnouncer(room, cfg.Announce, deps.Clock, deps.Logger).WithMetrics(deps.Metrics)
		group.Go(func() error { return announcer.Run(groupCtx) })
	}

	s.logger.Info("host started",
		slog.String("host_ip", hostIP),
		slog.Int("port", port),
		slog.String("mode", string(cfg.Mode)),
		slog.Int("max_players", cfg.MaxPlayers))
	s.bus.Publish(model.EventHostStarted, model.HostStartedPayload{Lobby: started, HostIP: hostIP})

	return s, nil
}

func (s *Session) loadWeakFacts(ctx context.Context) model.FactStatsMap {
	if s.storage == nil || s.cfg.ProfileKey == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	facts, err := s.storage.GetWeakFacts(ctx, s.cfg.ProfileKey)
	if err != nil {
		if !errors.Is(err, model.ErrWeakFactsNotFound) {
			s.logger.Warn("failed to load weak facts", slog.String("profile", s.cfg.ProfileKey), slog.Any("error", err))
		}
		return nil
	}
	s.logger.Debug("weak facts loaded", slog.String("profile", s.cfg.ProfileKey), slog.Int("facts", len(facts)))
	return facts
}

// Stop closes every connection, the listener and both timers. It is safe to
// call more than once.
func (s *Session) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.cancel()
		var errs []error
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := s.group.Wait(); err != nil {
			errs = append(errs, err)
		}
		s.stopErr = errors.Join(errs...)
		s.logger.Info("host stopped")
		s.bus.Publish(model.EventHostStopped, nil)
	})
	return s.stopErr
}

// Done is closed once the session loop has exited
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}

// Room returns the announced room metadata
func (s *Session) Room() model.RoomInfo {
	return s.room
}

// do runs fn on the loop goroutine and waits for it
func (s *Session) do(fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case s.control <- req:
	case <-s.stopped:
		return model.ErrNotHosting
	}
	<-req.done
	return nil
}

// StartGame starts the round. Without a ready and connected player the room
// stays open and an error event is published locally.
func (s *Session) StartGame() error {
	var err error
	if doErr := s.do(func() { err = s.startGame() }); doErr != nil {
		return doErr
	}
	return err
}

// SetReady sets the host-local player's ready flag
func (s *Session) SetReady(ready bool) error {
	var err error
	if doErr := s.do(func() {
		if !s.roster.SetReady(model.LocalPlayerID, ready) {
			err = model.ErrPlayerNotFound
			return
		}
		s.broadcastLobby()
	}); doErr != nil {
		return doErr
	}
	return err
}

// SubmitAnswer scores an answer from the host-local player. It reports
// whether the answer was accepted.
func (s *Session) SubmitAnswer(questionID string, value int, responseMs float64) (bool, error) {
	var accepted bool
	if err := s.do(func() {
		accepted = s.submitAnswer(model.LocalPlayerID, questionID, value, responseMs)
	}); err != nil {
		return false, err
	}
	return accepted, nil
}

// SendChat relays a chat line from the host operator
func (s *Session) SendChat(text string) error {
	return s.do(func() { s.chat(model.LocalPlayerID, text) })
}

// Lobby returns the current lobby snapshot
func (s *Session) Lobby() (model.LobbyState, error) {
	var snapshot model.LobbyState
	if err := s.do(func() { snapshot = s.roster.Snapshot() }); err != nil {
		return model.LobbyState{}, err
	}
	return snapshot, nil
}

// run is the session loop
func (s *Session) run(ctx context.Context) error {
	defer close(s.stopped)
	defer s.teardown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case in := <-s.inbox:
			s.handleInbound(in)

		case req := <-s.control:
			req.fn()
			close(req.done)

		case <-timerC(s.countdown):
			s.countdown = nil
			s.cadence = s.clock.NewTicker(s.scheduler.Cadence())
			s.advance()

		case <-tickerC(s.cadence):
			s.advance()
		}
	}
}

func timerC(t clock.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}

func tickerC(t clock.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}

func (s *Session) stopTimers() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	if s.cadence != nil {
		s.cadence.Stop()
		s.cadence = nil
	}
}

func (s *Session) teardown() {
	s.stopTimers()
	for _, c := range s.conns {
		s.closeConn(c)
	}
	s.metrics.SetPlayers(0, 0)
}

func (s *Session) startGame() error {
	if err := s.roster.Start(); err != nil {
		s.logger.Info("start rejected", slog.Any("error", err))
		s.bus.Publish(model.EventError, model.ErrorPayload{Message: startErrorMessage(err)})
		return err
	}

	now := s.clock.Now()
	seed := uint32(s.random.Intn(maxSeed))
	if s.cfg.Game.Seed != nil {
		seed = *s.cfg.Game.Seed
	}
	startsAt, err := s.scheduler.Start(now, seed)
	if err != nil {
		return fmt.Errorf("starting round: %w", err)
	}

	s.logger.Info("round started",
		slog.Uint64("seed", uint64(seed)),
		slog.Int("questions", s.scheduler.Total()),
		slog.Int("ready", s.roster.ReadyCount()))
	s.metrics.RoundStarted()

	s.countdown = s.clock.NewTimer(startsAt.Sub(now))
	s.broadcastLobby()
	countdown := model.CountdownPayload{StartsAt: startsAt.UnixMilli()}
	s.broadcast(protocol.NewCountdown(countdown), model.EventCountdown, countdown)
	return nil
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrNoReadyPlayers):
		return "At least one ready player is required."
	case errors.Is(err, model.ErrGameInProgress):
		return "Game already started."
	case errors.Is(err, model.ErrSessionFinished):
		return "Game has finished."
	default:
		return err.Error()
	}
}

func (s *Session) advance() {
	step := s.scheduler.Advance(s.clock.Now())
	switch {
	case step.Question != nil:
		s.logger.Debug("question pushed", slog.Int("index", step.Question.Index), slog.String("question", step.Question.Question.ID))
		s.broadcast(protocol.NewQuestion(*step.Question), model.EventQuestion, *step.Question)
	case step.Result != nil:
		s.finishRound(*step.Result)
	}
}

func (s *Session) finishRound(result model.ResultPayload) {
	s.stopTimers()
	s.roster.Finish()
	s.metrics.RoundFinished()
	s.logger.Info("round finished", slog.String("winner", string(result.WinnerID)))

	s.broadcast(protocol.NewResult(result), model.EventResult, result)
	s.broadcastLobby()

	record := &model.RoundResult{
		ID:        uuid.NewString(),
		RoomCode:  s.room.RoomCode,
		HostName:  s.room.HostName,
		Mode:      s.room.Mode,
		Seed:      s.scheduler.Seed(),
		WinnerID:  result.WinnerID,
		Players:   model.ClonePlayers(result.Players),
		Questions: s.scheduler.Index(),
		StartedAt: s.scheduler.StartedAt(),
		EndedAt:   s.clock.Now(),
	}
	s.saveRound(record, s.tracker.Snapshot())
}

// saveRound hands the finished round to storage off the loop
func (s *Session) saveRound(record *model.RoundResult, facts model.FactStatsMap) {
	if s.storage == nil {
		return
	}
	s.group.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		if err := s.storage.SaveRoundResult(ctx, record); err != nil {
			s.logger.Warn("failed to save round result", slog.String("round", record.ID), slog.Any("error", err))
		}
		if s.cfg.ProfileKey != "" {
			if err := s.storage.SaveWeakFacts(ctx, s.cfg.ProfileKey, facts); err != nil {
				s.logger.Warn("failed to save weak facts", slog.String("profile", s.cfg.ProfileKey), slog.Any("error", err))
			}
		}
		return nil
	})
}

func (s *Session) handleInbound(in inbound) {
	c := in.conn
	switch in.kind {
	case inboundOpened:
		s.conns[c.id] = c
	case inboundClosed:
		if c.closed {
			return
		}
		s.logger.Debug("connection closed", slog.Uint64("conn", c.id), slog.String("player", string(c.playerID)))
		bound := c.playerID != ""
		s.closeConn(c)
		if bound {
			s.broadcastLobby()
		}
	case inboundMessage:
		if c.closed {
			return
		}
		s.metrics.MessageReceived(string(in.msg.MessageType()))
		s.handleMessage(c, in.msg)
	}
}

func (s *Session) handleMessage(c *conn, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Join:
		s.handleJoin(c, m)
	case protocol.Rejoin:
		s.handleRejoin(c, m)
	case protocol.Ready:
		if c.playerID == "" {
			return
		}
		s.roster.SetReady(c.playerID, m.Ready)
		s.broadcastLobby()
	case protocol.Answer:
		if c.playerID == "" {
			return
		}
		s.submitAnswer(c.playerID, m.QuestionID, m.Value, m.ResponseMs)
	case protocol.ChatRequest:
		if c.playerID == "" {
			return
		}
		s.chat(c.playerID, m.Text)
	case protocol.Ping:
		s.sendTo(c, protocol.NewPong(m.At))
	}
}

func (s *Session) handleJoin(c *conn, m protocol.Join) {
	if c.playerID != "" {
		s.sendTo(c, protocol.NewError("Already joined"))
		return
	}
	player, err := s.roster.Join(m.Name, m.Color)
	if err != nil {
		s.logger.Info("join rejected", slog.String("name", m.Name), slog.Any("error", err))
		s.sendTo(c, protocol.NewError(joinErrorMessage(err)))
		return
	}

	c.playerID = player.ID
	s.logger.Info("player joined", slog.String("player", string(player.ID)), slog.String("name", player.Name))
	s.sendTo(c, protocol.NewWelcome(player.ID, s.roster.Snapshot()))
	s.broadcastLobby()
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, model.ErrGameInProgress):
		return "Game already started"
	case errors.Is(err, model.ErrSessionFinished):
		return "Game has finished"
	default:
		return "Unable to join"
	}
}

func (s *Session) handleRejoin(c *conn, m protocol.Rejoin) {
	if c.playerID != "" {
		return
	}
	player, ok := s.roster.Rejoin(m.PlayerID)
	if !ok {
		s.logger.Debug("rejoin ignored - unknown player", slog.String("player", string(m.PlayerID)))
		return
	}

	for _, other := range s.conns {
		if other != c && other.playerID == player.ID {
			s.logger.Info("replacing connection", slog.String("player", string(player.ID)), slog.Uint64("conn", other.id))
			other.playerID = ""
			s.closeConn(other)
		}
	}

	c.playerID = player.ID
	s.logger.Info("player rejoined", slog.String("player", string(player.ID)))
	s.sendTo(c, protocol.NewWelcome(player.ID, s.roster.Snapshot()))
	s.broadcastLobby()
}

func (s *Session) submitAnswer(id model.PlayerID, questionID string, value int, responseMs float64) bool {
	update, ok := s.scheduler.SubmitAnswer(id, questionID, value, responseMs, s.clock.Now())
	if !ok {
		s.logger.Debug("answer ignored", slog.String("player", string(id)), slog.String("question", questionID))
		return false
	}
	s.metrics.AnswerScored(update.Correct, responseMs)

	score := model.ScorePayload{Players: s.roster.Players(), Latest: &update}
	s.broadcast(protocol.NewScore(score), model.EventScore, score)
	return true
}

func (s *Session) chat(id model.PlayerID, text string) {
	payload := model.ChatPayload{
		PlayerID: id,
		Text:     protocol.TruncateChat(text),
		At:       s.clock.Now().UnixMilli(),
	}
	s.broadcast(protocol.NewChat(payload), model.EventChat, payload)
}

// closeConn closes the connection's send channel and unbinds its player
func (s *Session) closeConn(c *conn) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	delete(s.conns, c.id)

	if c.playerID != "" {
		s.roster.SetConnected(c.playerID, false)
		c.playerID = ""
	}
}

func (s *Session) broadcastLobby() {
	snapshot := s.roster.Snapshot()
	s.broadcast(protocol.NewLobby(snapshot), model.EventLobby, model.LobbyPayload{Lobby: snapshot})
	s.updatePlayerMetrics()
}

func (s *Session) updatePlayerMetrics() {
	connected, disconnected := 0, 0
	for _, p := range s.roster.Players() {
		if p.Connected {
			connected++
		} else {
			disconnected++
		}
	}
	s.metrics.SetPlayers(connected, disconnected)
}

// broadcast sends msg to every joined connection and publishes payload to
// the local event bus. A connection with a full buffer misses the message.
func (s *Session) broadcast(msg protocol.Message, eventType model.EventType, payload any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		s.logger.Error("failed to encode message", slog.Any("error", err))
		return
	}
	sent := 0
	for _, c := range s.conns {
		if c.playerID == "" {
			continue
		}
		if s.trySend(c, data) {
			sent++
		}
	}
	s.metrics.MessageSent(string(msg.MessageType()), sent)
	s.bus.Publish(eventType, payload)
}

func (s *Session) sendTo(c *conn, msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		s.logger.Error("failed to encode message", slog.Any("error", err))
		return
	}
	if s.trySend(c, data) {
		s.metrics.MessageSent(string(msg.MessageType()), 1)
	}
}

func (s *Session) trySend(c *conn, data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		s.metrics.MessageDropped("backpressure")
		s.logger.Debug("message dropped - send buffer full", slog.Uint64("conn", c.id))
		return false
	}
}
