package game

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/NotYourBr0/GTD-backend/domain"
	"github.com/NotYourBr0/GTD-backend/words"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	RoomID   string    `json:"roomId"`
	JoinedAt time.Time `json:"joinedAt"`
	IsReady  bool      `json:"isReady"`
}

// Peer is where a room writes the encoded events of one player.
type Peer interface {
	Send(data []byte) error
}

type member struct {
	Player
	peer Peer
}

// WordSource is called on the room goroutine, so Generate should not wait
// on the network.
type WordSource interface {
	Generate(count int) []string
}

// roomDirectory is the registry side of a session: it hears about
// description changes, the room closing and finished games.
type roomDirectory interface {
	UpdateDescription(desc RoomDescription)
	RoomClosed(id string)
	GameFinished(desc RoomDescription, result domain.GameResult)
}

type nopDirectory struct{}

func (nopDirectory) UpdateDescription(RoomDescription)               {}
func (nopDirectory) RoomClosed(string)                               {}
func (nopDirectory) GameFinished(RoomDescription, domain.GameResult) {}

type RoomDescription struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
	GameState   Phase  `json:"gameState"`
	MaxPlayers  int    `json:"maxPlayers"`
}

type SessionConfig struct {
	MaxPlayers    int
	MinPlayers    int
	MaxRounds     int
	RoundTime     time.Duration
	ChatCapacity  int
	RelayInterval time.Duration
	// IdleTTL closes a room nobody ever joined. Zero disables it.
	IdleTTL time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxPlayers:    8,
		MinPlayers:    2,
		MaxRounds:     3,
		RoundTime:     60 * time.Second,
		ChatCapacity:  50,
		RelayInterval: DefaultRelayInterval,
		IdleTTL:       time.Hour,
	}
}

// SessionDeps are the collaborators of a room. Nil fields get defaults.
type SessionDeps struct {
	Scoring   ScoringPolicy
	Evaluator GuessEvaluator
	Words     WordSource
	Timers    TimerFactory
	Now       func() time.Time
	NewID     func() string
}

func (d SessionDeps) withDefaults() SessionDeps {
	if d.Scoring == nil {
		d.Scoring = NewDefaultScoring()
	}
	if d.Evaluator == nil {
		d.Evaluator = NewWordEvaluator()
	}
	if d.Words == nil {
		d.Words = words.NewCatalog(words.Mixed, words.AllCategories)
	}
	if d.Timers == nil {
		d.Timers = NewTimerGen()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

type dataSendTask struct {
	to      string
	peer    Peer
	event   string
	payload any
}

type roundEndReason int

const (
	roundTimeUp roundEndReason = iota
	roundAllGuessed
	roundDrawerLeft
)

// Session is one room. All state below is owned by the goroutine running
// Run; other goroutines go through the methods in session_actor.go.
type Session struct {
	id     string
	config SessionConfig
	deps   SessionDeps
	dir    roomDirectory

	phase       Phase
	players     []*member
	scores      map[string]int
	drawerIndex int
	currentWord string
	round       int
	startedAt   time.Time

	// turn grows with every round start; timers carry the turn they were
	// armed for so a late fire is recognised and dropped.
	turn      uint64
	roundOpen bool
	correct   []string

	relay *DrawingRelay
	chat  *ChatLog

	roundTimer Timer
	flushTimer Timer
	idleTimer  Timer

	tasks []dataSendTask

	inbox      chan command
	done       chan struct{}
	closed     bool
	closedFlag atomic.Bool
}

func NewSession(id string, config SessionConfig, deps SessionDeps) *Session {
	return &Session{
		id:      id,
		config:  config,
		deps:    deps.withDefaults(),
		dir:     nopDirectory{},
		phase:   PhaseWaiting,
		players: make([]*member, 0, config.MaxPlayers),
		scores:  map[string]int{},
		round:   1,
		relay:   NewDrawingRelay(config.RelayInterval),
		chat:    NewChatLog(config.ChatCapacity),
		inbox:   make(chan command, 256),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Closed() bool {
	return s.closedFlag.Load()
}

// --- lookups ---

func (s *Session) memberIndex(id string) int {
	return slices.IndexFunc(s.players, func(m *member) bool { return m.ID == id })
}

func (s *Session) member(id string) *member {
	if i := s.memberIndex(id); i >= 0 {
		return s.players[i]
	}
	return nil
}

func (s *Session) drawer() *member {
	if s.phase != PhasePlaying || s.drawerIndex < 0 || s.drawerIndex >= len(s.players) {
		return nil
	}
	return s.players[s.drawerIndex]
}

func (s *Session) isDrawer(m *member) bool {
	d := s.drawer()
	return d != nil && d.ID == m.ID
}

func (s *Session) hasGuessed(id string) bool {
	return slices.Contains(s.correct, id)
}

// privileged members may see the word: the drawer and whoever found it.
func (s *Session) privileged(m *member) bool {
	return s.isDrawer(m) || s.hasGuessed(m.ID)
}

// --- views ---

func (s *Session) scoreEntries() []ScoreEntry {
	out := make([]ScoreEntry, 0, len(s.players))
	for _, m := range s.players {
		out = append(out, ScoreEntry{PlayerID: m.ID, Score: s.scores[m.ID]})
	}
	return out
}

func (s *Session) rankedScores() []ScoreEntry {
	out := s.scoreEntries()
	slices.SortStableFunc(out, func(a, b ScoreEntry) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

func (s *Session) gameState() GameState {
	players := make([]Player, 0, len(s.players))
	for _, m := range s.players {
		players = append(players, m.Player)
	}
	state := GameState{
		ID:               s.id,
		Players:          players,
		GameState:        s.phase,
		Round:            min(s.round, s.config.MaxRounds),
		MaxRounds:        s.config.MaxRounds,
		Scores:           s.scoreEntries(),
		GuessedCorrectly: slices.Clone(s.correct),
	}
	if state.GuessedCorrectly == nil {
		state.GuessedCorrectly = []string{}
	}
	if d := s.drawer(); d != nil {
		p := d.Player
		state.CurrentDrawer = &p
	}
	if s.phase == PhasePlaying && s.roundOpen {
		state.WordHint = words.Hint(s.currentWord)
	}
	return state
}

func (s *Session) description() RoomDescription {
	return RoomDescription{
		ID:          s.id,
		PlayerCount: len(s.players),
		GameState:   s.phase,
		MaxPlayers:  s.config.MaxPlayers,
	}
}

func (s *Session) publishDescription() {
	s.dir.UpdateDescription(s.description())
}

// --- outbound queue ---

func (s *Session) queue(m *member, event string, payload any) {
	s.tasks = append(s.tasks, dataSendTask{to: m.ID, peer: m.peer, event: event, payload: payload})
}

func (s *Session) broadcast(event string, payload any) {
	for _, m := range s.players {
		s.queue(m, event, payload)
	}
}

func (s *Session) broadcastExcept(id string, event string, payload any) {
	for _, m := range s.players {
		if m.ID != id {
			s.queue(m, event, payload)
		}
	}
}

func (s *Session) systemMessage(text string) {
	ev := ChatEvent{
		ID:        s.deps.NewID(),
		Message:   text,
		Timestamp: s.deps.Now(),
		Type:      MessageTypeSystem,
	}
	s.chat.Append(ev)
	s.broadcast(EventNewMessage, ev)
}

// flush hands the queued events to the peers. It runs after a command has
// finished mutating the room.
func (s *Session) flush() {
	tasks := s.tasks
	s.tasks = nil
	for _, t := range tasks {
		if t.peer == nil {
			continue
		}
		data, err := encodeEvent(t.event, t.payload)
		if err != nil {
			log.Error().Err(err).Str("room", s.id).Str("event", t.event).Msg("failed to encode event")
			continue
		}
		if err := t.peer.Send(data); err != nil {
			log.Debug().Err(err).Str("room", s.id).Str("player", t.to).Str("event", t.event).Msg("dropping event")
		}
	}
}

// --- roster ---

func (s *Session) handleJoin(p Player, peer Peer) (Player, error) {
	if len(s.players) >= s.config.MaxPlayers {
		return Player{}, ErrRoomFull
	}
	switch s.phase {
	case PhasePlaying:
		return Player{}, ErrGameInProgress
	case PhaseEnded:
		return Player{}, ErrGameEnded
	}
	if s.memberIndex(p.ID) >= 0 {
		return Player{}, ErrAlreadyInRoom
	}

	p.RoomID = s.id
	p.JoinedAt = s.deps.Now()
	p.IsReady = false
	m := &member{Player: p, peer: peer}
	s.players = append(s.players, m)
	s.scores[p.ID] = 0
	stopTimer(&s.idleTimer)

	state := s.gameState()
	s.queue(m, EventJoinedRoom, joinedRoomPayload{RoomID: s.id, Player: p, GameState: state})
	s.broadcastExcept(p.ID, EventPlayerJoined, playerPayload{Player: p, GameState: state})
	s.systemMessage(fmt.Sprintf("%s joined the room", p.Name))
	s.publishDescription()

	log.Info().Str("room", s.id).Str("player", p.ID).Int("players", len(s.players)).Msg("player joined")
	return p, nil
}

func (s *Session) handleLeave(id string) error {
	idx := s.memberIndex(id)
	if idx < 0 {
		return ErrNotInRoom
	}
	gone := s.players[idx]
	wasDrawer := s.isDrawer(gone)

	s.players = slices.Delete(s.players, idx, idx+1)
	delete(s.scores, id)
	s.correct = slices.DeleteFunc(s.correct, func(pid string) bool { return pid == id })

	log.Info().Str("room", s.id).Str("player", id).Int("players", len(s.players)).Msg("player left")

	// the registry tears empty rooms down
	if len(s.players) == 0 {
		s.roundOpen = false
		stopTimer(&s.roundTimer)
		stopTimer(&s.flushTimer)
		s.armIdle()
		s.publishDescription()
		return nil
	}

	if s.phase == PhasePlaying && idx < s.drawerIndex {
		s.drawerIndex--
	}

	s.broadcast(EventPlayerLeft, playerPayload{Player: gone.Player, GameState: s.gameState()})
	s.systemMessage(fmt.Sprintf("%s left the room", gone.Name))

	if wasDrawer {
		s.endRound(roundDrawerLeft)
	} else if s.phase == PhasePlaying {
		s.checkEarlyEnd()
	}
	s.publishDescription()
	return nil
}

func (s *Session) handleToggleReady(id string) error {
	m := s.member(id)
	if m == nil {
		return ErrNotInRoom
	}
	if s.phase == PhaseEnded {
		return ErrGameEnded
	}
	m.IsReady = !m.IsReady
	s.broadcast(EventPlayerReadyChanged, readyChangedPayload{PlayerID: id, IsReady: m.IsReady, GameState: s.gameState()})
	return nil
}

// --- turn engine ---

func (s *Session) handleStart(requester string) error {
	switch s.phase {
	case PhasePlaying:
		return ErrGameInProgress
	case PhaseEnded:
		return ErrGameEnded
	}
	if s.member(requester) == nil {
		return ErrNotInRoom
	}
	if len(s.players) < s.config.MinPlayers {
		return ErrNotEnoughPlayers
	}

	s.phase = PhasePlaying
	s.startedAt = s.deps.Now()
	s.drawerIndex = 0
	s.round = 1
	if !s.startRound() {
		return nil
	}

	drawer := s.drawer()
	p := drawer.Player
	s.broadcast(EventGameStarted, gameStartedPayload{
		GameState:     s.gameState(),
		CurrentDrawer: &p,
		RoundTime:     int(s.config.RoundTime / time.Second),
	})
	s.queue(drawer, EventYourWord, yourWordPayload{Word: s.currentWord})
	s.publishDescription()

	log.Info().Str("room", s.id).Str("requester", requester).Int("players", len(s.players)).Msg("game started")
	return nil
}

// startRound picks a word and arms the round timer for the current drawer.
// It reports false when no word could be had and the game was ended instead.
func (s *Session) startRound() bool {
	picked := s.deps.Words.Generate(1)
	if len(picked) == 0 || picked[0] == "" {
		log.Error().Str("room", s.id).Msg("word source returned nothing, ending game")
		s.endGame()
		return false
	}

	s.currentWord = picked[0]
	s.correct = s.correct[:0]
	s.relay.Reset()
	stopTimer(&s.flushTimer)

	s.turn++
	s.roundOpen = true
	turn := s.turn
	s.roundTimer = s.deps.Timers.AfterFunc(s.config.RoundTime, func() {
		s.post(timerFired{turn: turn})
	})
	return true
}

func (s *Session) handleTimerFired(turn uint64) {
	if turn != s.turn || !s.roundOpen {
		return
	}
	s.endRound(roundTimeUp)
}

func (s *Session) checkEarlyEnd() {
	if !s.roundOpen {
		return
	}
	if len(s.correct) > 0 && len(s.correct) >= len(s.players)-1 {
		s.endRound(roundAllGuessed)
	}
}

// endRound closes the open round exactly once, whichever of the timer,
// the last correct guess or the drawer leaving gets here first.
func (s *Session) endRound(reason roundEndReason) {
	if !s.roundOpen {
		return
	}
	s.roundOpen = false
	stopTimer(&s.roundTimer)
	stopTimer(&s.flushTimer)

	if reason != roundDrawerLeft && len(s.correct) > 0 {
		if d := s.drawer(); d != nil {
			s.scores[d.ID] += s.deps.Scoring.DrawerBonus()
		}
	}
	s.advanceTurn(s.currentWord, reason == roundDrawerLeft)
}

// advanceTurn moves the drawer role along. When the previous drawer was
// removed the player who followed them already sits at drawerIndex.
func (s *Session) advanceTurn(word string, drawerRemoved bool) {
	n := len(s.players)
	if n == 0 {
		s.endGame()
		return
	}

	next := s.drawerIndex + 1
	if drawerRemoved {
		next = s.drawerIndex
	}
	if next >= n {
		next = 0
		s.round++
	}

	if s.round > s.config.MaxRounds {
		s.broadcast(EventRoundEnded, roundEndedPayload{Word: word, Scores: s.scoreEntries()})
		s.endGame()
		return
	}

	s.drawerIndex = next
	nextDrawer := s.players[next].Player
	s.broadcast(EventRoundEnded, roundEndedPayload{Word: word, Scores: s.scoreEntries(), NextDrawer: &nextDrawer})
	if !s.startRound() {
		return
	}
	s.queue(s.players[next], EventYourWord, yourWordPayload{Word: s.currentWord})
}

func (s *Session) endGame() {
	if s.phase == PhaseEnded {
		return
	}
	s.phase = PhaseEnded
	s.roundOpen = false
	stopTimer(&s.roundTimer)
	stopTimer(&s.flushTimer)

	final := s.rankedScores()
	var winner *ScoreEntry
	if len(final) > 0 {
		w := final[0]
		winner = &w
	}
	s.broadcast(EventGameEnded, gameEndedPayload{FinalScores: final, Winner: winner})
	s.dir.GameFinished(s.description(), s.result(final))
	s.publishDescription()

	log.Info().Str("room", s.id).Int("rounds", s.config.MaxRounds).Msg("game ended")
}

func (s *Session) result(final []ScoreEntry) domain.GameResult {
	scores := make([]domain.FinalScore, 0, len(final))
	for _, e := range final {
		name := ""
		if m := s.member(e.PlayerID); m != nil {
			name = m.Name
		}
		scores = append(scores, domain.FinalScore{PlayerID: e.PlayerID, PlayerName: name, Score: e.Score})
	}
	return domain.GameResult{
		RoomID:     s.id,
		Rounds:     min(s.round, s.config.MaxRounds),
		StartedAt:  s.startedAt,
		FinishedAt: s.deps.Now(),
		Scores:     scores,
	}
}

// failClosed freezes the room after an unexpected failure while handling
// a command. Notifications of the failed command are discarded.
func (s *Session) failClosed() {
	s.tasks = nil
	s.roundOpen = false
	stopTimer(&s.roundTimer)
	stopTimer(&s.flushTimer)
	if s.phase == PhaseEnded {
		return
	}
	s.phase = PhaseEnded
	s.broadcast(EventGameEnded, gameEndedPayload{FinalScores: s.rankedScores()})
	s.publishDescription()
}

// --- guesses and chat ---

// submitGuess scores a correct guess. Guesses outside an open round, from
// the drawer or from someone who already found the word never count.
func (s *Session) submitGuess(m *member, text string) (points int, ok bool) {
	if s.phase != PhasePlaying || !s.roundOpen {
		return 0, false
	}
	if s.isDrawer(m) || s.hasGuessed(m.ID) {
		return 0, false
	}
	if !s.deps.Evaluator.IsMatch(s.currentWord, text) {
		return 0, false
	}
	s.correct = append(s.correct, m.ID)
	points = s.deps.Scoring.GuesserPoints(len(s.correct))
	s.scores[m.ID] += points
	return points, true
}

func (s *Session) notifyCorrectGuess(m *member, points int) {
	s.queue(m, EventCorrectGuess, correctGuessPayload{Points: points, Score: s.scores[m.ID]})
	for _, other := range s.players {
		if other.ID == m.ID {
			continue
		}
		payload := guessedCorrectlyPayload{Player: m.Player}
		if s.privileged(other) {
			payload.Word = s.currentWord
		}
		s.queue(other, EventPlayerGuessedCorrectly, payload)
	}
	s.broadcast(EventScoresUpdated, scoresPayload{Scores: s.scoreEntries()})
	s.checkEarlyEnd()
}

func (s *Session) handleGuess(id, text string) (bool, error) {
	m := s.member(id)
	if m == nil {
		return false, ErrNotInRoom
	}
	points, ok := s.submitGuess(m, text)
	if !ok {
		return false, nil
	}
	s.notifyCorrectGuess(m, points)
	return true, nil
}

// handleChat is the single chat ingress. While a round is open a line from
// a player still guessing is tried against the word first, and lines from
// players who may know the word only reach the others who know it.
func (s *Session) handleChat(id, text string) error {
	m := s.member(id)
	if m == nil {
		return ErrNotInRoom
	}

	ev := ChatEvent{
		ID:         s.deps.NewID(),
		PlayerID:   m.ID,
		PlayerName: m.Name,
		Message:    text,
		Timestamp:  s.deps.Now(),
		Type:       MessageTypeMessage,
	}

	var (
		points  int
		guessed bool
	)
	if s.phase == PhasePlaying && s.roundOpen {
		if s.privileged(m) {
			ev.restricted = true
		} else if points, guessed = s.submitGuess(m, text); guessed {
			ev.Type = MessageTypeCorrectGuess
			ev.Message = correctGuessText
		} else {
			ev.Type = MessageTypeGuess
		}
	}

	s.chat.Append(ev)
	if ev.restricted {
		for _, other := range s.players {
			if s.privileged(other) {
				s.queue(other, EventNewMessage, ev)
			}
		}
	} else {
		s.broadcast(EventNewMessage, ev)
	}

	if guessed {
		s.notifyCorrectGuess(m, points)
	}
	return nil
}

func (s *Session) handleChatHistory(id string) error {
	m := s.member(id)
	if m == nil {
		return ErrNotInRoom
	}
	s.queue(m, EventChatHistory, chatHistoryPayload{Messages: s.chat.Entries(s.privileged(m))})
	return nil
}

// --- drawing ---

func (s *Session) handleStroke(id string, stroke Stroke) error {
	m := s.member(id)
	if m == nil {
		return ErrNotInRoom
	}
	if !s.roundOpen || !s.isDrawer(m) {
		return ErrNotDrawer
	}

	now := s.deps.Now()
	stroke.Timestamp = now.UnixMilli()
	forward, flushIn := s.relay.Record(stroke, now)
	if forward {
		s.broadcastExcept(m.ID, EventDrawingData, stroke)
	}
	if flushIn > 0 {
		s.armFlush(flushIn)
	}
	return nil
}

func (s *Session) armFlush(d time.Duration) {
	stopTimer(&s.flushTimer)
	turn := s.turn
	s.flushTimer = s.deps.Timers.AfterFunc(d, func() {
		s.post(relayFlush{turn: turn})
	})
}

func (s *Session) handleRelayFlush(turn uint64) {
	if turn != s.turn || !s.roundOpen {
		return
	}
	out, retryIn := s.relay.Flush(s.deps.Now())
	if out != nil {
		if d := s.drawer(); d != nil {
			s.broadcastExcept(d.ID, EventDrawingData, *out)
		}
	}
	if retryIn > 0 {
		s.armFlush(retryIn)
	}
}

func (s *Session) handleClearCanvas(id string) error {
	m := s.member(id)
	if m == nil {
		return ErrNotInRoom
	}
	if !s.roundOpen || !s.isDrawer(m) {
		return ErrNotDrawer
	}
	s.relay.Clear()
	s.broadcast(EventCanvasCleared, nil)
	return nil
}

func (s *Session) handleDrawingHistory(id string) error {
	m := s.member(id)
	if m == nil {
		return ErrNotInRoom
	}
	s.queue(m, EventDrawingHistory, drawingHistoryPayload{DrawingData: s.relay.History()})
	return nil
}

// --- lifecycle ---

func (s *Session) armIdle() {
	if s.config.IdleTTL <= 0 || len(s.players) > 0 {
		return
	}
	s.idleTimer = s.deps.Timers.AfterFunc(s.config.IdleTTL, func() {
		s.post(idleExpired{})
	})
}

func (s *Session) handleIdleExpired() {
	if len(s.players) > 0 || s.closed {
		return
	}
	log.Info().Str("room", s.id).Msg("closing idle room")
	s.shutdown()
}

func (s *Session) shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	s.closedFlag.Store(true)
	s.roundOpen = false
	stopTimer(&s.roundTimer)
	stopTimer(&s.flushTimer)
	stopTimer(&s.idleTimer)
	s.dir.RoomClosed(s.id)
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
