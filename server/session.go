package server

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"scribble/clock"
	"scribble/drawing"
	"scribble/protocol"
	"scribble/results"
	"scribble/scoring"
)

// Status 会话所处阶段
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusRoundEnd Status = "round_end"
	StatusGameOver Status = "game_over"
)

var (
	ErrEmptyIdentity = errors.New("username cannot be empty")
	ErrIllegalAction = errors.New("illegal action")
	ErrUnknownPlayer = errors.New("unknown player")
)

// Rules 游戏规则；修改在下一回合生效
type Rules struct {
	RoundDuration   time.Duration
	RoundEndDelay   time.Duration
	MinPlayers      int
	RoundsPerPlayer int
}

func DefaultRules() Rules {
	return Rules{
		RoundDuration:   90 * time.Second,
		RoundEndDelay:   5 * time.Second,
		MinPlayers:      2,
		RoundsPerPlayer: 3,
	}
}

// SessionConfig 会话依赖
type SessionConfig struct {
	Rules        Rules
	Words        []string
	Clock        clock.Clock
	Seed         int64
	Registry     *Registry
	Metrics      *Metrics
	Recorder     results.Recorder
	TickInterval time.Duration
}

// Session 唯一的全局游戏会话。所有状态读写都在 mu 内完成；
// 发给客户端的数据在持锁时编码并压入各连接的发送队列，真正的网络写由各连接的 writePump 完成
type Session struct {
	mu sync.Mutex

	rules     Rules
	words     []string
	clock     clock.Clock
	rng       *rand.Rand
	registry  *Registry
	metrics   *Metrics
	recorder  results.Recorder
	scheduler *Scheduler

	status        Status
	drawer        string
	word          string
	currentRound  int
	maxRounds     int
	roundsPlayed  int
	roundStart    time.Time
	roundDuration time.Duration
	playerOrder   []string
	drawerIndex   int
	ready         map[string]struct{}
	scores        *scoring.Table
	drawing       *drawing.Log
	guesses       []protocol.GuessEntry
	// roundEpoch 每次进入 round_end 递增，过期的延续据此失效
	roundEpoch uint64
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	if cfg.Rules.MinPlayers < 1 || cfg.Rules.RoundsPerPlayer < 1 || cfg.Rules.RoundDuration <= 0 {
		return nil, fmt.Errorf("invalid rules: %+v", cfg.Rules)
	}
	if len(cfg.Words) == 0 {
		cfg.Words = DefaultWords
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &Metrics{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = results.Discard{}
	}
	words := make([]string, len(cfg.Words))
	copy(words, cfg.Words)

	return &Session{
		rules:       cfg.Rules,
		words:       words,
		clock:       cfg.Clock,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		registry:    cfg.Registry,
		metrics:     cfg.Metrics,
		recorder:    cfg.Recorder,
		scheduler:   NewScheduler(cfg.TickInterval),
		status:      StatusWaiting,
		drawerIndex: -1,
		ready:       make(map[string]struct{}),
		scores:      scoring.NewTable(),
		drawing:     drawing.NewLog(),
	}, nil
}

// Start 启动回合计时 Tick
func (s *Session) Start() {
	s.scheduler.Start(s.Tick)
}

// Stop 停止所有定时活动；不得在持有会话锁时调用
func (s *Session) Stop() {
	s.scheduler.Stop()
}

// Join 以显示名加入会话。重名或空名时回复 error 且不改变会话状态
func (s *Session) Join(conn Sender, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		_ = s.registry.Unicast(conn, protocol.TypeError, protocol.Error{Message: "Username cannot be empty."})
		return ErrEmptyIdentity
	}
	if _, err := s.registry.Register(conn, name); err != nil {
		_ = s.registry.Unicast(conn, protocol.TypeError, protocol.Error{Message: "Username already taken."})
		return err
	}
	s.scores.Add(name)
	Log.Infow("player joined", "player", name, "conn", conn.ID(), "players", s.registry.Count())

	s.notifyLocked(fmt.Sprintf("%s has joined the game!", name))
	s.broadcastPlayerListLocked()
	_ = s.registry.Unicast(conn, protocol.TypeCurrentState, s.stateForLocked(name))
	return nil
}

// Leave 连接断开（正常离开或写失败）后的统一清理；对未加入的连接为 no-op
func (s *Session) Leave(conn Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.registry.Unregister(conn)
	if !ok {
		return
	}
	s.scores.Remove(name)
	delete(s.ready, name)
	s.removeFromRotationLocked(name)
	Log.Infow("player left", "player", name, "conn", conn.ID(), "players", s.registry.Count(), "status", s.status)

	s.notifyLocked(fmt.Sprintf("%s has left the game.", name))
	s.broadcastPlayerListLocked()

	if name == s.drawer {
		if s.status == StatusPlaying {
			Log.Infow("drawer left, ending round", "player", name)
			s.endRoundLocked("")
		}
		s.drawer = ""
	}

	switch s.status {
	case StatusPlaying, StatusRoundEnd:
		if s.registry.Count() < s.rules.MinPlayers {
			Log.Infow("not enough players to continue, ending game", "players", s.registry.Count())
			s.notifyLocked("Not enough players to continue. Game Over!")
			s.endGameLocked(results.ReasonNotEnoughPlayers)
		}
	case StatusWaiting, StatusGameOver:
		s.maybeStartGameLocked()
	}
}

// Ready 在 waiting/game_over 阶段确认准备；全员准备且人数足够时开始新一局
func (s *Session) Ready(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting && s.status != StatusGameOver {
		return ErrIllegalAction
	}
	if !s.scores.Has(name) {
		return ErrUnknownPlayer
	}
	if _, already := s.ready[name]; already {
		return nil
	}
	s.ready[name] = struct{}{}
	s.notifyLocked(fmt.Sprintf("%s is ready! (%d/%d ready)", name, len(s.ready), s.registry.Count()))
	s.maybeStartGameLocked()
	return nil
}

func (s *Session) maybeStartGameLocked() {
	n := s.registry.Count()
	if n < s.rules.MinPlayers || len(s.ready) < n {
		return
	}
	for _, p := range s.registry.Players() {
		if _, ok := s.ready[p.Name]; !ok {
			return
		}
	}
	s.maxRounds = n * s.rules.RoundsPerPlayer
	s.currentRound = 0
	s.roundsPlayed = 0
	s.playerOrder = nil
	s.drawerIndex = -1
	s.ready = make(map[string]struct{})
	Log.Infow("game starting", "players", n, "max_rounds", s.maxRounds)
	s.startNewRoundLocked()
}

// startNewRoundLocked 推进到下一回合：选择绘画者与词语，并按身份分别下发
func (s *Session) startNewRoundLocked() {
	s.currentRound++

	players := s.scores.Names()
	if len(players) < s.rules.MinPlayers {
		s.notifyLocked("Not enough players to start a new round. Game Over!")
		s.endGameLocked(results.ReasonNotEnoughPlayers)
		return
	}
	if s.currentRound > s.maxRounds {
		s.endGameLocked(results.ReasonRoundsComplete)
		return
	}

	if len(s.playerOrder) == 0 {
		s.rng.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
		s.playerOrder = players
		s.drawerIndex = -1
	}
	s.drawerIndex = (s.drawerIndex + 1) % len(s.playerOrder)
	s.drawer = s.playerOrder[s.drawerIndex]
	s.word = s.words[s.rng.Intn(len(s.words))]
	s.drawing.Clear()
	s.guesses = nil
	s.roundStart = s.clock.Now()
	s.roundDuration = s.rules.RoundDuration
	s.roundsPlayed++
	s.status = StatusPlaying
	s.metrics.IncRoundsStarted()

	Log.Infow("round started", "round", s.currentRound, "max_rounds", s.maxRounds, "drawer", s.drawer)

	wordLength := utf8.RuneCountInString(s.word)
	for _, p := range s.registry.Players() {
		msg := protocol.NewRound{
			Drawer:       s.drawer,
			Word:         protocol.HiddenWord,
			WordLength:   protocol.IntPtr(wordLength),
			CurrentRound: s.currentRound,
			MaxRounds:    s.maxRounds,
		}
		if p.Name == s.drawer {
			msg.Word = s.word
			msg.WordLength = nil
		}
		_ = s.registry.Unicast(p.Conn, protocol.TypeNewRound, msg)
	}
	s.notifyLocked(fmt.Sprintf("Round %d! %s is drawing.", s.currentRound, s.drawer))
}

// endRoundLocked 揭晓词语与比分，并安排宽限期后的延续
func (s *Session) endRoundLocked(guesser string) {
	s.status = StatusRoundEnd
	s.roundEpoch++

	msg := fmt.Sprintf("Round over! The word was '%s'.", s.word)
	if guesser != "" {
		msg += fmt.Sprintf(" %s guessed correctly!", guesser)
	}
	_ = s.registry.Broadcast(protocol.TypeRoundEnd, protocol.RoundEnd{
		Message:       msg,
		CorrectWord:   s.word,
		CurrentScores: s.scores.Snapshot(),
	}, nil)
	Log.Infow("round ended", "round", s.currentRound, "word", s.word, "guesser", guesser)

	epoch := s.roundEpoch
	s.scheduler.After(s.rules.RoundEndDelay, func() { s.continueAfterRoundEnd(epoch) })
}

// continueAfterRoundEnd 宽限期结束：还有回合则开始下一回合，否则结束本局
func (s *Session) continueAfterRoundEnd(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRoundEnd || s.roundEpoch != epoch {
		return
	}
	if s.currentRound >= s.maxRounds {
		s.endGameLocked(results.ReasonRoundsComplete)
		return
	}
	s.startNewRoundLocked()
}

// endGameLocked 公布最终比分与赢家，重置回合状态；分数归零但保留条目以便立即再来一局
func (s *Session) endGameLocked(reason string) {
	s.status = StatusGameOver
	s.scheduler.Cancel()

	winner, best, ok := s.scores.Leader()
	msg := "Game Over!"
	if ok {
		msg += fmt.Sprintf(" The winner is %s with %d points!", winner, best)
	}
	final := s.scores.Snapshot()
	_ = s.registry.Broadcast(protocol.TypeGameOver, protocol.GameOver{
		Message:     msg,
		FinalScores: final,
		Winner:      protocol.Optional(winner),
	}, nil)
	s.metrics.IncGamesFinished()
	Log.Infow("game over", "winner", winner, "scores", final, "reason", reason)

	s.recorder.Record(results.GameResult{
		FinishedAt:   s.clock.Now(),
		RoundsPlayed: s.roundsPlayed,
		MaxRounds:    s.maxRounds,
		Winner:       winner,
		Scores:       final,
		Reason:       reason,
	})

	s.drawer = ""
	s.word = ""
	s.currentRound = 0
	s.maxRounds = 0
	s.roundsPlayed = 0
	s.playerOrder = nil
	s.drawerIndex = -1
	s.drawing.Clear()
	s.guesses = nil
	s.ready = make(map[string]struct{})
	s.scores.Reset()
}

// Tick 每秒调用：广播剩余时间，归零时结束回合
func (s *Session) Tick() {
	start := time.Now()
	defer func() { s.metrics.AddTick(time.Since(start).Nanoseconds()) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying {
		return
	}
	remaining := s.remainingLocked()
	_ = s.registry.Broadcast(protocol.TypeTimerUpdate, protocol.TimerUpdate{TimeLeft: int(remaining / time.Second)}, nil)
	if remaining <= 0 {
		Log.Infow("round timer expired", "round", s.currentRound)
		s.endRoundLocked("")
	}
}

func (s *Session) remainingLocked() time.Duration {
	remaining := s.roundDuration - s.clock.Now().Sub(s.roundStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Draw 绘画者追加一段线并增量广播给其他人
func (s *Session) Draw(name string, seg drawing.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isActiveDrawerLocked(name) {
		return ErrIllegalAction
	}
	s.drawing.AppendSegment(seg)
	exclude, _ := s.registry.Lookup(name)
	_ = s.registry.Broadcast(protocol.TypeDrawingUpdate, seg, exclude)
	return nil
}

// EndStroke 抬笔，记录笔画边界
func (s *Session) EndStroke(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isActiveDrawerLocked(name) {
		return ErrIllegalAction
	}
	s.drawing.AppendStrokeEnd()
	return nil
}

func (s *Session) ClearCanvas(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isActiveDrawerLocked(name) {
		return ErrIllegalAction
	}
	s.drawing.Clear()
	_ = s.registry.Broadcast(protocol.TypeClearCanvasEvent, protocol.Empty{}, nil)
	return nil
}

// Undo 撤销最近一笔后全量重发绘图日志，保证所有客户端与权威日志一致
func (s *Session) Undo(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isActiveDrawerLocked(name) {
		return ErrIllegalAction
	}
	if !s.drawing.UndoLastStroke() {
		if conn, ok := s.registry.Lookup(name); ok {
			_ = s.registry.Unicast(conn, protocol.TypeNotification, protocol.Notification{Message: "Nothing to undo."})
		}
		return nil
	}
	_ = s.registry.Broadcast(protocol.TypeFullDrawingUpdate, protocol.FullDrawingUpdate{DrawingData: s.drawing.Entries()}, nil)
	return nil
}

// Chat 聊天输入：回合进行中绘画者的输入作为提示，其他人的输入作为猜测；其余阶段为普通聊天
func (s *Session) Chat(name, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scores.Has(name) {
		return ErrUnknownPlayer
	}

	if s.status != StatusPlaying {
		_ = s.registry.Broadcast(protocol.TypeChatMessage, protocol.ChatMessage{Username: name, Message: text}, nil)
		return nil
	}

	if name == s.drawer {
		speaker := "HINT from " + name
		s.guesses = append(s.guesses, protocol.GuessEntry{Speaker: speaker, Text: text})
		_ = s.registry.Broadcast(protocol.TypeGuessHintMessage, protocol.ChatMessage{Username: speaker, Message: text}, nil)
		return nil
	}

	s.guesses = append(s.guesses, protocol.GuessEntry{Speaker: name, Text: text})
	_ = s.registry.Broadcast(protocol.TypeGuessHintMessage, protocol.ChatMessage{Username: name, Message: text}, nil)

	if strings.EqualFold(text, strings.TrimSpace(s.word)) {
		points := scoring.Points(s.remainingLocked(), s.roundDuration)
		total := s.scores.Award(name, points)
		Log.Infow("correct guess", "player", name, "points", points, "total", total, "round", s.currentRound)
		s.endRoundLocked(name)
	}
	return nil
}

func (s *Session) isActiveDrawerLocked(name string) bool {
	return s.status == StatusPlaying && s.drawer != "" && name == s.drawer
}

// removeFromRotationLocked 从轮换顺序中移除玩家，保持 drawerIndex 指向当前（或下一位）绘画者之前
func (s *Session) removeFromRotationLocked(name string) {
	for i, n := range s.playerOrder {
		if n != name {
			continue
		}
		s.playerOrder = append(s.playerOrder[:i], s.playerOrder[i+1:]...)
		if i <= s.drawerIndex {
			s.drawerIndex--
		}
		break
	}
	if len(s.playerOrder) == 0 {
		s.drawerIndex = -1
	}
}

func (s *Session) notifyLocked(message string) {
	_ = s.registry.Broadcast(protocol.TypeNotification, protocol.Notification{Message: message}, nil)
}

func (s *Session) broadcastPlayerListLocked() {
	_ = s.registry.Broadcast(protocol.TypePlayerListUpdate, protocol.PlayerListUpdate{Scores: s.scores.Snapshot()}, nil)
}

// stateForLocked 为指定玩家生成完整快照；真实词语只给当前绘画者
func (s *Session) stateForLocked(name string) protocol.CurrentState {
	isDrawer := s.drawer != "" && name == s.drawer
	word := protocol.HiddenWord
	var wordLength *int
	if isDrawer {
		word = s.word
	} else if s.status == StatusPlaying {
		wordLength = protocol.IntPtr(utf8.RuneCountInString(s.word))
	}
	guesses := make([]protocol.GuessEntry, len(s.guesses))
	copy(guesses, s.guesses)
	return protocol.CurrentState{
		Status:       string(s.status),
		Drawer:       protocol.Optional(s.drawer),
		Word:         word,
		WordLength:   wordLength,
		DrawingData:  s.drawing.Entries(),
		Guesses:      guesses,
		Score:        s.scores.Snapshot(),
		CurrentRound: s.currentRound,
		MaxRounds:    s.maxRounds,
	}
}

// PublicState 对外（管理接口）可见的会话快照，不包含词语
type PublicState struct {
	Status       Status         `json:"status"`
	Drawer       string         `json:"drawer,omitempty"`
	CurrentRound int            `json:"current_round"`
	MaxRounds    int            `json:"max_rounds"`
	TimeLeft     int            `json:"time_left"`
	Players      int            `json:"players"`
	Ready        int            `json:"ready"`
	Scores       map[string]int `json:"scores"`
	Rotation     []string       `json:"rotation"`
	DrawingSize  int            `json:"drawing_entries"`
	Guesses      int            `json:"guesses"`
}

func (s *Session) Snapshot() PublicState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := PublicState{
		Status:       s.status,
		Drawer:       s.drawer,
		CurrentRound: s.currentRound,
		MaxRounds:    s.maxRounds,
		Players:      s.registry.Count(),
		Ready:        len(s.ready),
		Scores:       s.scores.Snapshot(),
		Rotation:     append([]string{}, s.playerOrder...),
		DrawingSize:  s.drawing.Len(),
		Guesses:      len(s.guesses),
	}
	if s.status == StatusPlaying {
		st.TimeLeft = int(s.remainingLocked() / time.Second)
	}
	return st
}

func (s *Session) Rules() Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules
}

// UpdateRules 热更新规则；进行中的回合沿用开始时的时长
func (s *Session) UpdateRules(fn func(r *Rules)) (Rules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.rules
	fn(&next)
	if next.RoundDuration <= 0 || next.RoundEndDelay < 0 || next.RoundsPerPlayer < 1 || next.MinPlayers < 1 {
		return s.rules, fmt.Errorf("invalid rules: %+v", next)
	}
	s.rules = next
	return s.rules, nil
}
