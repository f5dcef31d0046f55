package protocol

import (
	"encoding/json"
	"fmt"

	"scribble/drawing"
)

// 客户端 -> 服务端
const (
	TypeJoin         = "join"
	TypeReady        = "ready"
	TypeDrawingPoint = "drawing_point"
	TypeEndStroke    = "end_stroke"
	TypeClearCanvas  = "clear_canvas"
	TypeUndoLastDraw = "undo_last_draw"
	TypeChatInput    = "chat_input"
)

// 服务端 -> 客户端
const (
	TypeCurrentState      = "current_state"
	TypeNewRound          = "new_round"
	TypeDrawingUpdate     = "drawing_update"
	TypeFullDrawingUpdate = "full_drawing_update"
	TypeChatMessage       = "chat_message"
	TypeGuessHintMessage  = "guess_hint_message"
	TypeNotification      = "notification"
	TypeRoundEnd          = "round_end"
	TypeGameOver          = "game_over"
	TypePlayerListUpdate  = "player_list_update"
	TypeClearCanvasEvent  = "clear_canvas_event"
	TypeTimerUpdate       = "timer_update"
	TypeError             = "error"
)

// HiddenWord 非绘画者看到的占位词
const HiddenWord = "????"

type Join struct {
	Username string `json:"username"`
}

type ChatInput struct {
	Text string `json:"text"`
}

type Empty struct{}

// GuessEntry 猜词/提示记录，线上编码为 [speaker, text]
type GuessEntry struct {
	Speaker string
	Text    string
}

func (g GuessEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{g.Speaker, g.Text})
}

func (g *GuessEntry) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("guess entry: want 2 fields, got %d", len(pair))
	}
	g.Speaker, g.Text = pair[0], pair[1]
	return nil
}

// CurrentState 加入时发送的完整快照；Word 仅对绘画者为真实词
type CurrentState struct {
	Status       string          `json:"status"`
	Drawer       *string         `json:"drawer"`
	Word         string          `json:"word"`
	WordLength   *int            `json:"word_length"`
	DrawingData  []drawing.Entry `json:"drawing_data"`
	Guesses      []GuessEntry    `json:"guesses"`
	Score        map[string]int  `json:"score"`
	CurrentRound int             `json:"current_round"`
	MaxRounds    int             `json:"max_rounds"`
}

type NewRound struct {
	Drawer       string `json:"drawer"`
	Word         string `json:"word"`
	WordLength   *int   `json:"word_length"`
	CurrentRound int    `json:"current_round"`
	MaxRounds    int    `json:"max_rounds"`
}

type FullDrawingUpdate struct {
	DrawingData []drawing.Entry `json:"drawing_data"`
}

// ChatMessage 用于 chat_message 与 guess_hint_message
type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type Notification struct {
	Message string `json:"message"`
}

type RoundEnd struct {
	Message       string         `json:"message"`
	CorrectWord   string         `json:"correct_word"`
	CurrentScores map[string]int `json:"current_scores"`
}

type GameOver struct {
	Message     string         `json:"message"`
	FinalScores map[string]int `json:"final_scores"`
	Winner      *string        `json:"winner"`
}

type PlayerListUpdate struct {
	Scores map[string]int `json:"scores"`
}

type TimerUpdate struct {
	TimeLeft int `json:"time_left"`
}

type Error struct {
	Message string `json:"message"`
}

// Optional 空串编码为 null
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func IntPtr(n int) *int {
	return &n
}
