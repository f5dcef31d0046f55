package protocol

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribble/drawing"
)

func TestEncodeTerminatesWithNewline(t *testing.T) {
	raw, err := Encode(TypeTimerUpdate, TimerUpdate{TimeLeft: 42})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"timer_update","data":{"time_left":42}}`+"\n", string(raw))

	raw, err = Encode(TypeClearCanvasEvent, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"clear_canvas_event","data":{}}`+"\n", string(raw))
}

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"type":"chat_input","data":{"text":" hi "}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeChatInput, env.Type)

	var in ChatInput
	require.NoError(t, env.DecodeData(&in))
	assert.Equal(t, " hi ", in.Text)

	env, err = Decode([]byte(`{"type":"ready"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(env.Data))

	_, err = Decode([]byte(`{"type":`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeDrawingPoint(t *testing.T) {
	env, err := Decode([]byte(`{"type":"drawing_point","data":[1,2,3,4,"red",2]}`))
	require.NoError(t, err)
	var seg drawing.Segment
	require.NoError(t, env.DecodeData(&seg))
	assert.Equal(t, "red", seg.Color)

	env, err = Decode([]byte(`{"type":"drawing_point","data":"garbage"}`))
	require.NoError(t, err)
	assert.ErrorIs(t, env.DecodeData(&seg), ErrMalformed)
}

func TestReaderReassemblesSplitRecords(t *testing.T) {
	stream := `{"type":"join","data":{"username":"ann"}}` + "\n" + `{"type":"ready","data":{}}` + "\n"
	r := NewReader(iotest.OneByteReader(strings.NewReader(stream)), 1024)

	first, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"join","data":{"username":"ann"}}`, string(first))

	second, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ready","data":{}}`, string(second))

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderSplitsCoalescedRecordsAndSkipsBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader("a\n\n\r\nb\r\nc"), 1024)

	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	got, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))

	// 结尾无换行的残余被丢弃
	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderRecoversAfterOversizedFrame(t *testing.T) {
	long := strings.Repeat("x", 500)
	r := NewReader(strings.NewReader(long+"\nok\n"), 64)

	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, ErrFrameTooLong)

	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

func TestGuessEntryWireForm(t *testing.T) {
	raw, err := json.Marshal([]GuessEntry{{Speaker: "HINT from ann", Text: "fruit"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["HINT from ann","fruit"]]`, string(raw))

	var back []GuessEntry
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "fruit", back[0].Text)
}

func TestOptionalEncodesNull(t *testing.T) {
	raw, err := json.Marshal(GameOver{Message: "Game Over!", FinalScores: map[string]int{}, Winner: Optional("")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Game Over!","final_scores":{},"winner":null}`, string(raw))
}
