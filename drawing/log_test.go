package drawing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(x float64) Segment {
	return Segment{X1: x, Y1: x, X2: x + 1, Y2: x + 1, Color: "black", Width: 3}
}

func TestUndoRemovesOnlyLastStroke(t *testing.T) {
	l := NewLog()
	l.AppendSegment(seg(1)) // A
	l.AppendSegment(seg(2)) // B
	require.True(t, l.AppendStrokeEnd())
	l.AppendSegment(seg(3)) // C
	l.AppendSegment(seg(4)) // D
	require.True(t, l.AppendStrokeEnd())

	require.True(t, l.UndoLastStroke())

	assert.Equal(t, []Entry{SegmentEntry(seg(1)), SegmentEntry(seg(2)), StrokeEnd()}, l.Entries())
}

func TestUndoUnterminatedStroke(t *testing.T) {
	l := NewLog()
	l.AppendSegment(seg(1))
	l.AppendStrokeEnd()
	l.AppendSegment(seg(2))
	l.AppendSegment(seg(3))

	require.True(t, l.UndoLastStroke())
	assert.Equal(t, []Entry{SegmentEntry(seg(1)), StrokeEnd()}, l.Entries())

	require.True(t, l.UndoLastStroke())
	assert.Empty(t, l.Entries())
}

func TestUndoEmptyLog(t *testing.T) {
	l := NewLog()
	assert.False(t, l.UndoLastStroke())
	assert.Equal(t, 0, l.Len())
}

func TestStrokeEndIsNeverLeadingOrDoubled(t *testing.T) {
	l := NewLog()
	assert.False(t, l.AppendStrokeEnd())
	l.AppendSegment(seg(1))
	assert.True(t, l.AppendStrokeEnd())
	assert.False(t, l.AppendStrokeEnd())
	assert.Equal(t, 2, l.Len())
}

func TestClear(t *testing.T) {
	l := NewLog()
	l.AppendSegment(seg(1))
	l.AppendStrokeEnd()
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.NotNil(t, l.Entries())
}

func TestEntriesIsACopy(t *testing.T) {
	l := NewLog()
	l.AppendSegment(seg(1))
	out := l.Entries()
	l.Clear()
	assert.Len(t, out, 1)
}

func TestEntryJSON(t *testing.T) {
	entries := []Entry{SegmentEntry(seg(1)), StrokeEnd()}
	raw, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"x1":1,"y1":1,"x2":2,"y2":2,"color":"black","width":3},null]`, string(raw))

	var back []Entry
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, entries, back)
}

func TestSegmentAcceptsTupleForm(t *testing.T) {
	var s Segment
	require.NoError(t, json.Unmarshal([]byte(`[10, 20, 11, 21, "#ff0000", 5]`), &s))
	assert.Equal(t, Segment{X1: 10, Y1: 20, X2: 11, Y2: 21, Color: "#ff0000", Width: 5}, s)

	assert.ErrorIs(t, json.Unmarshal([]byte(`[1, 2, 3]`), &s), ErrBadSegment)
	assert.ErrorIs(t, json.Unmarshal([]byte(`[1, 2, 3, 4, 5, 6]`), &s), ErrBadSegment)
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &s))
}
