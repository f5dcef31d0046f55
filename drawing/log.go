package drawing

import "encoding/json"

// EntryKind 区分线段与笔画结束标记
type EntryKind uint8

const (
	KindSegment EntryKind = iota
	KindStrokeEnd
)

// Entry 绘图日志中的一项：线段或笔画结束标记
type Entry struct {
	Kind    EntryKind
	Segment Segment
}

func SegmentEntry(seg Segment) Entry { return Entry{Kind: KindSegment, Segment: seg} }

func StrokeEnd() Entry { return Entry{Kind: KindStrokeEnd} }

// MarshalJSON 笔画结束标记在线上编码为 null
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Kind == KindStrokeEnd {
		return []byte("null"), nil
	}
	return json.Marshal(e.Segment)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = StrokeEnd()
		return nil
	}
	var seg Segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return err
	}
	*e = SegmentEntry(seg)
	return nil
}

// Log 只追加的笔画记录，支持按笔画撤销。非并发安全，由会话锁保护
type Log struct {
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) AppendSegment(seg Segment) {
	l.entries = append(l.entries, SegmentEntry(seg))
}

// AppendStrokeEnd 在抬笔时记录笔画边界；空日志或已有结束标记时不重复记录
func (l *Log) AppendStrokeEnd() bool {
	if len(l.entries) == 0 || l.entries[len(l.entries)-1].Kind == KindStrokeEnd {
		return false
	}
	l.entries = append(l.entries, StrokeEnd())
	return true
}

func (l *Log) Clear() {
	l.entries = l.entries[:0]
}

// UndoLastStroke 移除最近一笔（末尾的结束标记连同其之前直到上一个标记的线段）
// 日志为空时返回 false
func (l *Log) UndoLastStroke() bool {
	n := len(l.entries)
	if n == 0 {
		return false
	}
	if l.entries[n-1].Kind == KindStrokeEnd {
		n--
	}
	for n > 0 && l.entries[n-1].Kind != KindStrokeEnd {
		n--
	}
	l.entries = l.entries[:n]
	return true
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Entries 返回副本，可在锁外安全编码
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
