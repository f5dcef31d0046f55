package server

import (
	"fmt"

	"scribble/drawing"
	"scribble/protocol"
)

// dispatch 解释已加入玩家的一条入站消息并驱动会话
func dispatch(s *Session, name string, env protocol.Envelope) error {
	switch env.Type {
	case protocol.TypeJoin:
		// 同一连接重复 join
		return ErrIllegalAction
	case protocol.TypeReady:
		return s.Ready(name)
	case protocol.TypeDrawingPoint:
		var seg drawing.Segment
		if err := env.DecodeData(&seg); err != nil {
			return err
		}
		return s.Draw(name, seg)
	case protocol.TypeEndStroke:
		return s.EndStroke(name)
	case protocol.TypeClearCanvas:
		return s.ClearCanvas(name)
	case protocol.TypeUndoLastDraw:
		return s.Undo(name)
	case protocol.TypeChatInput:
		var in protocol.ChatInput
		if err := env.DecodeData(&in); err != nil {
			return err
		}
		return s.Chat(name, in.Text)
	default:
		return fmt.Errorf("%w: unknown message type %q", protocol.ErrMalformed, env.Type)
	}
}
