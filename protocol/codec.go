package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMalformed 无法解析的记录，丢弃该行，连接保持
	ErrMalformed = errors.New("protocol: malformed record")
	// ErrFrameTooLong 单行超过上限，已丢弃至下一个换行
	ErrFrameTooLong = errors.New("protocol: frame too long")
)

const minFrameBytes = 64

// Envelope 线上统一信封 {type, data}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode 序列化为一条以换行结尾的记录
func Encode(msgType string, data any) ([]byte, error) {
	if data == nil {
		data = Empty{}
	}
	raw, err := json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{Type: msgType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return append(raw, '\n'), nil
}

// Decode 解析一条记录（不含换行）
func Decode(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		env.Data = json.RawMessage("{}")
	}
	return env, nil
}

// DecodeData 将信封 data 解析到 dst
func (e Envelope) DecodeData(dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, e.Type, err)
	}
	return nil
}

// Reader 从字节流中按换行切分记录，处理拆包与粘包
type Reader struct {
	br *bufio.Reader
}

func NewReader(r io.Reader, maxFrame int) *Reader {
	if maxFrame < minFrameBytes {
		maxFrame = minFrameBytes
	}
	return &Reader{br: bufio.NewReaderSize(r, maxFrame)}
}

// ReadFrame 返回下一条非空记录（已去掉行尾）。流结束时未以换行结尾的残余数据被丢弃
func (r *Reader) ReadFrame() ([]byte, error) {
	for {
		line, err := r.br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = r.br.ReadSlice('\n')
			}
			if err != nil {
				return nil, err
			}
			return nil, ErrFrameTooLong
		}
		if err != nil {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
}
