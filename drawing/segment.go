package drawing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrBadSegment = errors.New("drawing: malformed segment")

// Segment 一段线：起点、终点、颜色与笔宽
type Segment struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

type segmentFields Segment

// UnmarshalJSON 同时接受对象形式与旧客户端的六元组 [x1,y1,x2,y2,color,width]
func (s *Segment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrBadSegment
	}
	if data[0] == '[' {
		var tuple []json.RawMessage
		if err := json.Unmarshal(data, &tuple); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSegment, err)
		}
		if len(tuple) != 6 {
			return fmt.Errorf("%w: want 6 fields, got %d", ErrBadSegment, len(tuple))
		}
		var out Segment
		nums := []*float64{&out.X1, &out.Y1, &out.X2, &out.Y2}
		for i, dst := range nums {
			if err := json.Unmarshal(tuple[i], dst); err != nil {
				return fmt.Errorf("%w: field %d: %v", ErrBadSegment, i, err)
			}
		}
		if err := json.Unmarshal(tuple[4], &out.Color); err != nil {
			return fmt.Errorf("%w: color: %v", ErrBadSegment, err)
		}
		if err := json.Unmarshal(tuple[5], &out.Width); err != nil {
			return fmt.Errorf("%w: width: %v", ErrBadSegment, err)
		}
		*s = out
		return nil
	}
	var f segmentFields
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSegment, err)
	}
	*s = Segment(f)
	return nil
}
