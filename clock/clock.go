package clock

import "time"

//go:generate mockgen -package=mocks -destination=mocks/mock_clock.go scribble/clock Clock

// Clock 时间来源，测试中可替换
type Clock interface {
	Now() time.Time
}

// Real 使用系统时钟
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}
