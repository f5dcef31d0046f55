package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoints(t *testing.T) {
	total := 90 * time.Second
	cases := []struct {
		name      string
		remaining time.Duration
		want      int
	}{
		{"immediate guess", 90 * time.Second, 15},
		{"timer expired", 0, 10},
		{"negative clamps to zero", -3 * time.Second, 10},
		{"just under full", 89 * time.Second, 14},
		{"halfway", 45 * time.Second, 12},
		{"last fifth", 18 * time.Second, 11},
		{"just below a fifth", 17 * time.Second, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Points(tc.remaining, total))
		})
	}
}

func TestPointsWithoutTimer(t *testing.T) {
	assert.Equal(t, BasePoints, Points(10*time.Second, 0))
}

func TestTableLifecycle(t *testing.T) {
	tbl := NewTable()
	assert.True(t, tbl.Add("alice"))
	assert.True(t, tbl.Add("bob"))
	assert.False(t, tbl.Add("alice"))
	assert.Equal(t, 2, tbl.Len())

	assert.Equal(t, 15, tbl.Award("bob", 15))
	assert.Equal(t, 0, tbl.Award("carol", 15))
	assert.False(t, tbl.Has("carol"))

	assert.Equal(t, map[string]int{"alice": 0, "bob": 15}, tbl.Snapshot())

	tbl.Reset()
	assert.Equal(t, map[string]int{"alice": 0, "bob": 0}, tbl.Snapshot())

	assert.True(t, tbl.Remove("alice"))
	assert.False(t, tbl.Remove("alice"))
	assert.Equal(t, []string{"bob"}, tbl.Names())
}

func TestLeaderPrefersEarliestJoinOnTie(t *testing.T) {
	tbl := NewTable()
	_, _, ok := tbl.Leader()
	assert.False(t, ok)

	tbl.Add("zed")
	tbl.Add("amy")
	tbl.Add("max")
	tbl.Award("amy", 12)
	tbl.Award("max", 12)

	name, score, ok := tbl.Leader()
	assert.True(t, ok)
	assert.Equal(t, "amy", name)
	assert.Equal(t, 12, score)

	tbl.Award("zed", 13)
	name, _, _ = tbl.Leader()
	assert.Equal(t, "zed", name)
}
