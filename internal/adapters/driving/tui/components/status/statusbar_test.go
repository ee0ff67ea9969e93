package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBar_Defaults(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar.styles)
	require.NotNil(t, bar.keys)
	assert.Equal(t, StateReady, bar.State())
	assert.Zero(t, bar.Count())
	assert.Equal(t, 80, bar.width)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "answered", StateAnswered.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestBar_SetAndClear(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.Set(StateResults, 4)
	assert.Equal(t, StateResults, bar.State())
	assert.Equal(t, 4, bar.Count())

	bar.Fail(errors.New("boom"))
	assert.Equal(t, StateError, bar.State())
	assert.Zero(t, bar.Count())

	bar.Clear()
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.detail)
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Bar)
		want  []string
	}{
		{"ready", func(b *Bar) {}, []string{"Ready", "[enter] submit"}},
		{"asking", func(b *Bar) { b.Set(StateAsking, 0) }, []string{"Answering..."}},
		{"searching", func(b *Bar) { b.Set(StateSearching, 0) }, []string{"Searching..."}},
		{"answered", func(b *Bar) { b.Set(StateAnswered, 2) }, []string{"Answered with 2 sources", "[n] new question"}},
		{"one source", func(b *Bar) { b.Set(StateAnswered, 1) }, []string{"Answered with 1 source "}},
		{"insufficient", func(b *Bar) { b.Set(StateInsufficient, 0) }, []string{"Insufficient context", "[n] new question"}},
		{"results", func(b *Bar) { b.Set(StateResults, 5) }, []string{"5 results"}},
		{"error", func(b *Bar) { b.Fail(nil) }, []string{"Error"}},
		{"error detail", func(b *Bar) { b.Fail(errors.New("connection refused")) }, []string{"Error: connection refused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(200)
			tt.setup(bar)

			view := bar.View()
			for _, w := range tt.want {
				assert.Contains(t, view, w)
			}
		})
	}
}
