package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavTarget(t *testing.T) {
	tests := []struct {
		name    string
		current int
		count   int
		action  string
		args    []string
		want    int
		wantErr bool
	}{
		{name: "next", current: 2, count: 10, action: "next", want: 3},
		{name: "next stops at last slide", current: 9, count: 10, action: "next", want: 9},
		{name: "next from overshot row", current: 14, count: 10, action: "next", want: 9},
		{name: "next without slide count", current: 2, action: "next", wantErr: true},
		{name: "previous", current: 2, action: "previous", want: 1},
		{name: "prev at start", current: 0, action: "prev", want: 0},
		{name: "goto is 1-based", current: 7, action: "goto", args: []string{"1"}, want: 0},
		{name: "goto five", action: "goto", args: []string{"5"}, want: 4},
		{name: "goto missing", action: "goto", wantErr: true},
		{name: "goto zero", action: "goto", args: []string{"0"}, wantErr: true},
		{name: "goto garbage", action: "goto", args: []string{"x"}, wantErr: true},
		{name: "unknown", action: "jump", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := navTarget(tt.current, tt.count, tt.action, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlideLine(t *testing.T) {
	initUI(true)
	assert.Equal(t, "slide 3/10", slideLine(2, 10))
	assert.Equal(t, "slide 1", slideLine(0, 0))
}
