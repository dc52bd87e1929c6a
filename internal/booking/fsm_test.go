package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFSM_CanTransition(t *testing.T) {
	f := NewFSM()

	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StatePending, true},
		{StatePending, StateSucceeded, true},
		{StatePending, StateFailed, true},
		{StateFailed, StatePending, true},
		{StatePending, StatePending, false},
		{StateSucceeded, StatePending, false},
		{StateIdle, StateSucceeded, false},
		{StateSucceeded, StateIdle, true},
		{StatePending, StateIdle, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
