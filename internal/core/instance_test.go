package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstance(t *testing.T) {
	g, err := ParseGrid([]string{"...", ".@.", "..."})
	require.NoError(t, err)

	starts := Config{C(0, 0), C(2, 2)}
	inst, err := NewInstance(g, starts, Config{C(2, 2), C(0, 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, inst.NumAgents())

	starts[0] = C(1, 0)
	assert.Equal(t, C(0, 0), inst.Starts[0], "starts are copied")
}

func TestInstanceValidate(t *testing.T) {
	g, err := ParseGrid([]string{"...", ".@.", "..."})
	require.NoError(t, err)

	tests := []struct {
		name   string
		grid   *Grid
		starts Config
		goals  Config
	}{
		{"nil grid", nil, Config{C(0, 0)}, Config{C(0, 1)}},
		{"no agents", g, nil, nil},
		{"count mismatch", g, Config{C(0, 0)}, Config{C(0, 1), C(0, 2)}},
		{"start out of bounds", g, Config{C(3, 0)}, Config{C(0, 1)}},
		{"goal on obstacle", g, Config{C(0, 0)}, Config{C(1, 1)}},
		{"shared start", g, Config{C(0, 0), C(0, 0)}, Config{C(0, 1), C(0, 2)}},
		{"shared goal", g, Config{C(0, 0), C(0, 1)}, Config{C(2, 2), C(2, 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInstance(tt.grid, tt.starts, tt.goals)
			assert.ErrorIs(t, err, ErrInvalidInstance)
		})
	}
}
