package tune

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoiceSamplesMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := Choice{0.01, 0.1, 1.0}
	for i := 0; i < 50; i++ {
		v := c.Sample(rng)
		assert.Contains(t, []interface{}{0.01, 0.1, 1.0}, v)
	}
}

func TestUniformBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	u := Uniform{Low: -1, High: 3}
	for i := 0; i < 100; i++ {
		v := u.Sample(rng).(float64)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.Less(t, v, 3.0)
	}
}

func TestLogUniformBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	u := LogUniform{Low: 1e-5, High: 1e-1}
	for i := 0; i < 100; i++ {
		v := u.Sample(rng).(float64)
		assert.GreaterOrEqual(t, v, 1e-5)
		assert.Less(t, v, 1e-1)
	}
}

func TestSpaceSampleDeterminism(t *testing.T) {
	space := Space{
		"lr":     LogUniform{Low: 1e-4, High: 1e-1},
		"hidden": Choice{16, 32, 64},
	}
	a := space.Sample(rand.New(rand.NewSource(7)))
	b := space.Sample(rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
	require.Contains(t, a, "lr")
	require.Contains(t, a, "hidden")
}

func TestConfigAccessors(t *testing.T) {
	cfg := Config{"lr": 0.01, "epochs": 7, "batch_size": 32.0}
	assert.Equal(t, 0.01, cfg.Float("lr", 1))
	assert.Equal(t, 7.0, cfg.Float("epochs", 1))
	assert.Equal(t, 7, cfg.Int("epochs", 1))
	assert.Equal(t, 32, cfg.Int("batch_size", 1))
	assert.Equal(t, 5, cfg.Int("missing", 5))
	assert.Equal(t, 0.5, cfg.Float("missing", 0.5))

	clone := cfg.Clone()
	clone["lr"] = 0.2
	assert.Equal(t, 0.01, cfg["lr"])
}
