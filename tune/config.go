// Package tune drives automated hyperparameter search over the detection
// pipeline: a sampled config space, a pluggable trial-executor contract,
// a local asynchronous successive-halving executor, and the driver that
// wraps a detector as the trainable unit.
package tune

import (
	"math"
	"math/rand"
	"sort"
)

// Config is one sampled hyperparameter assignment.
type Config map[string]interface{}

// Float reads a numeric entry, tolerating int values, with a default.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Int reads an integer entry, tolerating float64 values, with a default.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Clone returns a shallow copy.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Sampler draws one value of a hyperparameter from an explicit rng.
type Sampler interface {
	Sample(rng *rand.Rand) interface{}
}

// Choice samples uniformly from a fixed set of values.
type Choice []interface{}

// Sample implements Sampler.
func (c Choice) Sample(rng *rand.Rand) interface{} {
	return c[rng.Intn(len(c))]
}

// Uniform samples a float uniformly from [Low, High).
type Uniform struct {
	Low, High float64
}

// Sample implements Sampler.
func (u Uniform) Sample(rng *rand.Rand) interface{} {
	return u.Low + rng.Float64()*(u.High-u.Low)
}

// LogUniform samples a float log-uniformly from [Low, High); both bounds
// must be positive. The usual shape for learning rates.
type LogUniform struct {
	Low, High float64
}

// Sample implements Sampler.
func (u LogUniform) Sample(rng *rand.Rand) interface{} {
	lo, hi := math.Log(u.Low), math.Log(u.High)
	return math.Exp(lo + rng.Float64()*(hi-lo))
}

// Space is the searchable hyperparameter space of a model.
type Space map[string]Sampler

// Sample draws one full config. Parameters are sampled in name order so a
// seeded rng yields the same config regardless of map iteration order.
func (s Space) Sample(rng *rand.Rand) Config {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	cfg := make(Config, len(s))
	for _, name := range names {
		cfg[name] = s[name].Sample(rng)
	}
	return cfg
}
