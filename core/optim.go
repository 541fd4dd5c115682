package core

import "math"

// adamEpsilon is the numerical-stability term of the fixed optimizer
// policy. It must stay at 1e-6 for score compatibility across releases.
const adamEpsilon = 1e-6

// adam is the fixed optimizer policy applied to every ensemble member:
// adaptive gradient descent over the network's parameter groups.
type adam struct {
	lr           float64
	beta1, beta2 float64
	step         int
	m, v         [][]float64
}

func newAdam(params [][]float64, lr float64) *adam {
	a := &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		m:     make([][]float64, len(params)),
		v:     make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p))
		a.v[i] = make([]float64, len(p))
	}
	return a
}

// apply performs one update step in place.
func (a *adam) apply(params [][]float64, grads Gradients) {
	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))
	for i, p := range params {
		g := grads[i]
		for j := range p {
			a.m[i][j] = a.beta1*a.m[i][j] + (1-a.beta1)*g[j]
			a.v[i][j] = a.beta2*a.v[i][j] + (1-a.beta2)*g[j]*g[j]
			mHat := a.m[i][j] / c1
			vHat := a.v[i][j] / c2
			p[j] -= a.lr * mHat / (math.Sqrt(vHat) + adamEpsilon)
		}
	}
}
