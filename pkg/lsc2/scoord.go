package lsc2

import "math"

// Stretch holds the S-coordinate stretching parameters.
//
// Theta concentrates resolution toward the surface, B in [0,1] shifts part
// of it toward the bed, and Hc is the critical depth below which the
// coordinate is nearly uniform.
type Stretch struct {
	Theta float64
	B     float64
	Hc    float64
}

// DefaultStretch returns theta=3, b=0, hc=5.
func DefaultStretch() Stretch {
	return Stretch{Theta: 3, B: 0, Hc: 5}
}

// C evaluates the stretching function at s in [-1, 0]:
//
//	c(s) = (1-b)*sinh(theta*s)/sinh(theta)
//	     + 0.5*b*(tanh(theta*(s+0.5)) - tanh(0.5*theta))/tanh(0.5*theta)
//
// c(0) = 0 and c(-1) = -1 for any theta > 0.
func (st Stretch) C(s float64) float64 {
	th := st.Theta
	c := (1 - st.B) * math.Sinh(th*s) / math.Sinh(th)
	if st.B != 0 {
		t := math.Tanh(0.5 * th)
		c += 0.5 * st.B * (math.Tanh(th*(s+0.5)) - t) / t
	}
	return c
}

// Z returns the elevation of coordinate s for a column with water level eta
// and bed depth h:
//
//	z = eta*(1+s) + hc*s + (h-hc)*c(s)
func (st Stretch) Z(s, eta, h float64) float64 {
	return eta*(1+s) + st.Hc*s + (h-st.Hc)*st.C(s)
}

// Profile returns z at n equally spaced s values from 0 down to -1, so the
// first entry is eta and the last is -h.
func (st Stretch) Profile(n int, eta, h float64) []float64 {
	z := make([]float64, n)
	if n == 1 {
		z[0] = eta
		return z
	}
	for k := 0; k < n; k++ {
		s := -float64(k) / float64(n-1)
		z[k] = st.Z(s, eta, h)
	}
	z[0], z[n-1] = eta, -h
	return z
}
