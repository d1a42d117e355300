package quant

import (
	"math"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

// Learning constants of Dekker's NeuQuant network.
const (
	radiusDec       = 30
	alphaBiasShift  = 10
	initAlpha       = 1 << alphaBiasShift
	radiusBiasShift = 6
	radiusBias      = 1 << radiusBiasShift
	gamma           = 1024.0
	beta            = 1.0 / gamma
	betaGamma       = beta * gamma
	maxCycles       = 100
)

// Pixel strides for the learning pass; the first one that does not divide
// the pixel count is used.
var primes = [...]int{499, 491, 487, 503}

// NeuQuant builds palettes with a self-organizing Kohonen network
// (A. Dekker, 1994) over RGBA samples.
type NeuQuant struct {
	// SampleFactor 1 learns from every pixel; n learns from every nth.
	SampleFactor int
}

type neuron struct {
	r, g, b, a float64
}

type network struct {
	neurons []neuron
	bias    []float64
	freq    []float64
	colors  []ir.RGBA
}

// Build trains a k-neuron network on rgba and returns the resulting palette.
func (nq NeuQuant) Build(rgba []byte, k int) Matcher {
	factor := nq.SampleFactor
	if factor < 1 {
		factor = 1
	}
	net := newNetwork(k)
	net.learn(rgba, factor)
	net.freeze()
	return net
}

func newNetwork(size int) *network {
	net := &network{
		neurons: make([]neuron, size),
		bias:    make([]float64, size),
		freq:    make([]float64, size),
		colors:  make([]ir.RGBA, size),
	}
	for i := range net.neurons {
		v := float64(i) * 256 / float64(size)
		a := 255.0
		if i < 16 {
			a = float64(i) * 16
		}
		net.neurons[i] = neuron{r: v, g: v, b: v, a: a}
		net.freq[i] = 1 / float64(size)
	}
	return net
}

func (net *network) learn(pixels []byte, factor int) {
	count := len(pixels) / 4
	if count == 0 {
		return
	}
	size := len(net.neurons)
	samples := count / factor
	alphaDec := 30 + (factor-1)/3

	cycles := size >> 1
	if cycles > maxCycles {
		cycles = maxCycles
	}
	if cycles < 1 {
		cycles = 1
	}
	delta := samples / cycles
	if delta == 0 {
		delta = 1
	}

	alpha := initAlpha
	biasRadius := (size / 8) * radiusBias
	rad := biasRadius >> radiusBiasShift
	if rad <= 1 {
		rad = 0
	}

	step := primes[len(primes)-1]
	for _, p := range primes {
		if count%p != 0 {
			step = p
			break
		}
	}

	pos := 0
	for i := 0; i < samples; {
		p := pixels[pos*4 : pos*4+4]
		sample := neuron{r: float64(p[0]), g: float64(p[1]), b: float64(p[2]), a: float64(p[3])}

		j := net.contest(sample)
		a := float64(alpha) / initAlpha
		net.move(j, a, sample)
		if rad > 0 {
			net.moveNeighbours(j, rad, a, sample)
		}

		pos += step
		for pos >= count {
			pos -= count
		}

		i++
		if i%delta == 0 {
			alpha -= alpha / alphaDec
			biasRadius -= biasRadius / radiusDec
			rad = biasRadius >> radiusBiasShift
			if rad <= 1 {
				rad = 0
			}
		}
	}
}

// contest finds the closest neuron, updates the frequency bias, and returns
// the best neuron after bias.
func (net *network) contest(s neuron) int {
	bestDist, bestBiasDist := math.MaxFloat64, math.MaxFloat64
	bestPos, bestBiasPos := 0, 0
	for i, n := range net.neurons {
		dist := math.Abs(n.r-s.r) + math.Abs(n.g-s.g) + math.Abs(n.b-s.b) + math.Abs(n.a-s.a)
		if dist < bestDist {
			bestDist, bestPos = dist, i
		}
		if biasDist := dist - net.bias[i]; biasDist < bestBiasDist {
			bestBiasDist, bestBiasPos = biasDist, i
		}
		bf := beta * net.freq[i]
		net.freq[i] -= bf
		net.bias[i] += bf * gamma
	}
	net.freq[bestPos] += beta
	net.bias[bestPos] -= betaGamma
	return bestBiasPos
}

func (net *network) move(i int, alpha float64, s neuron) {
	n := &net.neurons[i]
	n.r -= alpha * (n.r - s.r)
	n.g -= alpha * (n.g - s.g)
	n.b -= alpha * (n.b - s.b)
	n.a -= alpha * (n.a - s.a)
}

func (net *network) moveNeighbours(i, rad int, alpha float64, s neuron) {
	lo := max(i-rad, -1)
	hi := min(i+rad, len(net.neurons))
	radSq := float64(rad * rad)

	j, k, q := i+1, i-1, 0
	for j < hi || k > lo {
		a := alpha * (radSq - float64(q*q)) / radSq
		q++
		if j < hi {
			net.move(j, a, s)
			j++
		}
		if k > lo {
			net.move(k, a, s)
			k--
		}
	}
}

func (net *network) freeze() {
	for i, n := range net.neurons {
		net.colors[i] = ir.RGBA{R: clamp8(n.r), G: clamp8(n.g), B: clamp8(n.b), A: clamp8(n.a)}
	}
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func (net *network) Palette() []ir.RGB {
	p := make([]ir.RGB, len(net.colors))
	for i, c := range net.colors {
		p[i] = c.RGB()
	}
	return p
}

// Nearest returns the palette index with the smallest channel-wise distance.
func (net *network) Nearest(c ir.RGBA) int {
	best, bestDist := 0, math.MaxInt
	for i, p := range net.colors {
		d := absDiff(p.R, c.R) + absDiff(p.G, c.G) + absDiff(p.B, c.B) + absDiff(p.A, c.A)
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
