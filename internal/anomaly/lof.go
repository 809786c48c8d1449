package anomaly

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// LocalOutlierFactor compares the local reachability density of each row
// with that of its k nearest neighbours.
type LocalOutlierFactor struct {
	Neighbors     int
	Contamination float64

	k        int
	factors  []float64
	offset   float64
	kDist    []float64
	lrd      []float64
	neighbor [][]int
}

// NewLocalOutlierFactor configures the model from the detection config
func NewLocalOutlierFactor(cfg Config) *LocalOutlierFactor {
	return &LocalOutlierFactor{
		Neighbors:     cfg.Neighbors,
		Contamination: cfg.Contamination,
	}
}

type neighbor struct {
	index int
	dist  float64
}

// Fit computes the outlier factor of every row of x. A row is never its
// own neighbour; k is capped at len(x)-1.
func (m *LocalOutlierFactor) Fit(x [][]float64) error {
	n := len(x)
	if n == 0 {
		return errors.New("local outlier factor: no rows to fit")
	}

	m.factors = make([]float64, n)
	if n == 1 {
		m.factors[0] = 1
		m.offset = -1
		return nil
	}

	m.k = max(1, min(m.Neighbors, n-1))
	m.neighbor = make([][]int, n)
	dists := make([][]float64, n)
	m.kDist = make([]float64, n)

	for i := range x {
		nbrs := m.nearest(x, i)
		m.neighbor[i] = make([]int, len(nbrs))
		dists[i] = make([]float64, len(nbrs))
		for j, nb := range nbrs {
			m.neighbor[i][j] = nb.index
			dists[i][j] = nb.dist
		}
		m.kDist[i] = nbrs[len(nbrs)-1].dist
	}

	m.lrd = make([]float64, n)
	for i := range x {
		var reach float64
		for j, o := range m.neighbor[i] {
			reach += max(m.kDist[o], dists[i][j])
		}
		m.lrd[i] = 1 / (reach/float64(m.k) + 1e-10)
	}

	for i := range x {
		var ratio float64
		for _, o := range m.neighbor[i] {
			ratio += m.lrd[o] / m.lrd[i]
		}
		m.factors[i] = ratio / float64(m.k)
	}

	nof := m.NegativeOutlierFactor()
	m.offset = Percentile(nof, 100*m.Contamination)
	return nil
}

// nearest returns the k nearest rows to row i, closest first. Ties break
// on the lower row index.
func (m *LocalOutlierFactor) nearest(x [][]float64, i int) []neighbor {
	nbrs := make([]neighbor, 0, m.k+1)
	for j := range x {
		if j == i {
			continue
		}
		d := floats.Distance(x[i], x[j], 2)
		if len(nbrs) == m.k && d >= nbrs[m.k-1].dist {
			continue
		}
		pos := len(nbrs)
		for pos > 0 && nbrs[pos-1].dist > d {
			pos--
		}
		nbrs = append(nbrs, neighbor{})
		copy(nbrs[pos+1:], nbrs[pos:])
		nbrs[pos] = neighbor{index: j, dist: d}
		if len(nbrs) > m.k {
			nbrs = nbrs[:m.k]
		}
	}
	return nbrs
}

// Factors returns the local outlier factor of each fitted row. Values
// near 1 are inliers; larger values are more anomalous.
func (m *LocalOutlierFactor) Factors() []float64 {
	return append([]float64(nil), m.factors...)
}

// NegativeOutlierFactor returns the opposite of each row's factor
func (m *LocalOutlierFactor) NegativeOutlierFactor() []float64 {
	out := make([]float64, len(m.factors))
	for i, f := range m.factors {
		out[i] = -f
	}
	return out
}

// Offset returns the threshold on the negative outlier factor below which
// rows are outliers at the configured contamination.
func (m *LocalOutlierFactor) Offset() float64 {
	return m.offset
}
