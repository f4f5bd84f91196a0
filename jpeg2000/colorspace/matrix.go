package colorspace

import "fmt"

// Matrix is an arbitrary N×N multi-component transform applied per
// sample across N component planes (Part 2 style array MCT, restricted
// to square decorrelation matrices).
type Matrix struct {
	n     int
	coef  []float64 // row-major n×n
	inv   []float64 // inverse matrix, computed on demand
	valid bool
}

// NewMatrix builds a transform from a row-major n×n coefficient slice.
func NewMatrix(n int, coef []float64) (*Matrix, error) {
	if n <= 0 || len(coef) != n*n {
		return nil, fmt.Errorf("mct matrix: need %d coefficients for %d components, got %d", n*n, n, len(coef))
	}
	m := &Matrix{n: n, coef: append([]float64(nil), coef...)}
	inv, ok := invertMatrix(n, m.coef)
	if !ok {
		return nil, fmt.Errorf("mct matrix: singular %dx%d matrix", n, n)
	}
	m.inv = inv
	m.valid = true
	return m, nil
}

// Components returns the component count the matrix applies to.
func (m *Matrix) Components() int { return m.n }

// Forward applies the matrix to each sample position of the planes.
func (m *Matrix) Forward(planes [][]int32) error {
	return m.apply(planes, m.coef)
}

// Inverse applies the inverted matrix.
func (m *Matrix) Inverse(planes [][]int32) error {
	return m.apply(planes, m.inv)
}

func (m *Matrix) apply(planes [][]int32, coef []float64) error {
	if len(planes) != m.n {
		return fmt.Errorf("mct matrix: got %d planes, want %d", len(planes), m.n)
	}
	size := len(planes[0])
	for _, p := range planes[1:] {
		if len(p) != size {
			return fmt.Errorf("mct matrix: component planes differ in size")
		}
	}
	in := make([]float64, m.n)
	for i := 0; i < size; i++ {
		for c := 0; c < m.n; c++ {
			in[c] = float64(planes[c][i])
		}
		for r := 0; r < m.n; r++ {
			var acc float64
			row := coef[r*m.n : (r+1)*m.n]
			for c := 0; c < m.n; c++ {
				acc += row[c] * in[c]
			}
			planes[r][i] = int32(roundHalfAway(acc))
		}
	}
	return nil
}

func roundHalfAway(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}

// invertMatrix runs Gauss-Jordan elimination with partial pivoting.
func invertMatrix(n int, src []float64) ([]float64, bool) {
	a := append([]float64(nil), src...)
	inv := make([]float64, n*n)
	for i := 0; i < n; i++ {
		inv[i*n+i] = 1
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r*n+col]) > abs(a[pivot*n+col]) {
				pivot = r
			}
		}
		if a[pivot*n+col] == 0 {
			return nil, false
		}
		if pivot != col {
			swapRows(a, n, pivot, col)
			swapRows(inv, n, pivot, col)
		}
		p := a[col*n+col]
		for c := 0; c < n; c++ {
			a[col*n+c] /= p
			inv[col*n+c] /= p
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := a[r*n+col]
			if f == 0 {
				continue
			}
			for c := 0; c < n; c++ {
				a[r*n+c] -= f * a[col*n+c]
				inv[r*n+c] -= f * inv[col*n+c]
			}
		}
	}
	return inv, true
}

func swapRows(m []float64, n, r1, r2 int) {
	for c := 0; c < n; c++ {
		m[r1*n+c], m[r2*n+c] = m[r2*n+c], m[r1*n+c]
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
