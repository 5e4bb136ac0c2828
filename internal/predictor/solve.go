package predictor

// dependentTol is the fraction of a column's own variance below which its
// residual pivot is treated as zero.
const dependentTol = 1e-10

// fitOLS solves least squares with an intercept. Columns are centred so the
// intercept drops out of the normal equations, which are then reduced by
// symmetric Gaussian elimination. Columns that are constant or a linear
// combination of earlier ones get weight zero.
func fitOLS(x [][]float64, y []float64) (float64, []float64) {
	n := len(x)
	p := len(x[0])

	xMean := make([]float64, p)
	var yMean float64
	for i, row := range x {
		for j, v := range row {
			xMean[j] += v
		}
		yMean += y[i]
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	a := make([][]float64, p)
	for j := range a {
		a[j] = make([]float64, p)
	}
	b := make([]float64, p)
	for i, row := range x {
		dy := y[i] - yMean
		for j := 0; j < p; j++ {
			dj := row[j] - xMean[j]
			b[j] += dj * dy
			for k := j; k < p; k++ {
				a[j][k] += dj * (row[k] - xMean[k])
			}
		}
	}
	for j := 0; j < p; j++ {
		for k := 0; k < j; k++ {
			a[j][k] = a[k][j]
		}
	}

	w := solveNormal(a, b)

	intercept := yMean
	for j := range w {
		intercept -= w[j] * xMean[j]
	}
	return intercept, w
}

// solveNormal solves a·w = b for a symmetric positive semi-definite a,
// modifying a and b in place.
func solveNormal(a [][]float64, b []float64) []float64 {
	p := len(b)
	scale := make([]float64, p)
	for k := range scale {
		scale[k] = a[k][k]
	}

	dropped := make([]bool, p)
	for k := 0; k < p; k++ {
		pivot := a[k][k]
		if scale[k] <= 0 || pivot <= dependentTol*scale[k] {
			dropped[k] = true
			continue
		}
		for i := k + 1; i < p; i++ {
			f := a[i][k] / pivot
			if f == 0 {
				continue
			}
			for j := k; j < p; j++ {
				a[i][j] -= f * a[k][j]
			}
			b[i] -= f * b[k]
		}
	}

	w := make([]float64, p)
	for k := p - 1; k >= 0; k-- {
		if dropped[k] {
			continue
		}
		s := b[k]
		for j := k + 1; j < p; j++ {
			s -= a[k][j] * w[j]
		}
		w[k] = s / a[k][k]
	}
	return w
}
