package workload

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TruncatedNormal samples a normal distribution restricted to [lo, hi].
type TruncatedNormal struct {
	norm distuv.Normal
	u    distuv.Uniform
}

func NewTruncatedNormal(lo, hi, mean, stddev float64, seed uint64) *TruncatedNormal {
	norm := distuv.Normal{
		Mu:    mean,
		Sigma: stddev,
		Src:   rand.NewSource(seed),
	}

	// Use an inverse transform method to sample from the distribution.
	// Reference: https://www.r-bloggers.com/2020/08/generating-data-from-a-truncated-distribution/
	return &TruncatedNormal{
		norm: norm,
		u: distuv.Uniform{
			Min: norm.CDF(lo),
			Max: norm.CDF(hi),
			Src: rand.NewSource(seed + 1),
		},
	}
}

func (d *TruncatedNormal) Rand() float64 {
	return d.norm.Quantile(d.u.Rand())
}
