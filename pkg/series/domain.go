package series

import "math"

const (
	flatEpsilon = 1e-8
	rangePad    = 0.05
	flatPad     = 0.005
)

// Domain is a closed axis interval.
type Domain struct {
	Lo, Hi float64
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// PriceDomain pads the price range by 5%. A flat series is padded by 0.5% of its
// value, or to [-1, 1] when the value is zero.
func PriceDomain(prices []float64) Domain {
	if len(prices) == 0 {
		return Domain{-1, 1}
	}
	lo, hi := minMax(prices)
	if hi-lo < flatEpsilon {
		pad := math.Abs(hi) * flatPad
		if pad == 0 {
			return Domain{hi - 1, hi + 1}
		}
		return Domain{hi - pad, hi + pad}
	}
	r := hi - lo
	return Domain{lo - rangePad*r, hi + rangePad*r}
}

// VolumeDomain is like PriceDomain with the lower bound clamped at zero.
func VolumeDomain(volumes []float64) Domain {
	if len(volumes) == 0 {
		return Domain{0, 1}
	}
	lo, hi := minMax(volumes)
	if hi <= 0 {
		return Domain{0, 1}
	}
	if hi-lo < flatEpsilon {
		pad := math.Abs(hi) * flatPad
		return Domain{math.Max(0, hi-pad), hi + pad}
	}
	r := hi - lo
	return Domain{math.Max(0, lo-rangePad*r), hi + rangePad*r}
}
