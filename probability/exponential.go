// Package probability holds closed-form models of probability distributions.
package probability

import (
	"errors"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInvalidLambtha  = errors.New("lambtha must be a positive value")
	ErrTooFewValues    = errors.New("data must contain multiple values")
	ErrNonPositiveMean = errors.New("data must have a positive mean")
)

// Exponential is an exponential distribution with rate Lambtha (the expected
// number of occurrences per unit interval).
type Exponential struct {
	Lambtha float64
}

func NewExponential(lambtha float64) (*Exponential, error) {
	if !(lambtha > 0) {
		return nil, ErrInvalidLambtha
	}
	return &Exponential{Lambtha: lambtha}, nil
}

// ExponentialFromData estimates the rate as the reciprocal of the sample mean.
// At least three values are required.
func ExponentialFromData(data []float64) (*Exponential, error) {
	if len(data) <= 2 {
		return nil, ErrTooFewValues
	}
	mean := stat.Mean(data, nil)
	if !(mean > 0) {
		return nil, ErrNonPositiveMean
	}
	return &Exponential{Lambtha: 1 / mean}, nil
}

func (e *Exponential) dist() distuv.Exponential {
	return distuv.Exponential{Rate: e.Lambtha}
}

// PDF is λe^(-λx) for x >= 0 and 0 otherwise.
func (e *Exponential) PDF(x float64) float64 {
	if x < 0 {
		return 0
	}
	return e.dist().Prob(x)
}

// CDF is 1 - e^(-λx) for x >= 0 and 0 otherwise.
func (e *Exponential) CDF(x float64) float64 {
	if x < 0 {
		return 0
	}
	return e.dist().CDF(x)
}

// Mean of the distribution, 1/λ.
func (e *Exponential) Mean() float64 {
	return e.dist().Mean()
}
