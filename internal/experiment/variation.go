package experiment

import (
	"fmt"
	"math/rand/v2"
)

// Variation holds the observed outcome of one experiment arm
type Variation struct {
	total   int
	success int
	data    []int // raw 0/1 outcomes, nil when built from counts
	group   *int  // group size for sequential (Wald) tests
}

// Option configures optional Variation attributes
type Option func(*Variation)

// WithGroup sets the group size carried by the variation
func WithGroup(group int) Option {
	return func(v *Variation) {
		g := group
		v.group = &g
	}
}

// New creates a variation from total and success counts
func New(total, success int, opts ...Option) (*Variation, error) {
	if total < 0 || success < 0 {
		return nil, fmt.Errorf("%w: counts must be non-negative (total=%d, success=%d)", ErrValidation, total, success)
	}
	if success > total {
		return nil, fmt.Errorf("%w: conversion rate > 1 (total=%d, success=%d)", ErrValidation, total, success)
	}

	v := &Variation{total: total, success: success}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// FromData creates a variation from a sequence of 0/1 outcomes.
// Total and success are derived from the sequence.
func FromData(data []int, opts ...Option) (*Variation, error) {
	if data == nil {
		data = []int{}
	}

	success := 0
	for i, x := range data {
		if x != 0 && x != 1 {
			return nil, fmt.Errorf("%w: data should contain only 0's and 1's, got %d at index %d", ErrValidation, x, i)
		}
		success += x
	}

	dataCopy := make([]int, len(data))
	copy(dataCopy, data)

	v := &Variation{total: len(data), success: success, data: dataCopy}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Total returns the number of trials
func (v *Variation) Total() int { return v.total }

// Success returns the number of successful trials
func (v *Variation) Success() int { return v.success }

// HasData reports whether the variation was built from raw outcomes
func (v *Variation) HasData() bool { return v.data != nil }

// Data returns a copy of the raw outcomes, or nil
func (v *Variation) Data() []int {
	if v.data == nil {
		return nil
	}
	out := make([]int, len(v.data))
	copy(out, v.data)
	return out
}

// Group returns the group size and whether it was set
func (v *Variation) Group() (int, bool) {
	if v.group == nil {
		return 0, false
	}
	return *v.group, true
}

// EstimateConversion returns the sample conversion rate success/total
func (v *Variation) EstimateConversion() (float64, error) {
	if v.total == 0 {
		return 0, fmt.Errorf("estimate conversion: %w", ErrDivision)
	}
	return float64(v.success) / float64(v.total), nil
}

// Copy returns a deep copy of the variation
func (v *Variation) Copy() *Variation {
	c := &Variation{total: v.total, success: v.success, data: v.Data()}
	if v.group != nil {
		c.group = new(int)
		*c.group = *v.group
	}
	return c
}

// Truncate returns a variation built from the leading outcomes of the data.
//
// The prefix holds 1 + min(size, total) elements, one more than size.
func (v *Variation) Truncate(size int) (*Variation, error) {
	if len(v.data) == 0 {
		return nil, fmt.Errorf("truncate: %w", ErrState)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: truncate size %d is negative", ErrValidation, size)
	}

	end := 1 + min(size, v.total)
	if end > len(v.data) {
		end = len(v.data)
	}
	return FromData(v.data[:end])
}

// GenerateSample builds a synthetic outcome sequence of length total with
// exactly success ones at uniformly random positions.
// A nil rng uses the global source.
func (v *Variation) GenerateSample(rng *rand.Rand) []int {
	var perm []int
	if rng == nil {
		perm = rand.Perm(v.total)
	} else {
		perm = rng.Perm(v.total)
	}

	sample := make([]int, v.total)
	for _, idx := range perm[:v.success] {
		sample[idx] = 1
	}
	return sample
}
