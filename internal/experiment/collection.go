package experiment

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Collection is a set of variations obtained within one A/B test: at most one
// control plus an ordered list of treatments, numbered from 1.
//
// The zero value is an empty collection that discards warnings.
// A Collection is not safe for concurrent mutation.
type Collection struct {
	control    *Variation
	treatments []*Variation
	logger     *zap.Logger
}

// NewCollection creates a collection. The first variation becomes the control,
// the rest are treatments. With no variations the collection is empty.
func NewCollection(logger *zap.Logger, variations ...*Variation) (*Collection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collection{logger: logger}

	if len(variations) > 0 {
		if err := c.AddControl(variations[0]); err != nil {
			return nil, err
		}
		if len(variations) > 1 {
			if err := c.AddTreatments(variations[1:]...); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// log returns the collection logger; a zero-value Collection logs nowhere
func (c *Collection) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// Control returns the control variation, or nil
func (c *Collection) Control() *Variation { return c.control }

// Treatments returns the treatments in display order
func (c *Collection) Treatments() []*Variation {
	out := make([]*Variation, len(c.treatments))
	copy(out, c.treatments)
	return out
}

// Len returns the number of treatments
func (c *Collection) Len() int { return len(c.treatments) }

// AddControl sets the control variation, replacing the current one with a warning
func (c *Collection) AddControl(v *Variation) error {
	if v == nil {
		return fmt.Errorf("add control: %w", ErrNilVariation)
	}
	if c.control != nil {
		c.log().Warn("collection already has a control variation, replacing it",
			zap.Int("old_total", c.control.total),
			zap.Int("new_total", v.total))
	}
	c.control = v
	return nil
}

// AddTreatments appends treatments to the end of the list
func (c *Collection) AddTreatments(vs ...*Variation) error {
	if len(vs) == 0 {
		c.log().Warn("nothing to add")
		return nil
	}
	for i, v := range vs {
		if v == nil {
			return fmt.Errorf("add treatments: argument %d: %w", i+1, ErrNilVariation)
		}
	}
	c.treatments = append(c.treatments, vs...)
	return nil
}

// DeleteControl removes the control variation
func (c *Collection) DeleteControl() {
	c.control = nil
}

// DeleteTreatment removes treatment n (counting from 1) if it exists
func (c *Collection) DeleteTreatment(n int) {
	if n < 1 || n > len(c.treatments) {
		c.log().Warn("no treatment with the given number",
			zap.Int("number", n),
			zap.Int("treatments", len(c.treatments)))
		return
	}
	c.treatments = append(c.treatments[:n-1], c.treatments[n:]...)
}

// SummaryRow describes one variation of a collection
type SummaryRow struct {
	Name       string
	Success    int
	Total      int
	Conversion float64 // NaN when Total is 0
}

// Summary is the tabular description of a collection
type Summary struct {
	Rows []SummaryRow
}

// Describe summarizes the collection per variation.
// An empty collection yields nil and a warning.
func (c *Collection) Describe() *Summary {
	if c.control == nil && len(c.treatments) == 0 {
		c.log().Warn("the collection is empty")
		return nil
	}

	s := &Summary{}
	if c.control != nil {
		s.Rows = append(s.Rows, summaryRow("Control", c.control))
	}
	for i, t := range c.treatments {
		s.Rows = append(s.Rows, summaryRow(fmt.Sprintf("Treatment_%d", i+1), t))
	}
	return s
}

func summaryRow(name string, v *Variation) SummaryRow {
	conversion, err := v.EstimateConversion()
	if err != nil {
		conversion = math.NaN()
	}
	return SummaryRow{
		Name:       name,
		Success:    v.success,
		Total:      v.total,
		Conversion: conversion,
	}
}
