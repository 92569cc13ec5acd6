package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidCloudTable is returned for malformed cloud-distribution input.
var ErrInvalidCloudTable = errors.New("invalid cloud table")

// CloudTable is a discretised cloud-score distribution per calendar period.
// Row i applies to days d with Ranges[i] < d <= Ranges[i+1] of a 365-day
// year; column j is the probability of cloud score j.
type CloudTable struct {
	rows   [][]float64
	ranges []int
}

// NewCloudTable copies and normalises rows so each sums to 1. An all-zero
// row is treated as certainly clear (score 0).
func NewCloudTable(rows [][]float64, ranges []int) (*CloudTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidCloudTable)
	}
	if len(ranges) != len(rows)+1 {
		return nil, fmt.Errorf("%w: %d rows need %d range boundaries, got %d",
			ErrInvalidCloudTable, len(rows), len(rows)+1, len(ranges))
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i] <= ranges[i-1] {
			return nil, fmt.Errorf("%w: range boundaries must increase", ErrInvalidCloudTable)
		}
	}
	if ranges[0] < 0 || ranges[len(ranges)-1] > 365 {
		return nil, fmt.Errorf("%w: range boundaries outside [0, 365]", ErrInvalidCloudTable)
	}

	width := len(rows[0])
	norm := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != width || width == 0 {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidCloudTable, i, len(row), width)
		}
		for _, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d has value %v", ErrInvalidCloudTable, i, v)
			}
		}
		out := make([]float64, width)
		copy(out, row)
		if sum := floats.Sum(out); sum > 0 {
			floats.Scale(1/sum, out)
		} else {
			out[0] = 1
		}
		norm[i] = out
	}
	return &CloudTable{rows: norm, ranges: append([]int(nil), ranges...)}, nil
}

// Row returns the normalised distribution for a day of the 365-day year,
// or false when no period covers that day.
func (c *CloudTable) Row(day int) ([]float64, bool) {
	for i := 0; i+1 < len(c.ranges); i++ {
		if day > c.ranges[i] && day <= c.ranges[i+1] {
			return c.rows[i], true
		}
	}
	return nil, false
}

// Rows returns the number of calendar periods.
func (c *CloudTable) Rows() int { return len(c.rows) }

// MaxScore is the highest cloud score the table can produce.
func (c *CloudTable) MaxScore() int { return len(c.rows[0]) - 1 }

// Draw samples a cloud score for day. Days outside every period are clear.
func (c *CloudTable) Draw(day int, src rand.Source) int {
	row, ok := c.Row(day)
	if !ok {
		return 0
	}
	return int(distuv.NewCategorical(row, src).Rand())
}

// Fraction maps a score onto [0, 1] relative to MaxScore.
func (c *CloudTable) Fraction(score int) float64 {
	max := c.MaxScore()
	if max <= 0 {
		return 0
	}
	return math.Min(1, float64(score)/float64(max))
}
