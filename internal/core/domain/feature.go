package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// FeatureRow is one persisted gallery entry.
type FeatureRow struct {
	// ImageID is the opaque identifier carried through to search results.
	ImageID string

	// Encoded is the feature vector as stored: a JSON array of numbers.
	Encoded string
}

// NewFeatureRow encodes vector into a FeatureRow.
func NewFeatureRow(imageID string, vector []float32) FeatureRow {
	return FeatureRow{ImageID: imageID, Encoded: EncodeVector(vector)}
}

// SkipReason explains why a row was left out of an index build.
type SkipReason string

// Skip reasons.
const (
	// SkipMalformed means the stored features could not be decoded
	// into a non-empty vector of finite numbers.
	SkipMalformed SkipReason = "malformed"

	// SkipDimensionMismatch means the vector length differs from the
	// dimension of the index being built.
	SkipDimensionMismatch SkipReason = "dimension_mismatch"
)

// SkippedRow records a row dropped during gallery preparation.
type SkippedRow struct {
	ImageID string
	Reason  SkipReason
	Detail  string
}

// errEmptyVector is returned when an encoded vector has no elements.
var errEmptyVector = errors.New("empty vector")

// DecodeVector parses a JSON array of numbers into a vector.
// Nulls, strings, nested values and non-finite values are rejected.
func DecodeVector(encoded string) ([]float32, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if len(raw) == 0 {
		return nil, errEmptyVector
	}

	vec := make([]float32, len(raw))
	for i, item := range raw {
		f, err := strconv.ParseFloat(string(item), 64)
		if err != nil {
			return nil, fmt.Errorf("element %d: not a number: %s", i, item)
		}
		v := float32(f)
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("element %d: not finite: %s", i, item)
		}
		vec[i] = v
	}
	return vec, nil
}

// EncodeVector renders a vector as a JSON array of numbers.
func EncodeVector(vector []float32) string {
	if vector == nil {
		return "[]"
	}
	data, err := json.Marshal(vector)
	if err != nil {
		// Only non-finite values fail to marshal.
		return "[]"
	}
	return string(data)
}

// Gallery is the decoded and dimension-checked content of one build pass.
// IDs[i] labels Vectors[i]; source order is preserved.
type Gallery struct {
	IDs       []string
	Vectors   [][]float32
	Dimension int
	Skipped   []SkippedRow
}

// NewGallery decodes rows into a Gallery.
//
// When dimension is positive every accepted vector must have exactly that
// length. Otherwise the length of the first decodable row becomes the
// dimension. Rows that fail either check are recorded in Skipped.
func NewGallery(rows []FeatureRow, dimension int) *Gallery {
	g := &Gallery{
		IDs:     make([]string, 0, len(rows)),
		Vectors: make([][]float32, 0, len(rows)),
	}
	if dimension > 0 {
		g.Dimension = dimension
	}

	for _, row := range rows {
		vec, err := DecodeVector(row.Encoded)
		if err != nil {
			g.Skipped = append(g.Skipped, SkippedRow{
				ImageID: row.ImageID,
				Reason:  SkipMalformed,
				Detail:  err.Error(),
			})
			continue
		}
		if g.Dimension == 0 {
			g.Dimension = len(vec)
		}
		if len(vec) != g.Dimension {
			g.Skipped = append(g.Skipped, SkippedRow{
				ImageID: row.ImageID,
				Reason:  SkipDimensionMismatch,
				Detail:  (&DimensionMismatchError{Expected: g.Dimension, Actual: len(vec)}).Error(),
			})
			continue
		}
		g.IDs = append(g.IDs, row.ImageID)
		g.Vectors = append(g.Vectors, vec)
	}

	return g
}

// Len returns the number of accepted rows.
func (g *Gallery) Len() int {
	return len(g.IDs)
}

// IsEmpty reports whether no rows were accepted.
func (g *Gallery) IsEmpty() bool {
	return len(g.IDs) == 0
}
