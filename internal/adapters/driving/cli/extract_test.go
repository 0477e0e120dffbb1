package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

func resetExtractFlags() {
	extractIDs = nil
	extractSave = false
	extractJSON = false
}

func TestExtractCmd_RequiresArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "extract")
	assert.Error(t, err)
}

func TestExtractCmd_PairsFilesWithIDs(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()
	ts.extraction.features = map[string][]float32{"p1": {1, 2}, "p2": {3, 4}}

	a, b := writeImage(t, "a.png"), writeImage(t, "b.png")
	out, err := execute(t, "extract", "--id", "p1", "--id", "p2", a, b)

	require.NoError(t, err)
	require.Len(t, ts.extraction.got.Images, 2)
	assert.Equal(t, "a.png", ts.extraction.got.Images[0].Filename)
	assert.Equal(t, "b.png", ts.extraction.got.Images[1].Filename)
	assert.Equal(t, []string{"p1", "p2"}, ts.extraction.got.IDs)
	assert.Contains(t, out, "p1: 2 dimensions")
	assert.Contains(t, out, "Extracted 2 feature vectors")
	assert.Empty(t, ts.features.saved)
}

func TestExtractCmd_Save(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()
	ts.extraction.features = map[string][]float32{"p1": {0.5}}

	_, err := execute(t, "extract", "--save", "--id", "p1", writeImage(t, "a.png"))

	require.NoError(t, err)
	assert.Equal(t, []domain.FeatureRow{{ImageID: "p1", Encoded: "[0.5]"}}, ts.features.saved)
}

func TestExtractCmd_SaveSkippedWhenServicePersists(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()
	ts.settings.Extraction.Persist = true
	ts.extraction.features = map[string][]float32{"p1": {0.5}}

	_, err := execute(t, "extract", "--save", "--id", "p1", writeImage(t, "a.png"))

	require.NoError(t, err)
	assert.Empty(t, ts.features.saved)
}

func TestExtractCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()
	ts.extraction.features = map[string][]float32{"p1": {1}}

	out, err := execute(t, "extract", "--json", "--id", "p1", writeImage(t, "a.png"))

	require.NoError(t, err)
	assert.Contains(t, out, `{"features":{"p1":[1]}}`)
}

func TestExtractCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()
	ts.extraction.err = domain.ErrInvalidInput

	_, err := execute(t, "extract", writeImage(t, "a.png"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
