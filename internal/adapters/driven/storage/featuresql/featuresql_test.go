package featuresql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

func TestValidateTable(t *testing.T) {
	for _, name := range []string{"product_features", "Features2", "_t"} {
		assert.NoError(t, ValidateTable(name), name)
	}
	for _, name := range []string{"", "1abc", "product features", "t; DROP TABLE x", "a.b", "t`"} {
		assert.ErrorIs(t, ValidateTable(name), domain.ErrInvalidInput, name)
	}
}
