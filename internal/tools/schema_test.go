package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/pkg/errors"
)

func quoteSchema() Schema {
	return Schema{
		Name:        "get_historical_stock_data",
		Description: "Fetch OHLCV history",
		Parameters: []Parameter{
			{Name: "symbol", Type: TypeString, Required: true},
			{Name: "interval", Type: TypeString, Enum: []string{"1d", "1wk", "1mo"}, Default: "1d"},
			{Name: "limit", Type: TypeInteger, Default: 10},
			{Name: "force_refresh", Type: TypeBoolean, Default: false},
		},
	}
}

func TestSchemaValidate(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		args, err := quoteSchema().Validate(map[string]interface{}{"symbol": "AAPL"})
		require.NoError(t, err)

		assert.Equal(t, "AAPL", args["symbol"])
		assert.Equal(t, "1d", args["interval"])
		assert.Equal(t, 10, args["limit"])
		assert.Equal(t, false, args["force_refresh"])
	})

	t.Run("missing required parameter", func(t *testing.T) {
		_, err := quoteSchema().Validate(map[string]interface{}{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrToolValidation))
		assert.Contains(t, err.Error(), "symbol")
	})

	t.Run("rejects unknown parameter", func(t *testing.T) {
		_, err := quoteSchema().Validate(map[string]interface{}{
			"symbol": "AAPL",
			"bogus":  1,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown parameter 'bogus'")
	})

	t.Run("rejects wrong type", func(t *testing.T) {
		_, err := quoteSchema().Validate(map[string]interface{}{"symbol": 42})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be of type string")
	})

	t.Run("enum membership", func(t *testing.T) {
		_, err := quoteSchema().Validate(map[string]interface{}{
			"symbol":   "AAPL",
			"interval": "5m",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be one of")

		args, err := quoteSchema().Validate(map[string]interface{}{
			"symbol":   "AAPL",
			"interval": "1wk",
		})
		require.NoError(t, err)
		assert.Equal(t, "1wk", args["interval"])
	})

	t.Run("JSON numbers coerce to int for integer params", func(t *testing.T) {
		args, err := quoteSchema().Validate(map[string]interface{}{
			"symbol": "AAPL",
			"limit":  float64(25),
		})
		require.NoError(t, err)
		assert.Equal(t, 25, args["limit"])

		_, err = quoteSchema().Validate(map[string]interface{}{
			"symbol": "AAPL",
			"limit":  2.5,
		})
		require.Error(t, err)
	})
}

func TestSchemaExampleArgs(t *testing.T) {
	example := quoteSchema().ExampleArgs("MSFT")

	assert.Equal(t, "MSFT", example["symbol"])
	assert.Equal(t, "1d", example["interval"])
	assert.Equal(t, 10, example["limit"])
}
