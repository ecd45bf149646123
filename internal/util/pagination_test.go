package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	offset, limit := Calculate(1, 10)
	require.Equal(t, 0, offset)
	require.Equal(t, 10, limit)

	offset, limit = Calculate(3, 10)
	require.Equal(t, 20, offset)
	require.Equal(t, 10, limit)

	// clamped inputs
	offset, limit = Calculate(0, 0)
	require.Equal(t, 0, offset)
	require.Equal(t, DefaultPageSize, limit)

	_, limit = Calculate(1, 1000)
	require.Equal(t, DefaultPageSize, limit)
}

func TestTotalPages(t *testing.T) {
	require.EqualValues(t, 0, TotalPages(0, 10))
	require.EqualValues(t, 1, TotalPages(1, 10))
	require.EqualValues(t, 1, TotalPages(10, 10))
	require.EqualValues(t, 2, TotalPages(11, 10))
	require.EqualValues(t, 0, TotalPages(5, 0))
}
