package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestDisplayAmount(t *testing.T) {
	value, err := DisplayAmount(sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	require.InDelta(t, 1.5, value, 1e-9)

	value, err = DisplayAmount(sdkmath.NewInt(42), 0)
	require.NoError(t, err)
	require.InDelta(t, 42.0, value, 1e-9)

	_, err = DisplayAmount(sdkmath.NewInt(-1), 6)
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = DisplayAmount(sdkmath.Int{}, 6)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = DisplayAmount(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestBaseAmount(t *testing.T) {
	value, err := BaseAmount(1.5, 6)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_500_000), value)

	value, err = BaseAmount(0, 6)
	require.NoError(t, err)
	require.True(t, value.IsZero())

	_, err = BaseAmount(-0.5, 6)
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = BaseAmount(1.0, 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestBaseDisplayRoundTrip(t *testing.T) {
	base, err := BaseAmount(123.456789, 6)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(123_456_789), base)

	display, err := DisplayAmount(base, 6)
	require.NoError(t, err)
	require.InDelta(t, 123.456789, display, 1e-9)
}
