package rerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"reelrun/internal/rerrors"
)

func TestErrorMessageFormatting(t *testing.T) {
	withItem := rerrors.New(rerrors.FrameParse, "invalid frame document", "frame.json")
	require.Equal(t, `FrameParse: invalid frame document => "frame.json"`, withItem.Error())

	withoutItem := rerrors.New(rerrors.Transport, "no transport adapter registered for protocol", "")
	require.Equal(t, "Transport: no transport adapter registered for protocol", withoutItem.Error())
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	wrapped := rerrors.Wrap(rerrors.CutParse, "unable to read cut file", "cut.json", cause)
	require.ErrorIs(t, wrapped, cause)
}

func TestIsMatchesByKindNotMessage(t *testing.T) {
	a := rerrors.New(rerrors.ValueMismatch, "live response did not match", "frame.json")
	b := rerrors.New(rerrors.ValueMismatch, "a different message entirely", "other.json")
	c := rerrors.New(rerrors.FrameParse, "live response did not match", "frame.json")

	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, c))
}

func TestSentinelAsComparisonTarget(t *testing.T) {
	err := fmt.Errorf("during take: %w", rerrors.New(rerrors.ValueMismatch, "mismatch", "x"))
	require.ErrorIs(t, err, rerrors.Sentinel(rerrors.ValueMismatch))
	require.False(t, errors.Is(err, rerrors.Sentinel(rerrors.Transport)))
}

func TestAsExtractsKindAndItem(t *testing.T) {
	err := rerrors.New(rerrors.DuplicateSequence, "duplicate frame sequence", "1")
	var target *rerrors.Error
	require.True(t, errors.As(err, &target))
	require.Equal(t, rerrors.DuplicateSequence, target.Kind)
	require.Equal(t, "1", target.Item)
}
