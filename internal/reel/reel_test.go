package reel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"reelrun/internal/reel"
	"reelrun/internal/rerrors"
)

func TestParseMetaFrameDecodesSequenceTypeAndCommand(t *testing.T) {
	mf, err := reel.ParseMetaFrame("/tmp/widgets.1s.getWidget.fr.json")
	require.NoError(t, err)
	require.Equal(t, "widgets", mf.ReelName)
	require.Equal(t, "getWidget", mf.Name)
	require.Equal(t, float64(1), mf.Sequence)
	require.Equal(t, reel.Success, mf.Type)
}

func TestParseMetaFrameAssignsDistinctCorrelationIDs(t *testing.T) {
	a, err := reel.ParseMetaFrame("/tmp/widgets.1s.getWidget.fr.json")
	require.NoError(t, err)
	b, err := reel.ParseMetaFrame("/tmp/widgets.2s.getWidget.fr.json")
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.NotEmpty(t, b.ID)
	require.NotEqual(t, a.ID, b.ID)
}

func TestParseMetaFrameDecimalSequence(t *testing.T) {
	mf, err := reel.ParseMetaFrame("/tmp/widgets.1_5e.getWidget.fr.json")
	require.NoError(t, err)
	require.Equal(t, 1.5, mf.Sequence)
	require.Equal(t, reel.Error, mf.Type)
}

func TestParseMetaFrameMatchesScenarioFilenameConvention(t *testing.T) {
	mf, err := reel.ParseMetaFrame("/tmp/u.01s.create.fr.json")
	require.NoError(t, err)
	require.Equal(t, "u", mf.ReelName)
	require.Equal(t, "create", mf.Name)
	require.Equal(t, float64(1), mf.Sequence)
	require.Equal(t, reel.Success, mf.Type)

	mf2, err := reel.ParseMetaFrame("/tmp/u.02s.read.fr.json")
	require.NoError(t, err)
	require.Equal(t, "u", mf2.ReelName)
	require.Equal(t, "read", mf2.Name)
	require.Equal(t, float64(2), mf2.Sequence)
}

func TestParseMetaFrameRejectsMissingSuffix(t *testing.T) {
	_, err := reel.ParseMetaFrame("/tmp/widgets.1s.getWidget.json")
	require.Error(t, err)
	var rerr *rerrors.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, rerrors.ReelParse, rerr.Kind)
}

func TestParseMetaFrameRejectsBadTypeCode(t *testing.T) {
	_, err := reel.ParseMetaFrame("/tmp/widgets.1x.getWidget.fr.json")
	require.Error(t, err)
}

func TestNewSortsAndDetectsDuplicateSequence(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"widgets.2s.getAll.fr.json",
		"widgets.1s.create.fr.json",
		"widgets.1s.duplicate.fr.json",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o644))
	}

	_, err := reel.New(dir, "widgets")
	require.Error(t, err)
	var rerr *rerrors.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, rerrors.DuplicateSequence, rerr.Kind)
}

func TestNewSortsFramesBySequence(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"widgets.2s.getAll.fr.json",
		"widgets.1s.create.fr.json",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o644))
	}

	rl, err := reel.New(dir, "widgets")
	require.NoError(t, err)
	require.Len(t, rl.Frames, 2)
	require.Equal(t, "create", rl.Frames[0].Name)
	require.Equal(t, "getAll", rl.Frames[1].Name)
}

func TestFilterRangeKeepsInclusiveWholeNumberRange(t *testing.T) {
	rl := &reel.Reel{Frames: []reel.MetaFrame{
		{Sequence: 1, Name: "a"},
		{Sequence: 2.5, Name: "b"},
		{Sequence: 3, Name: "c"},
	}}
	filtered := rl.FilterRange(2, 3)
	require.Len(t, filtered.Frames, 2)
	require.Equal(t, "b", filtered.Frames[0].Name)
	require.Equal(t, "c", filtered.Frames[1].Name)
}
