package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/playlist2album/internal/api"
)

func TestTrackEdits(t *testing.T) {
	edits, err := trackEdits("3, 1,2", []string{"1=Intro (Live)", "2=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []api.TrackEdit{
		{ID: 3},
		{ID: 1, Title: "Intro (Live)"},
		{ID: 2, Title: "a=b"},
	}, edits)

	edits, err = trackEdits("", nil)
	require.NoError(t, err)
	assert.Nil(t, edits)

	_, err = trackEdits("1,x", nil)
	assert.Error(t, err)

	_, err = trackEdits("1", []string{"7=Missing"})
	assert.Error(t, err)

	_, err = trackEdits("1", []string{"no separator"})
	assert.Error(t, err)
}

func TestPrintManifest(t *testing.T) {
	var buf bytes.Buffer
	err := printManifest(&buf, &api.ManifestResponse{
		JobID:  "j1",
		Status: "ready",
		Tracks: []api.ManifestTrack{
			{ID: 1, Title: "One", Fetched: true},
			{ID: 2, Title: "Two", Error: "private video"},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Job j1 (ready)")
	assert.Contains(t, out, "One")
	assert.Contains(t, out, "failed: private video")
}
