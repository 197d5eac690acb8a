package pose

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullFrame(vis float64) Frame {
	var lm [NumLandmarks]Landmark
	for i := range lm {
		lm[i] = Landmark{X: float64(i), Y: float64(i) * 2, Z: 0, Visibility: vis}
	}
	return NewFrame(lm, 1000)
}

func TestNewFrame_Confidence(t *testing.T) {
	f := fullFrame(0.8)
	assert.InDelta(t, 0.8, f.Confidence, 1e-12)
	assert.Equal(t, int64(1000), f.Timestamp)
}

func TestVisible(t *testing.T) {
	f := fullFrame(0.9)
	f.Landmarks[LeftKnee].Visibility = 0.5

	assert.True(t, f.Visible(DefaultVisibilityThreshold, LeftHip, LeftAnkle))
	assert.False(t, f.Visible(DefaultVisibilityThreshold, LeftHip, LeftKnee, LeftAnkle), "0.5 is not above the threshold")
	assert.False(t, f.Visible(DefaultVisibilityThreshold, -1))
	assert.False(t, f.Visible(DefaultVisibilityThreshold, NumLandmarks))
}

func TestVisibilityAndMidpoints(t *testing.T) {
	f := fullFrame(1)
	f.Landmarks[LeftHip].Visibility = 0.4
	assert.InDelta(t, 0.7, f.Visibility(LeftHip, RightHip), 1e-12)

	hm := f.HipMid()
	assert.InDelta(t, 23.5, hm.X, 1e-12)
	assert.InDelta(t, 47, hm.Y, 1e-12)

	sm := f.ShoulderMid()
	assert.InDelta(t, 11.5, sm.X, 1e-12)
}

func TestFrameReader(t *testing.T) {
	frames := []Frame{fullFrame(0.6), fullFrame(0.9)}
	frames[1].Timestamp = 2000

	var buf bytes.Buffer
	require.NoError(t, WriteFrames(&buf, frames))

	r := NewFrameReader(&buf)
	got1, err := r.Next()
	require.NoError(t, err)
	got2, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, r.Count())

	assert.Equal(t, frames[0], got1)
	assert.Equal(t, int64(2000), got2.Timestamp)
}

func TestFrameReader_FillsConfidence(t *testing.T) {
	r := NewFrameReader(strings.NewReader(`{"landmarks":[{"x":1,"y":2,"z":0,"visibility":0.66}],"timestamp":5}`))
	f, err := r.Next()
	require.NoError(t, err)
	assert.InDelta(t, 0.66/NumLandmarks, f.Confidence, 1e-12)
}

func TestFrameReader_Malformed(t *testing.T) {
	r := NewFrameReader(strings.NewReader(`{"landmarks": nope}`))
	_, err := r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode frame 0")
}
