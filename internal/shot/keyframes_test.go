package shot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleKeyframes(t *testing.T) {
	got, err := SampleKeyframes(Scene{10, 40}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 25, 40}, got)

	got, err = SampleKeyframes(Scene{10, 40}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 40}, got)

	got, err = SampleKeyframes(Scene{0, 4}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 4}, got)

	got, err = SampleKeyframes(Scene{7, 7}, DefaultKeyframes)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 7, 7}, got)
}

func TestSampleKeyframesBounds(t *testing.T) {
	for span := 0; span < 60; span++ {
		scene := Scene{Start: 5, End: 5 + span}
		for k := 2; k < 8; k++ {
			got, err := SampleKeyframes(scene, k)
			require.NoError(t, err)
			require.Len(t, got, k)
			assert.Equal(t, scene.Start, got[0])
			assert.Equal(t, scene.End, got[k-1])
			for i := 1; i < k; i++ {
				assert.LessOrEqual(t, got[i-1], got[i])
			}
		}
	}
}

func TestSampleKeyframesInvalid(t *testing.T) {
	_, err := SampleKeyframes(Scene{0, 10}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = SampleKeyframes(Scene{10, 0}, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
