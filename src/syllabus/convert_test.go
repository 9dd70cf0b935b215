package syllabus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertRoundTrip(t *testing.T) {
	pub := &Record{ID: 7, CourseID: 3, Kind: KindPublic, AccessLevel: AccessPublic, IsPreview: true}

	priv, err := Convert(Records{Public: pub}, KindPublic)
	require.NoError(t, err)
	assert.Equal(t, KindPrivate, priv.Kind)
	assert.Equal(t, AccessPrivate, priv.AccessLevel)
	assert.False(t, priv.IsPreview)
	assert.Equal(t, 7, priv.ID)

	// the input is untouched
	assert.Equal(t, KindPublic, pub.Kind)
	assert.Equal(t, AccessPublic, pub.AccessLevel)

	back, err := Convert(Records{Private: priv}, KindPrivate)
	require.NoError(t, err)
	assert.Equal(t, KindPublic, back.Kind)
	assert.Equal(t, AccessLoggedIn, back.AccessLevel, "converting to public must require login")
}

func TestConvertAmbiguous(t *testing.T) {
	both := Records{
		Public:  &Record{Kind: KindPublic, AccessLevel: AccessPublic},
		Private: &Record{Kind: KindPrivate, AccessLevel: AccessPrivate},
	}

	for _, k := range []Kind{KindPublic, KindPrivate} {
		_, err := Convert(both, k)
		assert.ErrorIs(t, err, ErrAmbiguousConversion)
	}
}

func TestConvertMissing(t *testing.T) {
	_, err := Convert(Records{}, KindPublic)
	assert.ErrorIs(t, err, ErrNoSuchSyllabus)

	_, err = Convert(Records{Public: &Record{Kind: KindPublic, AccessLevel: AccessPublic}}, KindPrivate)
	assert.ErrorIs(t, err, ErrNoSuchSyllabus)

	_, err = Convert(Records{Private: &Record{Kind: KindPrivate, AccessLevel: AccessPrivate}}, Kind("bogus"))
	assert.ErrorIs(t, err, ErrNoSuchSyllabus)
}
