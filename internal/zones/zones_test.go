package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
)

func TestSet_FirstContaining(t *testing.T) {
	s := Set{geom.Z(0, 0, 10), geom.Z(5, 0, 10), geom.Z(100, 100, 5)}

	i, ok := s.FirstContaining(geom.Pt(6, 0))
	require.True(t, ok)
	assert.Equal(t, 0, i, "overlapping zones: first in order wins")

	i, ok = s.FirstContaining(geom.Pt(14, 0))
	require.True(t, ok)
	assert.Equal(t, 1, i)

	i, ok = s.FirstContaining(geom.Pt(50, 50))
	assert.False(t, ok)
	assert.Equal(t, NoExclusion, i)

	_, ok = Set(nil).FirstContaining(geom.Pt(0, 0))
	assert.False(t, ok)
}

func TestSet_FirstBlocking_FirstMatchNotNearest(t *testing.T) {
	// The far zone is listed first; it must win over the nearer one.
	s := Set{geom.Z(150, 0, 10), geom.Z(50, 0, 10)}
	i, ok := s.FirstBlocking(geom.Pt(0, 0), geom.Pt(200, 0), 35)
	require.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = s.FirstBlocking(geom.Pt(0, 100), geom.Pt(200, 100), 35)
	assert.False(t, ok)
}

func TestSet_PointClear(t *testing.T) {
	s := Set{geom.Z(0, 0, 10), geom.Z(100, 0, 10)}

	// 21 m from zone 0: inside its 2.2x safety orbit.
	p := geom.Pt(21, 0)
	assert.False(t, s.PointClear(p, NoExclusion, 2.2))
	assert.True(t, s.PointClear(p, 0, 2.2), "excluded zone is ignored")
	assert.False(t, s.PointClear(p, 1, 2.2))

	assert.True(t, s.PointClear(geom.Pt(23, 0), 1, 2.2))
	// Exactly on the orbit counts as clear.
	assert.True(t, s.PointClear(geom.Pt(20, 0), 1, 2.0))
	assert.True(t, Set{}.PointClear(p, NoExclusion, 2.2))
}

func TestSet_PathClear(t *testing.T) {
	s := Set{geom.Z(50, 0, 10), geom.Z(50, 100, 10)}

	assert.False(t, s.PathClear(geom.Pt(0, 0), geom.Pt(100, 0), NoExclusion, 20))
	assert.True(t, s.PathClear(geom.Pt(0, 0), geom.Pt(100, 0), 0, 20))
	assert.False(t, s.PathClear(geom.Pt(0, 100), geom.Pt(100, 100), 0, 20))
}

func TestSet_ExclusionDoesNotMutate(t *testing.T) {
	s := Set{geom.Z(0, 0, 10), geom.Z(100, 0, 10)}
	before := append(Set(nil), s...)

	s.PointClear(geom.Pt(1, 1), 0, 2.2)
	s.PathClear(geom.Pt(-50, 0), geom.Pt(50, 0), 1, 20)

	assert.Equal(t, before, s)
}

func TestSet_Validate(t *testing.T) {
	assert.NoError(t, Set{}.Validate())
	assert.NoError(t, Set{geom.Z(0, 0, 1)}.Validate())

	err := Set{geom.Z(0, 0, 1), geom.Z(3, 3, 0)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zone 1")
}
