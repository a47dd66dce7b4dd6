package obtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obtree"
)

func seeded(t *testing.T, n int) *obtree.Tree[int, int] {
	t.Helper()
	tr := obtree.New[int, int](obtree.WithTargetNodeBytes[int, int](96))
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Add(i, i*10))
	}
	return tr
}

func TestCursorBeginEndForwardBackward(t *testing.T) {
	tr := seeded(t, 300)

	c := tr.Begin()
	require.True(t, c.Valid())
	assert.Equal(t, 0, c.Key())

	count := 0
	for c.Valid() {
		assert.Equal(t, count, c.Key())
		count++
		c.Next()
	}
	assert.Equal(t, 300, count)

	c = tr.Begin()
	c.Prev()
	assert.False(t, c.Valid(), "stepping before Begin must invalidate the cursor")
}

func TestCursorEndBackwardToBegin(t *testing.T) {
	tr := seeded(t, 300)

	c := tr.End()
	assert.False(t, c.Valid(), "End is one past the last entry")

	c.Prev()
	require.True(t, c.Valid(), "End must step back onto the last entry")
	assert.Equal(t, 299, c.Key())

	count := 1
	for c.Key() != 0 {
		c.Prev()
		require.True(t, c.Valid())
		count++
	}
	assert.Equal(t, 300, count)

	c.Prev()
	assert.False(t, c.Valid(), "stepping before Begin must invalidate the cursor")
}

func TestCursorLowerUpperBound(t *testing.T) {
	tr := obtree.New[int, int]()
	for _, k := range []int{10, 20, 30, 40, 50} {
		tr.Set(k, k)
	}

	c := tr.LowerBound(25)
	require.True(t, c.Valid())
	assert.Equal(t, 30, c.Key())

	c = tr.LowerBound(30)
	require.True(t, c.Valid())
	assert.Equal(t, 30, c.Key())

	c = tr.UpperBound(30)
	require.True(t, c.Valid())
	assert.Equal(t, 40, c.Key())

	c = tr.LowerBound(100)
	assert.False(t, c.Valid())
}

func TestCursorSetValue(t *testing.T) {
	tr := obtree.New[int, int]()
	tr.Set(1, 100)

	c := tr.LowerBound(1)
	require.True(t, c.Valid())
	require.NoError(t, c.SetValue(200))

	v, _ := tr.Get(1)
	assert.Equal(t, 200, v)

	end := tr.End()
	assert.ErrorIs(t, end.SetValue(1), obtree.ErrInvalidCursor)
}

func TestRangeIncludesBothEndpoints(t *testing.T) {
	tr := seeded(t, 100)

	r, err := tr.Range(10, 20)
	require.NoError(t, err)

	var got []int
	for r.Next() {
		got = append(got, r.Key())
	}
	expected := []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	assert.Equal(t, expected, got)
}

func TestRangeSingleKeyYieldsOneResultWhenPresent(t *testing.T) {
	tr := seeded(t, 50)

	r, err := tr.Range(7, 7)
	require.NoError(t, err)

	var got []int
	for r.Next() {
		got = append(got, r.Key())
	}
	assert.Equal(t, []int{7}, got)
}

func TestRangeSingleKeyYieldsNothingWhenAbsent(t *testing.T) {
	tr := obtree.New[int, int]()
	tr.Set(1, 1)
	tr.Set(3, 3)

	r, err := tr.Range(2, 2)
	require.NoError(t, err)
	assert.False(t, r.Next())
}

func TestRangeRejectsInvertedBounds(t *testing.T) {
	tr := seeded(t, 10)
	_, err := tr.Range(5, 1)
	assert.ErrorIs(t, err, obtree.ErrInvalidRange)
}

func TestRangeOverEntireTreeMatchesEnumerate(t *testing.T) {
	tr := seeded(t, 500)

	var enumerated []int
	tr.Enumerate(func(k, _ int) bool {
		enumerated = append(enumerated, k)
		return true
	})

	r, err := tr.Range(0, 499)
	require.NoError(t, err)
	var ranged []int
	for r.Next() {
		ranged = append(ranged, r.Key())
	}
	assert.Equal(t, enumerated, ranged)
}
