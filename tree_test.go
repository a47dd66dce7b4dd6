package obtree_test

import (
	"hash/fnv"
	"math/rand"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obtree"
	"obtree/alloc"
)

// tag is a fixed-size, pointer-free stand-in for a short string: keys and
// values carved into allocator-owned memory must not carry a reference
// into the Go heap (see node's doc comment), so tests use this instead of
// a real string wherever a label is more readable than a bare int.
type tag [8]byte

func mkTag(s string) tag {
	var tg tag
	copy(tg[:], s)
	return tg
}

func TestAddGetRemove(t *testing.T) {
	tr := obtree.New[int, tag]()

	require.NoError(t, tr.Add(1, mkTag("one")))
	require.NoError(t, tr.Add(2, mkTag("two")))

	v, err := tr.Get(1)
	require.NoError(t, err)
	assert.Equal(t, mkTag("one"), v)

	require.NoError(t, tr.Remove(1))
	_, err = tr.Get(1)
	assert.ErrorIs(t, err, obtree.ErrKeyNotFound)

	v, err = tr.Get(2)
	require.NoError(t, err)
	assert.Equal(t, mkTag("two"), v)
}

func TestAddDuplicateKeyFails(t *testing.T) {
	tr := obtree.New[int, int]()
	require.NoError(t, tr.Add(5, 50))
	err := tr.Add(5, 500)
	assert.ErrorIs(t, err, obtree.ErrDuplicateKey)

	v, _ := tr.Get(5)
	assert.Equal(t, 50, v, "failed Add must not change the existing value")
}

func TestSetOverwrites(t *testing.T) {
	tr := obtree.New[int, int]()
	tr.Set(5, 50)
	tr.Set(5, 51)

	v, ok := tr.TryGet(5)
	require.True(t, ok)
	assert.Equal(t, 51, v)
	assert.Equal(t, 1, tr.Count())
}

func TestRemoveMissingKeyFails(t *testing.T) {
	tr := obtree.New[int, int]()
	err := tr.Remove(5)
	assert.ErrorIs(t, err, obtree.ErrKeyNotFound)
}

func TestContainsEntry(t *testing.T) {
	tr := obtree.New[int, tag]()
	tr.Set(1, mkTag("a"))

	assert.True(t, tr.Contains(1))
	assert.True(t, tr.ContainsEntry(1, mkTag("a")))
	assert.False(t, tr.ContainsEntry(1, mkTag("b")))
	assert.False(t, tr.Contains(2))
}

func TestClear(t *testing.T) {
	tr := obtree.New[int, int]()
	for i := 0; i < 100; i++ {
		tr.Set(i, i*i)
	}
	require.Equal(t, 100, tr.Count())

	tr.Clear()
	assert.True(t, tr.IsEmpty())
	assert.Equal(t, 0, tr.NodeCount(), "Clear must actually reset, not just report empty")
	_, ok := tr.TryGet(0)
	assert.False(t, ok)
}

func TestSequentialInsertSplitsAndValidates(t *testing.T) {
	tr := obtree.New[int, int](obtree.WithTargetNodeBytes[int, int](96))

	for i := 0; i < 2000; i++ {
		require.NoError(t, tr.Add(i, i*2))
	}
	require.NoError(t, tr.Validate())
	assert.Equal(t, 2000, tr.Count())
	assert.Greater(t, tr.NodeCount(), 1, "2000 entries at a 96-byte budget must not fit in one node")

	for i := 0; i < 2000; i++ {
		v, err := tr.Get(i)
		require.NoError(t, err)
		assert.Equal(t, i*2, v)
	}
}

func TestDescendingInsertSplitsAndValidates(t *testing.T) {
	tr := obtree.New[int, int](obtree.WithTargetNodeBytes[int, int](96))

	for i := 2000; i > 0; i-- {
		require.NoError(t, tr.Add(i, i))
	}
	require.NoError(t, tr.Validate())
	assert.Equal(t, 2000, tr.Count())
}

func TestRemovalShrinksAndValidates(t *testing.T) {
	tr := obtree.New[int, int](obtree.WithTargetNodeBytes[int, int](96))

	for i := 0; i < 2000; i++ {
		require.NoError(t, tr.Add(i, i))
	}
	for i := 0; i < 1900; i++ {
		require.NoError(t, tr.Remove(i))
		if i%137 == 0 {
			require.NoError(t, tr.Validate())
		}
	}
	require.NoError(t, tr.Validate())
	assert.Equal(t, 100, tr.Count())

	for i := 1900; i < 2000; i++ {
		_, err := tr.Get(i)
		assert.NoError(t, err)
	}
}

// TestInsertRedistributesBeforeSplitting pins down a specific sequence
// (nodeKV=3 at this byte budget, on a 64-bit int) where the second leaf
// fills up but its left sibling still has room: the insert must rotate an
// entry across the separator into that sibling rather than splitting.
func TestInsertRedistributesBeforeSplitting(t *testing.T) {
	tr := obtree.New[int, int](obtree.WithTargetNodeBytes[int, int](64))
	for i := 0; i < 6; i++ {
		require.NoError(t, tr.Add(i, i))
	}
	require.NoError(t, tr.Validate())
	assert.Equal(t, 6, tr.Count())
	assert.Equal(t, 3, tr.NodeCount(),
		"inserting past a full leaf with a non-full sibling must redistribute, not split")

	var keys []int
	tr.Enumerate(func(k, _ int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, keys)
}

func TestRandomInsertRemoveAgainstReferenceMap(t *testing.T) {
	tr := obtree.New[int, int](obtree.WithTargetNodeBytes[int, int](128))
	reference := make(map[int]int)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 5000; step++ {
		k := rng.Intn(500)
		if rng.Intn(3) == 0 {
			if _, present := reference[k]; present {
				require.NoError(t, tr.Remove(k))
				delete(reference, k)
			} else {
				assert.ErrorIs(t, tr.Remove(k), obtree.ErrKeyNotFound)
			}
			continue
		}
		v := rng.Int()
		tr.Set(k, v)
		reference[k] = v
	}

	require.NoError(t, tr.Validate())
	assert.Equal(t, len(reference), tr.Count())
	for k, v := range reference {
		got, err := tr.Get(k)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

// TestPropertyFixedWidthFixturesFromFaker exercises the same insert/remove
// property as TestRandomInsertRemoveAgainstReferenceMap, but draws its
// fixed-width key/value fixtures from go-faker instead of a raw math/rand
// loop: each fixture is a faker word hashed down to an int key paired with
// a faker word truncated into a tag value.
func TestPropertyFixedWidthFixturesFromFaker(t *testing.T) {
	tr := obtree.New[int, tag](obtree.WithTargetNodeBytes[int, tag](96))
	reference := make(map[int]tag)

	wordToKey := func(w string) int {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		return int(h.Sum32())
	}

	for i := 0; i < 300; i++ {
		k := wordToKey(faker.Word())
		v := mkTag(faker.Word())
		tr.Set(k, v)
		reference[k] = v
	}

	require.NoError(t, tr.Validate())
	assert.Equal(t, len(reference), tr.Count())

	for k, v := range reference {
		got, err := tr.Get(k)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	removed := 0
	for k := range reference {
		if removed >= len(reference)/2 {
			break
		}
		require.NoError(t, tr.Remove(k))
		delete(reference, k)
		removed++
	}
	require.NoError(t, tr.Validate())
	assert.Equal(t, len(reference), tr.Count())
}

func TestCopyToAndFrom(t *testing.T) {
	src := obtree.New[int, tag]()
	src.Set(1, mkTag("one"))
	src.Set(2, mkTag("two"))

	dst := obtree.New[int, tag]()
	dst.Set(1, mkTag("stale"))
	src.CopyTo(dst)

	v, _ := dst.Get(1)
	assert.Equal(t, mkTag("one"), v)
	v, _ = dst.Get(2)
	assert.Equal(t, mkTag("two"), v)

	fromMap := obtree.From(map[int]tag{3: mkTag("three"), 4: mkTag("four")})
	assert.Equal(t, 2, fromMap.Count())
	v, _ = fromMap.Get(4)
	assert.Equal(t, mkTag("four"), v)
}

func TestFingerprintMatchesEqualContentDiffersOtherwise(t *testing.T) {
	a := obtree.New[int, int]()
	b := obtree.New[int, int]()
	for i := 0; i < 50; i++ {
		a.Set(i, i*3)
		b.Set(49-i, (49-i)*3) // inserted in reverse order, same final contents
	}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Set(0, 999)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestWithSlabAllocator(t *testing.T) {
	sa := alloc.NewSlabAllocator(alloc.WithItemsPerSlab(64))
	tr := obtree.New[int, int](obtree.WithAllocator[int, int](sa), obtree.WithTargetNodeBytes[int, int](96))

	for i := 0; i < 1000; i++ {
		require.NoError(t, tr.Add(i, i))
	}
	require.NoError(t, tr.Validate())

	for i := 0; i < 1000; i++ {
		require.NoError(t, tr.Remove(i))
	}
	require.NoError(t, tr.Validate())
	assert.True(t, tr.IsEmpty())
}

type reverseKey int

func TestNewWithComparator(t *testing.T) {
	reverse := obtree.Comparator[reverseKey]{
		Eq: func(a, b reverseKey) bool { return a == b },
		Lt: func(a, b reverseKey) bool { return a > b },
		Gt: func(a, b reverseKey) bool { return a < b },
	}
	tr := obtree.NewWithComparator[reverseKey, int](reverse)

	tr.Set(1, 1)
	tr.Set(2, 2)
	tr.Set(3, 3)

	var keys []reverseKey
	tr.Enumerate(func(k reverseKey, _ int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []reverseKey{3, 2, 1}, keys, "Enumerate must respect the injected reverse order")
}
