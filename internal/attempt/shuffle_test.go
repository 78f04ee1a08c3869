package attempt

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShuffleDeterministicPermutation(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}

	a := Shuffle(in, 42)
	b := Shuffle(in, 42)
	assert.Equal(t, a, b)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, in, "input is not modified")

	sorted := append([]int(nil), a...)
	sort.Ints(sorted)
	assert.Equal(t, in, sorted)

	assert.Equal(t, Shuffle(in, 0), Shuffle(in, 1))
	assert.Empty(t, Shuffle([]int{}, 3))
	assert.Equal(t, []int{9}, Shuffle([]int{9}, 3))
}

func TestShuffleKnownSequence(t *testing.T) {
	// seed 1, three items:
	// v = 1*1664525 + 1013904223 = 1015568748; 1015568748 % 3 = 0 -> swap(2,0)
	// v = (1015568748*1664525 + 1013904223) mod 2^32 = 1586005467; % 2 = 1 -> swap(1,1)
	assert.Equal(t, []string{"c", "b", "a"}, Shuffle([]string{"a", "b", "c"}, 1))
}
