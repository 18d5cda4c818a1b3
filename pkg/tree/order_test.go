package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalOrder(t *testing.T) {
	o := NaturalOrder()
	seg := func(label string, k Kind) Segment { return Segment{Label: label, Kind: k} }

	tests := []struct {
		name string
		a, b Segment
		want int // sign
	}{
		{"numeric", seg("file2", File), seg("file10", File), -1},
		{"case insensitive", seg("apple", File), seg("Banana", File), -1},
		{"case tie break", seg("Readme", File), seg("readme", File), -1},
		{"file after folder", seg("src", File), seg("src", Folder), 1},
		{"node matches either", seg("src", Node), seg("src", File), 0},
		{"equal", seg("a", Folder), seg("a", Folder), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sign(o.Compare(tt.a, tt.b)))
			assert.Equal(t, -tt.want, sign(o.Compare(tt.b, tt.a)))
		})
	}
	assert.False(t, o.KindSensitive())
}

func TestFoldersFirst(t *testing.T) {
	o := FoldersFirst()
	assert.Negative(t, o.Compare(Segment{"zeta", Folder}, Segment{"alpha", File}))
	assert.Negative(t, o.Compare(Segment{"alpha", File}, Segment{"beta", File}))
	assert.True(t, o.KindSensitive())
}

func TestComparePaths(t *testing.T) {
	o := NaturalOrder()
	a := PathOf(Folder, "a")
	ab := PathOf(File, "a", "b")
	ac := PathOf(File, "a", "c")
	d := PathOf(File, "d")

	assert.Negative(t, ComparePaths(o, a, ab), "ancestor first")
	assert.Positive(t, ComparePaths(o, ab, a))
	assert.Negative(t, ComparePaths(o, ab, ac))
	assert.Negative(t, ComparePaths(o, ac, d), "a subtree sorts before the next sibling")
	assert.Zero(t, ComparePaths(o, ab, PathOf(Node, "a", "b")))
}

func TestPathOf(t *testing.T) {
	assert.Equal(t, []Segment{{"src", Folder}, {"main.go", File}}, PathOf(File, "src", "main.go"))
	assert.Empty(t, PathOf(File))
	assert.Equal(t, []string{"src", "main.go"}, Labels(PathOf(File, "src", "main.go")))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
