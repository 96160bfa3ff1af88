package pos0_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forensix/scancore/pos0"
)

func TestPosition_StringAndParse_RoundTrip(t *testing.T) {
	p := pos0.New("1000-HIBER-33423-ZIP", 445)
	require.Equal(t, "1000-HIBER-33423-ZIP-445", p.String())

	parsed, err := pos0.Parse(p.String())
	require.NoError(t, err)
	require.Equal(t, p, parsed)
}

func TestPosition_Top(t *testing.T) {
	require.Equal(t, "0", pos0.Top().String())
	require.Equal(t, 0, pos0.Top().Depth())
}

func TestPosition_Add(t *testing.T) {
	p := pos0.New("1000-ZIP", 10)
	shifted := p.Add(5)
	require.Equal(t, int64(15), shifted.Offset())
	require.Equal(t, "1000-ZIP", shifted.Path())
	require.Equal(t, int64(10), p.Offset(), "Add must not mutate the receiver")
}

func TestPosition_Depth(t *testing.T) {
	require.Equal(t, 0, pos0.New("", 0).Depth())
	require.Equal(t, 1, pos0.New("1000-ZIP", 0).Depth())
	require.Equal(t, 2, pos0.New("1000-HIBER-33423-ZIP", 0).Depth())
}

func TestPosition_AlphaPart(t *testing.T) {
	require.Equal(t, "ZIP", pos0.New("1000-HIBER-33423-ZIP", 0).AlphaPart())
	require.Equal(t, "", pos0.New("", 0).AlphaPart())
}

func TestPosition_Push(t *testing.T) {
	root := pos0.New("", 1000)
	child := root.Push("ZIP")
	require.Equal(t, "1000-ZIP", child.Path())
	require.Equal(t, int64(0), child.Offset())
	require.Equal(t, 1, child.Depth())

	grandchild := child.Add(33423).Push("GZ")
	require.Equal(t, "1000-ZIP-33423-GZ", grandchild.Path())
	require.Equal(t, 2, grandchild.Depth())
}

func TestParse_Errors(t *testing.T) {
	_, err := pos0.Parse("")
	require.Error(t, err)

	_, err = pos0.Parse("not-a-number")
	require.Error(t, err)
}
