package sbuf_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forensix/scancore/pos0"
	"github.com/forensix/scancore/sbuf"
)

func TestTypedReads_LittleAndBigEndian(t *testing.T) {
	b := sbuf.FromString("\x01\x23\x45\x67\x89\xab\xcd\xef")

	u16, err := b.GetUint16(0, sbuf.LittleEndian)
	require.NoError(t, err)
	require.EqualValues(t, 0x2301, u16)

	u32, err := b.GetUint32(0, sbuf.LittleEndian)
	require.NoError(t, err)
	require.EqualValues(t, 0x67452301, u32)

	u32be, err := b.GetUint32(0, sbuf.BigEndian)
	require.NoError(t, err)
	require.EqualValues(t, 0x01234567, u32be)

	u64, err := b.GetUint64(0, sbuf.LittleEndian)
	require.NoError(t, err)
	require.EqualValues(t, uint64(0xefcdab8967452301), u64)
}

func TestTypedReads_RangeErrors(t *testing.T) {
	b := sbuf.FromString("ab")

	_, err := b.GetUint16(1, sbuf.LittleEndian)
	require.ErrorIs(t, err, sbuf.ErrRange)

	_, err = b.GetUint32(0, sbuf.LittleEndian)
	require.ErrorIs(t, err, sbuf.ErrRange)

	_, err = b.GetUint8(2)
	require.ErrorIs(t, err, sbuf.ErrRange)
}

func TestAt_NeverFails(t *testing.T) {
	b := sbuf.FromString("ab")
	require.Equal(t, byte('a'), b.At(0))
	require.Equal(t, byte(0), b.At(99))
	require.Equal(t, byte(0), b.At(-1))
}

func TestChild_AdvancesPositionAndShrinksPage(t *testing.T) {
	root, err := sbuf.NewRoot(pos0.New("1000-ZIP", 0), []byte("0123456789"), 6, nil)
	require.NoError(t, err)
	defer root.Close()

	child, err := root.Child(4)
	require.NoError(t, err)
	defer child.Close()

	require.Equal(t, int64(4), child.Pos0().Offset())
	require.Equal(t, 6, child.BufSize()) // 10 - 4
	require.Equal(t, 2, child.PageSize()) // 6 - 4

	beyondPage, err := root.Child(8)
	require.NoError(t, err)
	defer beyondPage.Close()
	require.Equal(t, 0, beyondPage.PageSize(), "offset past page boundary leaves no page, only margin")
	require.Equal(t, 2, beyondPage.BufSize())
}

func TestChildRange_ClampsLength(t *testing.T) {
	root := sbuf.FromString("0123456789")
	defer root.Close()

	child, err := root.ChildRange(7, 100)
	require.NoError(t, err)
	defer child.Close()
	require.Equal(t, 3, child.BufSize(), "length must clamp to what remains")
}

func TestChildren_TracksLiveDescendants(t *testing.T) {
	root := sbuf.FromString("0123456789")
	require.EqualValues(t, 0, root.Children())

	c1, err := root.Child(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, root.Children())

	c2, err := root.Child(2)
	require.NoError(t, err)
	require.EqualValues(t, 2, root.Children())

	require.NoError(t, c1.Close())
	require.EqualValues(t, 1, root.Children())

	require.NoError(t, c2.Close())
	require.EqualValues(t, 0, root.Children())

	require.NoError(t, root.Close())
}

func TestClose_RootWithLiveChildrenLeaksRatherThanFreeing(t *testing.T) {
	disposed := false
	root, err := sbuf.NewRoot(pos0.Top(), []byte("0123456789"), 10, func() error {
		disposed = true
		return nil
	})
	require.NoError(t, err)

	child, err := root.Child(2)
	require.NoError(t, err)

	err = root.Close()
	require.Error(t, err, "closing a root with live children must fail rather than free memory")
	require.False(t, disposed)

	require.NoError(t, child.Close())
}

func TestClose_RootDisposesOnceChildrenDrop(t *testing.T) {
	disposed := 0
	root, err := sbuf.NewRoot(pos0.Top(), []byte("0123456789"), 10, func() error {
		disposed++
		return nil
	})
	require.NoError(t, err)

	child, err := root.Child(2)
	require.NoError(t, err)
	require.NoError(t, child.Close())

	require.NoError(t, root.Close())
	require.Equal(t, 1, disposed)

	require.NoError(t, root.Close(), "closing twice must be a no-op")
	require.Equal(t, 1, disposed)
}

func TestFind(t *testing.T) {
	b := sbuf.FromString("hello world")
	require.Equal(t, 6, b.Find('w', 0))
	require.Equal(t, -1, b.Find('z', 0))
	require.Equal(t, 6, b.FindBytes([]byte("world"), 0))
	require.Equal(t, -1, b.FindBytes([]byte("World"), 0))
}

func TestSubstrAndWindow(t *testing.T) {
	b := sbuf.FromString("hello world")
	got, err := b.Substr(6, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), got)

	_, err = b.Substr(6, 100)
	require.Error(t, err)

	win, ok := b.Window(0, 5)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), win)

	_, ok = b.Window(0, 100)
	require.False(t, ok)
}

func TestIsConstant(t *testing.T) {
	b := sbuf.FromString("aaaaabbbbb")
	require.True(t, b.IsConstant(0, 5, 'a'))
	require.False(t, b.IsConstant(0, 10, 'a'))
	require.False(t, b.IsConstant(8, 100, 'b'))
}

func TestGetLine_StaysWithinPage(t *testing.T) {
	root, err := sbuf.NewRoot(pos0.Top(), []byte("one\ntwo\nthree-in-margin\n"), 8, nil)
	require.NoError(t, err)
	defer root.Close()

	start, length, next, ok := root.GetLine(0)
	require.True(t, ok)
	require.Equal(t, 0, start)
	require.Equal(t, 3, length)
	require.Equal(t, []byte("one"), must(root.Substr(start, length)))

	start, length, next, ok = root.GetLine(next)
	require.True(t, ok)
	require.Equal(t, []byte("two"), must(root.Substr(start, length)))

	// The third line's newline lives in the margin (pagesize=8), so no
	// further line is reported even though the bytes exist in BufSize.
	_, _, _, ok = root.GetLine(next)
	require.False(t, ok)
}

func must(b []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return b
}

func TestFindNgramSize(t *testing.T) {
	repeated := sbuf.FromString(string(bytes.Repeat([]byte{0x41}, 1024)))
	require.Equal(t, 1, repeated.FindNgramSize(64))

	ab := sbuf.FromString(string(bytes.Repeat([]byte("ab"), 512)))
	require.Equal(t, 2, ab.FindNgramSize(64))

	random := sbuf.FromString("the quick brown fox jumps over the lazy dog, a pangram")
	require.Equal(t, 0, random.FindNgramSize(8))
}

func TestHash_Memoizes(t *testing.T) {
	b := sbuf.FromString("hello world")
	h1 := b.Hash()
	h2 := b.Hash()
	require.Equal(t, h1, h2)
	require.Len(t, h1, 40) // hex SHA1
}

func TestHash_DiffersByContent(t *testing.T) {
	a := sbuf.FromString("hello")
	b := sbuf.FromString("world")
	require.NotEqual(t, a.Hash(), b.Hash())
}
