package feature

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forensix/scancore/histogram"
	"github.com/forensix/scancore/pos0"
	"github.com/forensix/scancore/sbuf"
)

func newTestSet(t *testing.T) (*Set, string) {
	dir := t.TempDir()
	set, err := NewSet(Options{
		Outdir:               dir,
		HashAlgorithm:        "sha1",
		ContextWindowDefault: 4,
		Backend:              NewFileBackend(dir),
	})
	require.NoError(t, err)
	return set, dir
}

func TestRecorder_Write_NoContextLineFormat(t *testing.T) {
	set, dir := newTestSet(t)
	r, err := set.CreateFeatureRecorder(Def{Name: "echo", NoContext: true})
	require.NoError(t, err)

	require.NoError(t, r.Write(pos0.New("", 0), "hit", ""))
	require.NoError(t, set.Shutdown())

	contents, err := os.ReadFile(filepath.Join(dir, "echo.txt"))
	require.NoError(t, err)
	require.Equal(t, "0\thit\t\n", string(contents))
}

func TestRecorder_Write_WithContext(t *testing.T) {
	set, dir := newTestSet(t)
	r, err := set.CreateFeatureRecorder(Def{Name: "url"})
	require.NoError(t, err)
	require.NoError(t, r.Write(pos0.New("", 10), "http://example.com", "...http://example.com..."))
	require.NoError(t, set.Shutdown())

	contents, err := os.ReadFile(filepath.Join(dir, "url.txt"))
	require.NoError(t, err)
	require.Equal(t, "10\thttp://example.com\t...http://example.com...\n", string(contents))
}

func TestRecorder_Write_DisabledSetDropsSilently(t *testing.T) {
	set, err := NewSet(Options{Outdir: "", Backend: NewFileBackend("")})
	require.NoError(t, err)
	r, err := set.CreateFeatureRecorder(Def{Name: "echo"})
	require.NoError(t, err)
	require.NoError(t, r.Write(pos0.New("", 0), "hit", ""))
	require.EqualValues(t, 0, r.FeaturesWritten())
}

func TestRecorder_Write_EmptyAfterQuotingDropped(t *testing.T) {
	set, _ := newTestSet(t)
	r, err := set.CreateFeatureRecorder(Def{Name: "x"})
	require.NoError(t, err)
	require.NoError(t, r.Write(pos0.New("", 0), "", ""))
	require.EqualValues(t, 0, r.FeaturesWritten())
}

func TestRecorder_Write_PedanticRejectsRawDelimiters(t *testing.T) {
	dir := t.TempDir()
	set, err := NewSet(Options{Outdir: dir, Pedantic: true, Backend: NewFileBackend(dir)})
	require.NoError(t, err)
	r, err := set.CreateFeatureRecorder(Def{Name: "x"})
	require.NoError(t, err)
	require.ErrorIs(t, r.Write(pos0.New("", 0), "bad\tfeature", ""), ErrPedantic)
}

func TestRecorder_HistogramAdd_ForbiddenAfterFirstWrite(t *testing.T) {
	set, _ := newTestSet(t)
	r, err := set.CreateFeatureRecorder(Def{Name: "x", NoContext: true})
	require.NoError(t, err)
	require.NoError(t, r.HistogramAdd(histogram.Def{Name: "all"}))
	require.NoError(t, r.Write(pos0.New("", 0), "v", ""))
	require.ErrorIs(t, r.HistogramAdd(histogram.Def{Name: "again"}), ErrHistogramAfterWrite)
}

func TestRecorder_StopList_DivertsFeatureAndCountsButNotHistogram(t *testing.T) {
	set, dir := newTestSet(t)
	_, err := set.CreateFeatureRecorder(Def{Name: "alerts", NoContext: true})
	require.NoError(t, err)
	stop, err := set.CreateFeatureRecorder(Def{Name: "stoplist", NoContext: true})
	require.NoError(t, err)
	url, err := set.CreateFeatureRecorder(Def{Name: "url", NoContext: true})
	require.NoError(t, err)
	require.NoError(t, url.HistogramAdd(histogram.Def{Name: "all"}))

	require.NoError(t, set.AttachStopList(&StopList{
		RecorderName: "stoplist",
		Match:        func(feature, context string) bool { return feature == "spam" },
	}))

	require.NoError(t, url.Write(pos0.New("", 0), "spam", ""))
	require.EqualValues(t, 1, url.FeaturesWritten())
	require.EqualValues(t, 0, url.Histogram("all").Len())
	require.EqualValues(t, 1, stop.FeaturesWritten())

	require.NoError(t, set.Shutdown())
	_, err = os.Stat(filepath.Join(dir, "url.txt"))
	require.True(t, os.IsNotExist(err), "url's own sink is never written for a stop-listed feature")

	stopContents, err := os.ReadFile(filepath.Join(dir, "stoplist.txt"))
	require.NoError(t, err)
	require.Equal(t, "0\tspam\t\n", string(stopContents))
}

func TestRecorder_StopList_NoStoplistFlagSkipsDiversion(t *testing.T) {
	set, dir := newTestSet(t)
	_, err := set.CreateFeatureRecorder(Def{Name: "alerts", NoContext: true})
	require.NoError(t, err)
	stop, err := set.CreateFeatureRecorder(Def{Name: "stoplist", NoContext: true})
	require.NoError(t, err)
	url, err := set.CreateFeatureRecorder(Def{Name: "url", NoContext: true, NoStoplist: true})
	require.NoError(t, err)

	require.NoError(t, set.AttachStopList(&StopList{
		RecorderName: "stoplist",
		Match:        func(feature, context string) bool { return feature == "spam" },
	}))

	require.NoError(t, url.Write(pos0.New("", 0), "spam", ""))
	require.EqualValues(t, 1, url.FeaturesWritten())
	require.EqualValues(t, 0, stop.FeaturesWritten())

	require.NoError(t, set.Shutdown())
	urlContents, err := os.ReadFile(filepath.Join(dir, "url.txt"))
	require.NoError(t, err)
	require.Equal(t, "0\tspam\t\n", string(urlContents), "NoStoplist recorder writes to its own sink even when the feature matches the stop-list")
}

func TestRecorder_WriteBuf_DropsMarginPositions(t *testing.T) {
	set, _ := newTestSet(t)
	r, err := set.CreateFeatureRecorder(Def{Name: "x", NoContext: true})
	require.NoError(t, err)

	data := []byte("0123456789margin")
	s, err := sbuf.NewRoot(pos0.Top(), data, 10, nil)
	require.NoError(t, err)

	require.NoError(t, r.WriteBuf(s, 12, 2))
	require.EqualValues(t, 0, r.FeaturesWritten())

	require.NoError(t, r.WriteBuf(s, 2, 2))
	require.EqualValues(t, 1, r.FeaturesWritten())
}

func TestRecorder_WriteBuf_ContextWindow(t *testing.T) {
	set, dir := newTestSet(t)
	r, err := set.CreateFeatureRecorder(Def{Name: "x"})
	require.NoError(t, err)

	data := []byte("0123456789")
	s := sbuf.FromString(string(data))

	require.NoError(t, r.WriteBuf(s, 5, 1))
	require.NoError(t, set.Shutdown())

	contents, err := os.ReadFile(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	require.Equal(t, "5\t5\t123456789\n", string(contents))
}
