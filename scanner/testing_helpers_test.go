package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forensix/scancore/config"
	"github.com/forensix/scancore/feature"
	"github.com/forensix/scancore/scanner"
)

func newTestSet(t *testing.T) (*scanner.Set, *feature.Set, string) {
	set, fset, _, dir := newTestSetWithConfig(t)
	return set, fset, dir
}

func newTestSetWithConfig(t *testing.T) (*scanner.Set, *feature.Set, *config.Config, string) {
	dir := t.TempDir()
	fset, err := feature.NewSet(feature.Options{
		Outdir:        dir,
		HashAlgorithm: config.SHA1,
		Backend:       feature.NewFileBackend(dir),
	})
	require.NoError(t, err)

	cfg := config.New("in", dir)
	cfg.MaxDepth = 2
	cfg.MaxNgramSize = 64

	return scanner.NewSet(cfg, fset, nil), fset, cfg, dir
}

type fnScanner struct {
	info scanner.Info
	scan func(p *scanner.Params) error
}

func (f *fnScanner) Info() scanner.Info { return f.info }
func (f *fnScanner) Scan(p *scanner.Params) error {
	if f.scan == nil {
		return nil
	}
	return f.scan(p)
}
