package feature

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/forensix/scancore/pos0"
	"github.com/forensix/scancore/sbuf"
)

const notCarved = "not carved"
const cachedSentinel = "CACHED"

// Carve writes header followed by data bytes to external storage under
// this recorder's carve path, at most once per distinct content hash, and
// records an XML `<fileobject>` triple describing it. header and data are
// both views so the path they carry supplies the carve's pos0.
func (r *Recorder) Carve(header, data *sbuf.Buf, ext string, mtime time.Time) (string, error) {
	switch r.def.CarveMode {
	case CarveNone:
		return notCarved, nil
	case CarveEncoded:
		p := data.Pos0()
		if p.Path() == "" || p.AlphaPart() == r.def.DoNotCarveEncoding {
			return notCarved, nil
		}
	}

	h := r.set.hash(data.Bytes())

	r.carveMu.Lock()
	_, seen := r.carveCache[h]
	if !seen {
		r.carveCache[h] = struct{}{}
	}
	r.carveMu.Unlock()

	var relPath string
	if seen {
		relPath = cachedSentinel
	} else {
		seq := r.carvedFileCount.Add(1) - 1
		relPath = carvePath(r.def.Name, seq, data.Pos0(), ext)
		if err := r.set.carveStore.Write(relPath, header.Bytes(), data.Bytes(), mtime); err != nil {
			return "", fmt.Errorf("feature: carve: %w", err)
		}
	}

	ctx := carveXML(relPath, len(data.Bytes()), h, string(r.set.hashAlgorithm), seen)
	if err := r.Write(data.Pos0(), relPath, ctx); err != nil {
		return "", err
	}
	return relPath, nil
}

func carvePath(recorderName string, seq int64, p pos0.Position, ext string) string {
	shard := fmt.Sprintf("%03d", seq/1000)
	base := validDosName(p.String())
	return filepath.Join(recorderName, shard, base+ext)
}

func carveXML(relPath string, size int, hash, algo string, cached bool) string {
	filename := ""
	if !cached {
		filename = fmt.Sprintf("<filename>%s</filename>", relPath)
	}
	return fmt.Sprintf("<fileobject>%s<filesize>%d</filesize><hashdigest type='%s'>%s</hashdigest></fileobject>", filename, size, algo, hash)
}
