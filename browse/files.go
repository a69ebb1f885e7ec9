package browse

import (
	"net/http"
	"strings"

	"github.com/vpktool/vpk/errors"
	"github.com/vpktool/vpk/vpk"
)

// handleFile streams one file's content through File.ReadRange, the
// same primitive mount uses. Each request gets its own
// ArchiveCache, opened and closed within the handler (see Server's
// doc comment on the one-cache-per-request pattern).
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/files/")
	entry, err := s.pkg.Lookup(path)
	if err != nil {
		if errors.Is(errors.NoSuchEntry, err) {
			http.NotFound(w, r)
			return
		}
		httpError(w, err, http.StatusBadRequest)
		return
	}
	if !entry.IsFile() {
		httpError(w, errors.E("browse", errors.EntryNotADir, errors.Path(path)), http.StatusBadRequest)
		return
	}

	cache := vpk.NewArchiveCache(s.pkg.Dir, s.pkg.Prefix, vpk.ForReading)
	defer cache.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	const chunk = 256 * 1024
	offset := int64(0)
	for {
		data, err := entry.File.ReadRange(cache, offset, chunk)
		if err != nil {
			httpError(w, err, http.StatusInternalServerError)
			return
		}
		if len(data) == 0 {
			break
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		offset += int64(len(data))
		if int64(len(data)) < chunk {
			break
		}
	}
}
