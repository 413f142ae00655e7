package httpapi

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/snapshot"
)

// handleSnapshotExport packages tenant's on-disk directory into a
// gzip-compressed tarball and streams it back as the response body.
func (s *Server) handleSnapshotExport(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	dir, err := s.mgr.TenantDir(tenant)
	if err != nil {
		writeError(w, err)
		return
	}

	tmp, err := os.CreateTemp("", "fern-snapshot-export-*.tar.gz")
	if err != nil {
		writeError(w, ferrors.Wrap(ferrors.KindIO, "create snapshot temp file", err))
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := snapshot.Export(dir, tmpPath); err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		writeError(w, ferrors.Wrap(ferrors.KindIO, "open snapshot archive", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", "attachment; filename="+tenant+".tar.gz")
	http.ServeContent(w, r, tenant+".tar.gz", time.Time{}, f)
}

// handleSnapshotImport reads a gzip-compressed tarball from the request
// body and extracts it as a brand-new tenant directory; the tenant must
// not already exist. The newly written tenant is picked up lazily by
// Manager's next reference to it, exactly as a tenant created by a prior
// process would be.
func (s *Server) handleSnapshotImport(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")

	tmp, err := os.CreateTemp("", "fern-snapshot-import-*.tar.gz")
	if err != nil {
		writeError(w, ferrors.Wrap(ferrors.KindIO, "create snapshot temp file", err))
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r.Body); err != nil {
		tmp.Close()
		writeError(w, ferrors.Wrap(ferrors.KindIO, "buffer snapshot upload", err))
		return
	}
	tmp.Close()
	r.Body.Close()

	destDir, err := s.mgr.NewTenantDir(tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := snapshot.Import(tmpPath, destDir); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
