package manager

import (
	"github.com/google/uuid"

	"github.com/fernsearch/fern/manager/task"
	"github.com/fernsearch/fern/snapshot"
)

// SnapshotExport enqueues an asynchronous export of tenant's on-disk
// directory to a local tar.gz at destPath, returning a task ID to poll via
// TaskStatus. Exporting runs against the directory as it stands when the
// background job starts; it does not pause the tenant's writer.
func (m *Manager) SnapshotExport(tenant, destPath string) (string, error) {
	ts, err := m.getTenant(tenant)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := m.tasks.Submit(id, func() error {
		return snapshot.Export(ts.dir, destPath)
	}); err != nil {
		return "", err
	}
	return id, nil
}

// SnapshotImport enqueues an asynchronous import of a tar.gz archive
// (produced by SnapshotExport) into a fresh tenant directory. The tenant
// must not already exist; the next reference to it after the task
// succeeds lazily reopens the restored index and oplog.
func (m *Manager) SnapshotImport(tenant, srcPath string) (string, error) {
	dir := m.tenantDir(tenant)
	id := uuid.NewString()
	if err := m.tasks.Submit(id, func() error {
		return snapshot.Import(srcPath, dir)
	}); err != nil {
		return "", err
	}
	return id, nil
}

// TaskStatus polls the outcome of a SnapshotExport/SnapshotImport task.
func (m *Manager) TaskStatus(taskID string) (task.Info, bool) {
	return m.tasks.Status(taskID)
}
