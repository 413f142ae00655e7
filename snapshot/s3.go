package snapshot

import (
	"context"
	"fmt"
	"os"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/libaf/s3"
)

// Config names the bucket a tenant's snapshots are stored under. Every
// tenant's snapshots live under the shared "snapshots/{tenant}/" prefix, key
// ed by an upload timestamp, so retention can list-and-trim per tenant.
type Config struct {
	Bucket string
}

// ConfigFromEnv reads FERN_S3_BUCKET; it returns (Config{}, false) when
// unset, meaning S3 upload is disabled and snapshots stay local-only.
func ConfigFromEnv() (Config, bool) {
	bucket := os.Getenv("FERN_S3_BUCKET")
	if bucket == "" {
		return Config{}, false
	}
	return Config{Bucket: bucket}, true
}

func snapshotPrefix(tenant string) string {
	return fmt.Sprintf("snapshots/%s/", tenant)
}

func snapshotKey(tenant, timestamp string) string {
	return fmt.Sprintf("snapshots/%s/%s.tar.gz", tenant, timestamp)
}

// UploadToS3 uploads a local snapshot archive under the tenant's prefix,
// naming the object with the given timestamp (expected RFC3339-ish,
// filesystem-safe), and returns the object key.
func UploadToS3(ctx context.Context, creds *s3.Credentials, cfg Config, tenant, timestamp, localPath string) (string, error) {
	key := snapshotKey(tenant, timestamp)
	if err := creds.UploadObject(ctx, cfg.Bucket, key, localPath); err != nil {
		return "", ferrors.Wrap(ferrors.KindIO, "upload snapshot to s3", err)
	}
	return key, nil
}

// DownloadFromS3 fetches a snapshot object to a local path.
func DownloadFromS3(ctx context.Context, creds *s3.Credentials, cfg Config, key, destPath string) error {
	if err := creds.DownloadObject(ctx, cfg.Bucket, key, destPath, nil); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "download snapshot from s3", err)
	}
	return nil
}

// LatestKey returns the most recently uploaded snapshot key for tenant, or
// ok=false if none exist.
func LatestKey(ctx context.Context, creds *s3.Credentials, cfg Config, tenant string) (key string, ok bool, err error) {
	keys, err := creds.ListObjectKeys(ctx, cfg.Bucket, snapshotPrefix(tenant))
	if err != nil {
		return "", false, ferrors.Wrap(ferrors.KindIO, "list snapshots", err)
	}
	if len(keys) == 0 {
		return "", false, nil
	}
	return keys[len(keys)-1], true, nil
}

// EnforceRetention keeps only the most recent `keep` snapshots for tenant,
// deleting the rest, and returns how many were deleted. Keys sort
// lexicographically by their timestamp component, so the oldest keys are
// always a prefix of the sorted list.
func EnforceRetention(ctx context.Context, creds *s3.Credentials, cfg Config, tenant string, keep int) (int, error) {
	keys, err := creds.ListObjectKeys(ctx, cfg.Bucket, snapshotPrefix(tenant))
	if err != nil {
		return 0, ferrors.Wrap(ferrors.KindIO, "list snapshots for retention", err)
	}
	if len(keys) <= keep {
		return 0, nil
	}
	toDelete := keys[:len(keys)-keep]
	for _, key := range toDelete {
		if err := creds.RemoveObject(ctx, cfg.Bucket, key); err != nil {
			return 0, ferrors.Wrap(ferrors.KindIO, "delete old snapshot", err)
		}
	}
	return len(toDelete), nil
}
