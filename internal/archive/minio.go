package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shulebook/shulebook/internal/config"
	syncer "github.com/shulebook/shulebook/internal/sync"
)

// Archiver uploads run reports as JSON objects for audit retention. One
// object per run, keyed by run id.
type Archiver struct {
	client *minio.Client
	bucket string
}

// New creates an Archiver and ensures the bucket exists.
func New(cfg config.ArchiveConfig) (*Archiver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive config missing endpoint")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	a := &Archiver{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		// tolerate pre-existing buckets
		exist, xerr := mc.BucketExists(ctx, a.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return a, nil
}

// Put stores the report under sync-reports/<runID>.json and returns the key.
func (a *Archiver) Put(ctx context.Context, rep *syncer.Report) (string, error) {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	key := "sync-reports/" + rep.RunID + ".json"
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(b), int64(len(b)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("archive put %s: %w", key, err)
	}
	return key, nil
}
