package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/awa-ai/awadb/v1/schema"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps the snapshot as one zstd-compressed object.
type MinioStore struct {
	client *minio.Client
	bucket string
	object string

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewMinioStore connects to the object store and creates the bucket if it
// does not exist yet.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is empty")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists, bucket: %v, err: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	object := cfg.Object
	if object == "" {
		object = DefaultObjectName
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, object: object, enc: enc, dec: dec}, nil
}

func (s *MinioStore) Load(ctx context.Context) (*schema.Snapshot, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get snapshot object: %w", err)
	}
	defer obj.Close()

	compressed, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return schema.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("read snapshot object: %w", err)
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	return Unmarshal(data)
}

func (s *MinioStore) Save(ctx context.Context, snap *schema.Snapshot) error {
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	compressed := s.enc.EncodeAll(data, nil)
	_, err = s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(compressed), int64(len(compressed)),
		minio.PutObjectOptions{ContentType: "application/zstd"})
	if err != nil {
		return fmt.Errorf("put snapshot object: %w", err)
	}
	return nil
}

func (s *MinioStore) Close() error {
	s.dec.Close()
	return s.enc.Close()
}
