// Package fixtures loads test case payloads referenced by name from the
// assignments document. Payloads live either next to the configuration
// on disk or in a MinIO bucket shared by the CI runners.
package fixtures

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type Storage interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

func (s *LocalStorage) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fixture %s", name)
	}
	return data, nil
}

type MinioConfig struct {
	Url      string
	Login    string
	Password string
	Bucket   string
}

type MinioStorage struct {
	cl     *minio.Client
	Bucket string
}

func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Url, &minio.Options{
		Creds: credentials.NewStaticV4(cfg.Login, cfg.Password, ""),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create minio client")
	}
	return &MinioStorage{cl: client, Bucket: cfg.Bucket}, nil
}

func (s *MinioStorage) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.cl.GetObject(ctx, s.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch fixture %s", name)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fixture %s", name)
	}
	return data, nil
}
