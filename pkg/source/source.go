// Package source opens the payload of a write: standard input, a local file
// or an object in S3 compatible storage.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lambertxiao/go-fcp/pkg/storage"
	"github.com/lambertxiao/go-fcp/pkg/types"
)

var ErrNoStorage = errors.New("object storage is not configured")

type Opener struct {
	Stdin   io.Reader
	Storage storage.Storage
}

func NewOpener(sto storage.Storage) *Opener {
	return &Opener{
		Stdin:   os.Stdin,
		Storage: sto,
	}
}

// ParseS3 splits s3://bucket/key. ok is false for other paths.
func ParseS3(path string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(path, types.S3Scheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(path, types.S3Scheme)
	i := strings.IndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// Size reports the payload length. known is false for standard input.
func (o *Opener) Size(path string) (size int64, known bool, err error) {
	if path == types.StdinPath {
		return 0, false, nil
	}

	if strings.HasPrefix(path, types.S3Scheme) {
		bucket, key, err := o.s3(path)
		if err != nil {
			return 0, false, err
		}
		reply, err := o.Storage.HeadFile(&storage.HeadFileRequest{Bucket: bucket, Key: key})
		if err != nil {
			return 0, false, fmt.Errorf("head %s: %w", path, err)
		}
		return int64(reply.Info.Size), true, nil
	}

	st, err := os.Stat(path)
	if err != nil {
		return 0, false, err
	}
	if !st.Mode().IsRegular() {
		return 0, false, nil
	}
	return st.Size(), true, nil
}

// Open returns the payload stream. Closing the stream of standard input
// leaves standard input open.
func (o *Opener) Open(path string) (io.ReadCloser, error) {
	if path == types.StdinPath {
		return io.NopCloser(o.Stdin), nil
	}

	if strings.HasPrefix(path, types.S3Scheme) {
		bucket, key, err := o.s3(path)
		if err != nil {
			return nil, err
		}
		reply, err := o.Storage.GetFile(&storage.GetFileRequest{Bucket: bucket, Key: key})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", path, err)
		}
		return reply.Body, nil
	}

	return os.Open(path)
}

func (o *Opener) s3(path string) (string, string, error) {
	bucket, key, ok := ParseS3(path)
	if !ok {
		return "", "", fmt.Errorf("invalid object url '%s'", path)
	}
	if o.Storage == nil {
		return "", "", fmt.Errorf("%s: %w", path, ErrNoStorage)
	}
	return bucket, key, nil
}
