package storage

//go:generate mockgen -destination=../mocks/mock_storage.go -package=mocks github.com/lambertxiao/go-fcp/pkg/storage Storage

import (
	"io"
	"time"
)

// Storage is the object store a write source can be fetched from.
type Storage interface {
	HeadFile(*HeadFileRequest) (*HeadFileReply, error)
	GetFile(*GetFileRequest) (*GetFileReply, error)
}

type ObjectInfo struct {
	Key   string
	Size  uint64
	Mtime time.Time
	Etag  string
}

type HeadFileRequest struct {
	Bucket string
	Key    string
}

type HeadFileReply struct {
	Info ObjectInfo
}

type GetFileRequest struct {
	Bucket string
	Key    string
}

type GetFileReply struct {
	Body io.ReadCloser
}
