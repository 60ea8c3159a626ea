package common

import (
	"errors"
	"sort"
	"sync"
)

const (
	KB = 1024
	MB = 1024 * 1024
)

// MMP hands out the chunk buffers used to stream payloads into partition
// entries. Chunk sizes follow the usual flash erase/page sizes.
var MMP = NewMultiMemPool()

var defaultChunks = []int64{
	512, 1 * KB, 2 * KB, 4 * KB, 8 * KB, 16 * KB, 32 * KB, 64 * KB, 128 * KB, 256 * KB, 512 * KB,
	1 * MB, 2 * MB, 4 * MB, 8 * MB, 16 * MB,
}

var errPoolType = errors.New("unexpected pool item type")

func NewMultiMemPool() *MultiMemPool {
	mmp := &MultiMemPool{}
	for _, v := range defaultChunks {
		mmp.Add(v)
	}
	return mmp
}

type MultiMemPool struct {
	pools []*MemPool
}

// Add registers a pool of chunkSize buffers, keeping pools ordered by size.
func (mmp *MultiMemPool) Add(chunkSize int64) {
	mmp.pools = append(mmp.pools, &MemPool{
		pool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, chunkSize)
			},
		},
		ChunkSize: chunkSize,
	})
	sort.Slice(mmp.pools, func(i, j int) bool {
		return mmp.pools[i].ChunkSize < mmp.pools[j].ChunkSize
	})
}

// Get returns the smallest pool whose chunks hold size bytes, or the largest
// pool when none does.
func (mmp *MultiMemPool) Get(size int64) *MemPool {
	for _, p := range mmp.pools {
		if size <= p.ChunkSize {
			return p
		}
	}
	return mmp.pools[len(mmp.pools)-1]
}

// GetData returns a buffer of at least size bytes. Requests above the largest
// chunk are allocated directly.
func (mmp *MultiMemPool) GetData(size int64) ([]byte, error) {
	p := mmp.Get(size)
	if p.ChunkSize < size {
		return make([]byte, size), nil
	}
	return p.Get()
}

// PutData returns a buffer obtained from GetData.
func (mmp *MultiMemPool) PutData(data []byte) {
	size := int64(cap(data))
	if p := mmp.Get(size); p.ChunkSize == size {
		p.Put(data[:size])
	}
}

type MemPool struct {
	pool      *sync.Pool
	ChunkSize int64
}

func (mp *MemPool) Get() ([]byte, error) {
	data, ok := mp.pool.Get().([]byte)
	if !ok {
		return nil, errPoolType
	}
	return data, nil
}

func (mp *MemPool) Put(buf []byte) {
	mp.pool.Put(buf)
}
