package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lambertxiao/go-fcp/pkg/config"
	"github.com/lambertxiao/go-fcp/pkg/logg"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
)

const RETRY_INTERVAL = 500 * time.Millisecond

type S3Storage struct {
	minioClient *minio.Core
	conf        config.StorageConf

	objectReqsHistogram *prometheus.HistogramVec
	objectDataBytes     *prometheus.CounterVec
}

func NewS3Storage(conf config.StorageConf, reg prometheus.Registerer) (*S3Storage, error) {
	if conf.Endpoint == "" {
		return nil, fmt.Errorf("object storage endpoint is not configured")
	}

	sto := &S3Storage{
		conf: conf,
	}
	if sto.conf.Retry <= 0 {
		sto.conf.Retry = 1
	}

	minioClient, err := minio.NewCore(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.Secure,
	})
	if err != nil {
		return nil, err
	}

	sto.minioClient = minioClient
	sto.initMetrics(reg)
	return sto, nil
}

func (u *S3Storage) initMetrics(reg prometheus.Registerer) {
	u.objectReqsHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "object_request_durations_histogram_seconds",
		Help:    "Object requests latency distributions.",
		Buckets: prometheus.ExponentialBuckets(0.01, 1.5, 25),
	}, []string{"method"})

	u.objectDataBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "object_request_data_bytes",
		Help: "Object requests size in bytes.",
	}, []string{"method"})

	if reg == nil {
		return
	}

	reg.MustRegister(u.objectReqsHistogram)
	reg.MustRegister(u.objectDataBytes)
}

func (u *S3Storage) HeadFile(req *HeadFileRequest) (*HeadFileReply, error) {
	st := time.Now()

	var obj minio.ObjectInfo
	err := u.make_request(func() (err error) {
		obj, err = u.minioClient.StatObject(context.Background(), req.Bucket, req.Key, minio.StatObjectOptions{})
		return err
	})
	if err != nil {
		return nil, err
	}

	u.objectReqsHistogram.WithLabelValues("HEAD").Observe(time.Since(st).Seconds())
	return &HeadFileReply{
		Info: ObjectInfo{
			Key:   obj.Key,
			Size:  uint64(obj.Size),
			Mtime: obj.LastModified,
			Etag:  obj.ETag,
		},
	}, nil
}

func (u *S3Storage) GetFile(req *GetFileRequest) (*GetFileReply, error) {
	st := time.Now()

	var reply *GetFileReply
	err := u.make_request(func() error {
		r, obj, _, err := u.minioClient.GetObject(
			context.Background(),
			req.Bucket,
			req.Key,
			minio.GetObjectOptions{},
		)
		if err != nil {
			return err
		}
		reply = &GetFileReply{Body: r}
		u.objectDataBytes.WithLabelValues("READ").Add(float64(obj.Size))
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.objectReqsHistogram.WithLabelValues("READ").Observe(time.Since(st).Seconds())
	return reply, nil
}

func (u *S3Storage) make_request(f func() error) error {
	var err error
	for i := 0; i < u.conf.Retry; i++ {
		if err = f(); err == nil {
			return nil
		}
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return err
		}
		if i+1 < u.conf.Retry {
			logg.Dlog.Errorf("object request error: %v; retry %d", err, i+1)
			time.Sleep(time.Duration(i+1) * RETRY_INTERVAL)
		}
	}
	return err
}
