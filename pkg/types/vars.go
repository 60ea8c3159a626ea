package types

import (
	"time"
)

var (
	GO_FCP_VERSION string
	GO_VERSION     string
	COMMIT_ID      string
	BUILD_TIME     string
)

const (
	// default value
	DEFAULT_RETRY             = 3
	DEFAULT_LOG_MAX_AGE       = 72 * time.Hour
	DEFAULT_LOG_ROTATION_TIME = 1 * time.Hour
	DEFAULT_LEVEL             = "warn"
	DEFAULT_CONFIG_FILE       = "/etc/go-fcp/go-fcp.yaml"
	DEFAULT_DST_TYPE          = "file"

	// StdinPath selects standard input as the write source.
	StdinPath = "-"

	// S3Scheme prefixes sources that live in object storage.
	S3Scheme = "s3://"
)
