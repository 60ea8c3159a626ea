package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type StorageConf struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Retry     int
}

type FCPConfig struct {
	ModifiedTime  time.Time
	ConfigFile    string
	StorageConfig StorageConf

	Log_level       logrus.Level
	LogDir          string
	LogMaxAge       time.Duration
	LogRotationTime time.Duration
	Syslog          bool

	// Buffer is the default --buffer value, applied when the flag is absent.
	Buffer string

	MetricsFile string
}

var (
	fcpConfig *FCPConfig
	cfgLock   sync.RWMutex
)

func GetGConfig() *FCPConfig {
	cfgLock.RLock()
	defer cfgLock.RUnlock()

	return fcpConfig
}

func SetGConfig(cfg *FCPConfig) {
	cfgLock.Lock()
	defer cfgLock.Unlock()

	fcpConfig = cfg
}

// FileConfig is the optional yaml configuration file.
type FileConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Access_key      string `yaml:"access_key"`
	Secret_key      string `yaml:"secret_key"`
	Secure          bool   `yaml:"secure"`
	Retry           int    `yaml:"retry"`
	Log_level       string `yaml:"level"`
	LogDir          string `yaml:"log_dir"`
	LogMaxAge       string `yaml:"log_max_age"`
	LogRotationTime string `yaml:"log_rotation_time"`
	Syslog          bool   `yaml:"syslog"`
	Buffer          string `yaml:"buffer"`
	MetricsFile     string `yaml:"metrics_file"`
}

// LoadFile reads the yaml file at path. A missing file yields nil, nil when
// required is false.
func LoadFile(path string, required bool) (*FileConfig, time.Time, error) {
	y, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc FileConfig
	if err = yaml.UnmarshalStrict(y, &fc); err != nil {
		return nil, time.Time{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if (fc.Access_key == "") != (fc.Secret_key == "") {
		return nil, time.Time{}, fmt.Errorf("config file %s: access_key and secret_key go together", path)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &fc, fi.ModTime(), nil
}
