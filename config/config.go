package config

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/anoixa/image-helper/internal/resize"
)

var (
	globalConfig Config
	once         sync.Once
	configFile   = ".env"
)

// Config 扁平化配置结构体
type Config struct {
	// 存储配置
	StorageType         string `mapstructure:"storage_type"`
	StorageLocalPath    string `mapstructure:"storage_local_path"`
	StorageLocalBaseURL string `mapstructure:"storage_local_base_url"`

	MinioEndpoint        string `mapstructure:"minio_endpoint"`
	MinioAccessKeyID     string `mapstructure:"minio_access_key_id"`
	MinioSecretAccessKey string `mapstructure:"minio_secret_access_key"`
	MinioBucket          string `mapstructure:"minio_bucket"`
	MinioUseSSL          bool   `mapstructure:"minio_use_ssl"`
	MinioPublicURL       string `mapstructure:"minio_public_url"`

	WebDAVURL      string        `mapstructure:"webdav_url"`
	WebDAVUsername string        `mapstructure:"webdav_username"`
	WebDAVPassword string        `mapstructure:"webdav_password"`
	WebDAVRootPath string        `mapstructure:"webdav_root_path"`
	WebDAVTimeout  time.Duration `mapstructure:"webdav_timeout"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 元数据缓存配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheMetaTTL       time.Duration `mapstructure:"cache_meta_ttl"`

	// 日志配置
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// 图片字段配置
	UploadTo        string            `mapstructure:"upload_to"`
	ImageSize       *resize.Directive `mapstructure:"image_size"`
	ThumbnailSize   *resize.Directive `mapstructure:"thumbnail_size"`
	ThumbnailSuffix string            `mapstructure:"thumbnail_suffix"`
	JPEGQuality     int               `mapstructure:"jpeg_quality"`
	DeleteWithModel bool              `mapstructure:"delete_with_model"`

	// Worker 配置
	WorkerCount   int     `mapstructure:"worker_count"`
	RegenerateRPS float64 `mapstructure:"regenerate_rps"`
}

// SetConfigFile 指定配置文件，需在 InitConfig 之前调用
func SetConfigFile(path string) {
	if path != "" {
		configFile = path
	}
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		cfg, err := Load(viper.GetViper(), configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: Unable to load config, %v\n", err)
			os.Exit(1)
		}
		globalConfig = *cfg
	})
}

func Get() *Config {
	return &globalConfig
}

// Load 从配置文件和环境变量加载配置
// 配置文件不存在时只使用默认值和环境变量
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "Info: config file not found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", file)
		}
	}

	// 允许用空环境变量关闭缩放，如 THUMBNAIL_SIZE=
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			StringToDirectiveHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// WorkerCount: -1 = 使用 CPU 线程数, 0 = 使用默认值 (max(2, CPU核心数)), >0 = 使用指定值
	switch {
	case cfg.WorkerCount < 0:
		cfg.WorkerCount = runtime.GOMAXPROCS(0)
	case cfg.WorkerCount == 0:
		cfg.WorkerCount = getCpus()
	}

	return &cfg, nil
}

// StringToDirectiveHookFunc 把 "220x150" / "220x150!" 解析为缩放指令，空字符串为 nil
func StringToDirectiveHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(&resize.Directive{}) && t != reflect.TypeOf(resize.Directive{}) {
			return data, nil
		}

		d, err := resize.ParseDirective(data.(string))
		if err != nil {
			return nil, err
		}
		if t.Kind() == reflect.Struct {
			if d == nil {
				return resize.Directive{}, nil
			}
			return *d, nil
		}
		return d, nil
	}
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 存储配置默认值
	v.SetDefault("storage_type", "local")
	v.SetDefault("storage_local_path", "./data/media")
	v.SetDefault("storage_local_base_url", "/media/")
	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key_id", "")
	v.SetDefault("minio_secret_access_key", "")
	v.SetDefault("minio_bucket", "images")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_public_url", "")
	v.SetDefault("webdav_url", "")
	v.SetDefault("webdav_username", "")
	v.SetDefault("webdav_password", "")
	v.SetDefault("webdav_root_path", "/")
	v.SetDefault("webdav_timeout", "30s")

	// 数据库配置默认值
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_username", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "image-helper")
	v.SetDefault("db_file_path", "")
	v.SetDefault("db_max_open_conns", 100)
	v.SetDefault("db_max_idle_conns", 25)
	v.SetDefault("db_conn_max_lifetime", 3600)

	// 缓存配置默认值
	v.SetDefault("cache_type", "memory")
	v.SetDefault("cache_redis_addr", "localhost:6379")
	v.SetDefault("cache_redis_password", "")
	v.SetDefault("cache_redis_db", 0)
	v.SetDefault("cache_meta_ttl", "10m")

	// 日志配置默认值
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	// 图片字段默认值，与示例模型一致
	v.SetDefault("upload_to", "sample_images")
	v.SetDefault("image_size", "220x150")
	v.SetDefault("thumbnail_size", "100x100")
	v.SetDefault("thumbnail_suffix", "-thumbnail")
	v.SetDefault("jpeg_quality", 85)
	v.SetDefault("delete_with_model", false)

	// Worker 配置默认值
	v.SetDefault("worker_count", 0) // 0 表示使用默认值
	v.SetDefault("regenerate_rps", 20.0)
}

// GetWorkerCount 返回 worker 数量
func (c *Config) GetWorkerCount() int {
	if c.WorkerCount <= 0 {
		return getCpus()
	}
	return c.WorkerCount
}

// getCpus 获取默认线程数量
func getCpus() int {
	n := runtime.GOMAXPROCS(0)
	if n < 2 {
		return 2
	}
	return n
}
