package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/anoixa/image-helper/cache"
	"github.com/anoixa/image-helper/config"
	"github.com/anoixa/image-helper/database"
	"github.com/anoixa/image-helper/database/models"
	"github.com/anoixa/image-helper/database/repo/photos"
	"github.com/anoixa/image-helper/internal/field"
	"github.com/anoixa/image-helper/internal/worker"
	"github.com/anoixa/image-helper/storage"
	"github.com/anoixa/image-helper/utils"
)

// Container 依赖容器，管理存储、缓存、图片字段和数据库的生命周期
type Container struct {
	config     *config.Config
	db         *gorm.DB
	cache      cache.Provider
	storage    storage.Provider
	imageField *field.ImageField

	PhotosRepo *photos.Repository
}

// NewContainer 创建容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 按顺序初始化缓存、存储、图片字段和数据库
func (c *Container) Init() error {
	if err := c.InitStorage(); err != nil {
		return err
	}
	if err := c.InitDatabase(); err != nil {
		return err
	}
	return nil
}

// InitStorage 初始化缓存、存储和图片字段
func (c *Container) InitStorage() error {
	provider, err := cache.NewFromConfig(cache.Config{
		Type:          c.config.CacheType,
		RedisAddr:     c.config.CacheRedisAddr,
		RedisPassword: c.config.CacheRedisPassword,
		RedisDB:       c.config.CacheRedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cache = provider

	if err := storage.InitStorage(storageConfigs(c.config)); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	st, err := storage.Get(c.config.StorageType)
	if err != nil {
		return fmt.Errorf("default storage %q is unavailable: %w", c.config.StorageType, err)
	}
	if err := storage.SetDefault(c.config.StorageType); err != nil {
		return err
	}
	c.storage = storage.NewCachedProvider(st, c.cache, c.config.CacheMetaTTL)

	f, err := field.New(field.Options{
		UploadTo:        c.config.UploadTo,
		Size:            c.config.ImageSize,
		ThumbnailSize:   c.config.ThumbnailSize,
		ThumbnailSuffix: c.config.ThumbnailSuffix,
		Storage:         c.storage,
		Quality:         c.config.JPEGQuality,
		DeleteWithModel: c.config.DeleteWithModel,
	})
	if err != nil {
		return fmt.Errorf("invalid image field configuration: %w", err)
	}
	c.imageField = f
	models.SetPhotoImage(f)

	utils.Logger.Debug().
		Str("storage", st.Name()).
		Str("upload_to", c.config.UploadTo).
		Msg("image field initialized")
	return nil
}

// InitDatabase 连接数据库并迁移表结构
func (c *Container) InitDatabase() error {
	db, err := database.NewDB(c.config)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	c.db = db
	c.PhotosRepo = photos.NewRepository(db)
	utils.Logger.Debug().Str("type", c.config.DBType).Msg("database initialized")
	return nil
}

// storageConfigs 本地存储总是注册，MinIO 和 WebDAV 配置了地址才注册
func storageConfigs(cfg *config.Config) []storage.StorageConfig {
	configs := []storage.StorageConfig{{
		Name:         "local",
		Type:         "local",
		IsDefault:    cfg.StorageType == "local",
		LocalPath:    cfg.StorageLocalPath,
		LocalBaseURL: cfg.StorageLocalBaseURL,
	}}

	if cfg.MinioEndpoint != "" {
		configs = append(configs, storage.StorageConfig{
			Name:      "minio",
			Type:      "minio",
			IsDefault: cfg.StorageType == "minio",
			Minio: storage.MinioConfig{
				Endpoint:        cfg.MinioEndpoint,
				AccessKeyID:     cfg.MinioAccessKeyID,
				SecretAccessKey: cfg.MinioSecretAccessKey,
				BucketName:      cfg.MinioBucket,
				UseSSL:          cfg.MinioUseSSL,
				PublicURL:       cfg.MinioPublicURL,
			},
		})
	}

	if cfg.WebDAVURL != "" {
		configs = append(configs, storage.StorageConfig{
			Name:      "webdav",
			Type:      "webdav",
			IsDefault: cfg.StorageType == "webdav",
			WebDAV: storage.WebDAVConfig{
				URL:      cfg.WebDAVURL,
				Username: cfg.WebDAVUsername,
				Password: cfg.WebDAVPassword,
				RootPath: cfg.WebDAVRootPath,
				Timeout:  cfg.WebDAVTimeout,
			},
		})
	}
	return configs
}

// Regenerator 创建缩略图重建器
func (c *Container) Regenerator(onlyMissing, dryRun bool) *worker.Regenerator {
	return worker.NewRegenerator(c.imageField, c.PhotosRepo, worker.Options{
		Workers:     c.config.GetWorkerCount(),
		RPS:         c.config.RegenerateRPS,
		OnlyMissing: onlyMissing,
		DryRun:      dryRun,
	})
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Storage 获取图片字段使用的存储（带元数据缓存）
func (c *Container) Storage() storage.Provider {
	return c.storage
}

// ImageField 获取图片字段
func (c *Container) ImageField() *field.ImageField {
	return c.imageField
}

// Close 关闭所有服务
func (c *Container) Close() error {
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			utils.Logger.Warn().Err(err).Msg("error closing cache")
		}
	}
	if c.db != nil {
		if err := database.Close(c.db); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
