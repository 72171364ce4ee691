package app

import (
	"log/slog"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/cache"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/config"
	"gorm.io/gorm"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Config).
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Config     *config.Config
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, cfg *config.Config) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Config:     cfg,
	}
}
