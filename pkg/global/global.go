package global

import (
	"time"
)

var (
	Version   = "0.1.0"
	BuildTime = "none"
	Verbose   = false

	DefaultModelsDir    = "models"
	DefaultCacheDir     = "cache"
	DefaultMaxCacheGB   = 4.0
	DefaultModel        = "tinyllama"
	DefaultCacheTTL     = 24 * time.Hour
	ManifestFilename    = "models.json"
	CacheIndexFilename  = "cache_index.json"
	ServerStartupWindow = 60 * time.Second
)
