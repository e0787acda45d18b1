package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kabati/data/db/wardrobe.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kabati/data/indices/bleve"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kabati/data/models/mobilenet_v2_features.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1280
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 10
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 50
	}
	if cfg.Search.MaxIndexItems == 0 {
		cfg.Search.MaxIndexItems = 1000
	}
	if cfg.Search.MinMatches == 0 {
		cfg.Search.MinMatches = 3
	}
	if cfg.Search.ScorePrecision == 0 {
		cfg.Search.ScorePrecision = 4
	}
	if cfg.Import.Extensions == nil {
		cfg.Import.Extensions = []string{".jpg", ".jpeg", ".png"}
	}
}
