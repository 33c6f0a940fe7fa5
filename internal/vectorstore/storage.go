package vectorstore

import (
	"fmt"
	"time"

	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
	"lecturetutor/internal/vectorstore/flat"
	"lecturetutor/internal/vectorstore/qdrant"
)

// Create returns a fresh, empty index of the configured type.
func Create(cfg config.VectorStoreConfig, dimension int) (domain.VectorIndex, error) {
	switch cfg.Type {
	case "flat", "":
		return flat.New(dimension)
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.Create(qdrantConfig(cfg.Qdrant), dimension)
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// Open loads a previously saved index of the configured type from path.
func Open(cfg config.VectorStoreConfig, path string) (domain.VectorIndex, error) {
	switch cfg.Type {
	case "flat", "":
		return flat.Load(path)
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.Open(qdrantConfig(cfg.Qdrant), path)
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func qdrantConfig(c *config.QdrantConfig) qdrant.Config {
	return qdrant.Config{
		URL:        c.URL,
		APIKey:     c.APIKey,
		Collection: c.Collection,
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
	}
}
