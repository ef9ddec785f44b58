package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SENERGY-Platform/import-radolan/internal/domain"
)

// Config holds all service settings, populated from environment variables.
// The CONFIG variable carries the deployment-specific JSON document
// (EPSG, BBOXES, IMPORT_YEARS, PRODUCT) handed over by the platform.
type Config struct {
	KafkaBrokers []string
	KafkaTopic   string
	ImportID     string

	Product     domain.Product
	EPSG        int
	BBoxes      []domain.BoundingBox
	ImportYears []int

	DataDir     string
	DecoderCmd  string
	DeleteFiles bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

type configJSON struct {
	EPSG        *int                 `json:"EPSG"`
	BBoxes      []domain.BoundingBox `json:"BBOXES"`
	ImportYears []int                `json:"IMPORT_YEARS"`
	Product     string               `json:"PRODUCT"`
}

// Load reads configuration from environment variables, applying defaults
// where unset. Invalid products, malformed bounding boxes, and years before
// the product minimum are fatal here, before any network traffic.
func Load() (*Config, error) {
	cfg := &Config{
		KafkaBrokers:    splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "import-radolan-sf"),
		ImportID:        os.Getenv("IMPORT_ID"),
		EPSG:            4326,
		DataDir:         envOrDefault("DATA_DIR", os.TempDir()+string(os.PathSeparator)+"radolan"),
		DecoderCmd:      envOrDefault("DECODER_CMD", "radolan-decode"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: 10 * time.Second,
		DeleteFiles:     true,
	}

	if cfg.ImportID == "" {
		cfg.ImportID = uuid.NewString()
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
		}
		cfg.ShutdownTimeout = d
	}

	if v := os.Getenv("DELETE_FILES"); v != "" {
		cfg.DeleteFiles = v == "true"
	}

	var raw configJSON
	if v := os.Getenv("CONFIG"); v != "" {
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return nil, fmt.Errorf("invalid CONFIG: %w", err)
		}
	}
	if raw.EPSG != nil {
		cfg.EPSG = *raw.EPSG
	}
	cfg.BBoxes = raw.BBoxes
	cfg.ImportYears = raw.ImportYears

	product := domain.ProductSF
	if raw.Product != "" {
		var err error
		product, err = domain.ParseProduct(raw.Product)
		if err != nil {
			return nil, fmt.Errorf("invalid CONFIG: %w", err)
		}
	}
	cfg.Product = product

	minYear := product.Config().MinYear
	for _, year := range cfg.ImportYears {
		if year < minYear {
			return nil, fmt.Errorf("invalid CONFIG: year %d is before the first available year %d for product %s", year, minYear, product)
		}
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
