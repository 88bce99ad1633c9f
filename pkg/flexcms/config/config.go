// Package config loads server configuration and assembles a ready-to-use
// service from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/tendant/flex-cms/pkg/flexcms"
	"github.com/tendant/flex-cms/pkg/flexcms/render"
	"github.com/tendant/flex-cms/pkg/flexcms/repo/memory"
	repopg "github.com/tendant/flex-cms/pkg/flexcms/repo/postgres"
	"github.com/tendant/flex-cms/pkg/flexcms/schema"
	fsstorage "github.com/tendant/flex-cms/pkg/flexcms/storage/fs"
	memorystorage "github.com/tendant/flex-cms/pkg/flexcms/storage/memory"
	s3storage "github.com/tendant/flex-cms/pkg/flexcms/storage/s3"
	"github.com/tendant/flex-cms/pkg/flexcms/thumbs"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:             "8080",
		Environment:      "development",
		DatabaseType:     "memory",
		ContentTypesPath: "contenttypes.yaml",
		StorageType:      "memory",
		ThumbsPath:       "/thumbs",
		ListingRecords:   10,
		RecordsPerPage:   20,
		AcceptFileTypes:  []string{"twig", "html", "js", "css", "scss", "gif", "jpg", "jpeg", "png", "ico", "zip", "tgz", "txt", "md", "doc", "docx", "pdf", "epub", "xls", "xlsx", "ppt", "pptx", "mp3", "ogg", "wav", "m4a", "mp4", "m4v", "ogv", "wmv", "avi", "webm", "svg"},
	}
}

// ServerConfig represents server configuration for the flex-cms service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use
	// MigrateOnStart creates missing tables when the repository is built.
	MigrateOnStart bool

	// Content type schema
	ContentTypesPath string
	Locales          []string

	// Listing defaults applied when a content type does not set its own
	ListingRecords  int
	RecordsPerPage  int
	AcceptFileTypes []string

	// Media storage configuration
	StorageType string // "memory", "fs", "s3"
	Storage     map[string]interface{}

	// Thumbnail serving path
	ThumbsPath string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	if c.ContentTypesPath == "" {
		return errors.New("content types path is required")
	}
	switch c.StorageType {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
	return nil
}

// LoadSchema reads and parses the content types document. Non-fatal
// normalization warnings are logged, not returned as errors.
func (c *ServerConfig) LoadSchema(logger *slog.Logger) (*schema.Result, error) {
	data, err := os.ReadFile(c.ContentTypesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read content types: %w", err)
	}

	var doc schema.OrderedMap
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse content types yaml: %w", err)
	}

	parser := schema.NewParser(schema.Settings{
		ListingRecords:  c.ListingRecords,
		RecordsPerPage:  c.RecordsPerPage,
		AcceptFileTypes: c.AcceptFileTypes,
	}, c.Locales)

	result, err := parser.Parse(&doc)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		for _, w := range result.Warnings {
			logger.Warn("content type normalization dropped configuration",
				"content_type", w.ContentType, "field", w.Field, "reason", w.Reason)
		}
	}
	return result, nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(logger *slog.Logger) (flexcms.Service, error) {
	result, err := c.LoadSchema(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to build media storage: %w", err)
	}

	return flexcms.New(
		flexcms.WithRepository(repo),
		flexcms.WithSchema(result.Set, result.Warnings),
		flexcms.WithRenderer(render.NewRenderer()),
		flexcms.WithThumbnailer(thumbs.NewBuilder(c.ThumbsPath)),
		flexcms.WithMediaStore(store),
	)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (flexcms.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbschema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if dbschema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", dbschema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		repo := repopg.NewWithPool(pool)
		if c.MigrateOnStart {
			if err := repo.Migrate(context.Background()); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session.
func PingPostgres(databaseURL, dbschema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if dbschema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", dbschema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorage creates a MediaStore based on the configuration
func (c *ServerConfig) buildStorage() (flexcms.MediaStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(c.Storage, "base_dir", "./data/files"),
			URLPrefix: getString(c.Storage, "url_prefix", ""),
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(c.Storage, "region", "us-east-1"),
			Bucket:                 getString(c.Storage, "bucket", ""),
			AccessKeyID:            getString(c.Storage, "access_key_id", ""),
			SecretAccessKey:        getString(c.Storage, "secret_access_key", ""),
			Endpoint:               getString(c.Storage, "endpoint", ""),
			UsePathStyle:           getBool(c.Storage, "use_path_style", false),
			PresignDuration:        getInt(c.Storage, "presign_duration", 3600),
			CreateBucketIfNotExist: getBool(c.Storage, "create_bucket_if_not_exist", false),
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
