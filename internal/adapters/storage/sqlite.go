package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SQLiteAdapter owns the database handle and the audit log, the one
// repository that doesn't collide on a shared FindByID/Save method name
// with its siblings. LeaseRepository, CloudLocationRepository and
// ConfigRepository are implemented by the separate *Store types below so
// each can carry the interface's own FindByID/Save signature.
type SQLiteAdapter struct {
	db *gorm.DB
}

// LeaseModel is the GORM model for leases. Identity is the composite
// (agency, lease_number) pair; LADE never creates these rows itself, only
// ever touches the three task-managed columns at the bottom.
type LeaseModel struct {
	ID          uint   `gorm:"primaryKey"`
	Agency      string `gorm:"uniqueIndex:idx_lease_identity"`
	LeaseNumber string `gorm:"column:lease_number;uniqueIndex:idx_lease_identity"`

	CloudLocationID     *uint
	RunsheetLink        *string
	RunsheetReportFound bool
}

// AgencyStorageConfigModel is the GORM model for per-agency storage
// configuration. Agency is the primary key: one row per agency.
type AgencyStorageConfigModel struct {
	Agency                     string `gorm:"primaryKey"`
	BasePath                   string
	Subfolders                 string // JSON encoded []string
	AutoCreateRunsheetArchives bool
	Enabled                    bool
	ReportDetectionPattern     string
}

// CloudLocationModel is the GORM model for materialized cloud paths.
// Identity is (provider, path); rows are upserted on that pair.
type CloudLocationModel struct {
	ID       uint   `gorm:"primaryKey"`
	Provider string `gorm:"uniqueIndex:idx_cloud_location_identity"`
	Path     string `gorm:"uniqueIndex:idx_cloud_location_identity"`

	Name           string
	IsDirectory    bool
	ShareURL       *string
	ShareExpiresAt *time.Time
	IsPublic       bool
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&LeaseModel{}, &AgencyStorageConfigModel{}, &CloudLocationModel{}, &domain.AuditLog{}); err != nil {
		return nil, err
	}

	// Instrument with OpenTelemetry
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, err
	}

	// Performance & Concurrency Optimizations
	// WAL mode allows simultaneous readers and one writer
	db.Exec("PRAGMA journal_mode=WAL;")
	// Busy timeout prevents "database locked" errors by waiting
	db.Exec("PRAGMA busy_timeout=5000;")
	// Synchronous NORMAL is faster and safe enough for WAL
	db.Exec("PRAGMA synchronous=NORMAL;")

	// Manual Migration fallbacks for SQLite (sometimes AutoMigrate misses columns in existing tables)
	if !db.Migrator().HasColumn(&LeaseModel{}, "RunsheetReportFound") {
		log.Println("Manually adding missing column: lease_models.runsheet_report_found")
		db.Migrator().AddColumn(&LeaseModel{}, "RunsheetReportFound")
	}

	// Create Indices for Performance
	db.Exec("CREATE INDEX IF NOT EXISTS idx_lease_cloud_location ON lease_models(cloud_location_id)")

	return &SQLiteAdapter{db: db}, nil
}

func (a *SQLiteAdapter) DB() *gorm.DB {
	return a.db
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LeaseStore implements ports.LeaseRepository over the shared database.
type LeaseStore struct {
	db *gorm.DB
}

func NewLeaseStore(a *SQLiteAdapter) *LeaseStore {
	return &LeaseStore{db: a.db}
}

// FindByKey looks up a lease by (agency, lease_number).
func (s *LeaseStore) FindByKey(ctx context.Context, agency domain.Agency, leaseNumber string) (*domain.Lease, error) {
	var m LeaseModel
	err := s.db.WithContext(ctx).
		Where("agency = ? AND lease_number = ?", string(agency), leaseNumber).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLeaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return leaseToDomain(m), nil
}

// FindByID looks up a lease by its primary key.
func (s *LeaseStore) FindByID(ctx context.Context, id uint) (*domain.Lease, error) {
	var m LeaseModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLeaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return leaseToDomain(m), nil
}

// UpdateTaskFields writes only the task-managed columns, never touching
// any column a human or upstream system might have set concurrently.
func (s *LeaseStore) UpdateTaskFields(ctx context.Context, id uint, cloudLocationID *uint, runsheetLink *string, reportFound bool) error {
	updates := map[string]interface{}{
		"cloud_location_id":     cloudLocationID,
		"runsheet_link":         runsheetLink,
		"runsheet_report_found": reportFound,
	}
	return s.db.WithContext(ctx).Model(&LeaseModel{}).Where("id = ?", id).Updates(updates).Error
}

// CloudLocationStore implements ports.CloudLocationRepository.
type CloudLocationStore struct {
	db *gorm.DB
}

func NewCloudLocationStore(a *SQLiteAdapter) *CloudLocationStore {
	return &CloudLocationStore{db: a.db}
}

// Upsert inserts or updates a CloudLocation keyed on (provider, path).
func (s *CloudLocationStore) Upsert(ctx context.Context, loc domain.CloudLocation) (uint, error) {
	model := cloudLocationToModel(loc)

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "is_directory", "share_url", "share_expires_at", "is_public"}),
	}).Create(&model).Error; err != nil {
		return 0, err
	}

	// OnConflict upserts don't populate auto-increment IDs on the conflict
	// path in every SQLite/GORM combination, so re-read the canonical row.
	var stored CloudLocationModel
	if err := s.db.WithContext(ctx).
		Where("provider = ? AND path = ?", loc.Provider, loc.Path).
		First(&stored).Error; err != nil {
		return 0, err
	}
	return stored.ID, nil
}

// FindByID retrieves a CloudLocation by its primary key.
func (s *CloudLocationStore) FindByID(ctx context.Context, id uint) (*domain.CloudLocation, error) {
	var m CloudLocationModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return cloudLocationToDomain(m), nil
}

// ConfigStore implements ports.ConfigRepository.
type ConfigStore struct {
	db *gorm.DB
}

func NewConfigStore(a *SQLiteAdapter) *ConfigStore {
	return &ConfigStore{db: a.db}
}

// FindByAgency looks up the storage config for a single agency.
func (s *ConfigStore) FindByAgency(ctx context.Context, agency domain.Agency) (*domain.AgencyStorageConfig, error) {
	var m AgencyStorageConfigModel
	err := s.db.WithContext(ctx).Where("agency = ?", string(agency)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrConfigMissing
	}
	if err != nil {
		return nil, err
	}
	return configToDomain(m), nil
}

// Save upserts an AgencyStorageConfig, keyed on agency.
func (s *ConfigStore) Save(ctx context.Context, cfg domain.AgencyStorageConfig) error {
	model := configToModel(cfg)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agency"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_path", "subfolders", "auto_create_runsheet_archives", "enabled", "report_detection_pattern"}),
	}).Create(&model).Error
}

// ListEnabled returns every AgencyStorageConfig with enabled=true.
func (s *ConfigStore) ListEnabled(ctx context.Context) ([]domain.AgencyStorageConfig, error) {
	var models []AgencyStorageConfigModel
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&models).Error; err != nil {
		return nil, err
	}
	configs := make([]domain.AgencyStorageConfig, len(models))
	for i, m := range models {
		configs[i] = *configToDomain(m)
	}
	return configs, nil
}

// Ensure interface compliance
var (
	_ ports.LeaseRepository         = (*LeaseStore)(nil)
	_ ports.CloudLocationRepository = (*CloudLocationStore)(nil)
	_ ports.ConfigRepository        = (*ConfigStore)(nil)
	_ ports.AuditRepository         = (*SQLiteAdapter)(nil)
)
