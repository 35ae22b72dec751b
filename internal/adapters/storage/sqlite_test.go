package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupInMemoryDB creates a new SQLiteAdapter used for testing.
func setupInMemoryDB(t *testing.T) *SQLiteAdapter {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&LeaseModel{}, &AgencyStorageConfigModel{}, &CloudLocationModel{}, &domain.AuditLog{})
	require.NoError(t, err)

	return &SQLiteAdapter{db: db}
}

func TestLeaseStore_FindByKeyNotFound(t *testing.T) {
	adapter := setupInMemoryDB(t)
	store := NewLeaseStore(adapter)

	_, err := store.FindByKey(context.Background(), domain.AgencyBLM, "BLM-001")
	assert.True(t, errors.Is(err, domain.ErrLeaseNotFound))
}

func TestLeaseStore_UpdateTaskFields(t *testing.T) {
	adapter := setupInMemoryDB(t)
	store := NewLeaseStore(adapter)

	seed := LeaseModel{Agency: string(domain.AgencyBLM), LeaseNumber: "BLM-001"}
	require.NoError(t, adapter.db.Create(&seed).Error)

	link := "https://dropbox.com/share/abc"
	cloudID := uint(7)
	require.NoError(t, store.UpdateTaskFields(context.Background(), seed.ID, &cloudID, &link, true))

	stored, err := store.FindByID(context.Background(), seed.ID)
	require.NoError(t, err)
	assert.Equal(t, cloudID, *stored.CloudLocationID)
	assert.Equal(t, link, *stored.RunsheetLink)
	assert.True(t, stored.RunsheetReportFound)
}

func TestLeaseStore_UpdateTaskFieldsPreservesOtherColumns(t *testing.T) {
	adapter := setupInMemoryDB(t)
	store := NewLeaseStore(adapter)

	seed := LeaseModel{Agency: string(domain.AgencyNMSLO), LeaseNumber: "NM-900"}
	require.NoError(t, adapter.db.Create(&seed).Error)

	link := "https://dropbox.com/x"
	require.NoError(t, store.UpdateTaskFields(context.Background(), seed.ID, nil, &link, false))

	stored, err := store.FindByID(context.Background(), seed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Agency("NMSLO"), stored.Agency)
	assert.Equal(t, "NM-900", stored.LeaseNumber)
}

func TestCloudLocationStore_UpsertIsIdempotent(t *testing.T) {
	adapter := setupInMemoryDB(t)
	store := NewCloudLocationStore(adapter)

	loc := domain.CloudLocation{Provider: "dropbox", Path: "/BLM/BLM-001", Name: "BLM-001", IsDirectory: true}

	id1, err := store.Upsert(context.Background(), loc)
	require.NoError(t, err)

	url := "https://dropbox.com/share/xyz"
	loc.ShareURL = &url
	id2, err := store.Upsert(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)

	stored, err := store.FindByID(context.Background(), id1)
	require.NoError(t, err)
	assert.Equal(t, url, *stored.ShareURL)
}

func TestConfigStore_SaveAndFindByAgency(t *testing.T) {
	adapter := setupInMemoryDB(t)
	store := NewConfigStore(adapter)

	cfg, err := domain.NewAgencyStorageConfig(domain.AgencyBLM, "/BLM/Runsheets", []string{"Correspondence", "Reports"})
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), *cfg))

	loaded, err := store.FindByAgency(context.Background(), domain.AgencyBLM)
	require.NoError(t, err)
	assert.Equal(t, cfg.BasePath, loaded.BasePath)
	assert.Equal(t, []string{"Correspondence", "Reports"}, loaded.Subfolders)
}

func TestConfigStore_FindByAgencyMissing(t *testing.T) {
	adapter := setupInMemoryDB(t)
	store := NewConfigStore(adapter)

	_, err := store.FindByAgency(context.Background(), domain.AgencyNMSLO)
	assert.True(t, errors.Is(err, domain.ErrConfigMissing))
}

func TestConfigStore_ListEnabledExcludesDisabled(t *testing.T) {
	adapter := setupInMemoryDB(t)
	store := NewConfigStore(adapter)

	enabled, _ := domain.NewAgencyStorageConfig(domain.AgencyBLM, "/BLM", nil)
	disabled, _ := domain.NewAgencyStorageConfig(domain.AgencyNMSLO, "/NMSLO", nil)
	disabled.Enabled = false

	require.NoError(t, store.Save(context.Background(), *enabled))
	require.NoError(t, store.Save(context.Background(), *disabled))

	list, err := store.ListEnabled(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.AgencyBLM, list[0].Agency)
}

func TestSQLiteAdapter_AuditLogRoundTrip(t *testing.T) {
	adapter := setupInMemoryDB(t)

	entry, err := domain.NewAuditLog("u-1", domain.ActionArchiveCreated, "BLM:BLM-001", "created archive")
	require.NoError(t, err)
	require.NoError(t, adapter.SaveAuditLog(context.Background(), *entry))

	logs, err := adapter.ListAuditLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionArchiveCreated, logs[0].Action)
}
