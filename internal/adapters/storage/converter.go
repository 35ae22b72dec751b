package storage

import (
	"encoding/json"

	"github.com/caliber-data/lade/internal/core/domain"
)

// leaseToDomain converts a database model to a domain entity.
func leaseToDomain(m LeaseModel) *domain.Lease {
	return &domain.Lease{
		ID:                  m.ID,
		Agency:              domain.Agency(m.Agency),
		LeaseNumber:         m.LeaseNumber,
		CloudLocationID:     m.CloudLocationID,
		RunsheetLink:        m.RunsheetLink,
		RunsheetReportFound: m.RunsheetReportFound,
	}
}

// cloudLocationToDomain converts a database model to a domain entity.
func cloudLocationToDomain(m CloudLocationModel) *domain.CloudLocation {
	return &domain.CloudLocation{
		ID:             m.ID,
		Provider:       m.Provider,
		Path:           m.Path,
		Name:           m.Name,
		IsDirectory:    m.IsDirectory,
		ShareURL:       m.ShareURL,
		ShareExpiresAt: m.ShareExpiresAt,
		IsPublic:       m.IsPublic,
	}
}

// cloudLocationToModel converts a domain entity to a database model.
func cloudLocationToModel(loc domain.CloudLocation) CloudLocationModel {
	return CloudLocationModel{
		ID:             loc.ID,
		Provider:       loc.Provider,
		Path:           loc.Path,
		Name:           loc.Name,
		IsDirectory:    loc.IsDirectory,
		ShareURL:       loc.ShareURL,
		ShareExpiresAt: loc.ShareExpiresAt,
		IsPublic:       loc.IsPublic,
	}
}

// configToDomain converts a database model to a domain entity, decoding
// the JSON-encoded subfolder list.
func configToDomain(m AgencyStorageConfigModel) *domain.AgencyStorageConfig {
	var subfolders []string
	if m.Subfolders != "" {
		_ = json.Unmarshal([]byte(m.Subfolders), &subfolders)
	}
	return &domain.AgencyStorageConfig{
		Agency:                     domain.Agency(m.Agency),
		BasePath:                   m.BasePath,
		Subfolders:                 subfolders,
		AutoCreateRunsheetArchives: m.AutoCreateRunsheetArchives,
		Enabled:                    m.Enabled,
		ReportDetectionPattern:     m.ReportDetectionPattern,
	}
}

// configToModel converts a domain entity to a database model.
func configToModel(cfg domain.AgencyStorageConfig) AgencyStorageConfigModel {
	subfoldersJSON, _ := json.Marshal(cfg.Subfolders)
	return AgencyStorageConfigModel{
		Agency:                     string(cfg.Agency),
		BasePath:                   cfg.BasePath,
		Subfolders:                 string(subfoldersJSON),
		AutoCreateRunsheetArchives: cfg.AutoCreateRunsheetArchives,
		Enabled:                    cfg.Enabled,
		ReportDetectionPattern:     cfg.ReportDetectionPattern,
	}
}
