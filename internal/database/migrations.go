package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/models"
)

// MasterOrgName is the seeded administrative organization. Its members may
// act across all tenants.
const MasterOrgName = "master"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.FeatureFlag{},
		&models.Session{},
		&models.AuditLog{},
	)
}

// SeedData ensures the master organization exists. Feature flags for newly
// created organizations are seeded by the feature service; the master
// organization starts with every tab enabled and no network restrictions.
func SeedData(db *gorm.DB) error {
	master := models.Organization{
		Name:            MasterOrgName,
		IsMaster:        true,
		Tabs:            datatypes.NewJSONSlice(models.KnownTabs),
		SSOSelectedType: models.SSONone,
	}

	return db.Where(models.Organization{Name: MasterOrgName}).
		Attrs(master).
		FirstOrCreate(&models.Organization{}).Error
}
