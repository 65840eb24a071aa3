package database

import (
	"errors"
	"fmt"
	"strings"

	"minerfix-backend/config"
	"minerfix-backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed makes sure the system permissions and roles exist with their default
// grants, and creates the bootstrap admin when configured. Safe to run on
// every start.
func Seed(db *gorm.DB, admin config.AdminConfig, log *zap.Logger) error {
	return db.Transaction(func(tx *gorm.DB) error {
		byName := make(map[string]models.Permission, len(models.SystemPermissions))
		for _, code := range models.SystemPermissions {
			resource, action, _ := strings.Cut(code, ".")
			p := models.Permission{
				Name:        code,
				DisplayName: code,
				Resource:    resource,
				Action:      action,
				IsSystem:    true,
				IsActive:    true,
			}
			if err := tx.Where(models.Permission{Name: code}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", code, err)
			}
			byName[code] = p
		}

		for _, sr := range models.SystemRoles {
			role := models.Role{
				Name:        sr.Name,
				DisplayName: sr.DisplayName,
				Description: sr.Description,
				IsSystem:    true,
				IsActive:    true,
			}
			var existing models.Role
			err := tx.Where("name = ?", sr.Name).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&role).Error; err != nil {
					return fmt.Errorf("seed role %s: %w", sr.Name, err)
				}
			case err != nil:
				return err
			default:
				// Roles created by earlier versions keep their grants.
				continue
			}

			codes := sr.Permissions
			if codes == nil {
				codes = models.SystemPermissions
			}
			links := make([]models.RolePermission, 0, len(codes))
			for _, code := range codes {
				links = append(links, models.RolePermission{RoleID: role.ID, PermissionID: byName[code].ID})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("seed grants for %s: %w", sr.Name, err)
			}
			log.Info("seeded system role", zap.String("role", sr.Name), zap.Int("permissions", len(links)))
		}

		if admin.Email == "" || admin.Password == "" {
			return nil
		}
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", admin.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		var adminRole models.Role
		if err := tx.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
			return err
		}
		user := models.User{Name: admin.Name, Email: admin.Email, RoleID: adminRole.ID, IsActive: true}
		if err := user.SetPassword(admin.Password); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
		log.Info("created bootstrap admin", zap.String("email", admin.Email))
		return nil
	})
}
