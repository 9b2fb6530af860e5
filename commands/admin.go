package commands

import (
	"errors"
	"fmt"

	userControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/user"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an ADMIN account, or promote an existing user",
	Long: `Create an ADMIN account. When the email already belongs to a user,
that user is promoted instead and the password is left unchanged.

Examples:
  ikeya create-admin --email ops@ikeya.shop --name Ops --password s3cret!`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" {
			return fmt.Errorf("--email is required")
		}
		_, db, err := bootstrap()
		if err != nil {
			return err
		}

		user, promoted, err := ensureAdmin(db, adminName, adminEmail, adminPassword)
		if err != nil {
			return err
		}
		if promoted {
			success(cmd.OutOrStdout(), "Promoted %s (id %d) to ADMIN", user.Email, user.ID)
		} else {
			success(cmd.OutOrStdout(), "Created admin %s (id %d)", user.Email, user.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin", "Display name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Login email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password for a new account")
}

func ensureAdmin(db *gorm.DB, name, email, password string) (models.User, bool, error) {
	var existing models.User
	err := db.Where("email = ?", userControllers.NormalizeEmail(email)).First(&existing).Error
	switch {
	case err == nil:
		if err := db.Model(&existing).Update("role", models.RoleAdmin).Error; err != nil {
			return existing, false, err
		}
		existing.Role = models.RoleAdmin
		return existing, true, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return existing, false, err
	}

	user, err := userControllers.CreateUser(db, name, email, password, models.RoleAdmin)
	return user, false, err
}
