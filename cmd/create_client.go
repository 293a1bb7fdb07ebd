package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/server"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newCreateClientCmd() *cobra.Command {
	var (
		role  string
		email string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "create-client",
		Short: "Create an API client acting as a user, creating the user if needed",
		Long: `create-client registers a client_credentials client owned by the user with
the given email. When the user does not exist it is created with the given role
and a random password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != models.RoleAdmin && role != models.RoleUser {
				return fmt.Errorf("role must be %q or %q", models.RoleAdmin, models.RoleUser)
			}
			if email == "" {
				email = role + "@foodgram.local"
			}

			db, err := server.OpenDatabase(configuration)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			userID, err := getUserIDForRole(ctx, db, email, role)
			if err != nil {
				return err
			}

			client, secret, err := services.NewClientService(db).CreateClient(ctx, userID, services.ClientInput{Name: name})
			if err != nil {
				return err
			}

			fmt.Printf("Client created for %s (user %d, role %s)\n", email, userID, role)
			fmt.Printf("Client ID: %s\n", client.ID)
			fmt.Printf("Client Secret: %s\n", secret)
			fmt.Println("\nRequest a token with:")
			fmt.Printf("curl -X POST http://%s:%d/api/auth/oauth/token \\\n", configuration.Host, configuration.Port)
			fmt.Printf("  -d 'grant_type=client_credentials' \\\n")
			fmt.Printf("  -d 'client_id=%s' \\\n", client.ID)
			fmt.Printf("  -d 'client_secret=%s'\n", secret)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", models.RoleAdmin, "Role of the owner when it has to be created (admin or user)")
	cmd.Flags().StringVar(&email, "email", "", "Email of the owning user (default <role>@foodgram.local)")
	cmd.Flags().StringVar(&name, "name", "Development client", "Client name")

	return cmd
}

// getUserIDForRole returns the user with email, creating it with role when missing
func getUserIDForRole(ctx context.Context, db *gorm.DB, email, role string) (uint, error) {
	users := services.NewUserService(db)

	user, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		fmt.Printf("Found existing user: %s (ID: %d)\n", user.Email, user.ID)
		return user.ID, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return 0, err
	}

	password := uuid.NewString()
	user, err = users.CreateUser(ctx, services.RegisterInput{
		Email:     email,
		Username:  role + "-" + uuid.NewString()[:8],
		FirstName: role,
		LastName:  "client owner",
		Password:  password,
	})
	if err != nil {
		return 0, err
	}
	if err := db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return 0, err
	}

	fmt.Printf("Created new user: %s (ID: %d, Role: %s, Password: %s)\n", user.Email, user.ID, role, password)
	return user.ID, nil
}
