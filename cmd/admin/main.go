package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dailyattend/internal/auth"
	"dailyattend/internal/config"
	"dailyattend/internal/model"
	"dailyattend/internal/store"
)

var (
	cfg      config.App
	database *store.DB
	repo     *store.Repository
)

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Attendance service administration tool",
	Long:  "Administrative tool for managing attendance users and the database schema",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = config.Load()
		db, err := store.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(cmd.Context()); err != nil {
			_ = db.Close()
			return err
		}
		database = db
		repo = store.NewRepository(db)
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return database.Close()
	},
	SilenceUsage: true,
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user, optionally with the admin role",
	RunE:  createUser,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  listUsers,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(*cobra.Command, []string) error {
		fmt.Printf("schema ready (%s)\n", database.Dialect)
		return nil
	},
}

var (
	username string
	password string
	role     string
)

func init() {
	userCreateCmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	userCreateCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	userCreateCmd.Flags().StringVarP(&role, "role", "r", string(model.RoleUser), "Role: user or admin")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd, userListCmd)
	rootCmd.AddCommand(userCmd, migrateCmd)
}

func createUser(cmd *cobra.Command, _ []string) error {
	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	// the signer is unused here; the CLI never issues tokens
	svc := auth.NewService(repo, hasher, auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL))
	id, err := svc.CreateUser(cmd.Context(), username, password, model.Role(role))
	if err != nil {
		return err
	}
	fmt.Printf("created user %q (id %d, role %s)\n", username, id, role)
	return nil
}

func listUsers(cmd *cobra.Command, _ []string) error {
	users, err := repo.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.Role)
	}
	return w.Flush()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
