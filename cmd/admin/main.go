package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sshwebca/sshwebca/internal/config"
	"github.com/sshwebca/sshwebca/internal/db"
	"github.com/sshwebca/sshwebca/internal/db/repository"
)

var (
	configPath string
	cfg        *config.Config
	database   *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "SSH Web CA administration tool",
	Long:  "Administrative tool for inspecting SSH Web CA users and issued certificates",
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  listUsers,
}

var userShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show a user and their current certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  showUser,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user and their certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteUser,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yml", "Config file path")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initDB() error {
	// Load configuration
	var err error
	cfg, err = config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Connect to database
	database, err = db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

func listUsers(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	users, err := repository.NewUserRepository(database.DB).List()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func showUser(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	user, err := repository.NewUserRepository(database.DB).GetByUsername(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %d\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Created:  %s\n", user.CreatedAt.Format(time.RFC3339))

	cert, err := repository.NewCertRepository(database.DB).GetByUserID(user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		fmt.Println("No certificate issued")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nCurrent certificate:\n")
	fmt.Printf("  Key ID:     %s\n", cert.Payload.KeyID)
	fmt.Printf("  Serial:     %d\n", cert.SerialNumber)
	fmt.Printf("  Key FP:     %s\n", cert.PublicKeyFP)
	fmt.Printf("  Principals: %v\n", cert.Payload.Principals)
	fmt.Printf("  Valid:      %s - %s\n",
		time.Unix(int64(cert.Payload.ValidAfter), 0).Format(time.RFC3339),
		time.Unix(int64(cert.Payload.ValidBefore), 0).Format(time.RFC3339))
	fmt.Printf("  Issued:     %s\n", cert.IssuedAt.Format(time.RFC3339))
	fmt.Printf("  Updated:    %s\n", cert.UpdatedAt.Format(time.RFC3339))

	return nil
}

func deleteUser(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	userRepo := repository.NewUserRepository(database.DB)

	user, err := userRepo.GetByUsername(args[0])
	if err != nil {
		return err
	}

	if err := userRepo.Delete(user.ID); err != nil {
		return err
	}

	fmt.Printf("Deleted user %s (id %d)\n", user.Username, user.ID)
	return nil
}
