package migrate

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// CLI wraps a Manager in a cobra command tree.
type CLI struct {
	manager *Manager
	logger  *slog.Logger
}

// NewCLI creates a CLI bound to the given manager.
func NewCLI(manager *Manager, logger *slog.Logger) *CLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLI{manager: manager, logger: logger}
}

// RootCommand builds the "migrate" command tree: up, down, status, version.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the schema of the simulator's template database",
	}

	root.AddCommand(c.upCommand())
	root.AddCommand(c.downCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.versionCommand())

	return root
}

func (c *CLI) upCommand() *cobra.Command {
	var toVersion int64

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to the template database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.manager.HealthCheck(cmd.Context()); err != nil {
				return fmt.Errorf("pre-migration health check failed: %w", err)
			}
			if toVersion > 0 {
				return c.manager.UpTo(cmd.Context(), toVersion)
			}
			return c.manager.Up(cmd.Context())
		},
	}

	cmd.Flags().Int64Var(&toVersion, "to", 0, "apply migrations up to this version only")
	return cmd
}

func (c *CLI) downCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recently applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.manager.Down(cmd.Context())
		},
	}
}

func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the template database's migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.manager.Status(cmd.Context())
		},
	}
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the template database's current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := c.manager.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		},
	}
}
