package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// CLI prints migration operations and their outcomes for command-line
// use.
type CLI struct {
	migrator *Migrator
	output   io.Writer
}

// NewCLI creates a CLI writing to stdout.
func NewCLI(migrator *Migrator) *CLI {
	return &CLI{migrator: migrator, output: os.Stdout}
}

// SetOutput redirects CLI messages.
func (c *CLI) SetOutput(w io.Writer) {
	c.output = w
}

// RunUp applies all pending migrations.
func (c *CLI) RunUp(ctx context.Context) error {
	fmt.Fprintln(c.output, "Running migrations...")
	if err := c.migrator.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	info, err := c.migrator.CurrentInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Migrations complete. Current version: %d\n", info.CurrentVersion)
	return nil
}

// RunDown rolls back the most recent migration.
func (c *CLI) RunDown(ctx context.Context) error {
	fmt.Fprintln(c.output, "Rolling back last migration...")
	if err := c.migrator.Down(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	info, err := c.migrator.CurrentInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Rollback complete. Current version: %d\n", info.CurrentVersion)
	return nil
}

// RunVersion prints the current migration version.
func (c *CLI) RunVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintln(c.output, "No migrations applied yet")
		return nil
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(c.output, "Current version: %d (%s)\n", version, state)
	return nil
}

// RunStatus prints a table of all migrations and their applied state.
func (c *CLI) RunStatus(ctx context.Context) error {
	statuses, err := c.migrator.StatusAll(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED\tDIRTY")
	for _, s := range statuses {
		fmt.Fprintf(w, "%d\t%s\t%t\t%t\n", s.Version, s.Name, s.Applied, s.Dirty)
	}
	return w.Flush()
}
