package db

import (
	"fmt"
	"io"
	"io/fs"
)

// RunMigrateCommand handles the 'migrate' subcommand. Output goes to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("missing migrate action")
	}

	migrations, err := getMigrationsFS()
	if err != nil {
		return fmt.Errorf("failed to get migrations filesystem: %w", err)
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ All migrations applied successfully")
		return printVersion(out, database, migrations)

	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Migration rolled back successfully")
		return printVersion(out, database, migrations)

	case "status":
		return printVersion(out, database, migrations)

	case "version":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate version <version_number>")
		}
		var target uint
		if _, err := fmt.Sscanf(args[1], "%d", &target); err != nil {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if err := database.MigrateTo(migrations, target); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Migrated to version %d successfully\n", target)
		return nil

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate force <version_number>")
		}
		var target int
		if _, err := fmt.Sscanf(args[1], "%d", &target); err != nil {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if err := database.MigrateForce(migrations, target); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Forced version to %d\n", target)
		return nil

	case "help":
		PrintMigrateHelp(out)
		return nil

	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}
}

func printVersion(out io.Writer, database *DB, migrations fs.FS) error {
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(out, "⚠️  WARNING: Database is in a dirty state! Inspect it, then run: migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: hss-planner migrate <action> [args]

Actions:
  up                 Apply all pending migrations
  down               Roll back the most recent migration
  status             Show the current migration version
  version <n>        Migrate up or down to version n
  force <n>          Force the recorded version (dirty-state recovery only)
  help               Show this help
`)
}
