package migration

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/migration/migrations"
	"git.handmade.network/hmn/syllabus/src/migration/types"
	"git.handmade.network/hmn/syllabus/src/website"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

func init() {
	website.WebsiteCommand.AddCommand(
		newMigrateCommand(),
		newMakeMigrationCommand(),
		&cobra.Command{
			Use:   "seed",
			Short: "Migrate to the latest version and fill the database with sample courses, users, and syllabi",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				SampleSeed()
			},
		},
	)
}

func newMigrateCommand() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if list {
				ListMigrations()
				return
			}

			var target types.MigrationVersion
			if len(args) > 0 {
				t, err := time.Parse(time.RFC3339, args[0])
				if err != nil {
					fmt.Printf("ERROR: bad version string: %v\n", err)
					os.Exit(1)
				}
				target = types.MigrationVersion(t)
			}
			Migrate(target)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List available migrations")
	return cmd
}

func newMakeMigrationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			MakeMigration(args[0], strings.Join(args[1:], " "))
		},
	}
}

func sortedVersions() []types.MigrationVersion {
	versions := make([]types.MigrationVersion, 0, len(migrations.All))
	for v := range migrations.All {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Before(versions[j])
	})
	return versions
}

func LatestVersion() types.MigrationVersion {
	versions := sortedVersions()
	return versions[len(versions)-1]
}

// Index of the version in the sorted list, or -1. The zero version is -1 too,
// since it means nothing has been applied.
func versionIndex(versions []types.MigrationVersion, version types.MigrationVersion) int {
	for i, v := range versions {
		if v.Equal(version) {
			return i
		}
	}
	return -1
}

// One Up or Down call, and the version the database is at once it succeeds.
type step struct {
	Migration types.Migration
	Down      bool
	ResultsIn types.MigrationVersion
}

func (s step) run(ctx context.Context, tx pgx.Tx) error {
	if s.Down {
		return s.Migration.Down(ctx, tx)
	}
	return s.Migration.Up(ctx, tx)
}

var errUnknownVersion = errors.New("no migration with that version")

// Lists the steps that take the database from current to target. A zero
// target means the latest version.
func planSteps(all map[types.MigrationVersion]types.Migration, versions []types.MigrationVersion, current, target types.MigrationVersion) ([]step, error) {
	if target.IsZero() {
		target = versions[len(versions)-1]
	}
	from := versionIndex(versions, current)
	to := versionIndex(versions, target)
	if to < 0 {
		return nil, fmt.Errorf("%w: %v", errUnknownVersion, target)
	}
	if from < 0 && !current.IsZero() {
		return nil, fmt.Errorf("%w: database is at %v", errUnknownVersion, current)
	}

	var steps []step
	for i := from + 1; i <= to; i++ {
		steps = append(steps, step{Migration: all[versions[i]], ResultsIn: versions[i]})
	}
	for i := from; i > to; i-- {
		s := step{Migration: all[versions[i]], Down: true}
		if i > 0 {
			s.ResultsIn = versions[i-1]
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// Creates the single-row version table if this database has never been
// migrated.
func ensureMigrationTable(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS syllabus_migration (
			version TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO syllabus_migration (version)
		SELECT $1
		WHERE NOT EXISTS (SELECT 1 FROM syllabus_migration)
	`, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to insert initial migration row: %w", err)
	}
	return nil
}

func currentVersion(ctx context.Context, conn *pgx.Conn) (types.MigrationVersion, error) {
	version, err := db.QueryOneScalar[time.Time](ctx, conn, "SELECT version FROM syllabus_migration")
	if err != nil {
		return types.MigrationVersion{}, err
	}
	return types.MigrationVersion(version.UTC()), nil
}

func ListMigrations() {
	ctx := context.Background()

	// The database may not exist yet; listing should still work.
	var current types.MigrationVersion
	func() {
		defer func() { recover() }()
		conn := db.NewConn()
		defer conn.Close(ctx)
		current, _ = currentVersion(ctx, conn)
	}()

	for _, version := range sortedVersions() {
		m := migrations.All[version]
		indicator := "  "
		if version.Equal(current) {
			indicator = "✔ "
		}
		fmt.Printf("%s%v (%s: %s)\n", indicator, version, m.Name(), m.Description())
	}
}

func Migrate(target types.MigrationVersion) {
	ctx := context.Background()

	conn := db.NewConn()
	defer conn.Close(ctx)

	if err := ensureMigrationTable(ctx, conn); err != nil {
		panic(err)
	}

	current, err := currentVersion(ctx, conn)
	if err != nil {
		panic(fmt.Errorf("failed to get current version: %w", err))
	}
	if current.IsZero() {
		fmt.Println("This is the first time you have run database migrations.")
	} else {
		fmt.Printf("Current version: %s\n", current)
	}

	steps, err := planSteps(migrations.All, sortedVersions(), current, target)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return
	}
	if len(steps) == 0 {
		fmt.Println("Already migrated; nothing to do.")
		return
	}

	for _, s := range steps {
		if s.Down {
			fmt.Printf("Rolling back migration %v\n", s.Migration.Version())
		} else {
			fmt.Printf("Applying migration %v (%v)\n", s.Migration.Version(), s.Migration.Name())
		}
		if err := applyStep(ctx, conn, s); err != nil {
			fmt.Printf("MIGRATION FAILED for migration %v.\n", s.Migration.Version())
			fmt.Printf("Error: %v\n", err)
			return
		}
	}
}

// Runs one step in its own transaction together with the version bump.
func applyStep(ctx context.Context, conn *pgx.Conn, s step) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.run(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "UPDATE syllabus_migration SET version = $1", time.Time(s.ResultsIn)); err != nil {
		return fmt.Errorf("failed to update version in migrations table: %w", err)
	}
	return tx.Commit(ctx)
}

//go:embed migrationTemplate.txt
var migrationTemplate string

func MakeMigration(name, description string) {
	now := time.Now().UTC()

	safeVersion := strings.ReplaceAll(types.MigrationVersion(now).String(), ":", "")
	path := filepath.Join("src", "migration", "migrations", fmt.Sprintf("%v_%v.go", safeVersion, name))

	err := os.WriteFile(path, []byte(renderMigration(migrationTemplate, name, description, now)), 0644)
	if err != nil {
		panic(fmt.Errorf("failed to write migration file: %w", err))
	}

	fmt.Println("Successfully created migration file:")
	fmt.Println(path)
}

func renderMigration(template, name, description string, now time.Time) string {
	return strings.NewReplacer(
		"%NAME%", name,
		"%DESCRIPTION%", fmt.Sprintf("%#v", description),
		"%DATE%", fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)",
			now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second()),
	).Replace(template)
}
