package cmd

import (
	"fmt"
	"time"

	"github.com/quatton/photon/pkg/config"
	"github.com/quatton/photon/pkg/db"
	"github.com/quatton/photon/pkg/registry"
	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var (
	sweepMaxAge     time.Duration
	migrateRollback bool
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Maintain the local registry",
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete temporary and orphaned archives and dangling records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		reg, err := a.openRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		report, err := reg.Sweep(ctx, sweepMaxAge)
		if err != nil {
			return err
		}
		if report.Empty() {
			fmt.Println(ui.Muted.Render("nothing to sweep"))
			return nil
		}
		for _, p := range report.TempFiles {
			fmt.Printf("  removed temporary archive %s\n", p)
		}
		for _, p := range report.Orphans {
			fmt.Printf("  removed orphaned archive %s\n", p)
		}
		for _, id := range report.Dangling {
			fmt.Printf("  dropped record %s\n", id)
		}
		fmt.Printf("%s registry swept\n", ui.Success.Render("✓"))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back registry schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a.settings.Print(func(format string, args ...interface{}) {
			a.log.Debug(fmt.Sprintf(format, args...))
		})

		database, err := db.New(ctx, a.settings.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		if migrateRollback {
			group, err := db.Rollback(ctx, database)
			if err != nil {
				return fmt.Errorf("failed to roll back: %w", err)
			}
			fmt.Printf("%s rolled back %s\n", ui.Success.Render("✓"), group)
			return nil
		}
		group, err := db.Migrate(ctx, database)
		if err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		if group.IsZero() {
			fmt.Println(ui.Muted.Render("registry schema is up to date"))
			return nil
		}
		fmt.Printf("%s migrated %s on %s\n", ui.Success.Render("✓"), group, config.MaskDSN(a.settings.DSN()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(sweepCmd)
	registryCmd.AddCommand(migrateCmd)
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", registry.DefaultMaxAge, "only delete files older than this")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "roll back the last migration group")
}
