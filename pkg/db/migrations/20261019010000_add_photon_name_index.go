package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw("CREATE INDEX IF NOT EXISTS photons_name_created_at_idx ON photons (name, created_at)").Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw("DROP INDEX IF EXISTS photons_name_created_at_idx").Exec(ctx)
		return err
	})
}
