package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beamline/beamline/internal/config"
	"github.com/beamline/beamline/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		st := store.New(db)
		if err := st.Migrate(context.Background()); err != nil {
			return err
		}

		fmt.Println("migrations applied")
		return nil
	},
}
