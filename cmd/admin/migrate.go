package main

import (
	"comexiger-backend/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Crea o actualiza las tablas",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, l, err := connect()
		if err != nil {
			return err
		}
		return database.Migrate(db, l)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
