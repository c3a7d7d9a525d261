package main

import (
	"fmt"
	"time"

	"comexiger-backend/internal/jobs"
	"comexiger-backend/internal/notify"
	"comexiger-backend/internal/shift"
	"comexiger-backend/internal/stock"

	"github.com/spf13/cobra"
)

var jobName string

var cronRunCmd = &cobra.Command{
	Use:   "cron:run",
	Short: "Ejecuta una tarea programada una vez, o lista las tareas sin --job",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, l, err := connect()
		if err != nil {
			return err
		}
		notifier, closer, err := notify.FromConfig(cfg, l)
		if err != nil {
			return err
		}
		defer closer.Close()
		defer notifier.Wait()

		s := jobs.NewScheduler(l, 0)
		err = jobs.RegisterDefaults(s, jobs.Sources{
			Stock:    stock.NewLedger(stock.Options{DB: db, Notifier: notifier, Log: l, Location: cfg.Location()}),
			Shifts:   shift.NewLedger(shift.Options{DB: db, Notifier: notifier, Log: l, Location: cfg.Location()}),
			Notifier: notifier,
		}, cfg.StatsSchedule, cfg.StaleShiftSchedule, time.Duration(cfg.StaleShiftHours)*time.Hour)
		if err != nil {
			return err
		}

		if jobName == "" {
			for _, j := range s.Jobs() {
				fmt.Printf("%-20s %s\n", j.Name, j.Schedule)
			}
			return nil
		}
		fmt.Printf("Ejecutando %s\n", jobName)
		return s.RunOnce(cmd.Context(), jobName)
	},
}

func init() {
	cronRunCmd.Flags().StringVarP(&jobName, "job", "j", "", "nombre de la tarea a ejecutar")
	rootCmd.AddCommand(cronRunCmd)
}
