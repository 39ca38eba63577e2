package main

import (
	"fmt"
	"strconv"

	"akppos/internal/config"
	"akppos/internal/infra"
	"akppos/internal/worker"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const (
	queueFlag   = "queue"
	requeueFlag = "requeue"
)

var dlqFlags = map[string]cobraflags.Flag{
	queueFlag: &cobraflags.StringFlag{
		Name:  queueFlag,
		Value: worker.QueueEmail,
		Usage: "Source queue of the dead letters (jobs:invoice or jobs:email)",
	},
	requeueFlag: &cobraflags.StringFlag{
		Name:  requeueFlag,
		Value: "0",
		Usage: "Move this many of the oldest entries back onto the source queue",
	},
}

func newDLQCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect or requeue dead-lettered background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			queue := dlqFlags[queueFlag].GetString()
			n, err := strconv.Atoi(dlqFlags[requeueFlag].GetString())
			if err != nil || n < 0 {
				return fmt.Errorf("--%s must be a non-negative integer", requeueFlag)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rdb, err := infra.NewRedis(cmd.Context(), cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			out := cmd.OutOrStdout()
			if n > 0 {
				moved, err := worker.DLQRequeue(cmd.Context(), rdb, queue, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "requeued %d job(s) onto %s\n", moved, queue)
			}

			total, err := worker.DLQLength(cmd.Context(), rdb, queue)
			if err != nil {
				return err
			}
			entries, err := worker.DLQPeek(cmd.Context(), rdb, queue, 20)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d dead letter(s) for %s\n", total, queue)
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-8s attempts=%d  %s\n", e.FailedAt.Format("2006-01-02 15:04:05"), e.JobType, e.Attempts, e.Reason)
			}
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, dlqFlags)
	return cmd
}
