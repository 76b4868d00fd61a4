package cmd

import (
	"termpool/worker"
	"termpool/worker/accrual"
	"termpool/worker/pricesync"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "termpool job worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		system := provideSystem(database)

		jobs := []worker.IJob{
			accrual.New(provideConfig(), system.registry),
			pricesync.New(provideConfig(), database, system.marketStore, system.priceService),
		}

		for _, job := range jobs {
			if err := job.Start(); err != nil {
				logrus.WithError(err).Fatal("start job")
			}
		}

		done := make(chan struct{}, 1)
		signal.WithContextFunc(ctx, func() {
			for _, job := range jobs {
				job.Stop()
			}
			close(done)
		})

		logrus.Infoln("workers started")
		<-done
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
