package start

import (
	"context"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/caesium-cloud/jobassist/api"
	"github.com/caesium-cloud/jobassist/internal/analyzer"
	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/caesium-cloud/jobassist/internal/metrics"
	"github.com/caesium-cloud/jobassist/pkg/db"
	"github.com/caesium-cloud/jobassist/pkg/env"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/spf13/cobra"
)

const (
	usage   = "start"
	short   = "Start a jobassist instance"
	long    = "This command starts the jobassist API, analysis cache and cache janitor"
	example = "jobassist start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"launch", "boot", "up", "run", "begin"},
		Example:    example,
		RunE:       start,
	}
)

func start(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	go handleSignals(ctx, signalChan, cancel)

	vars := env.Variables()

	metrics.Register()

	log.Info("opening store", "type", vars.StoreType)
	s, closeStore, err := db.Open(vars)
	if err != nil {
		return err
	}
	defer closeStore()

	c := cache.New(s, cache.ConfigFrom(vars))
	defer func() {
		if err := c.Close(); err != nil {
			log.Error("cache close failure", "error", err)
		}
	}()

	profile, err := analyzer.LoadProfile(vars.ProfilePath)
	if err != nil {
		return err
	}

	client, err := analyzer.NewClient(vars.AnalyzerURL, vars.AnalyzerTimeout)
	if err != nil {
		return err
	}

	svc := analyzer.NewService(
		client,
		c,
		profile,
		vars.AnalyzerConcurrency,
		analyzer.WithProfilePath(vars.ProfilePath),
	)

	log.Info("starting cache janitor")
	if err = c.Start(ctx); err != nil {
		return err
	}

	log.Info("spinning up api")
	return api.Start(ctx, api.New(c, svc), vars.Port)
}

func handleSignals(ctx context.Context, signals <-chan os.Signal, cancel context.CancelFunc) {
	for {
		select {
		case s := <-signals:
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 signal")
				if profile := pprof.Lookup("goroutine"); profile != nil {
					if err := profile.WriteTo(os.Stdout, 1); err != nil {
						log.Error("write goroutine profile", "error", err)
					}
				}
			default:
				log.Info("gracefully shutting down", "signal", s.String())
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
