// Package cli wires configuration, clients and the relay loop behind the
// twitter-on-slack command.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"twitter-on-slack/internal/config"
	"twitter-on-slack/internal/logging"
	"twitter-on-slack/internal/metrics"
	"twitter-on-slack/internal/relay"
	"twitter-on-slack/internal/slack"
	"twitter-on-slack/internal/twitter"
	"twitter-on-slack/pkg/x/httpx"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

const serviceName = "twitter-on-slack"

// Overridden by tests to point the clients at local fakes.
var (
	twitterAPIBase = ""
	slackAPIURL    = ""
	postPause      = relay.DefaultPostPause
)

type options struct {
	once        bool
	metricsAddr string
	envFile     string
	logLevel    string
}

// applyEnvLevel re-reads LOG_LEVEL once dotenv files are loaded, unless
// --log-level was given.
func applyEnvLevel(cmd *cobra.Command, logger *logrus.Logger) {
	if cmd.Flags().Changed("log-level") {
		return
	}
	if v, ok := os.LookupEnv(logging.LevelEnv); ok {
		logger.SetLevel(logging.ParseLevel(v))
	}
}

// NewRootCmd builds the command tree. Output and logs go to the given logger.
func NewRootCmd(logger *logrus.Logger) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Repost new tweets from your home timeline to a Slack channel",
		Long:          "twitter-on-slack polls the Twitter home timeline and posts a link to every new status in a Slack channel, skipping statuses already among the channel's recent messages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if cmd.Flags().Changed("log-level") {
				logger.SetLevel(logging.ParseLevel(opts.logLevel))
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, logger, opts)
		},
	}

	root.Flags().BoolVar(&opts.once, "once", false, "poll a single time and exit")
	root.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	root.Flags().StringVar(&opts.envFile, "env-file", "", "extra dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", serviceName, Version, Commit)
		},
	})

	return root
}

// Execute runs the root command until SIGINT/SIGTERM or a fatal error.
func Execute() error {
	logger := logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(logger).ExecuteContext(ctx); err != nil {
		logger.WithError(err).Error("twitter-on-slack stopped")
		return err
	}
	return nil
}

func run(cmd *cobra.Command, logger *logrus.Logger, opts *options) error {
	ctx := cmd.Context()
	if err := config.LoadDotEnv(logger, opts.envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	applyEnvLevel(cmd, logger)

	keys, err := config.RetrieveKeys()
	if err != nil {
		return err
	}

	httpClient, err := httpx.NewClient(httpx.ClientOptions{Timeout: 30 * time.Second, UseEnvProxy: true})
	if err != nil {
		return err
	}

	var recorder relay.Recorder
	var collector *metrics.Collector
	if opts.metricsAddr != "" {
		collector = metrics.NewCollector(serviceName)
		recorder = collector
	}

	r, err := relay.New(newTimeline(keys, httpClient), slack.NewClient(httpClient, keys.SlackToken, slackAPIURL), relay.Options{
		Channel:   keys.Channel,
		Interval:  keys.WaitTime,
		PostPause: postPause,
		Recorder:  recorder,
		Logger:    logger.WithField("channel", keys.Channel),
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"source":    keys.Source,
		"channel":   keys.Channel,
		"wait_time": keys.WaitTime,
	}).Info("twitter-on-slack starting")

	if opts.once {
		_, err := r.RunOnce(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.Run(gctx) })
	if collector != nil {
		g.Go(func() error { return collector.Serve(gctx, opts.metricsAddr) })
	}
	return g.Wait()
}

func newTimeline(keys config.Keys, httpClient *http.Client) relay.Timeline {
	if keys.Source == config.SourceFeed {
		return twitter.NewFeedClient(httpClient, keys.FeedURL)
	}
	return twitter.NewClient(httpClient, twitter.Credentials{
		ConsumerKey:       keys.ConsumerKey,
		ConsumerSecret:    keys.ConsumerSecret,
		AccessToken:       keys.AccessToken,
		AccessTokenSecret: keys.AccessTokenSecret,
	}, twitterAPIBase)
}
