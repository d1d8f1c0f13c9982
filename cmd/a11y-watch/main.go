// Command a11y-watch submits a page to the analysis API and follows it until
// the audit finishes.
//
//	a11y-watch -api http://localhost:3000 https://example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"web_accessibility_analyzer/internal/client"
	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/service"

	log "github.com/sirupsen/logrus"
)

func main() {
	apiURL := flag.String("api", "http://localhost:3000", "analysis API base URL")
	interval := flag.Duration("interval", client.DefaultPollInterval, "poll interval")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <url>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logInstance := log.New()
	logInstance.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
	if *verbose {
		logInstance.SetLevel(log.DebugLevel)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Ctrl-C ends the watch; the analysis keeps running on the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client.New(*apiURL, nil, logInstance), flag.Arg(0), *interval, logInstance); err != nil {
		logInstance.WithError(err).Error(`watch failed`)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, pageURL string, interval time.Duration, logger *log.Logger) error {
	created, err := c.Create(ctx, pageURL)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{`analysis_id`: created.ID, `url`: created.URL}).Info(`analysis submitted`)

	final, err := c.Watch(ctx, created.ID, interval, func(a *models.Analysis) {
		logger.WithField(`analysis_id`, a.ID).Infof(`status %s`, a.Status)
	})
	if err != nil {
		return err
	}

	if final.Status != models.StatusCompleted || final.Score == nil {
		return fmt.Errorf("analysis %s ended with status %s", final.ID, final.Status)
	}

	fields := log.Fields{
		`analysis_id`: final.ID,
		`score`:       *final.Score,
		`grade`:       service.GradeFor(*final.Score),
	}
	if final.Results != nil {
		fields[`violations`] = len(final.Results.Violations)
		fields[`incomplete`] = len(final.Results.Incomplete)
		fields[`passes`] = len(final.Results.Passes)
	}
	logger.WithFields(fields).Info(`analysis completed`)
	return nil
}
