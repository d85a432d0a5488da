// Command contentctl checks, packages and publishes blog content.
//
//	contentctl lint ./content
//	contentctl list ./content --kind projects
//	contentctl bundle ./content -o content.tar.gz --commit $(git rev-parse HEAD)
//	contentctl publish content.tar.gz --bucket blog-content --ssm-param /blog/content/current
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"

	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/version"
)

// app carries what the commands need so tests can swap clock, output and
// AWS clients.
type app struct {
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
	logger log.Logger

	timezone string
	verbose  bool

	clients func(ctx context.Context) (publishClients, error)
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:     out,
		errOut:  errOut,
		now:     time.Now,
		logger:  log.Nop(),
		clients: awsClients,
	}
}

func awsClients(ctx context.Context) (publishClients, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return publishClients{}, err
	}
	return publishClients{
		S3:  s3.NewFromConfig(awsCfg),
		SSM: ssm.NewFromConfig(awsCfg),
		KMS: kms.NewFromConfig(awsCfg),
	}, nil
}

func (a *app) location() *time.Location {
	loc, err := time.LoadLocation(a.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "contentctl",
		Short:         "Lint, bundle and publish blog content",
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := time.LoadLocation(a.timezone); err != nil {
				return fmt.Errorf("invalid --timezone %q: %w", a.timezone, err)
			}
			lvl, _ := log.ParseLevel("info")
			if a.verbose {
				lvl, _ = log.ParseLevel("debug")
			}
			lg, err := log.New(log.Options{
				App:     "contentctl",
				Version: version.Get().Version,
				Level:   lvl,
				Writer:  a.errOut,
			})
			if err != nil {
				return err
			}
			a.logger = lg
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVar(&a.timezone, "timezone", "UTC", "IANA zone used for content dates")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.lintCmd(),
		a.listCmd(),
		a.bundleCmd(),
		a.publishCmd(),
	)
	return root
}

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "contentctl:", err)
		os.Exit(1)
	}
}
