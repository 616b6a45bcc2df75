// Package main implements gsapctl, an operator CLI for GSAP trigger files.
//
// Previews and matching run offline. Uploading and monitoring read AWS
// credentials from the standard AWS_* environment variables.
//
// Usage:
//
//	gsapctl eod --generation-type single --site 1234 --date 20250115 --sftp-user gsap --bucket gsap-bucket
//	gsapctl monthly --site 1234 --year 2025 --month 4 --sftp-user gsap --bucket gsap-bucket --upload
//	gsapctl match Generate_EODSales_1234_20250115.txt EODSales_1234_20250116T020000_20250115.txt
//	gsapctl monitor --service-type GSAP-EOD --bucket gsap-bucket --sftp-user gsap --trigger Generate_EODSales_1234_20250115.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"rootle/internal/awsutil"
	"rootle/internal/cloudservice"
	"rootle/internal/core"
	"rootle/internal/storage"
	"rootle/internal/types"
)

var (
	// CLI flags
	outputFormat string
	timeout      time.Duration
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gsapctl",
	Short: "Build, upload and monitor GSAP trigger files",
	Long: `gsapctl builds the trigger files that start the GSAP EOD and fuel month-end
batch jobs, optionally uploads them to S3, and finds the output files the jobs
write back.

Uploads and monitoring use AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY,
AWS_SESSION_TOKEN and AWS_REGION. AWS_ENDPOINT_URL and S3_FORCE_PATH_STYLE
point the client at LocalStack or MinIO.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "Timeout for S3 calls")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	lvl := slog.LevelWarn
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// newService builds the orchestrator. The S3 gateway is attached only when
// withStore is set so offline commands never touch AWS configuration.
func newService(cmd *cobra.Command, withStore bool) *cloudservice.Service {
	logger := newLogger(cmd.ErrOrStderr())
	cfg := cloudservice.Config{
		Validator: core.NewValidator(logger),
		Logger:    logger,
	}
	if withStore {
		endpoint := awsutil.Endpoint{
			URL:            os.Getenv("AWS_ENDPOINT_URL"),
			ForcePathStyle: os.Getenv("S3_FORCE_PATH_STYLE") == "true",
		}
		cfg.Store = storage.NewGateway(storage.NewClientFactory(endpoint), logger)
	}
	return cloudservice.NewService(cfg)
}

// credentialsFromEnv reads static credentials from the standard AWS
// variables. AWS_DEFAULT_REGION is used when AWS_REGION is unset.
func credentialsFromEnv() (types.AWSCredentials, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	creds := types.AWSCredentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: types.SecretString(os.Getenv("AWS_SECRET_ACCESS_KEY")),
		SessionToken:    types.SecretString(os.Getenv("AWS_SESSION_TOKEN")),
		Region:          region,
	}
	if !creds.Complete() {
		return types.AWSCredentials{}, errors.New("AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_REGION must be set")
	}
	return creds, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// describeError flattens an AppError and its details into one line.
func describeError(err error) error {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	if len(appErr.Details) == 0 {
		return errors.New(appErr.Message)
	}
	parts := make([]string, 0, len(appErr.Details))
	for _, k := range slices.Sorted(maps.Keys(appErr.Details)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, appErr.Details[k]))
	}
	return fmt.Errorf("%s (%s)", appErr.Message, strings.Join(parts, ", "))
}
