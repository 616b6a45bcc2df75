package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"rootle/internal/trigger"
	"rootle/internal/types"
)

var (
	eodReq     trigger.EODRequest
	eodService string
	eodGenType string
	eodUpload  bool

	monthlyReq    trigger.MonthlyRequest
	monthlyUpload bool
)

// eodCmd represents the eod command
var eodCmd = &cobra.Command{
	Use:   "eod",
	Short: "Preview or upload an EOD / POS sales trigger",
	Long: `Build the trigger file for an EOD or POS sales export.

  single  --site and --date
  range   --site, --start-date and --end-date
  bulk    --bulk-sites and --date

Without --upload the trigger is only printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := eodReq
		req.ServiceType = trigger.EODServiceType(eodService)
		req.GenerationType = trigger.GenerationType(eodGenType)

		svc := newService(cmd, eodUpload)
		if !eodUpload {
			file, err := svc.PreviewEOD(req)
			if err != nil {
				return describeError(err)
			}
			return printFile(cmd.OutOrStdout(), req.BucketName, file)
		}

		creds, err := credentialsFromEnv()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		result, err := svc.GenerateEOD(ctx, creds, req)
		if err != nil {
			return describeError(err)
		}
		return printUpload(cmd.OutOrStdout(), result)
	},
}

// monthlyCmd represents the monthly command
var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Preview or upload a fuel month-end dips trigger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := monthlyReq

		svc := newService(cmd, monthlyUpload)
		if !monthlyUpload {
			file, err := svc.PreviewMonthly(req)
			if err != nil {
				return describeError(err)
			}
			return printFile(cmd.OutOrStdout(), req.BucketName, file)
		}

		creds, err := credentialsFromEnv()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		result, err := svc.GenerateMonthly(ctx, creds, req)
		if err != nil {
			return describeError(err)
		}
		return printUpload(cmd.OutOrStdout(), result)
	},
}

func init() {
	f := eodCmd.Flags()
	f.StringVar(&eodService, "service", string(trigger.EODSales), "Export type (EODSales, POSSales)")
	f.StringVarP(&eodGenType, "generation-type", "g", string(trigger.GenerationSingle), "Generation type (single, range, bulk)")
	f.StringVar(&eodReq.SiteID, "site", "", "Site ID")
	f.StringVar(&eodReq.Date, "date", "", "Business date (yyyyMMdd)")
	f.StringVar(&eodReq.StartDate, "start-date", "", "First business date of a range (yyyyMMdd)")
	f.StringVar(&eodReq.EndDate, "end-date", "", "Last business date of a range (yyyyMMdd)")
	f.StringSliceVar(&eodReq.BulkSites, "bulk-sites", nil, "Site IDs for a bulk trigger, comma separated")
	f.StringVar(&eodReq.SFTPUser, "sftp-user", "", "SFTP user owning the Import/Export folders")
	f.StringVar(&eodReq.BucketName, "bucket", "", "Target bucket")
	f.BoolVar(&eodUpload, "upload", false, "Upload the trigger instead of printing it")

	f = monthlyCmd.Flags()
	f.StringVar(&monthlyReq.SiteID, "site", "", "Site ID")
	f.StringVar(&monthlyReq.Year, "year", "", "Four-digit year")
	f.StringVar(&monthlyReq.Month, "month", "", "Month, 1 to 12")
	f.StringVar(&monthlyReq.SFTPUser, "sftp-user", "", "SFTP user owning the Import/Export folders")
	f.StringVar(&monthlyReq.BucketName, "bucket", "", "Target bucket")
	f.BoolVar(&monthlyUpload, "upload", false, "Upload the trigger instead of printing it")

	rootCmd.AddCommand(eodCmd)
	rootCmd.AddCommand(monthlyCmd)
}

func printFile(w io.Writer, bucket string, file trigger.GeneratedFile) error {
	if outputFormat == "json" {
		return printJSON(w, file)
	}
	fmt.Fprintf(w, "File:        %s\n", file.FileName)
	fmt.Fprintf(w, "Destination: s3://%s/%s\n", bucket, file.DestinationKey)
	if file.Content == "" {
		fmt.Fprintln(w, "Content:     (empty)")
		return nil
	}
	fmt.Fprintln(w, "Content:")
	_, err := fmt.Fprintln(w, file.Content)
	return err
}

// printUpload reports the result and turns a failed upload into an error so
// the exit status reflects it.
func printUpload(w io.Writer, result types.UploadResult) error {
	if outputFormat == "json" {
		if err := printJSON(w, result); err != nil {
			return err
		}
	} else if result.Success {
		fmt.Fprintf(w, "Uploaded %s to %s at %s\n", result.FileName, result.DestinationPath, result.UploadedAt.Format(time.RFC3339))
	}
	if !result.Success {
		return fmt.Errorf("upload of %s to %s failed: %s", result.FileName, result.DestinationPath, result.Error)
	}
	return nil
}
