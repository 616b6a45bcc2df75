package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rootle/internal/cloudservice"
	"rootle/internal/trigger"
	"rootle/internal/types"
)

var (
	matchService string

	monitorReq     cloudservice.MonitorRequest
	monitorService string
	monitorStatus  bool
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match TRIGGER [OUTPUT_KEY...]",
	Short: "Match output file names against a trigger offline",
	Long: `Report which output object keys belong to TRIGGER. Keys are taken from the
remaining arguments, or one per line from stdin when none are given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceType := types.ServiceType(matchService)
		if !serviceType.IsValid() {
			return fmt.Errorf("unknown service type %q", matchService)
		}

		keys := args[1:]
		if len(keys) == 0 {
			var err error
			if keys, err = readLines(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		candidates := make([]types.ObjectInfo, 0, len(keys))
		for _, k := range keys {
			candidates = append(candidates, types.ObjectInfo{Key: k})
		}

		result := trigger.Match(args[0], serviceType, candidates)
		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), result)
		}

		w := cmd.OutOrStdout()
		d := trigger.ParseTrigger(args[0], serviceType)
		fmt.Fprintf(w, "Trigger: %s (%s)\n", args[0], d.Kind)
		for _, obj := range result.MatchingObjects {
			fmt.Fprintln(w, obj.Key)
		}
		_, err := fmt.Fprintf(w, "%d of %d matched\n", len(result.MatchingObjects), len(candidates))
		return err
	},
}

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "List the outputs produced for an uploaded trigger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := monitorReq
		req.ServiceType = types.ServiceType(monitorService)

		creds, err := credentialsFromEnv()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		svc := newService(cmd, true)
		w := cmd.OutOrStdout()

		if monitorStatus {
			status, err := svc.Status(ctx, creds, req)
			if err != nil {
				return describeError(err)
			}
			if outputFormat == "json" {
				return printJSON(w, status)
			}
			fmt.Fprintf(w, "Trigger pending: %t\n", status.TriggerPresent)
			fmt.Fprintf(w, "Complete:        %t\n", status.Complete)
			return printMatches(w, status.Outputs)
		}

		result, err := svc.Monitor(ctx, creds, req)
		if err != nil {
			return describeError(err)
		}
		if outputFormat == "json" {
			return printJSON(w, result)
		}
		return printMatches(w, result)
	},
}

func init() {
	matchCmd.Flags().StringVarP(&matchService, "service-type", "s", string(types.ServiceGSAPEOD), "Service type (GSAP-EOD, GSAP-Monthly)")

	f := monitorCmd.Flags()
	f.StringVarP(&monitorService, "service-type", "s", string(types.ServiceGSAPEOD), "Service type (GSAP-EOD, GSAP-Monthly)")
	f.StringVar(&monitorReq.BucketName, "bucket", "", "Bucket the trigger was uploaded to")
	f.StringVar(&monitorReq.SFTPUser, "sftp-user", "", "SFTP user owning the Import/Export folders")
	f.StringVar(&monitorReq.TriggerFileName, "trigger", "", "Trigger file name")
	f.BoolVar(&monitorStatus, "status", false, "Also report whether the trigger is still waiting to be picked up")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(monitorCmd)
}

func printMatches(w io.Writer, result types.MatchResult) error {
	if len(result.MatchingObjects) == 0 {
		_, err := fmt.Fprintln(w, "No outputs yet")
		return err
	}
	for _, obj := range result.MatchingObjects {
		fmt.Fprintf(w, "%s\t%d\t%s\n", obj.LastModified.Format(time.RFC3339), obj.Size, obj.Key)
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading keys: %w", err)
	}
	return lines, nil
}
