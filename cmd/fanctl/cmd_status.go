package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	fanapiv1alpha1 "github.com/uptime-industries/gboxfan-agent/api/fanapi/v1alpha1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

func init() {
	cmdStatus.Flags().BoolP("watch", "w", false, "keep printing the status on every change")
	cmdStatus.Flags().StringP("output", "o", "text", "output format: text, yaml or json")
	rootCmd.AddCommand(cmdStatus)
}

var cmdStatus = &cobra.Command{
	Use:     "status",
	Example: "fanctl status\nfanctl status --watch -o json",
	Short:   "Show the fan status",
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if err := checkFormat(output); err != nil {
		return err
	}

	ctx := cmd.Context()
	client := clientFromContext(ctx)

	reqCtx, cancel := requestContext(ctx)
	resp, err := client.GetStatus(reqCtx, &emptypb.Empty{})
	cancel()
	if err != nil {
		return err
	}
	if err := printStatus(cmd.OutOrStdout(), resp, output); err != nil {
		return err
	}

	// No timeout, updates may be far apart
	for watch {
		resp, err := client.WaitForUpdate(ctx, &emptypb.Empty{})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := printStatus(cmd.OutOrStdout(), resp, output); err != nil {
			return err
		}
	}
	return nil
}

func checkFormat(format string) error {
	switch format {
	case "text", "yaml", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printStatus(w io.Writer, resp *structpb.Struct, format string) error {
	status, err := fanapiv1alpha1.StatusFromStruct(resp)
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(status)
	case "json":
		return json.NewEncoder(w).Encode(status)
	default:
		return printText(w, status)
	}
}

func printText(w io.Writer, status fanapiv1alpha1.Status) error {
	fan := "off"
	if status.FanOn {
		fan = "on"
	}
	temperature := "n/a"
	if status.LastTemperature != nil {
		temperature = fmt.Sprintf("%d°C", *status.LastTemperature)
	}

	_, err := fmt.Fprintf(w, "mode:        %s\nfan:         %s\ntemperature: %s (trigger above %d°C)\n",
		status.Mode, fan, temperature, status.TriggerTemperature)
	if err != nil {
		return err
	}
	if !status.UpdatedAt.IsZero() {
		_, err = fmt.Fprintf(w, "updated:     %s (%s)\n", status.UpdatedAt.Local().Format(time.RFC3339), status.Reason)
	}
	return err
}
