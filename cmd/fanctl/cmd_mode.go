package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func init() {
	cmdMode.AddCommand(cmdModeGet)
	cmdMode.AddCommand(cmdModeSet)
	rootCmd.AddCommand(cmdMode)
}

var (
	cmdMode = &cobra.Command{
		Use:   "mode",
		Short: "Get or set the fan mode (off, on, auto)",
	}

	cmdModeGet = &cobra.Command{
		Use:     "get",
		Example: "fanctl mode get",
		Short:   "Print the current fan mode",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()

			resp, err := clientFromContext(ctx).GetMode(ctx, &emptypb.Empty{})
			if err != nil {
				return err
			}
			mode := fancontroller.Mode(resp.GetValue())
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", mode, int(mode))
			return err
		},
	}

	cmdModeSet = &cobra.Command{
		Use:       "set <off|on|auto>",
		Example:   "fanctl mode set auto\nfanctl mode set 1",
		Short:     "Switch the fan mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"off", "on", "auto"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := fancontroller.ParseMode(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := requestContext(cmd.Context())
			defer cancel()

			_, err = clientFromContext(ctx).SetMode(ctx, wrapperspb.Int32(int32(mode)))
			return err
		},
	}
)
