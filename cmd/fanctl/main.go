package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	fanapiv1alpha1 "github.com/uptime-industries/gboxfan-agent/api/fanapi/v1alpha1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type grpcClientContextKey int

const (
	defaultGrpcClientContextKey grpcClientContextKey = 0
)

var (
	grpcAddr string
	timeout  time.Duration
)

func init() {
	rootCmd.PersistentFlags().
		StringVar(&grpcAddr, "addr", "unix:///tmp/gboxfan.sock", "address of the gboxfan-agent gRPC server")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout for gRPC requests")
}

func clientIntoContext(ctx context.Context, client fanapiv1alpha1.FanServiceClient) context.Context {
	return context.WithValue(ctx, defaultGrpcClientContextKey, client)
}

func clientFromContext(ctx context.Context) fanapiv1alpha1.FanServiceClient {
	client, ok := ctx.Value(defaultGrpcClientContextKey).(fanapiv1alpha1.FanServiceClient)
	if !ok {
		panic("grpc client not found in context")
	}
	return client
}

// requestContext bounds a single request by --timeout
func requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

var rootCmd = &cobra.Command{
	Use:           "fanctl",
	Short:         "fanctl interacts with the gboxfan-agent and allows you to switch and inspect the fan",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancelCtx := context.WithCancel(cmd.Context())

		// setup signal handler channels
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			// Wait for context cancel or signal
			select {
			case <-ctx.Done():
			case <-sigs:
				// On signal, cancel context
				cancelCtx()
			}
		}()

		conn, err := grpc.Dial(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			cancelCtx()
			return fmt.Errorf("failed to dial grpc server: %w", err)
		}
		client := fanapiv1alpha1.NewFanServiceClient(conn)

		cmd.SetContext(clientIntoContext(ctx, client))
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
