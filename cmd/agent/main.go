package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	fanapiv1alpha1 "github.com/uptime-industries/gboxfan-agent/api/fanapi/v1alpha1"
	"github.com/uptime-industries/gboxfan-agent/internal/agent"
	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var configPath = pflag.String("config", "", "path to the configuration file (default /etc/gboxfan/config.yaml)")

func main() {
	pflag.Parse()

	var wg sync.WaitGroup

	// setup logger
	zapLogger := zap.Must(zap.NewDevelopment()).With(zap.String("app", "gboxfan-agent"))
	_ = zap.ReplaceGlobals(zapLogger.With(zap.String("scope", "global")))
	baseCtx := log.IntoContext(context.Background(), zapLogger)

	ctx, cancelCtx := context.WithCancelCause(baseCtx)
	defer cancelCtx(context.Canceled)

	config, err := agent.LoadConfig(*configPath)
	if err != nil {
		log.FromContext(ctx).Fatal("Failed to load configuration", zap.Error(err))
	}

	fanAgent, err := agent.NewFanAgent(ctx, config)
	if err != nil {
		log.FromContext(ctx).Fatal("Failed to create agent", zap.Error(err))
	}

	// setup stop signal handlers
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Wait for context cancel or signal
		select {
		case <-ctx.Done():
		case sig := <-sigs:
			// On signal, cancel context
			cancelCtx(fmt.Errorf("signal %s received", sig))
		}
	}()

	// Run agent
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := fanAgent.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.FromContext(ctx).Error("Failed to run agent", zap.Error(err))
			cancelCtx(err)
		}
	}()

	// setup grpc server
	grpcServer := grpc.NewServer()
	fanapiv1alpha1.RegisterFanServiceServer(grpcServer, agent.NewGrpcServiceFor(fanAgent))
	listener, err := listen(config.Listen.Grpc)
	if err != nil {
		log.FromContext(ctx).Error("Failed to create grpc listener", zap.Error(err))
		cancelCtx(err)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.FromContext(ctx).Info("Starting grpc server", zap.String("address", config.Listen.Grpc))
			if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.FromContext(ctx).Error("Failed to start grpc server", zap.Error(err))
				cancelCtx(err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		// Pending WaitForUpdate calls would block a graceful stop forever
		timer := time.AfterFunc(5*time.Second, grpcServer.Stop)
		defer timer.Stop()
		grpcServer.GracefulStop()
	}()

	// setup prometheus endpoint
	if config.Listen.Metrics != "" {
		promHandler := http.NewServeMux()
		promHandler.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: config.Listen.Metrics, Handler: promHandler}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := server.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				log.FromContext(ctx).Error("Failed to start prometheus server", zap.Error(err))
				cancelCtx(err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := server.Shutdown(shutdownCtx)
			if err != nil {
				log.FromContext(ctx).Error("Failed to shutdown prometheus server", zap.Error(err))
			}
		}()
	}

	// Wait for context cancel
	wg.Wait()
	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.FromContext(ctx).Info("Exiting", zap.NamedError("cause", err))
	} else {
		log.FromContext(ctx).Info("Exiting")
	}
}

// listen creates the grpc listener: unix:///path for a unix socket, host:port otherwise.
// A stale socket from a previous run is removed.
func listen(address string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(address, "unix://"); ok {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
		return net.Listen("unix", path)
	}
	return net.Listen("tcp", address)
}
