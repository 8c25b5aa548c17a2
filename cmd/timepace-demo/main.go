// Copyright 2026 The Timepace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command timepace-demo drives an interp.Interpolator from a synthetic or
// RTP-backed audio source and exposes its live state over Prometheus
// metrics and a websocket diagnostics feed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/streamforge/timepace/clockutil"
	"github.com/streamforge/timepace/config"
	"github.com/streamforge/timepace/diagnostics"
	"github.com/streamforge/timepace/diagstream"
	"github.com/streamforge/timepace/errs"
	"github.com/streamforge/timepace/interp"
	"github.com/streamforge/timepace/metrics"
	"github.com/streamforge/timepace/source"
)

func main() {
	cmd := &cli.Command{
		Name:        "timepace-demo",
		Usage:       "Time Interpolator demo host",
		Description: "drives a DLL-based stream clock from a synthetic or RTP audio source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "timepace yaml config file",
				Sources: cli.EnvVars("TIMEPACE_CONFIG_FILE"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	configFile := c.String("config")
	if configFile == "" {
		return errs.ErrNoConfig
	}

	conf, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log, err := newLogger(conf)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry, conf.NodeID)
	hub := diagstream.NewHub(log)

	diag := diagnostics.Multi{
		diagnostics.NewZapSink(log),
		hub,
		collector.AsDiagnostics(),
	}

	clock := clockutil.SystemClock{}
	in := interp.New(clock, diag)
	in.SetLatency(conf.Latency)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/diagnostics/ws", hub)
	metricsServer := &http.Server{Addr: conf.MetricsAddr, Handler: mux}

	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	audioSrc, err := buildSource(conf, in)
	if err != nil {
		return err
	}
	go audioSrc.Run()

	go sampleLoop(ctx, in, collector)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("shutting down", zap.String("signal", sig.String()))

	audioSrc.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsServer.Shutdown(shutdownCtx)
}

// runnableSource is the minimal interface the demo needs from either audio
// source implementation.
type runnableSource interface {
	Run()
	Close()
}

// buildSource only wires the ticker source: the "rtp" source
// (source.RTPSource) needs a live *webrtc.TrackRemote from a signaled peer
// connection, which is outside the scope of this demo host. It is a fully
// tested library component for hosts that do have one.
func buildSource(conf *config.Config, in *interp.Interpolator) (runnableSource, error) {
	switch conf.Source {
	case "ticker":
		return source.NewTickerSource(in, time.Duration(conf.FrameUsecs)*time.Microsecond, conf.FrameUsecs), nil
	default:
		return nil, errs.ErrUnknownSource
	}
}

func sampleLoop(ctx context.Context, in *interp.Interpolator, collector *metrics.Collector) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collector.Sample(in)
		}
	}
}

func newLogger(conf *config.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(conf.LogLevel))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if conf.LogFile != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
		}))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(writers...),
		level,
	)

	return zap.New(core), nil
}
