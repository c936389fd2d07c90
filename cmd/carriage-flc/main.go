// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command carriage-flc drives the real carriage hardware: it loads the
// controller configuration, brings up the IMU transport and actuation
// channels, and runs the fixed-rate control loop until an OS signal
// requests shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tim8trudeau/carriage-flc/internal/actuation"
	"github.com/tim8trudeau/carriage-flc/internal/conditioner"
	"github.com/tim8trudeau/carriage-flc/internal/config"
	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
	"github.com/tim8trudeau/carriage-flc/internal/fuzzy"
	"github.com/tim8trudeau/carriage-flc/internal/imutransport"
	"github.com/tim8trudeau/carriage-flc/internal/scheduler"
	"github.com/tim8trudeau/carriage-flc/internal/telemetry"
)

// Exit codes per the process surface: 0 normal, 1 startup failure
// (IMU not ready, config error), 2 unhandled fault.
const (
	exitOK            = 0
	exitStartupFailed = 1
	exitFault         = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "flc_config.toml", "path to the controller TOML configuration")
	mqttBroker := flag.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker for telemetry publishing")
	mqttTopic := flag.String("mqtt-topic", "carriage/flc/trace", "MQTT topic for per-tick trace records")
	wsAddr := flag.String("ws-addr", "", "optional address to serve the telemetry websocket/HTTP API on, e.g. :8090")
	flag.Parse()

	if os.Getenv("TARGET_MODE") == "1" {
		log.SetOutput(os.Stderr)
		log.SetFlags(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carriage-flc: config load failed: %v\n", err)
		return exitStartupFailed
	}

	transport, err := imutransport.OpenI2C(fmt.Sprintf("%d", cfg.ControllerParams.I2CBus), cfg.ControllerParams.I2CAddr, 20*time.Millisecond)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carriage-flc: imu transport open failed: %v\n", err)
		return exitStartupFailed
	}
	defer transport.Close()

	cond, err := conditioner.New(transport, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carriage-flc: conditioner init failed: %v\n", err)
		return exitStartupFailed
	}

	motor, err := actuation.NewGPIOMotor("GPIO18", "GPIO19", cfg.ControllerParams.PWMFreqHz, cfg.PWMParams.MinPWM, cfg.PWMParams.MaxPWM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carriage-flc: motor init failed: %v\n", err)
		return exitStartupFailed
	}

	fz := fuzzy.NewFuzzifier(cfg)
	rules := fuzzy.NewRuleEngine(cfg)

	sched := scheduler.New(transport, motor, cond, fz, rules, cfg.ControllerParams.LoopFreqHz, 3*time.Second)

	sink := telemetry.NewSink()
	sched.Observer = func(tk scheduler.Tick) {
		sink.Publish(telemetry.Record{Time: tk.Time, ThetaN: tk.ThetaN, OmegaN: tk.OmegaN, U: tk.U})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if pub, err := telemetry.NewMQTTPublisher(*mqttBroker, "carriage-flc", *mqttTopic); err != nil {
		log.Printf("carriage-flc: mqtt telemetry disabled: %v", err)
	} else {
		ch := sink.Subscribe(64)
		g.Go(func() error {
			pub.Run(gctx, ch)
			return nil
		})
	}

	if *wsAddr != "" {
		hub := telemetry.NewHub()
		snap := telemetry.NewSnapshot()
		ch := sink.Subscribe(64)
		snapCh := sink.Subscribe(64)

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		mux.Handle("/telemetry", snap)
		srv := &http.Server{Addr: *wsAddr, Handler: mux}

		g.Go(func() error {
			hub.Run(gctx, ch)
			return nil
		})
		g.Go(func() error {
			snap.Run(gctx, snapCh)
			return nil
		})
		g.Go(func() error {
			go func() {
				<-gctx.Done()
				srv.Close()
			}()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("carriage-flc: telemetry http server: %v", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, ctlerr.ErrNotReady) || errors.Is(err, ctlerr.ErrConfig) {
			fmt.Fprintf(os.Stderr, "carriage-flc: %v\n", err)
			return exitStartupFailed
		}
		fmt.Fprintf(os.Stderr, "carriage-flc: %v\n", err)
		return exitFault
	}

	return exitOK
}
