// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command carriage-sim runs the full conditioning/fuzzy/actuation pipeline
// against the offline carriage plant model instead of real hardware, for
// bring-up and tuning of the rule base without a physical rig.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/tim8trudeau/carriage-flc/internal/actuation"
	"github.com/tim8trudeau/carriage-flc/internal/conditioner"
	"github.com/tim8trudeau/carriage-flc/internal/config"
	"github.com/tim8trudeau/carriage-flc/internal/fuzzy"
	"github.com/tim8trudeau/carriage-flc/internal/imutransport"
	"github.com/tim8trudeau/carriage-flc/internal/plant"
	"github.com/tim8trudeau/carriage-flc/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "flc_config.toml", "path to the controller TOML configuration")
	duration := flag.Duration("duration", 10*time.Second, "simulated run duration")
	theta0 := flag.Float64("theta0", 0.3, "initial tilt angle, radians")
	omega0 := flag.Float64("omega0", 0.0, "initial angular rate, rad/s")
	csvPath := flag.String("csv", "", "optional path to write a per-tick trace as CSV")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carriage-sim: config load failed: %v\n", err)
		return 1
	}

	sim := plant.New(plant.DefaultParams(), plant.DefaultMotorParams(), 1.0/cfg.ControllerParams.LoopFreqHz)
	sim.Reset(*theta0, *omega0)

	transport := imutransport.NewSim(sim, cfg)

	cond, err := conditioner.New(transport, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carriage-sim: conditioner init failed: %v\n", err)
		return 1
	}

	motor := actuation.NewSimMotor(cfg.PWMParams.MinPWM, cfg.PWMParams.MaxPWM)
	fz := fuzzy.NewFuzzifier(cfg)
	rules := fuzzy.NewRuleEngine(cfg)

	sched := scheduler.New(transport, motor, cond, fz, rules, cfg.ControllerParams.LoopFreqHz, 3*time.Second)

	var writer *csv.Writer
	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "carriage-sim: open csv: %v\n", err)
			return 1
		}
		defer f.Close()
		writer = csv.NewWriter(f)
		defer writer.Flush()
		if err := writer.Write([]string{"t_s", "theta_n", "omega_n", "u", "plant_theta_rad", "plant_omega_rad_s"}); err != nil {
			log.Printf("carriage-sim: write csv header: %v", err)
		}
	}

	tickCount := 0
	sched.Observer = func(tk scheduler.Tick) {
		tickCount++
		transport.SetMotorCommand(tk.U)
		if writer != nil {
			theta, omega, _, _ := sim.State()
			row := []string{
				strconv.FormatFloat(float64(tickCount)/cfg.ControllerParams.LoopFreqHz, 'f', 5, 64),
				strconv.FormatFloat(tk.ThetaN, 'f', 6, 64),
				strconv.FormatFloat(tk.OmegaN, 'f', 6, 64),
				strconv.FormatFloat(tk.U, 'f', 6, 64),
				strconv.FormatFloat(theta, 'f', 6, 64),
				strconv.FormatFloat(omega, 'f', 6, 64),
			}
			if err := writer.Write(row); err != nil {
				log.Printf("carriage-sim: write csv row: %v", err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	if err := sched.Run(ctx); err != nil && err != context.DeadlineExceeded {
		fmt.Fprintf(os.Stderr, "carriage-sim: run failed: %v\n", err)
		return 2
	}

	theta, omega, _, _ := sim.State()
	fmt.Printf("carriage-sim: %d ticks, final theta=%.4f rad omega=%.4f rad/s\n", tickCount, theta, omega)
	return 0
}
