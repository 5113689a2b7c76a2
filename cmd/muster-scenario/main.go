// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// muster-scenario generates and validates scenario files.
//
// Usage:
//
//	muster-scenario generate --out basic.json [--agents N --targets N --obstacles N]
//	muster-scenario validate basic.json
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/muster-robotics/muster/lib/process"
	"github.com/muster-robotics/muster/scenario"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: muster-scenario <generate|validate> [flags]")
	}

	switch os.Args[1] {
	case "generate":
		return generate(os.Args[2:])
	case "validate":
		return validate(os.Args[2:])
	default:
		return fmt.Errorf("unknown command %q (want generate or validate)", os.Args[1])
	}
}

func generate(args []string) error {
	flags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	var (
		out       string
		name      string
		agents    int
		targets   int
		obstacles int
		width     float64
		height    float64
		seed      int64
	)
	flags.StringVar(&out, "out", "", "output file (required)")
	flags.StringVar(&name, "name", "generated", "scenario name")
	flags.IntVar(&agents, "agents", 8, "number of agents")
	flags.IntVar(&targets, "targets", 5, "number of targets")
	flags.IntVar(&obstacles, "obstacles", 4, "number of obstacles")
	flags.Float64Var(&width, "width", 1200, "world width")
	flags.Float64Var(&height, "height", 800, "world height")
	flags.Int64Var(&seed, "seed", 0, "random seed (0 = from clock)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if out == "" {
		return fmt.Errorf("generate: --out is required")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	world := scenario.Generate(rand.New(rand.NewSource(seed)), scenario.GenerateSpec{
		Name:      name,
		Agents:    agents,
		Targets:   targets,
		Obstacles: obstacles,
		Width:     width,
		Height:    height,
	})
	if err := world.Validate(width, height); err != nil {
		return fmt.Errorf("generated scenario: %w", err)
	}
	if err := scenario.Save(world, out); err != nil {
		return err
	}

	digest, err := scenario.Digest(world)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d agents, %d targets, %d obstacles, digest %s)\n",
		out, agents, targets, obstacles, digest[:12])
	return nil
}

func validate(args []string) error {
	flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	var (
		width  float64
		height float64
	)
	flags.Float64Var(&width, "width", 1200, "world width to validate against (0 = skip bounds)")
	flags.Float64Var(&height, "height", 800, "world height to validate against")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: muster-scenario validate [flags] <file>")
	}
	path := flags.Arg(0)

	world, err := scenario.Load(path)
	if err != nil {
		return err
	}
	if err := world.Validate(width, height); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	digest, err := scenario.Digest(world)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%q, %d agents, %d targets, %d obstacles, digest %s)\n",
		path, world.Name, len(world.Agents), len(world.Targets), len(world.Obstacles), digest[:12])
	return nil
}
