// Command maxreduce runs a distributed maximum reduction
// over a hypercube topology and prints the result.
//
// Usage:
//
//	maxreduce -dim DIMENSION -input INPUT_FILE [-procs N]
//	maxreduce -config run.yml
//
// Flags override values from the optional YAML config.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/unixpickle/essentials"

	"github.com/hypercube-reduce/config"
	"github.com/hypercube-reduce/hypercube"
)

// parseRun builds the run configuration from command-line
// arguments. A flag that was explicitly set overrides the
// config file even when its value is zero, so a bad
// -dim 0 is rejected by validation instead of silently
// falling back. ok is false when usage should be printed
// instead of running.
func parseRun(args []string) (cfg *config.Config, ok bool, err error) {
	fs := flag.NewFlagSet(hypercube.ProgName, flag.ContinueOnError)
	dim := fs.Int("dim", 0, "hypercube dimension (at least 2)")
	input := fs.String("input", "", "file containing the values to reduce")
	procs := fs.Int("procs", 0, "group size (default 1 + 2^dim)")
	confPath := fs.String("config", "", "optional YAML run configuration")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if fs.NFlag() == 0 {
		return nil, false, nil
	}

	cfg = &config.Config{}
	if *confPath != "" {
		cfg, err = config.Load(*confPath)
		if err != nil {
			return nil, false, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dim":
			cfg.Dimension = *dim
		case "input":
			cfg.InputPath = *input
		case "procs":
			cfg.GroupSize = *procs
		}
	})
	return cfg, true, nil
}

func main() {
	cfg, ok, err := parseRun(os.Args[1:])
	if err != nil {
		essentials.Die(err)
	}
	if !ok {
		fmt.Println("usage: maxreduce -dim DIMENSION -input INPUT_FILE [-procs N]")
		fmt.Println("       maxreduce -config run.yml")
		return
	}

	if err := hypercube.Run(*cfg, os.Stdout); err != nil {
		essentials.Die(fmt.Sprintf("%s: error:", hypercube.ProgName), err)
	}
}
