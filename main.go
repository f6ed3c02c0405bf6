//go:build !js

// Package main implements the CHIP-8 assembler command line tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"gochip8/pkg/asm"
	"gochip8/pkg/config"
	"gochip8/pkg/cpu"
	"gochip8/pkg/utils"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type options struct {
	inPath     string
	outPath    string
	runProgram bool
	runBinPath string
	cycles     int
	seed       uint64
	debug      bool
	quiet      bool
}

func main() {
	opts := readArguments()
	logger := config.CreateLogger(opts.debug, opts.quiet)
	if !opts.quiet {
		fmt.Printf("chip8asm version: %s\n", buildinfo.Version(version, commit, date))
	}

	if opts.runProgram && opts.runBinPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-bin, not both")
		os.Exit(2)
	}

	assembledOutput := ""
	if opts.inPath != "" {
		output, err := assembleFile(logger, opts.inPath, opts.outPath)
		if err != nil {
			logger.Error("Assembly failed", log.String("input", opts.inPath), log.Err(err))
			os.Exit(1)
		}
		assembledOutput = output
	}

	if opts.inPath == "" && opts.runBinPath == "" && !opts.runProgram {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to assemble, -run to run assembled output, or -run-bin <file> to run an existing ROM")
		flag.Usage()
		os.Exit(2)
	}

	runTarget := ""
	switch {
	case opts.runBinPath != "":
		runTarget = opts.runBinPath
	case opts.runProgram:
		if assembledOutput == "" {
			fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
			os.Exit(2)
		}
		runTarget = assembledOutput
	default:
		return
	}

	ctx := app.Context()
	if err := runBinary(ctx, logger, runTarget, opts); err != nil {
		logger.Error("Run failed", log.String("rom", runTarget), log.Err(err))
		os.Exit(1)
	}
}

func readArguments() options {
	var opts options
	flag.StringVar(&opts.inPath, "in", "", "input assembly file path")
	flag.StringVar(&opts.outPath, "out", "", "output ROM file path (default: input with .ch8 extension)")
	flag.BoolVar(&opts.runProgram, "run", false, "run the generated ROM headless")
	flag.StringVar(&opts.runBinPath, "run-bin", "", "run an existing ROM file headless")
	flag.IntVar(&opts.cycles, "cycles", 1000, "number of instructions to execute when running")
	flag.Uint64Var(&opts.seed, "seed", 0, "seed for the random number instruction (0: random)")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&opts.quiet, "q", false, "perform operations quietly")
	flag.Parse()
	return opts
}

func assembleFile(logger *log.Logger, inPath, outPath string) (string, error) {
	source, err := os.ReadFile(inPath)
	if err != nil {
		return "", fmt.Errorf("reading input file: %w", err)
	}

	code, sourceMap, err := asm.Assemble(string(source))
	if err != nil {
		return "", err
	}

	output := outPath
	if output == "" {
		output = defaultOutputPath(inPath)
	}
	if err := writeBinary(output, code); err != nil {
		return "", fmt.Errorf("writing ROM file '%s': %w", output, err)
	}

	logger.Info("Assembled ROM",
		log.String("output", output),
		log.Int("bytes", len(code)),
		log.Int("instructions", len(sourceMap)))
	return output, nil
}

func defaultOutputPath(inPath string) string {
	return utils.ReplaceExt(inPath, ".ch8")
}

func writeBinary(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func runBinary(ctx context.Context, logger *log.Logger, path string, opts options) error {
	rom, err := utils.LoadROM(path)
	if err != nil {
		return err
	}

	cpuOpts := []cpu.Option{cpu.WithLogger(logger)}
	if opts.seed != 0 {
		cpuOpts = append(cpuOpts, cpu.WithSeed(opts.seed))
	}
	vm, err := cpu.NewInterpreter(rom, cpuOpts...)
	if err != nil {
		return err
	}

	if err := vm.Run(ctx, opts.cycles); err != nil {
		return err
	}

	fmt.Print(vm.Display.String())
	fmt.Printf(
		"run complete (%s): PC=0x%03X I=0x%03X SP=%d DT=%d ST=%d V=% X\n",
		path,
		vm.Regs.PC,
		vm.Regs.I,
		vm.Regs.SP,
		vm.Regs.Delay,
		vm.Regs.Sound,
		vm.Regs.V[:],
	)

	return nil
}
