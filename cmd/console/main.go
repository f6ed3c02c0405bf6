// Package main implements a headless CHIP-8 runner that prints the final
// framebuffer to the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"

	"gochip8/pkg/config"
	"gochip8/pkg/cpu"
	"gochip8/pkg/display"
	"gochip8/pkg/utils"
)

type options struct {
	romPath    string
	configPath string
	frames     int
	cycles     int
	keys       string
	screenshot string
	scale      int
	seed       uint64
	debug      bool
	quiet      bool
	palette    display.Palette
}

func main() {
	opts := readArguments()
	logger := config.CreateLogger(opts.debug, opts.quiet)
	ctx := app.Context()

	rom, err := utils.LoadROM(opts.romPath)
	if err != nil {
		logger.Fatal("Loading ROM failed", log.Err(err))
	}

	if err := run(ctx, logger, rom, opts, os.Stdout); err != nil {
		logger.Error("Run failed", log.String("rom", opts.romPath), log.Err(err))
		os.Exit(1)
	}
}

func readArguments() options {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options
	flags.StringVar(&opts.configPath, "c", "", "YAML settings file, flags given on the command line take precedence")
	flags.IntVar(&opts.frames, "frames", 60, "number of timer ticks to run")
	flags.IntVar(&opts.cycles, "cycles", config.DefaultCyclesPerFrame, "instructions executed per timer tick")
	flags.StringVar(&opts.keys, "keys", "", "hex digits of keypad keys held down for the whole run, e.g. \"5A\"")
	flags.StringVar(&opts.screenshot, "screenshot", "", "save the final framebuffer as PNG to this file")
	flags.IntVar(&opts.scale, "scale", config.DefaultScale, "screenshot pixels per CHIP-8 pixel")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed for the random number instruction (0: random)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.quiet, "q", false, "only log errors")

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err == nil && len(args) == 1 {
		err = applySettings(&opts, flags)
	}
	if err != nil || len(args) != 1 {
		if err != nil {
			fmt.Printf("error: %v\n\n", err)
		}
		fmt.Printf("usage: chip8console [options] <rom file>\n\n")
		flags.PrintDefaults()
		os.Exit(1)
	}
	opts.romPath = args[0]
	return opts
}

// applySettings merges the optional settings file with the parsed flags.
// The console has no timer rate or beeper, so hz and mute are ignored.
func applySettings(opts *options, flags *flag.FlagSet) error {
	settings, err := config.ResolveSettings(opts.configPath, flags)
	if err != nil {
		return err
	}
	palette, err := settings.DisplayPalette()
	if err != nil {
		return err
	}

	opts.cycles = settings.Cycles
	opts.scale = settings.Scale
	opts.seed = settings.Seed
	opts.palette = palette
	return nil
}

// run executes opts.frames batches of opts.cycles instructions, ticking the
// timers after every batch, and writes the framebuffer and a summary to w.
func run(ctx context.Context, logger *log.Logger, rom []byte, opts options, w io.Writer) error {
	unknown := 0
	cpuOpts := []cpu.Option{
		cpu.WithLogger(logger),
		cpu.WithUnknownOpcodeHandler(func(pc, opcode uint16) { unknown++ }),
	}
	if opts.seed != 0 {
		cpuOpts = append(cpuOpts, cpu.WithSeed(opts.seed))
	}

	vm, err := cpu.NewInterpreter(rom, cpuOpts...)
	if err != nil {
		return err
	}
	if err := holdKeys(vm, opts.keys); err != nil {
		return err
	}

	var runErr error
	frame := 0
	for ; frame < opts.frames; frame++ {
		if runErr = vm.Run(ctx, opts.cycles); runErr != nil {
			break
		}
		vm.Tick()
	}

	if _, err := fmt.Fprint(w, vm.Display.String()); err != nil {
		return fmt.Errorf("writing framebuffer: %w", err)
	}
	if _, err := fmt.Fprintf(w, "frames=%d PC=0x%03X I=0x%03X unknown=%d awaiting_key=%t\n",
		frame, vm.Regs.PC, vm.Regs.I, unknown, vm.AwaitingKey()); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if opts.screenshot != "" {
		if err := vm.Display.SaveScreenshot(opts.screenshot, opts.scale, opts.palette); err != nil {
			return err
		}
		logger.Info("Saved screenshot", log.String("file", opts.screenshot))
	}

	return runErr
}

func holdKeys(vm *cpu.Interpreter, keys string) error {
	for _, r := range keys {
		idx, err := strconv.ParseUint(string(r), 16, 8)
		if err != nil {
			return fmt.Errorf("invalid key '%c': %w", r, err)
		}
		vm.Keypad.SetKey(byte(idx), true)
	}
	return nil
}
