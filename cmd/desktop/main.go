// Package main implements the desktop CHIP-8 front end: a window showing the
// framebuffer, the hex keypad mapped to the keyboard and a beeper.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
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
	cycles     int
	hz         int
	scale      int
	seed       uint64
	mute       bool
	debug      bool
	quiet      bool
	palette    display.Palette
}

// Game drives the interpreter from ebiten's update loop. Each Update runs a
// batch of cycles and one timer tick, so keypad writes and framebuffer reads
// always happen between batches.
type Game struct {
	ctx     context.Context
	vm      *cpu.Interpreter
	logger  *log.Logger
	cycles  int
	scale   int
	palette display.Palette
	keys    []keyBinding
	beeper  *beeper

	frameImg *ebiten.Image // reused 64x32 canvas
	paused   bool
	lastErr  error
}

// runFrame executes one batch of cycles and ticks the timers once.
func (g *Game) runFrame() {
	if g.paused || g.vm.Halted() {
		return
	}

	if err := g.vm.Run(g.ctx, g.cycles); err != nil {
		if !errors.Is(err, context.Canceled) {
			g.lastErr = err
		}
		return
	}
	g.vm.Tick()
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		if err := g.vm.Reset(); err != nil {
			return err
		}
		g.lastErr = nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.screenshot()
	}

	applyKeys(g.vm.Keypad, g.keys, ebiten.IsKeyPressed)
	g.runFrame()

	if g.beeper != nil {
		g.beeper.Set(g.vm.SoundActive() && !g.paused)
	}
	return nil
}

func (g *Game) screenshot() {
	name := fmt.Sprintf("chip8-%s.png", time.Now().Format("20060102-150405"))
	if err := g.vm.Display.SaveScreenshot(name, g.scale, g.palette); err != nil {
		g.logger.Error("Saving screenshot failed", log.Err(err))
		return
	}
	g.logger.Info("Saved screenshot", log.String("file", name))
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.frameImg == nil {
		g.frameImg = ebiten.NewImage(display.Width, display.Height)
	}

	g.frameImg.WritePixels(g.vm.Display.RGBA(g.palette))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.frameImg, op)

	switch {
	case g.lastErr != nil:
		ebitenutil.DebugPrint(screen, "HALTED: "+g.lastErr.Error()+"\nBackspace to reset")
	case g.paused:
		ebitenutil.DebugPrint(screen, "PAUSED")
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return display.Width * g.scale, display.Height * g.scale
}

func main() {
	opts := readArguments()
	logger := config.CreateLogger(opts.debug, opts.quiet)

	rom, err := utils.LoadROM(opts.romPath)
	if err != nil {
		logger.Fatal("Loading ROM failed", log.Err(err))
	}

	cpuOpts := []cpu.Option{cpu.WithLogger(logger)}
	if opts.seed != 0 {
		cpuOpts = append(cpuOpts, cpu.WithSeed(opts.seed))
	}
	vm, err := cpu.NewInterpreter(rom, cpuOpts...)
	if err != nil {
		logger.Fatal("Creating interpreter failed", log.Err(err))
	}

	game := &Game{
		ctx:     app.Context(),
		vm:      vm,
		logger:  logger,
		cycles:  opts.cycles,
		scale:   opts.scale,
		palette: opts.palette,
		keys:    defaultKeyBindings(),
	}

	if !opts.mute {
		b, err := newBeeper(audio.NewContext(sampleRate), beepFrequency)
		if err != nil {
			logger.Error("Audio unavailable, continuing without sound", log.Err(err))
		} else {
			game.beeper = b
		}
	}

	ebiten.SetTPS(opts.hz)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(display.Width*opts.scale, display.Height*opts.scale)
	ebiten.SetWindowTitle("CHIP-8 - " + opts.romPath)

	logger.Info("Starting",
		log.String("rom", opts.romPath),
		log.Int("cycles", opts.cycles),
		log.Int("hz", opts.hz))

	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal("Running game failed", log.Err(err))
	}
}

func readArguments() options {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options
	flags.StringVar(&opts.configPath, "c", "", "YAML settings file, flags given on the command line take precedence")
	flags.IntVar(&opts.cycles, "cycles", config.DefaultCyclesPerFrame, "instructions executed per timer tick")
	flags.IntVar(&opts.hz, "hz", config.DefaultTimerHz, "timer ticks per second")
	flags.IntVar(&opts.scale, "scale", config.DefaultScale, "window pixels per CHIP-8 pixel")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed for the random number instruction (0: random)")
	flags.BoolVar(&opts.mute, "mute", false, "disable the beeper")
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
		fmt.Printf("usage: chip8 [options] <rom file>\n\n")
		flags.PrintDefaults()
		fmt.Printf("\nkeys: 1234/QWER/ASDF/ZXCV keypad, P pause, Backspace reset, F12 screenshot, Esc quit\n")
		os.Exit(1)
	}
	opts.romPath = args[0]
	return opts
}

// applySettings merges the optional settings file with the parsed flags.
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
	opts.hz = settings.Hz
	opts.scale = settings.Scale
	opts.seed = settings.Seed
	opts.mute = settings.Mute
	opts.palette = palette
	return nil
}
