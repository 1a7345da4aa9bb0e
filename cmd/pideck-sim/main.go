// Command pideck-sim runs the keypad controller against a keypad drawn in
// the terminal. Commands are shown instead of typed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/pideck"
)

var (
	config    = "pideck.toml"
	logFile   = ""
	holdTicks = 4
	verbose   = false
)

func init() {
	pflag.StringVarP(&config, "config", "c", config, "configuration file, TOML or JSON")
	pflag.StringVarP(&logFile, "log", "l", logFile, "write logs to this file")
	pflag.IntVar(&holdTicks, "hold", holdTicks, "ticks a key stays down after it is typed")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
}

func main() {
	pflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	f, err := os.Open(config)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	cfg, err := pideck.ReadConfig(f, config)
	f.Close()
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	defer screen.Fini()

	keypad := newSimKeypad(screen, cfg.NumKeys, holdTicks)

	ctrl, err := pideck.NewController(cfg, keypad.devices(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return ctrl.Run(ctx)
	})
	errg.Go(func() error {
		<-ctx.Done()
		// Wake up the event loop.
		screen.PostEvent(tcell.NewEventInterrupt(nil))
		return nil
	})
	errg.Go(func() error {
		pollEvents(screen, keypad, cancel)
		return nil
	})

	if err := errg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// pollEvents feeds typed keys to the keypad until the user quits or an
// interrupt event arrives.
func pollEvents(screen tcell.Screen, keypad *simKeypad, quit func()) {
	for {
		switch ev := screen.PollEvent().(type) {
		case nil, *tcell.EventInterrupt:
			return
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				quit()
				return
			case tcell.KeyRune:
				keypad.pressRune(ev.Rune())
			}
		}
	}
}

func openLogger() (*slog.Logger, func(), error) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	var w io.Writer = io.Discard
	closeLog := func() {}

	// The terminal belongs to the keypad, so logs only go to a file.
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	return logger, closeLog, nil
}
