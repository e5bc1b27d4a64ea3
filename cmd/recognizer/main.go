package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	cli "github.com/spf13/cobra"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/config"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/cv"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/events"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/logging"
)

var (
	configPath string

	rootCmd = &cli.Command{
		Use:           "recognizer",
		Short:         "Screen recognition engine",
		Long:          "Captures the screen and answers whether a template, color, text-like area or scene is visible.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "settings.ini", "settings file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every command needs
type app struct {
	settings *config.Settings
	service  *cv.Service
	bus      *events.DefaultEventBus
	events   *logging.EventLogger
	logFile  io.Closer
}

// newApp loads settings and wires logging, events and the engine
func newApp() (*app, error) {
	settings, err := loadSettings(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("cv").SetMinLevel(settings.LogLevel)
	eventLogger := logging.NewLogger("events").SetMinLevel(settings.LogLevel)

	a := &app{settings: settings}
	if settings.LogFile != "" {
		file, err := logging.NewRotatingFile(settings.LogFile)
		if err != nil {
			return nil, err
		}
		logger.AddOutput(file)
		eventLogger.AddOutput(file)
		a.logFile = file
	}

	a.bus = events.NewEventBus(64)
	a.events = logging.NewEventLogger(a.bus, eventLogger)

	a.service, err = cv.NewService(cv.NewScreenCapturer(), settings.Engine,
		cv.WithLogger(logger),
		cv.WithEventBus(a.bus),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadSettings reads path, falling back to defaults when it does not exist
func loadSettings(path string) (*config.Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.NewDefaultSettings(), nil
	}
	return config.LoadFromINI(path)
}

// Close drains pending events and closes the log file
func (a *app) Close() {
	if a.bus != nil {
		a.bus.Stop()
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// withApp runs fn with a fully wired app
func withApp(fn func(a *app, cmd *cli.Command, args []string) error) func(*cli.Command, []string) error {
	return func(cmd *cli.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(a, cmd, args)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
