package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	cli "github.com/spf13/cobra"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/cv"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/scene"
	"github.com/pared2021/honkai-star-rail-automation-sub001/pkg/templates"
)

var (
	regionFlag    string
	thresholdFlag float64
	diffFlag      float64
	timeoutFlag   time.Duration
	catalogFlag   string
	redFlag       string
	greenFlag     string
	blueFlag      string

	captureCmd = &cli.Command{
		Use:   "capture <out.png>",
		Short: "Save the current frame as PNG",
		Args:  cli.ExactArgs(1),
		RunE:  withApp(runCapture),
	}

	findCmd = &cli.Command{
		Use:   "find <template>...",
		Short: "Find one or more templates in a single frame",
		Args:  cli.MinimumNArgs(1),
		RunE:  withApp(runFind),
	}

	waitCmd = &cli.Command{
		Use:   "wait <template>",
		Short: "Poll until a template appears",
		Args:  cli.ExactArgs(1),
		RunE:  withApp(runWait),
	}

	colorCmd = &cli.Command{
		Use:   "color",
		Short: "Measure the fraction of pixels inside an RGB range",
		Args:  cli.NoArgs,
		RunE:  withApp(runColor),
	}

	textCmd = &cli.Command{
		Use:   "text",
		Short: "Report whether a text-like area is visible",
		Args:  cli.NoArgs,
		RunE:  withApp(runText),
	}

	diffCmd = &cli.Command{
		Use:   "diff <template>",
		Short: "Measure how much the frame differs from a reference image",
		Args:  cli.ExactArgs(1),
		RunE:  withApp(runDiff),
	}

	pixelCmd = &cli.Command{
		Use:   "pixel <x> <y>",
		Short: "Print the color of one pixel",
		Args:  cli.ExactArgs(2),
		RunE:  withApp(runPixel),
	}

	sceneCmd = &cli.Command{
		Use:   "scene",
		Short: "Recognize the current scene",
		Args:  cli.NoArgs,
		RunE:  withApp(runScene),
	}

	statsCmd = &cli.Command{
		Use:   "stats",
		Short: "Print cache statistics after one capture",
		Args:  cli.NoArgs,
		RunE:  withApp(runStats),
	}
)

func init() {
	for _, cmd := range []*cli.Command{findCmd, colorCmd, textCmd} {
		cmd.Flags().StringVar(&regionFlag, "region", "", "limit the search to x,y,width,height")
	}
	findCmd.Flags().Float64Var(&thresholdFlag, "threshold", -1, "confidence threshold, negative uses settings")
	waitCmd.Flags().DurationVar(&timeoutFlag, "timeout", -1, "wait budget, negative uses settings")
	diffCmd.Flags().Float64Var(&diffFlag, "threshold", 0.1, "difference threshold")
	colorCmd.Flags().StringVar(&redFlag, "r", "0-255", "red range min-max")
	colorCmd.Flags().StringVar(&greenFlag, "g", "0-255", "green range min-max")
	colorCmd.Flags().StringVar(&blueFlag, "b", "0-255", "blue range min-max")
	sceneCmd.Flags().StringVar(&catalogFlag, "catalog", "", "scene catalog YAML, overrides settings")

	rootCmd.AddCommand(captureCmd, findCmd, waitCmd, colorCmd, textCmd, diffCmd, pixelCmd, sceneCmd, statsCmd)
}

func runCapture(a *app, cmd *cli.Command, args []string) error {
	if err := a.service.SaveScreenshot(cmd.Context(), args[0]); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]string{"saved": args[0]})
}

func runFind(a *app, cmd *cli.Command, args []string) error {
	opts, err := queryOptions()
	if err != nil {
		return err
	}
	if thresholdFlag >= 0 {
		opts = append(opts, cv.WithThreshold(thresholdFlag))
	}

	if len(args) == 1 {
		return printJSON(cmd.OutOrStdout(), a.service.FindImage(cmd.Context(), args[0], opts...))
	}
	return printJSON(cmd.OutOrStdout(), a.service.FindMultipleImages(cmd.Context(), args, opts...))
}

func runWait(a *app, cmd *cli.Command, args []string) error {
	return printJSON(cmd.OutOrStdout(), a.service.WaitForImage(cmd.Context(), args[0], timeoutFlag))
}

func runColor(a *app, cmd *cli.Command, args []string) error {
	rng, err := colorRangeFromFlags()
	if err != nil {
		return err
	}
	opts, err := queryOptions()
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), a.service.DetectColor(cmd.Context(), rng, opts...))
}

func runText(a *app, cmd *cli.Command, args []string) error {
	opts, err := queryOptions()
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), a.service.DetectText(cmd.Context(), opts...))
}

func runDiff(a *app, cmd *cli.Command, args []string) error {
	return printJSON(cmd.OutOrStdout(), a.service.DetectImageDifference(cmd.Context(), args[0], diffFlag))
}

func runPixel(a *app, cmd *cli.Command, args []string) error {
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid y: %w", err)
	}

	c, ok := a.service.GetPixelColor(cmd.Context(), x, y)
	if !ok {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{"available": false})
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"available": true,
		"r":         c.R,
		"g":         c.G,
		"b":         c.B,
		"a":         c.A,
	})
}

func runScene(a *app, cmd *cli.Command, args []string) error {
	catalog, err := loadCatalog(a)
	if err != nil {
		return err
	}
	classifier := scene.NewClassifier(a.service, catalog).
		WithLogger(a.service.Logger()).
		WithEventBus(a.bus)
	return printJSON(cmd.OutOrStdout(), classifier.RecognizeWithConfidence(cmd.Context()))
}

func runStats(a *app, cmd *cli.Command, args []string) error {
	// Populate the frame counters; a failed capture is still counted.
	_, _ = a.service.CaptureFrame(cmd.Context())
	return printJSON(cmd.OutOrStdout(), a.service.CacheStats())
}

// Helper functions

func loadCatalog(a *app) (*templates.Catalog, error) {
	path := catalogFlag
	if path == "" {
		path = a.settings.SceneCatalog
	}
	if path == "" {
		return templates.DefaultCatalog(a.settings.TemplateDir), nil
	}

	base := a.settings.TemplateDir
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(path), base)
	}
	catalog := templates.NewCatalog(base)
	if err := catalog.LoadFromFile(path); err != nil {
		return nil, err
	}
	return catalog, nil
}

func queryOptions() ([]cv.Option, error) {
	if regionFlag == "" {
		return nil, nil
	}
	region, err := cv.ParseRegion(regionFlag)
	if err != nil {
		return nil, err
	}
	return []cv.Option{cv.WithRegion(region)}, nil
}

func colorRangeFromFlags() (cv.ColorRange, error) {
	r, err := parseChannelRange(redFlag)
	if err != nil {
		return cv.ColorRange{}, fmt.Errorf("--r: %w", err)
	}
	g, err := parseChannelRange(greenFlag)
	if err != nil {
		return cv.ColorRange{}, fmt.Errorf("--g: %w", err)
	}
	b, err := parseChannelRange(blueFlag)
	if err != nil {
		return cv.ColorRange{}, fmt.Errorf("--b: %w", err)
	}
	rng := cv.ColorRange{R: r, G: g, B: b}
	return rng, rng.Validate()
}

func parseChannelRange(s string) (cv.ChannelRange, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return cv.ChannelRange{}, fmt.Errorf("range %q: want min-max", s)
	}
	low, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 8)
	if err != nil {
		return cv.ChannelRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	high, err := strconv.ParseUint(strings.TrimSpace(hi), 10, 8)
	if err != nil {
		return cv.ChannelRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	return cv.ChannelRange{Min: uint8(low), Max: uint8(high)}, nil
}
