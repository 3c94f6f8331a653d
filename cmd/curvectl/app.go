package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/config"
	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/display"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
	"github.com/rovshanmuradov/curvelaunch/internal/launch"
	"github.com/rovshanmuradov/curvelaunch/internal/logger"
	"github.com/rovshanmuradov/curvelaunch/internal/quote"
)

type options struct {
	configPath string
	launchPath string
	debug      bool
	json       bool
	raw        bool
}

// app is what every command runs against, built once in PersistentPreRunE.
type app struct {
	opts   options
	cfg    *config.Config
	log    *logger.Logger
	def    launch.Definition
	engine *quote.Engine
	styles display.Styles
	units  display.Units
	out    io.Writer
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.opts.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := cfg.Log
	if a.opts.debug {
		logCfg.Development = true
	}
	if a.log, err = logger.New(&logCfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if a.opts.launchPath == "" {
		return errors.New("--launch is required")
	}
	if a.def, err = launch.Load(a.opts.launchPath); err != nil {
		return err
	}
	a.applyDefaults()

	a.log.Logger = a.log.WithLaunch(a.def.ID, a.def.Mint.String())
	a.log.Debug("Launch loaded",
		zap.String("network", cfg.Network),
		zap.String("curve", string(a.def.Curve.Kind())),
		zap.Uint16("platform_fee_bps", a.def.Fees.PlatformFeeBps),
		zap.Uint16("creator_fee_bps", a.def.Fees.CreatorFeeBps),
		zap.String("status", string(a.def.Status)))

	a.engine = quote.NewEngine(a.log.Logger, cfg.HighImpactBps)
	a.styles = display.DefaultStyles()
	a.units = display.Units{
		TokenDecimals: a.def.Decimals,
		AssetDecimals: display.AssetDecimals,
		Precision:     6,
	}
	if a.opts.raw {
		a.units = display.RawUnits()
	}
	a.out = cmd.OutOrStdout()
	return nil
}

// applyDefaults fills launch settings the file left to the environment: an
// omitted platform fee takes the configured one and exponential curves
// without an explicit increment take the configured increment.
func (a *app) applyDefaults() {
	if !a.def.PlatformFeeSet {
		a.def.Fees.PlatformFeeBps = a.cfg.PlatformFeeBps
	}
	if exp, ok := a.def.Curve.(curve.Exponential); ok && exp.Increment.IsZero() {
		a.def.Curve = exp.WithIncrement(a.cfg.ExponentialIncrement)
	}
}

func (a *app) close() error {
	if a.log == nil {
		return nil
	}
	return a.log.Close()
}

// parseAmount reads a user amount. Asset amounts are SOL and token amounts
// use the launch decimals unless --raw is set, in which case input and output
// are both base units.
func (a *app) parseAmount(s string, asset bool) (fixedpoint.Amount, error) {
	var (
		v   fixedpoint.Amount
		err error
	)
	switch {
	case a.opts.raw:
		v, err = fixedpoint.Parse(s)
	case asset:
		v, err = display.ParseAmount(s, a.units.AssetDecimals)
	default:
		v, err = display.ParseAmount(s, a.units.TokenDecimals)
	}
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) title(s string) {
	fmt.Fprintln(a.out, a.styles.Title.Render(s))
}

func (a *app) warn(s string) {
	fmt.Fprintln(a.out, a.styles.Warning.Render(s))
}

// userError logs err in full and returns the short message for the user.
func (a *app) userError(msg string, err error) error {
	a.log.LogError(msg, err, zap.String("kind", string(quote.ErrorKind(err))))
	return errors.New(display.UserMessage(err))
}
