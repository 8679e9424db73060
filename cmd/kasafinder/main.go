package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"kasafinder/internal/config"
	"kasafinder/internal/display"
	"kasafinder/internal/logging"
	"kasafinder/internal/scan"
	"kasafinder/internal/transport"
)

var version = "dev"

const (
	exitFailure     = 1
	exitConfigError = 2
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if config.IsConfigurationError(err) {
		return exitConfigError
	}
	return exitFailure
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

type scanOptions struct {
	configPath  string
	subnet      string
	hostStart   int
	hostEnd     int
	broadcastMs int
	directMs    int
	sortBy      string
	delayMs     int
	ping        bool
	twoColor    bool
	interactive bool
	jsonOutput  bool
	logLevel    string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kasafinder",
		Short:         "Find Kasa smart plugs on the local subnet",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScanCmd(), newSettingsCmd())
	return root
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a broadcast then direct discovery and show the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML settings file")
	f.StringVar(&opts.subnet, "subnet", "", "first three octets of the subnet, e.g. 192.168.2 (auto-detected when empty)")
	f.IntVar(&opts.hostStart, "start", 1, "first host octet")
	f.IntVar(&opts.hostEnd, "end", 254, "last host octet")
	f.IntVar(&opts.broadcastMs, "broadcast-ms", 3000, "broadcast window in milliseconds (0 skips the broadcast scan)")
	f.IntVar(&opts.directMs, "direct-ms", 750, "per-host direct scan timeout in milliseconds")
	f.StringVar(&opts.sortBy, "sort", "alias", "sort key (alias, ip)")
	f.IntVar(&opts.delayMs, "delay-ms", 5000, "pause between result pages in milliseconds")
	f.BoolVar(&opts.ping, "ping", false, "skip hosts that do not answer an ICMP echo")
	f.BoolVar(&opts.twoColor, "two-color", false, "keep the broadcast colour for broadcast values on the direct page")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "open a console to page and scroll the results")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the result as JSON instead of pages")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func newSettingsCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(configPath)
			if err != nil {
				return err
			}
			data, err := s.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML settings file")
	return cmd
}

// applyFlags copies explicitly set flags over the loaded settings.
func applyFlags(cmd *cobra.Command, s *config.Settings, opts *scanOptions) {
	f := cmd.Flags()
	if f.Changed("subnet") {
		s.Scan.Subnet = opts.subnet
	}
	if f.Changed("start") {
		s.Scan.HostStart = opts.hostStart
	}
	if f.Changed("end") {
		s.Scan.HostEnd = opts.hostEnd
	}
	if f.Changed("broadcast-ms") {
		s.Scan.BroadcastTimeoutMs = opts.broadcastMs
	}
	if f.Changed("direct-ms") {
		s.Scan.DirectTimeoutMs = opts.directMs
	}
	if f.Changed("sort") {
		s.Scan.SortBy = opts.sortBy
	}
	if f.Changed("ping") {
		s.Scan.PingPrecheck = opts.ping
	}
	if f.Changed("delay-ms") {
		s.Display.ScreenDelayMs = opts.delayMs
	}
	if f.Changed("two-color") {
		s.Display.TwoColorDirect = opts.twoColor
	}
	if f.Changed("log-level") {
		s.Logging.Level = opts.logLevel
	}
}

func loadSettings(cmd *cobra.Command, opts *scanOptions) (*config.Settings, error) {
	s, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, s, opts)
	if s.Scan.Subnet == "" {
		subnet, err := transport.LocalSubnet()
		if err != nil {
			return nil, fmt.Errorf("detecting local subnet: %w", err)
		}
		s.Scan.Subnet = subnet
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	s, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}
	cfg, err := s.ScanConfig()
	if err != nil {
		return err
	}

	log := logging.NewWithWriter(s.Logging, version, cmd.ErrOrStderr())
	stdout := cmd.OutOrStdout()

	udp, err := transport.ListenUDP(s.Scan.Port)
	if err != nil {
		return err
	}
	defer udp.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	term := display.NewTerminal(stdout, s.Geometry())
	presenter := display.NewPresenter(
		term,
		s.Visibility(), s.Palette(), s.Capacity(),
		display.WithScreenDelay(s.ScreenDelay()),
		display.WithPresenterLogger(log.With("component", "display")),
	)

	scanOpts := []scan.Option{scan.WithLogger(log.With("component", "scan"))}
	if !opts.jsonOutput {
		scanOpts = append(scanOpts, scan.WithPhaseHandler(presenter.HandlePhase))
	}
	if s.Scan.ResolveMAC {
		scanOpts = append(scanOpts, scan.WithMACResolver(scan.ARPResolver{}))
	}
	orch := scan.NewOrchestrator(udp, scanOpts...)

	result, err := orch.Run(ctx, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if opts.interactive && ctx.Err() == nil {
		console, err := display.NewConsole(presenter)
		if err != nil {
			return err
		}
		term.SetOutput(console.Stdout())
		return console.Run(ctx)
	}
	return nil
}
