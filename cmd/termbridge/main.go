// Command termbridge bridges a device endpoint (serial port, TCP peer, or
// in-process echo) to a local console and/or TCP clients, per spec §6.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ardnew/termbridge/internal/endpoint/client"
	"github.com/ardnew/termbridge/internal/endpoint/device"
	"github.com/ardnew/termbridge/internal/hub"
	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/iofilter"
	"github.com/ardnew/termbridge/internal/keybind"
	"github.com/ardnew/termbridge/internal/readiness"
	"github.com/ardnew/termbridge/pkg/crabctl"
	bridgeterm "github.com/ardnew/termbridge/term"
)

var (
	deviceSpec  string
	baudRate    int
	tcpPort     int
	headless    bool
	noAnnounce  bool
	configPath  string
	logFilePath string
	logLevelStr string
	verbosity   int
)

func init() {
	pflag.StringVarP(&deviceSpec, "device", "d", "", "device: /dev/... (serial), echo, or host:port (TCP)")
	pflag.IntVarP(&baudRate, "baudrate", "b", 115200, "serial baud rate")
	pflag.IntVarP(&tcpPort, "port", "p", 0, "enable TCP listener on this port")
	pflag.BoolVar(&headless, "headless", false, "do not create a console client (requires --port)")
	pflag.BoolVar(&noAnnounce, "no-announce", false, "suppress human-readable status lines to clients")
	pflag.StringVarP(&configPath, "config", "c", "", "key-binding config path (default $HOME/.crabterm)")
	pflag.StringVarP(&logFilePath, "log-file", "l", "", "log file path")
	pflag.StringVarP(&logLevelStr, "log-level", "L", "info", "log file level: trace|debug|info|warn|error")
	pflag.CountVarP(&verbosity, "verbose", "v", "stderr copy verbosity: -v=error ... -vvvvv=trace")
}

func main() {
	pflag.Parse()
	if args := pflag.Args(); deviceSpec == "" && len(args) > 0 {
		deviceSpec = args[0]
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "termbridge:", err)
		os.Exit(1)
	}
}

func run() error {
	if deviceSpec == "" {
		return fmt.Errorf("%w: device is required", ioerr.ErrBadDeviceSpec)
	}
	if headless && tcpPort == 0 {
		return ioerr.ErrHeadlessNoPort
	}

	logger, closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	crabctl.SetLogger(logger)
	defer closeLog()

	cfg, err := loadKeybindConfig()
	if err != nil {
		crabctl.LogWarn(crabctl.ComponentConfig, "using default key-binding config", "error", err)
		cfg = keybind.NewConfig()
	}

	dev, err := newDeviceEndpoint(deviceSpec, baudRate)
	if err != nil {
		return err
	}

	var listener *client.Listener
	if tcpPort != 0 {
		listener, err = client.NewListener(tcpPort)
		if err != nil {
			return fmt.Errorf("%w: %v", ioerr.ErrListenerBind, err)
		}
	}

	reg, err := readiness.New()
	if err != nil {
		return err
	}
	defer reg.Close()

	signals, err := readiness.NewSignalSource()
	if err != nil {
		return fmt.Errorf("%w: %v", ioerr.ErrSignalInstall, err)
	}
	defer signals.Close()

	h := hub.New(reg, dev, listener, signals, !noAnnounce)

	var raw *bridgeterm.RawMode
	if !headless {
		raw, err = bridgeterm.EnableRaw(int(os.Stdin.Fd()))
		if err != nil {
			return err
		}
		defer raw.Restore()
		defer bridgeterm.Recover(raw)

		proc := keybind.NewProcessor(cfg.Prefix, cfg.Bindings, cfg.PrefixBindings)
		chain := buildFilterChain(cfg)
		console := client.NewConsole(int(os.Stdin.Fd()), int(os.Stdout.Fd()), proc, chain)
		if _, err := h.AddClient(console); err != nil {
			return err
		}
	}

	return h.Run(context.Background())
}

// newDeviceEndpoint classifies deviceSpec per spec §6: "/dev/..." -> serial,
// "echo" -> in-process echo, otherwise "host:port" -> TCP. Anything else is
// rejected at parse time.
func newDeviceEndpoint(spec string, baud int) (ioendpoint.Endpoint, error) {
	switch {
	case spec == "echo":
		return device.NewEcho(), nil
	case strings.HasPrefix(spec, "/dev/"):
		return device.NewSerial(spec, baud), nil
	case strings.Contains(spec, ":"):
		return device.NewTCP(spec)
	default:
		return nil, fmt.Errorf("%w: %s", ioerr.ErrBadDeviceSpec, spec)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".crabterm")
}

func loadKeybindConfig() (*keybind.Config, error) {
	path := configPath
	if path == "" {
		path = defaultConfigPath()
	}
	if path == "" {
		return keybind.NewConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && configPath == "" {
			return keybind.NewConfig(), nil
		}
		return nil, err
	}
	defer f.Close()

	return keybind.LoadConfig(f)
}

func buildFilterChain(cfg *keybind.Config) *iofilter.Chain {
	abs := boolSetting(cfg, "timestamp-abs", true)
	rel := boolSetting(cfg, "timestamp-rel", false)
	ts := iofilter.NewTimestamp(abs, rel)

	imap, err := iofilter.ParseAtoms(cfg.Settings["charmap-imap"])
	if err != nil {
		crabctl.LogWarn(crabctl.ComponentConfig, "invalid charmap-imap", "error", err)
	}
	omap, err := iofilter.ParseAtoms(cfg.Settings["charmap-omap"])
	if err != nil {
		crabctl.LogWarn(crabctl.ComponentConfig, "invalid charmap-omap", "error", err)
	}

	return iofilter.NewChain(ts, iofilter.NewCharmap(imap), iofilter.NewCharmap(omap))
}

func boolSetting(cfg *keybind.Config, name string, def bool) bool {
	v, ok := cfg.Settings[name]
	if !ok {
		return def
	}
	b, err := keybind.SettingBool(v)
	if err != nil {
		return def
	}
	return b
}

// setupLogging builds the fanout logger per spec §6: a file sink at
// -L/--log-level, plus a stderr copy whose level is set by -v's stack count.
func setupLogging() (*slog.Logger, func(), error) {
	var fileWriter *os.File
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ioerr.ErrLogFileOpen, err)
		}
		fileWriter = f
	} else {
		fileWriter = os.Stderr
	}

	fileLevel, err := parseLogLevel(logLevelStr)
	if err != nil {
		return nil, nil, err
	}
	stderrLevel := stderrLevelFromVerbosity(verbosity)
	logger := crabctl.NewFileAndStderrLogger(fileWriter, fileLevel, stderrLevel, crabctl.LogFormatText)

	closeFn := func() {
		if fileWriter != os.Stderr {
			fileWriter.Close()
		}
	}
	return logger, closeFn, nil
}

// parseLogLevel accepts the five names listed in spec §6 for -L/--log-level.
// "trace" has no log/slog equivalent, so it maps one step below debug.
func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return slog.LevelDebug - 4, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %s", ioerr.ErrBadLogLevel, name)
	}
}

// stderrLevelFromVerbosity implements spec §6's -v stack: -v=error,
// -vv=warn, -vvv=info, -vvvv=debug, -vvvvv=trace (trace maps to debug-1,
// since log/slog has no trace level).
func stderrLevelFromVerbosity(n int) slog.Level {
	switch {
	case n <= 0:
		return slog.LevelError + 4 // effectively silent
	case n == 1:
		return slog.LevelError
	case n == 2:
		return slog.LevelWarn
	case n == 3:
		return slog.LevelInfo
	case n == 4:
		return slog.LevelDebug
	default:
		return slog.LevelDebug - 4
	}
}
