// main.go - Main entry point for IntuitionHandheld

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionHandheld
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/intuitionamiga/IntuitionHandheld/audio"
	"github.com/intuitionamiga/IntuitionHandheld/display"
	"github.com/intuitionamiga/IntuitionHandheld/kernel"
	"github.com/intuitionamiga/IntuitionHandheld/luaengine"
	"github.com/intuitionamiga/IntuitionHandheld/storage"
	"github.com/intuitionamiga/IntuitionHandheld/upload"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nA pocket games console that runs the Lua scripts you send it.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionHandheld")
	fmt.Println("Buy me a coffee: https://ko-fi.com/intuition/tip")
	fmt.Println("License: GPLv3 or later")
}

// audioOutput is the host speaker fed from the sound chip ring.
type audioOutput interface {
	Start()
	Close()
	IsStarted() bool
}

var (
	configFile string
	appConfig  Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "intuition-handheld",
	Short: "Run the IntuitionHandheld console",
	Long: `Runs the handheld: waits for a Lua script upload, asks for a keypress,
then runs the script at the display refresh rate. Scripts arrive over the
upload socket (see ieupload), the inbox directory or a clipboard paste.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		appConfig = cfg
		logger, err = newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runHandheld,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored scripts, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored script",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/intuition-handheld/config.yaml)")
	pf.String("storage", "", "script database path")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Bool("dev", false, "development logging")

	f := rootCmd.Flags()
	f.Int("scale", 2, "window scale (1-4)")
	f.Bool("headless", false, "no window; read buttons from the terminal")
	f.Bool("fullscreen", false, "start fullscreen")
	f.Duration("poll-interval", 500*time.Microsecond, "button sampling period")
	f.Duration("settle-delay", kernel.DefaultSettleDelay, "pause before waiting for the start keypress")
	f.Duration("case-delay", kernel.DefaultCaseDelay, "time each test case runs")
	f.Bool("audio", true, "enable sound")
	f.String("socket", "", "upload socket path")
	f.String("inbox", "", "directory watched for uploaded scripts")
	f.Duration("watchdog", 8*time.Second, "reset when no frame is presented for this long (0 disables)")

	historyCmd.Flags().IntP("limit", "n", 10, "number of scripts to list")
	rootCmd.AddCommand(historyCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHandheld(cmd *cobra.Command, _ []string) error {
	boilerPlate()
	cfg := appConfig

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage.Path, logger.Named("storage"))
	if err != nil {
		return err
	}
	defer store.Close()

	tracker := upload.NewTracker(store, logger.Named("upload"))
	srv, err := upload.Listen(cfg.Upload.Socket, tracker, logger.Named("ipc"))
	if err != nil {
		return err
	}

	chip := audio.NewSoundChip(cfg.Audio.SampleRate, logger.Named("audio"))
	engine := luaengine.New(luaengine.Config{
		CallStackSize:   cfg.Script.CallStackSize,
		RegistrySize:    cfg.Script.RegistrySize,
		RegistryMaxSize: cfg.Script.RegistryMaxSize,
		Seed:            kernel.Seed(newHostEntropy()),
	}, logger.Named("engine"))
	if cfg.Audio.Enabled {
		engine.SetToneSink(chip)
	}

	host, err := newHostIO(cfg, hostHooks{
		paste: func(script string) {
			if _, err := tracker.Upload(ctx, pasteFileName, script); err != nil {
				logger.Warn("clipboard upload rejected", zap.Error(err))
			}
		},
		quit: stop,
		mute: func() {
			chip.SetEnabled(!chip.IsEnabled())
			logger.Info("sound toggled", zap.Bool("enabled", chip.IsEnabled()))
		},
		status: func() string {
			return statusLine(tracker.Total(), cfg.Audio.Enabled && chip.IsEnabled())
		},
	}, logger)
	if err != nil {
		return err
	}
	defer host.stop()

	disp, err := display.New(host.video, engine, display.DisplayConfig{
		Scale:      cfg.Display.Scale,
		VSync:      true,
		Fullscreen: cfg.Display.Fullscreen,
	}, logger.Named("display"))
	if err != nil {
		return err
	}

	wd := newHostWatchdog(logger.Named("watchdog"))
	defer wd.Stop()
	disp.SetFrameHook(wd.Feed)

	deps := kernel.Deps{
		Engine:   engine,
		Render:   disp,
		Upload:   tracker,
		Store:    store,
		Watchdog: wd,
		Pins:     host.pins,
		Logger:   logger.Named("kernel"),
	}
	if cfg.Audio.Enabled {
		deps.Audio = chip
		if out, err := newAudioOutput(chip); err != nil {
			logger.Warn("audio output unavailable", zap.Error(err))
		} else {
			out.Start()
			defer out.Close()
		}
	}
	k, err := kernel.New(cfg.kernelConfig(), deps)
	if err != nil {
		return err
	}
	engine.SetReporter(k.Supervisor())

	if err := host.video.Start(); err != nil {
		return err
	}
	defer host.video.Stop()
	if cfg.Watchdog.Timeout > 0 {
		wd.Arm(cfg.Watchdog.Timeout)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	if cfg.Upload.Inbox != "" {
		inbox := upload.NewInbox(cfg.Upload.Inbox, tracker, logger.Named("inbox"))
		g.Go(func() error { return inbox.Run(gctx) })
	}

	// The supervisor's terminal loops never return, so the kernel runs
	// outside the group and is abandoned on shutdown.
	kernelDone := make(chan error, 1)
	go func() { kernelDone <- k.Run(gctx) }()

	var runErr error
	select {
	case err := <-kernelDone:
		engine.Close()
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	case <-gctx.Done():
	}
	stop()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	logger.Info("handheld stopped", zap.Uint64("uploads", tracker.Total()))
	return runErr
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	store, err := storage.Open(cmd.Context(), appConfig.Storage.Path, logger.Named("storage"))
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), records)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := storage.Open(cmd.Context(), appConfig.Storage.Path, logger.Named("storage"))
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), rec.Body)
	return err
}

// statusLine is the text of the window status bar.
func statusLine(uploads uint64, sound bool) string {
	s := fmt.Sprintf("UPLOADS %d", uploads)
	if !sound {
		s += " MUTE"
	}
	return s
}

func printHistory(w io.Writer, records []storage.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tUPLOADED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Name, len(r.Body), r.UploadedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}
