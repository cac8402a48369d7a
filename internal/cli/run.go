package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/config"
	"github.com/virtshell/vshell/internal/gui"
	"github.com/virtshell/vshell/internal/install"
	"github.com/virtshell/vshell/internal/session"
	"github.com/virtshell/vshell/internal/timing"
	"github.com/virtshell/vshell/internal/ui"
	"github.com/virtshell/vshell/internal/version"
)

// Warm startup timing targets (VSHELL_TIMING=1), images already staged:
//   - config_load:     <50ms   (read yaml config)
//   - wiring:          <10ms   (service, dispatcher, supervisor)
//   - window_create:   <200ms  (fyne window and terminal widget)
//   - session_request: <100ms  (bind service, hand off to supervisor)
// The VM itself boots asynchronously after session_request; first-run
// image staging also happens off this path.

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the VM and open its console window",
	Long: `Boot the Linux VM and open a terminal window on its serial console.

On first run the installer ISO and a blank disk image are staged into
the runtime directory before the VM starts. Closing the window stops
the VM.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	var timer *timing.Timer
	if os.Getenv("VSHELL_TIMING") == "1" {
		timer = timing.New()
	}

	cfg := config.Global
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	problems := config.Validate(cfg)
	if msg := config.FormatValidationErrors(problems); msg != "" {
		fmt.Fprint(os.Stderr, msg)
	}
	for _, p := range problems {
		if p.Fatal {
			return fmt.Errorf("invalid configuration: %s", p.Field)
		}
	}

	if err := os.MkdirAll(cfg.RuntimeDir, 0755); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	if timer != nil {
		timer.Mark("config_load")
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	if cfg.FirstRun {
		fmt.Println("First run: the installer image and a blank disk will be")
		fmt.Println("staged into", cfg.RuntimeDir, "before the VM boots.")
		if err := config.CompleteFirstRun(); err != nil {
			log.Warn("persist first-run flag", zap.Error(err))
		}
	}

	svc := session.NewService(log)
	installer := install.New(cfg.RuntimeDir, cfg.SeedISO, cfg.HDDSizeMB, log)
	vis := &ui.Visibility{}
	vis.Set(true)

	// The window's lifecycle callbacks fire only after Run, by which
	// point sup is assigned.
	var sup *session.Supervisor
	win := gui.New(
		fmt.Sprintf("vshell %s", version.Version),
		log,
		func(visible bool) { sup.SetVisible(visible) },
		func() { sup.Shutdown() },
	)
	post := win.Poster()

	dispatcher := session.NewDispatcher(vis, post, func() bool {
		if config.Global != nil {
			return config.Global.IgnoreBell
		}
		return false
	}, log)

	sup = session.NewSupervisor(session.SupervisorConfig{
		RuntimeDir:  cfg.RuntimeDir,
		TmpDir:      cfg.TmpDir,
		Binary:      cfg.QEMUBinary,
		DNSUpstream: cfg.DNSUpstream,
		StorageRoot: cfg.StorageRoot,
	}, svc, installer, dispatcher, vis, post, log)
	if timer != nil {
		timer.Mark("wiring")
	}

	if err := sup.RequestSession(win); err != nil {
		return fmt.Errorf("request session: %w", err)
	}
	if timer != nil {
		timer.Mark("session_request")
		timer.Report(os.Stderr)
	}

	// Blocks until the window closes.
	win.Run()

	sup.Shutdown()
	return nil
}
