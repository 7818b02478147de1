package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agustinschilling/equo-ide/internal/jvm"
	"github.com/agustinschilling/equo-ide/internal/launcher"
	"github.com/agustinschilling/equo-ide/internal/logger"
	"github.com/agustinschilling/equo-ide/internal/maven"
	"github.com/agustinschilling/equo-ide/internal/provisioner"
	"github.com/agustinschilling/equo-ide/internal/workspace"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Provision and start the IDE",
	Long: `Resolves every unit in the provisioning file, assembles the classpath
and starts the IDE. Every P2 repository, including the catalog's, must
publish an equo-index.yaml; see --catalog-mirror.

Every flag can also be set through the environment, e.g. EQUO_CLEAN=true
or EQUO_DEBUG_CLASSPATH=names.`,
	Args: cobra.NoArgs,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
	f := launchCmd.Flags()
	f.Bool("clean", false, "wipe the workspace before building")
	f.Bool("init-only", false, "provision the workspace but do not start the IDE")
	f.Bool("show-console", false, "stream the IDE console to stdout")
	f.String("debug-classpath", "disabled", "print the classpath and exit: disabled, names or paths")
	f.Bool("use-atomos", false, "use the Atomos+Equinox backend")
	f.Bool("debug-ide", false, "suspend the IDE until a debugger attaches")
	f.Int("debug-port", launcher.DefaultDebugPort, "JDWP port used with --debug-ide")
	for _, name := range []string{"clean", "init-only", "show-console", "debug-classpath", "use-atomos", "debug-ide", "debug-port"} {
		_ = viper.BindPFlag(name, f.Lookup(name))
	}
}

func launchConfig() (launcher.Config, error) {
	dbg, err := launcher.ParseDebugClasspath(viper.GetString("debug-classpath"))
	if err != nil {
		return launcher.Config{}, err
	}
	return launcher.Config{
		Clean:          viper.GetBool("clean"),
		InitOnly:       viper.GetBool("init-only"),
		ShowConsole:    viper.GetBool("show-console"),
		DebugClasspath: dbg,
		UseAtomos:      viper.GetBool("use-atomos"),
		DebugIde:       viper.GetBool("debug-ide"),
		DebugPort:      viper.GetInt("debug-port"),
	}, nil
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := launchConfig()
	if err != nil {
		return err
	}
	p, err := loadProject(ctx)
	if err != nil {
		return err
	}
	m, err := p.prepare(cfg.UseAtomos)
	if err != nil {
		return err
	}

	// The runtime is only needed when the IDE actually starts.
	var rt jvm.Runtime
	if !cfg.InitOnly && cfg.DebugClasspath == launcher.DebugDisabled {
		java, err := jvm.Detect()
		if err != nil {
			return err
		}
		rt = java
	}

	if err := os.MkdirAll(p.ws.Dir, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}
	log, err := logger.New(p.ws.Dir, nil)
	if err != nil {
		return err
	}
	defer log.Close()
	log.Info("provisioning", "file", p.manifest.Source, "workspace", p.ws.Dir)

	prov, res, err := p.newProvisioner(log)
	if err != nil {
		return err
	}

	sp := newSpinner(os.Stderr)
	prov.OnStep = func(step, total int, label string) {
		sp.setLabel(fmt.Sprintf("[%d/%d] %s", step, total, label))
	}
	prov.OnLine = sp.setDetail
	res.OnResolve = func(a maven.Artifact, cached bool) {
		verb := "resolved"
		if cached {
			verb = "cached"
		}
		log.Printf("  %s %s", verb, a.Coordinate)
		sp.setDetail(fmt.Sprintf("%s %s", verb, a.Coordinate))
	}

	ctrl := &launcher.Controller{
		Workspace: p.ws,
		Runtime:   rt,
		Out:       afterSpinner{sp: sp, w: os.Stdout},
		Log:       log,
		OnState: func(s launcher.State) {
			switch s {
			case launcher.CleanWipe:
				sp.setLabel("Wiping workspace")
			case launcher.Launching:
				sp.stop(nil)
			}
		},
	}

	fmt.Fprintln(os.Stderr)
	job := prov.For(m)
	sp.start()
	err = ctrl.Launch(ctx, job, m, cfg)
	sp.stop(err)
	if err != nil {
		return fmt.Errorf("launch failed: %w (log: %s)", err, log.LogPath())
	}

	if job.Report != nil && cfg.DebugClasspath == launcher.DebugDisabled {
		printSummary(job.Report, p.ws, cfg.InitOnly)
	}
	return nil
}

// ── summary ───────────────────────────────────────────────────────────────────

func printSummary(r *provisioner.Report, ws *workspace.Workspace, initOnly bool) {
	ok := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	headline := "✓ IDE session ended"
	if initOnly {
		headline = "✓ Workspace provisioned"
	}
	fmt.Println()
	fmt.Println(ok.Render(headline) + dim.Render(fmt.Sprintf("  (provisioned in %s)", r.Duration.Round(time.Millisecond))))
	fmt.Println()
	fmt.Printf("  Workspace:  %s\n", val.Render(ws.Dir))
	fmt.Printf("  Units:      %d kept, %d filtered\n", len(r.Query.Units), len(r.Query.Excluded))
	fmt.Printf("  Classpath:  %d jars (%d bootstrap, %d maven, %d p2)\n",
		r.Classpath.Len(), len(r.Partition.Bootstrap), len(r.Partition.Generic), len(r.Partition.P2Only))
	if initOnly {
		fmt.Println()
		fmt.Printf("  %s\n", dim.Render("Next step:"))
		fmt.Printf("    equo-ide launch\n")
	}
	fmt.Println()
}
