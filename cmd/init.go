package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agustinschilling/equo-ide/internal/manifest"
	"github.com/agustinschilling/equo-ide/internal/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init [project-dir]",
	Short: "Write a provisioning file",
	Long: `Walks through the IDE title, the catalog entries and the optional
features, then writes equo.yaml into the project directory. A mirror given
with --catalog-mirror is recorded as catalogMirror.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	flagInitYes   bool
	flagInitForce bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&flagInitYes, "yes", "y", false, "skip the wizard and write the defaults")
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "overwrite an existing equo.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		dir = abs
	}

	base, err := manifest.LoadDefault()
	if err != nil {
		return fmt.Errorf("load default manifest: %w", err)
	}
	base.CatalogMirror = viper.GetString("catalog-mirror")

	res, err := wizard.Run(base, wizard.Options{Yes: flagInitYes, DefaultDir: dir})
	if err != nil {
		return err
	}

	path := filepath.Join(res.Dir, manifest.FileName)
	if _, err := os.Stat(path); err == nil && !flagInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := manifest.Write(path, res.Manifest); err != nil {
		return err
	}

	ok := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	fmt.Println()
	fmt.Println(ok.Render("✓ Provisioning file written"))
	fmt.Printf("  %s\n\n", val.Render(path))
	fmt.Printf("  %s\n", dimStr("Next steps:"))
	fmt.Printf("    cd %s\n", res.Dir)
	fmt.Printf("    equo-ide launch\n")
	fmt.Println()
	return nil
}
