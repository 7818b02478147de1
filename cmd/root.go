// Package cmd implements the equo-ide CLI commands.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agustinschilling/equo-ide/internal/catalog"
	"github.com/agustinschilling/equo-ide/internal/httpclient"
)

// SetVersionInfo is called from main.go with values injected at build time via -ldflags.
// It must be called before Execute().
func SetVersionInfo(version, commit, date string) {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"equo-ide %s (commit %s, built %s)\n", version, commit, date,
	))
	rootCmd.Version = version
	httpclient.Version = version
}

var rootCmd = &cobra.Command{
	Use:   "equo-ide",
	Short: "Provision and launch an Eclipse-based IDE",
	Long: `equo-ide resolves the units described by equo.yaml from P2 and Maven
repositories, assembles a classpath and launches the IDE.

Every P2 repository must publish an equo-index.yaml at its root. The
catalog points at download.eclipse.org, which does not; serve a mirror
that does and pass it with --catalog-mirror or catalogMirror in equo.yaml.

Examples:
  equo-ide init                   write equo.yaml interactively
  equo-ide launch                 provision and start the IDE
  equo-ide launch --clean         wipe the workspace first
  equo-ide list --installed       show what would be installed
  equo-ide status                 show the last launch
  equo-ide logs -f                follow the launch log`,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("file", "equo.yaml", "provisioning file")
	pf.String("workspace", "", "workspace directory (default: build/equo-ide next to the provisioning file)")
	pf.String("manifest-url", "", "fetch the provisioning file from this URL first")
	pf.String("cache-dir", "", "p2 download cache (default: user cache dir)")
	pf.String("catalog-mirror", "", "serve catalog repositories from this base instead of "+catalog.Downloads)
	for _, name := range []string{"file", "workspace", "manifest-url", "cache-dir", "catalog-mirror"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	viper.SetEnvPrefix("EQUO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
