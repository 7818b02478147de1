package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/agustinschilling/equo-ide/internal/workspace"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Wipe the workspace",
	Long: `Deletes everything in the workspace except the launch logs, after
confirmation. The next launch starts from a fresh workspace; downloaded
jars stay in the shared caches.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

var flagCleanYes bool

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&flagCleanYes, "yes", "y", false, "do not ask for confirmation")
}

func runClean(cmd *cobra.Command, args []string) error {
	dir, err := workspaceDir()
	if err != nil {
		return err
	}
	ws := workspace.New(dir)
	if _, err := os.Stat(ws.Dir); os.IsNotExist(err) {
		fmt.Println(dimStr("Nothing to clean: " + ws.Dir + " does not exist"))
		return nil
	}

	if !flagCleanYes && !confirm(fmt.Sprintf("Wipe %s? [y/N] ", ws.Dir)) {
		fmt.Println("Cancelled.")
		return nil
	}
	if err := ws.Wipe(); err != nil {
		return err
	}
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓ Workspace wiped"))
	return nil
}

// confirm defaults to no: wiping is not undoable.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	r := bufio.NewReader(os.Stdin)
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
