package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/agustinschilling/equo-ide/internal/workspace"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last launch and what changed since",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := workspaceDir()
	if err != nil {
		return err
	}
	snap, err := workspace.New(dir).ReadSnapshot()
	if err != nil {
		return err
	}

	label := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	fmt.Println()
	fmt.Printf("  %s %s\n", label.Render("Workspace: "), val.Render(snap.Workspace))
	fmt.Printf("  %s %s\n", label.Render("Launched:  "), snap.LaunchedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("  %s %d jars\n\n", label.Render("Classpath: "), len(snap.Classpath))

	fmt.Printf("  %s\n", label.Render("Installs:"))
	for _, id := range snap.Installs {
		fmt.Printf("    %s %s\n", ok.Render("●"), id)
	}
	if len(snap.Repositories) > 0 {
		fmt.Printf("\n  %s\n", label.Render("Repositories:"))
		for _, r := range snap.Repositories {
			fmt.Printf("    %s %s\n", ok.Render("●"), dimStr(r))
		}
	}

	// Compare with the provisioning file as it is now.
	if installs, err := currentInstalls(cmd); err != nil {
		fmt.Printf("\n  %s %v\n", label.Render("Provisioning file:"), err)
	} else {
		printDiff(workspace.DiffInstalls(snap, installs))
	}
	fmt.Println()
	return nil
}

func currentInstalls(cmd *cobra.Command) ([]string, error) {
	p, err := loadProject(cmd.Context())
	if err != nil {
		return nil, err
	}
	m, err := p.prepare(false)
	if err != nil {
		return nil, err
	}
	return m.InstallIDs(), nil
}

func printDiff(d *workspace.Diff) {
	add := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	rem := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	fmt.Println()
	if !d.HasChanges() {
		fmt.Printf("  %s\n", add.Render("✓ Up to date with the provisioning file"))
		return
	}
	fmt.Printf("  %s\n", dimStr("Changes since the last launch (applied on next launch):"))
	for _, id := range d.Added {
		fmt.Printf("  %s  %s\n", add.Render("+"), id)
	}
	for _, id := range d.Removed {
		fmt.Printf("  %s  %s\n", rem.Render("-"), id)
	}
}

func dimStr(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(s)
}
