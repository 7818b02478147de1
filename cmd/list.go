package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agustinschilling/equo-ide/internal/httpclient"
	"github.com/agustinschilling/equo-ide/internal/p2"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List units from the configured P2 repositories",
	Long: `Without flags, lists the units the provisioning file would install,
followed by the ones the filters dropped.

  --all=features|categories|jars   every unit of that kind in the repositories
  --detail=<id>                    everything known about one unit
  --raw=<id>                       the index entry of one unit`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	flagListInstalled bool
	flagListAll       string
	flagListDetail    string
	flagListRaw       string
	flagListFormat    string
)

func init() {
	rootCmd.AddCommand(listCmd)
	f := listCmd.Flags()
	f.BoolVar(&flagListInstalled, "installed", false, "list the units that would be installed (default)")
	f.StringVar(&flagListAll, "all", "", "list every unit of a kind: features, categories or jars")
	f.StringVar(&flagListDetail, "detail", "", "show details of one unit")
	f.StringVar(&flagListRaw, "raw", "", "print the index entry of one unit")
	f.StringVar(&flagListFormat, "format", "text", "output format: text or csv")
	listCmd.MarkFlagsMutuallyExclusive("installed", "all", "detail", "raw")
}

// row is one listed unit.
type row struct {
	unit.Unit
	excluded bool
}

func runList(cmd *cobra.Command, args []string) error {
	if flagListFormat != "text" && flagListFormat != "csv" {
		return fmt.Errorf("unknown --format %q: want text or csv", flagListFormat)
	}
	ctx := cmd.Context()
	p, err := loadProject(ctx)
	if err != nil {
		return err
	}
	m, err := p.prepare(false)
	if err != nil {
		return err
	}
	idx := p2.NewHTTPIndex(httpclient.New(0))
	out := cmd.OutOrStdout()

	switch {
	case flagListDetail != "" || flagListRaw != "":
		id := flagListDetail + flagListRaw
		u, err := findUnit(ctx, idx, m.Repositories(), id)
		if err != nil {
			return err
		}
		if flagListRaw != "" {
			return yaml.NewEncoder(out).Encode(u)
		}
		printDetail(out, u, !m.Filter().Accepts(u))
		return nil

	case flagListAll != "":
		keep, err := kindFilter(flagListAll)
		if err != nil {
			return err
		}
		units, err := p2.All(ctx, idx, m.Repositories())
		if err != nil {
			return err
		}
		var rows []row
		for _, u := range units {
			if keep(u) {
				rows = append(rows, row{Unit: u, excluded: !m.Filter().Accepts(u)})
			}
		}
		return writeRows(out, rows)

	default:
		res, err := p2.Query(ctx, idx, m)
		if err != nil {
			return err
		}
		var rows []row
		for _, u := range res.Units {
			rows = append(rows, row{Unit: u})
		}
		for _, u := range res.Excluded {
			rows = append(rows, row{Unit: u, excluded: true})
		}
		return writeRows(out, rows)
	}
}

func kindFilter(kind string) (func(unit.Unit) bool, error) {
	switch kind {
	case "features":
		return func(u unit.Unit) bool { return u.Type == unit.TypeFeature }, nil
	case "categories":
		return func(u unit.Unit) bool { return u.Type == unit.TypeCategory }, nil
	case "jars":
		return unit.Unit.IsJar, nil
	}
	return nil, fmt.Errorf("unknown --all %q: want features, categories or jars", kind)
}

func findUnit(ctx context.Context, idx p2.Index, repos []string, id string) (unit.Unit, error) {
	units, err := p2.All(ctx, idx, repos)
	if err != nil {
		return unit.Unit{}, err
	}
	for _, u := range units {
		if u.ID == id {
			return u, nil
		}
	}
	return unit.Unit{}, fmt.Errorf("unit %q not found in %d repositories", id, len(repos))
}

func typeOf(u unit.Unit) string {
	if u.Type == "" {
		return string(unit.TypeBundle)
	}
	return string(u.Type)
}

func writeRows(w io.Writer, rows []row) error {
	if flagListFormat == "csv" {
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"id", "version", "type", "source", "filtered"})
		for _, r := range rows {
			_ = cw.Write([]string{r.ID, r.Version, typeOf(r.Unit), r.Kind().String(), fmt.Sprint(r.excluded)})
		}
		cw.Flush()
		return cw.Error()
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	for _, r := range rows {
		mark := ok.Render("●")
		if r.excluded {
			mark = dim.Render("○")
		}
		fmt.Fprintf(w, "  %s %-50s %-20s %s\n", mark, r.ID, r.Version, dim.Render(typeOf(r.Unit)+" · "+r.Kind().String()))
	}
	return nil
}

func printDetail(w io.Writer, u unit.Unit, excluded bool) {
	label := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	line := func(k, v string) {
		if v != "" {
			fmt.Fprintf(w, "  %s %s\n", label.Render(fmt.Sprintf("%-11s", k+":")), val.Render(v))
		}
	}
	fmt.Fprintln(w)
	line("Id", u.ID)
	line("Version", u.Version)
	line("Type", typeOf(u))
	line("Source", u.Kind().String())
	if u.Maven != nil {
		line("Maven", u.Maven.String())
	}
	line("Artifact", u.Location)
	line("SHA-256", u.Checksum)
	if u.Platform != nil {
		line("Platform", u.Platform.String())
	}
	line("Repository", u.Repository)
	line("Requires", strings.Join(u.Requires, ", "))
	if excluded {
		line("Filtered", "yes")
	}
	fmt.Fprintln(w)
}
