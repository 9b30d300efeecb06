package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/registry"
	"github.com/quatton/photon/pkg/remote"
	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var (
	listLocal   bool
	listPattern string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List photons",
	Long: `List photons in the configured workspace, or in the local registry with
--local or when no workspace is configured. Versions of one photon are shown
together, newest first.

Examples:
  photon list --local
  photon list --pattern '^calc'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var re *regexp.Regexp
		if listPattern != "" {
			if re, err = regexp.Compile(listPattern); err != nil {
				return qerr.Newf(qerr.CodeValidation, "invalid --pattern: %w", err)
			}
		}

		headers := []string{"Name", "Model", "ID", "Created"}
		if listLocal || !a.workspace.Configured() {
			reg, err := a.openRegistry(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			var recs []registry.Record
			if re != nil {
				recs, err = reg.FindByPattern(ctx, re)
			} else {
				recs, err = reg.ListAll(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Println(ui.Table("Local photons", headers, localRows(registry.GroupByName(recs))))
			return nil
		}

		client, err := a.connect(ctx)
		if err != nil {
			return err
		}
		arts, err := client.ListArtifacts(ctx)
		if err != nil {
			return err
		}
		if re != nil {
			arts = filterArtifacts(arts, re)
		}
		fmt.Println(ui.Table("Photons in "+a.workspace.Key(), headers, remoteRows(arts)))
		return nil
	},
}

func localRows(groups []registry.Group) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		var models, ids, created []string
		for _, v := range g.Versions {
			models = append(models, v.Model)
			ids = append(ids, v.ID)
			created = append(created, ui.Timestamp(v.CreatedAt))
		}
		rows = append(rows, []string{g.Name, strings.Join(models, "\n"), strings.Join(ids, "\n"), strings.Join(created, "\n")})
	}
	return rows
}

// remoteRows groups a workspace listing by name, newest first.
func remoteRows(arts []remote.Artifact) [][]string {
	sorted := append([]remote.Artifact(nil), arts...)
	remote.SortNewest(sorted)

	var rows [][]string
	index := map[string]int{}
	for _, art := range sorted {
		i, ok := index[art.Name]
		if !ok {
			i = len(rows)
			index[art.Name] = i
			rows = append(rows, []string{art.Name, art.Model, art.ID, ui.Timestamp(art.CreatedAt)})
			continue
		}
		rows[i][1] += "\n" + art.Model
		rows[i][2] += "\n" + art.ID
		rows[i][3] += "\n" + ui.Timestamp(art.CreatedAt)
	}
	return rows
}

func filterArtifacts(arts []remote.Artifact, re *regexp.Regexp) []remote.Artifact {
	var out []remote.Artifact
	for _, art := range arts {
		if re.MatchString(art.Name) {
			out = append(out, art)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listLocal, "local", false, "list the local registry")
	listCmd.Flags().StringVar(&listPattern, "pattern", "", "only list names matching this regular expression")
}
