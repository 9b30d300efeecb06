package cmd

import (
	"fmt"

	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/remote"
	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var (
	removeName  string
	removeID    string
	removeLocal bool
	removeYes   bool
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a photon version",
	Long: `Remove one photon version. By name only the newest version is removed.

Examples:
  photon remove -n calc --local
  photon remove -i calc-3f2a9c01b7d4e655 --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if (removeName == "") == (removeID == "") {
			return qerr.Newf(qerr.CodeValidation, "must specify exactly one of --name or --id")
		}

		if removeLocal || !a.workspace.Configured() {
			reg, err := a.openRegistry(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			if removeName != "" {
				rec, err := reg.RemoveByName(ctx, removeName)
				if err != nil {
					return err
				}
				fmt.Printf("%s removed %s (%s)\n", ui.Success.Render("✓"), rec.Name, rec.ID)
				return nil
			}
			rec, err := reg.RemoveByID(ctx, removeID)
			if err != nil {
				return err
			}
			fmt.Printf("%s removed %s (%s)\n", ui.Success.Render("✓"), rec.Name, rec.ID)
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

		var art remote.Artifact
		var ok bool
		if removeName != "" {
			art, ok = remote.LatestByName(arts, removeName)
		} else {
			art, ok = remote.FindByID(arts, removeID)
		}
		if !ok {
			return qerr.Newf(qerr.CodeNotFound, "photon %s%s not found in the workspace", removeName, removeID)
		}

		if !removeYes {
			confirmed, err := ui.Prompt(fmt.Sprintf("Remove %s (%s) from the workspace?", art.Name, art.ID), false)
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(ui.Muted.Render("cancelled"))
				return nil
			}
		}

		if err := client.RemoveArtifact(ctx, art.ID); err != nil {
			return err
		}
		fmt.Printf("%s removed %s (%s)\n", ui.Success.Render("✓"), art.Name, art.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removeName, "name", "n", "", "remove the newest version of this photon")
	removeCmd.Flags().StringVarP(&removeID, "id", "i", "", "remove this photon version")
	removeCmd.Flags().BoolVar(&removeLocal, "local", false, "remove from the local registry")
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "do not ask for confirmation")
}
