package cmd

import (
	"fmt"

	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var pushName string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the newest local version of a photon to the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		client, err := a.connect(ctx)
		if err != nil {
			return err
		}

		reg, err := a.openRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		rec, err := reg.FindLatest(ctx, pushName)
		if err != nil {
			return err
		}
		a.log.Debug("pushing archive", "path", rec.Path, "digest", rec.Digest)

		art, err := client.PushArtifact(ctx, rec.Path)
		if err != nil {
			return err
		}
		fmt.Printf("%s pushed %s as %s\n", ui.Success.Render("✓"), art.Name, art.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().StringVarP(&pushName, "name", "n", "", "photon name")
	pushCmd.MarkFlagRequired("name")
}
