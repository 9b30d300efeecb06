package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var (
	fetchID   string
	fetchFile string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a photon from the workspace",
	Long: `Download a photon version from the workspace. Without --file the archive
is added to the local registry so it can be run with --local.

Examples:
  photon fetch -i calc-3f2a9c01b7d4e655
  photon fetch -i calc-3f2a9c01b7d4e655 -f calc.photon`,
	Args: cobra.NoArgs,
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

		if fetchFile != "" {
			f, err := os.Create(fetchFile)
			if err != nil {
				return err
			}
			if err := client.FetchArtifact(ctx, fetchID, f); err != nil {
				f.Close()
				os.Remove(fetchFile)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("%s saved %s to %s\n", ui.Success.Render("✓"), fetchID, fetchFile)
			return nil
		}

		reg, err := a.openRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		tmp, err := os.CreateTemp("", "photon-fetch-*.photon")
		if err != nil {
			return err
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		if err := client.FetchArtifact(ctx, fetchID, tmp); err != nil {
			return err
		}
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return err
		}
		art, err := photon.Import(ctx, tmp, reg)
		if err != nil {
			return err
		}
		fmt.Printf("%s fetched %s into the local registry as %s\n", ui.Success.Render("✓"), art.Metadata.Name, art.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchID, "id", "i", "", "photon version id in the workspace")
	fetchCmd.Flags().StringVarP(&fetchFile, "file", "f", "", "write the archive here instead of registering it")
	fetchCmd.MarkFlagRequired("id")
}
