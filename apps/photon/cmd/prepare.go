package cmd

import (
	"fmt"

	"github.com/quatton/photon/pkg/deploy"
	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var (
	prepareFile string
	prepareYes  bool
)

var prepareCmd = &cobra.Command{
	Use:    "prepare",
	Short:  "Install the dependencies a photon archive declares",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}

		opts := []deploy.PrepareOption{
			deploy.WithInstaller(a.settings.Installer()),
			deploy.WithPrepareFetch(a.fetcher().Fetch),
			deploy.WithPrepareLogger(a.log),
		}
		if !prepareYes {
			opts = append(opts, deploy.WithConfirm(func(prompt string) (bool, error) {
				return ui.Prompt(prompt, true)
			}))
		}

		md, err := deploy.NewPreparer(opts...).Prepare(cmd.Context(), prepareFile)
		if err != nil {
			return err
		}
		fmt.Printf("%s photon %s prepared\n", ui.Success.Render("✓"), md.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().StringVarP(&prepareFile, "file", "f", "", "photon archive")
	prepareCmd.Flags().BoolVarP(&prepareYes, "yes", "y", false, "do not ask before running sudo")
	prepareCmd.MarkFlagRequired("file")
}
