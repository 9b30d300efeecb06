package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/photonfile"
	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var (
	createName       string
	createModel      string
	createPhotonfile string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Package a photon and add it to the local registry",
	Long: `Package a model-serving class into a versioned photon archive.

The model is one of:
  <Class>                 a built-in class, e.g. Counter
  code:<path>:<Class>     a class whose code lives at path
  <provider>:<ref>        a pretrained model from a registered provider

A photon.yaml next to the code (or --photonfile) adds the image, requirement
and system dependencies, extra files, vcs_url and launch args.

Examples:
  photon create -n calc -m Counter
  photon create -n echo -m code:app:Echo --photonfile app/photon.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		reg, err := a.openRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		art, err := a.createPhoton(ctx, reg, createName, createModel, createPhotonfile)
		if err != nil {
			return err
		}
		fmt.Printf("%s photon %s created\n", ui.Success.Render("✓"), art.Metadata.Name)
		fmt.Printf("  ID:   %s\n", art.ID)
		fmt.Printf("  Path: %s\n", art.Path)
		return nil
	},
}

// createPhoton packages name from model with the declarations of the given
// photon.yaml, or the one in the working directory, and records it.
func (a *app) createPhoton(ctx context.Context, rec photon.Recorder, name, model, pfPath string) (*photon.Artifact, error) {
	var pf *photonfile.File
	var err error
	if pfPath != "" {
		pf, err = photonfile.Load(pfPath)
	} else {
		var cwd string
		if cwd, err = os.Getwd(); err == nil {
			pf, err = photonfile.Find(cwd)
		}
	}
	if err != nil {
		return nil, err
	}

	opts := []photon.Option{photon.WithImage(a.settings.DefaultImage)}
	var deps []string
	if pf != nil {
		a.log.Debug("using photon.yaml", "dir", pf.Dir)
		deps = pf.Requirements
		opts = append(opts, pf.Options()...)
	}

	def, err := photon.Create(name, model, deps, opts...)
	if err != nil {
		return nil, err
	}
	return photon.Save(ctx, def, rec)
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "photon name")
	createCmd.Flags().StringVarP(&createModel, "model", "m", "", "model spec")
	createCmd.Flags().StringVar(&createPhotonfile, "photonfile", "", "photon.yaml to read (default ./photon.yaml if present)")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("model")
}
