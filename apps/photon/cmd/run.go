package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quatton/photon/pkg/deploy"
	"github.com/quatton/photon/pkg/qrunner"
	"github.com/quatton/photon/pkg/remote"
	"github.com/quatton/photon/pkg/ui"
	"github.com/spf13/cobra"
)

var runReq deploy.Request

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a photon locally or in the workspace",
	Long: `Run a photon. With a configured workspace the photon is deployed there,
otherwise (or with --local) it is served on this machine until interrupted.

A local run looks the photon up by name, or runs the archive given with
--file. When nothing is registered under --name and --model is given, the
photon is created first.

Examples:
  # serve the newest local version of calc on port 8080 or the next free one
  photon run -n calc --local

  # create and serve in one step
  photon run -n calc -m Counter --local -e MODE=fast

  # deploy to the workspace with one secret and a storage mount
  photon run -n calc -s HF_TOKEN --mount /models:/mnt/models --memory 4096`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg, err := a.openRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		fetcher := a.fetcher()
		opts := []deploy.Option{
			deploy.WithLogger(a.log),
			deploy.WithMaxPortAttempts(a.settings.MaxPortAttempts),
			deploy.WithMaxNameAttempts(a.settings.MaxNameAttempts),
			deploy.WithFetch(fetcher.Fetch),
			deploy.WithCreate(func(ctx context.Context, name, model string) (string, error) {
				art, err := a.createPhoton(ctx, reg, name, model, "")
				if err != nil {
					return "", err
				}
				return art.Path, nil
			}),
		}

		var client remote.Client
		if !runReq.Local && a.workspace.Configured() {
			if client, err = a.connect(ctx); err != nil {
				return err
			}
			opts = append(opts, deploy.WithRemote(client))
		}

		intent, err := deploy.NewResolver(reg, opts...).Resolve(ctx, runReq)
		if err != nil {
			return err
		}
		a.log.Debug("resolved run", "target", intent.Target, "trace", intent.Trace)

		if intent.Target == deploy.TargetRemote {
			dep, err := client.Run(ctx, intent.Spec())
			if err != nil {
				return err
			}
			fmt.Printf("%s deployment %s created for photon %s\n", ui.Success.Render("✓"), dep.Name, intent.ArtifactID)
			if dep.URL != "" {
				fmt.Printf("  URL: %s\n", dep.URL)
			}
			return nil
		}
		return a.serve(ctx, intent)
	},
}

// serve launches a resolved local intent and blocks until it stops or ctx
// is cancelled.
func (a *app) serve(ctx context.Context, intent *deploy.Intent) error {
	var launcher qrunner.Launcher
	image := a.settings.DefaultImage
	if intent.Metadata != nil && intent.Metadata.Image != "" {
		image = intent.Metadata.Image
	}

	if intent.Container {
		cfg := qrunner.DefaultContainerConfig(image)
		cfg.Resources = qrunner.ResourcesFor(runReq.CPU, runReq.MemoryMB)
		d, err := qrunner.NewDockerLauncher(cfg,
			qrunner.WithOutput(os.Stdout, os.Stderr),
			qrunner.WithDockerLogger(a.log),
		)
		if err != nil {
			return err
		}
		launcher = d
	} else {
		launcher = qrunner.NewLocalLauncher(qrunner.WithLogger(a.log))
	}

	launch, err := launcher.Start(ctx, qrunner.LaunchSpec{
		Name:         intent.ArtifactName,
		ArtifactPath: intent.ArtifactPath,
		Port:         intent.Port,
		Env:          intent.Env,
		WorkDir:      intent.WorkDir,
		Image:        image,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s serving %s on %s (%s)\n", ui.Success.Render("✓"), launch.Name, launch.Addr, launch.Backend)
	fmt.Println(ui.Muted.Render("  press Ctrl+C to stop"))

	final, err := launcher.Wait(ctx, launch.ID)
	if err != nil {
		return err
	}
	if final.Status == qrunner.LaunchStatusFailed {
		return fmt.Errorf("photon %s failed: %s", final.Name, final.Error)
	}
	if final.FinishedAt != nil {
		a.log.Info("photon stopped", "name", final.Name, "uptime", final.FinishedAt.Sub(final.CreatedAt).Round(time.Second))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.StringVarP(&runReq.Name, "name", "n", "", "photon name")
	f.StringVarP(&runReq.Model, "model", "m", "", "model spec, used to create the photon when it does not exist")
	f.StringVarP(&runReq.File, "file", "f", "", "photon archive to run locally")
	f.StringVarP(&runReq.ID, "id", "i", "", "photon version id")
	f.BoolVar(&runReq.Local, "local", false, "serve on this machine even when a workspace is configured")
	f.IntVarP(&runReq.Port, "port", "p", deploy.DefaultPort, "port to serve on locally")
	f.Float64Var(&runReq.CPU, "cpu", 1, "CPU cores for the deployment")
	f.IntVar(&runReq.MemoryMB, "memory", 2048, "memory in MiB for the deployment")
	f.IntVar(&runReq.MinReplicas, "min-replicas", 1, "minimum replicas for the deployment")
	f.StringArrayVar(&runReq.Mounts, "mount", nil, "workspace storage as STORAGE_PATH:MOUNT_PATH (repeatable)")
	f.StringVar(&runReq.DeploymentName, "deployment-name", "", "deployment name (defaults to the photon name)")
	f.StringArrayVarP(&runReq.Envs, "env", "e", nil, "environment variable as KEY=VALUE (repeatable)")
	f.StringArrayVarP(&runReq.Secrets, "secret", "s", nil, "workspace secret as NAME or ENV=NAME (repeatable)")
	f.BoolVar(&runReq.Container, "container", false, "serve locally inside the runtime container")
	f.StringArrayVar(&runReq.InheritEnv, "inherit-env", nil, "copy NAME from this process's environment into the launch (repeatable)")
	f.MarkHidden("inherit-env")
}
