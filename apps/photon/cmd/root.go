package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/quatton/photon/pkg/config"
	"github.com/quatton/photon/pkg/qlog"
	"github.com/quatton/photon/pkg/workspace"
	"github.com/spf13/cobra"
)

type contextKey string

const appContextKey contextKey = "photonapp"

// app is what every command needs: process settings, the logger and the
// configured workspace, if any.
type app struct {
	settings  *config.Settings
	log       *qlog.Logger
	workspace *workspace.Config
}

var (
	workspaceFile string
	verbose       bool
	quiet         bool

	rootCmd = &cobra.Command{
		Use:   "photon",
		Short: "Package, register and run model-serving photons",
		Long: `photon packages a model-serving class into a versioned archive, keeps
archives in a local registry and runs them either on this machine or in the
configured workspace.

Use create to package a photon, list and remove to manage the registry, run
to serve a photon and workspace login to target a remote workspace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			boot := qlog.NewDefault()
			settings, err := config.Load(boot)
			if err != nil {
				return err
			}

			log, err := newLogger(settings.LogLevel)
			if err != nil {
				return err
			}

			path := workspaceFile
			if path == "" {
				if path, err = workspace.DefaultPath(); err != nil {
					return err
				}
			}
			ws, err := workspace.Load(path)
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), appContextKey, &app{settings: settings, log: log, workspace: ws})
			cmd.SetContext(ctx)
			return nil
		},
	}
)

func newLogger(level string) (*qlog.Logger, error) {
	switch {
	case quiet:
		return qlog.NewQuiet(), nil
	case verbose:
		return qlog.NewVerbose(), nil
	}
	lvl, err := qlog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return qlog.NewLogger(lvl, os.Stderr), nil
}

// getApp retrieves the app from the command context.
func getApp(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appContextKey).(*app)
	if !ok {
		return nil, errors.New("no settings in context")
	}
	return a, nil
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		exitOnError(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workspaceFile, "workspace-config", "", "workspace config file (default ~/.photon/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}
