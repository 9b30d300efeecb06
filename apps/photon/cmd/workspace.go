package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quatton/photon/pkg/kv"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/ui"
	"github.com/quatton/photon/pkg/workspace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage the workspace photons are deployed to",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Configure a workspace and store its credentials",
	Long: `Configure the workspace that run, push, list and remove talk to.

Every flag can also be given as PHOTON_WORKSPACE_<FLAG>, e.g.
PHOTON_WORKSPACE_TOKEN. Credentials go to the token store (the OS keyring
unless PHOTON_TOKEN_STORE points at a Valkey/Redis server); the workspace file
never holds secrets.

Examples:
  # managed platform
  photon workspace login --backend platform --url https://photon.example.com --token <TOKEN>

  # self-hosted kubernetes and S3
  photon workspace login --backend cluster --namespace photon \
    --s3-endpoint minio.local:9000 --s3-bucket photons --s3-access-key photon --s3-secret-key <KEY>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		v := viper.New()
		v.SetEnvPrefix(workspace.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		cfg := &workspace.Config{
			Name:        v.GetString("name"),
			Backend:     workspace.Backend(v.GetString("backend")),
			URL:         strings.TrimRight(v.GetString("url"), "/"),
			Namespace:   v.GetString("namespace"),
			Image:       v.GetString("image"),
			Kubeconfig:  v.GetString("kubeconfig"),
			KubeContext: v.GetString("kube-context"),
			S3: workspace.S3Config{
				Endpoint:  v.GetString("s3-endpoint"),
				Bucket:    v.GetString("s3-bucket"),
				Region:    v.GetString("s3-region"),
				AccessKey: v.GetString("s3-access-key"),
				UseSSL:    !v.GetBool("s3-insecure"),
			},
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		creds := workspace.Credentials{
			Token:       v.GetString("token"),
			S3SecretKey: v.GetString("s3-secret-key"),
		}
		if creds.Token == "" && cfg.Backend == workspace.BackendPlatform {
			if creds.Token, err = readSecret("Token: "); err != nil {
				return err
			}
		}
		if creds.Token == "" && cfg.Backend == workspace.BackendPlatform {
			return qerr.Newf(qerr.CodeAuth, "a token is required for %s", cfg.URL)
		}
		if err := workspace.CheckToken(creds.Token, time.Now()); err != nil {
			return err
		}

		if !v.GetBool("skip-verify") {
			client, err := a.dial(ctx, cfg, creds)
			if err != nil {
				return err
			}
			if _, err := client.ListArtifacts(ctx); err != nil {
				return err
			}
		}

		store, err := kv.Open(ctx, a.settings.TokenStore)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := workspace.SaveCredentials(ctx, store, cfg, creds, time.Now()); err != nil {
			return err
		}
		if err := cfg.Save(a.workspace.Path()); err != nil {
			return err
		}

		fmt.Printf("%s logged in to %s workspace %s\n", ui.Success.Render("✓"), cfg.Backend, cfg.Key())
		if uc, err := workspace.UserFromToken(creds.Token); err == nil {
			fmt.Printf("  User: %s (@%s)\n", uc.Name, uc.Login)
			if uc.Exp > 0 {
				fmt.Printf("  Token expires: %s\n", time.Unix(uc.Exp, 0).Format(time.RFC3339))
			}
		}
		return nil
	},
}

// readSecret prompts on a terminal without echo. Non-interactive sessions
// get an empty answer.
func readSecret(prompt string) (string, error) {
	if !ui.IsInteractive() {
		return "", nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the workspace and its credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := a.requireWorkspace(); err != nil {
			return err
		}

		store, err := kv.Open(ctx, a.settings.TokenStore)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := workspace.DeleteCredentials(ctx, store, a.workspace); err != nil {
			a.log.Warn("failed to delete stored credentials", "error", err)
		}
		if err := workspace.Remove(a.workspace.Path()); err != nil {
			return err
		}
		fmt.Printf("%s logged out of %s\n", ui.Success.Render("✓"), a.workspace.Key())
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configured workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		ws := a.workspace
		if !ws.Configured() {
			fmt.Println(ui.Muted.Render("no workspace configured, photons run locally"))
			return nil
		}

		rows := [][]string{
			{"Backend", string(ws.Backend)},
			{"Config", ws.Path()},
		}
		if ws.Name != "" {
			rows = append(rows, []string{"Name", ws.Name})
		}
		switch ws.Backend {
		case workspace.BackendPlatform:
			rows = append(rows, []string{"URL", ws.URL})
		case workspace.BackendCluster:
			rows = append(rows,
				[]string{"Namespace", ws.Namespace},
				[]string{"Bucket", ws.S3.Endpoint + "/" + ws.S3.Bucket},
				[]string{"Kube context", ws.KubeContext},
			)
		}

		store, err := kv.Open(ctx, a.settings.TokenStore)
		if err != nil {
			return err
		}
		defer store.Close()
		creds, err := workspace.LoadCredentials(ctx, store, ws, time.Now())
		switch {
		case err != nil:
			rows = append(rows, []string{"Credentials", ui.Warning.Render(errorMessage(err))})
		case creds.Token != "":
			if uc, err := workspace.UserFromToken(creds.Token); err == nil {
				rows = append(rows, []string{"User", fmt.Sprintf("%s (@%s)", uc.Name, uc.Login)})
				if uc.Exp > 0 {
					rows = append(rows, []string{"Token expires", time.Unix(uc.Exp, 0).Format(time.RFC3339)})
				}
			} else {
				rows = append(rows, []string{"Token", "stored"})
			}
		}
		fmt.Println(ui.Table("Workspace", []string{"Field", "Value"}, rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	workspaceCmd.AddCommand(loginCmd, logoutCmd, infoCmd)

	f := loginCmd.Flags()
	f.String("backend", string(workspace.BackendPlatform), "platform or cluster")
	f.String("name", "", "display name for the workspace")
	f.String("url", "", "platform API url")
	f.String("token", "", "access token")
	f.String("namespace", "", "kubernetes namespace (cluster)")
	f.String("image", "", "runtime image for deployments (cluster)")
	f.String("kubeconfig", "", "kubeconfig path (cluster)")
	f.String("kube-context", "", "kubeconfig context (cluster)")
	f.String("s3-endpoint", "", "artifact bucket endpoint host:port (cluster)")
	f.String("s3-bucket", "", "artifact bucket (cluster)")
	f.String("s3-region", "", "artifact bucket region (cluster)")
	f.String("s3-access-key", "", "artifact bucket access key (cluster)")
	f.String("s3-secret-key", "", "artifact bucket secret key (cluster)")
	f.Bool("s3-insecure", false, "talk to the bucket over plain http")
	f.Bool("skip-verify", false, "store the workspace without contacting it")
}
