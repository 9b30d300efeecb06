package cmd

import (
	"fmt"
	"os"

	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/ui"
)

// errorMessage turns a coded error into a message with guidance.
func errorMessage(err error) string {
	switch qerr.CodeOf(err) {
	case qerr.CodeAuth:
		return fmt.Sprintf("authentication required: run 'photon workspace login' (%v)", err)
	case qerr.CodeExpiredToken:
		return fmt.Sprintf("workspace token expired: run 'photon workspace login' again (%v)", err)
	case qerr.CodeNetwork:
		return fmt.Sprintf("cannot reach the workspace: %v", err)
	case qerr.CodeDependencyInstall:
		return fmt.Sprintf("failed to install dependencies: %v", err)
	case qerr.CodeNameConflict:
		return fmt.Sprintf("%v (pick another --deployment-name)", err)
	default:
		return err.Error()
	}
}

// exitOnError prints err and exits 1.
func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, ui.Failure.Render("✗")+" "+errorMessage(err))
	os.Exit(1)
}
