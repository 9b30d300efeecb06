package deploy

import (
	"math/rand/v2"

	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/qerr"
)

const (
	idPrefixLength = 25
	suffixLength   = 6
	letters        = "abcdefghijklmnopqrstuvwxyz"
)

// ResolveDeploymentName picks the deployment name for a remote run. An
// explicit name is used as is and must be free. Otherwise the artifact name
// is tried, then the artifact id, truncated to the platform limit, and then
// up to maxAttempts names of the form <id prefix>-<6 random letters>.
func ResolveDeploymentName(requested, name, id string, taken map[string]bool, rnd *rand.Rand, maxAttempts int) (string, error) {
	if requested != "" {
		if taken[requested] {
			return "", qerr.Newf(qerr.CodeNameConflict, "deployment name %s already exists, please choose another one", requested)
		}
		return requested, nil
	}

	candidate := name
	if candidate == "" || taken[candidate] {
		candidate = id
	}
	candidate = truncate(candidate, photon.MaxNameLength)

	for attempt := 0; taken[candidate]; attempt++ {
		if attempt >= maxAttempts {
			return "", qerr.Newf(qerr.CodeNameConflict, "no free deployment name for %s after %d attempts", id, maxAttempts)
		}
		candidate = truncate(id, idPrefixLength) + "-" + randomLetters(rnd, suffixLength)
	}
	return candidate, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func randomLetters(rnd *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rnd.IntN(len(letters))]
	}
	return string(b)
}
