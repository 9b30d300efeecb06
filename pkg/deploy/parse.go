package deploy

import (
	"strings"

	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/remote"
)

// ParseEnvs splits NAME=VALUE pairs at the first '='. Values may contain
// further '=' characters.
func ParseEnvs(envs []string) (map[string]string, error) {
	out := make(map[string]string, len(envs))
	for _, s := range envs {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, qerr.Newf(qerr.CodeInvalidEnv, "invalid environment definition: %s", s)
		}
		out[name] = value
	}
	return out, nil
}

// ParseSecrets accepts NAME=SECRET_NAME, or a bare SECRET_NAME when the
// variable and the secret share a name.
func ParseSecrets(secrets []string) (map[string]string, error) {
	out := make(map[string]string, len(secrets))
	for _, s := range secrets {
		name, secret, ok := strings.Cut(s, "=")
		if !ok {
			secret = name
		}
		if name == "" || secret == "" {
			return nil, qerr.Newf(qerr.CodeInvalidSecret, "invalid secret definition: %s", s)
		}
		out[name] = secret
	}
	return out, nil
}

// ParseMount reads STORAGE_PATH:MOUNT_PATH. Both parts are trimmed and must
// be non-empty.
func ParseMount(s string) (remote.Mount, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return remote.Mount{}, qerr.Newf(qerr.CodeInvalidMount, "invalid mount definition: %s", s)
	}
	m := remote.Mount{Path: strings.TrimSpace(parts[0]), MountPath: strings.TrimSpace(parts[1])}
	if m.Path == "" || m.MountPath == "" {
		return remote.Mount{}, qerr.Newf(qerr.CodeInvalidMount, "invalid mount definition: %s", s)
	}
	return m, nil
}

func ParseMounts(mounts []string) ([]remote.Mount, error) {
	out := make([]remote.Mount, 0, len(mounts))
	for _, s := range mounts {
		m, err := ParseMount(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
