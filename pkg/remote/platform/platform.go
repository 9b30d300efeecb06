// Package platform is the remote client for the managed deployment platform
// HTTP API. Requests go through the generated client in pkg/client; this
// package maps its responses onto remote types and error codes.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/quatton/photon/pkg/client"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/remote"
	"golang.org/x/oauth2"
)

type Client struct {
	baseURL string
	api     *client.ClientWithResponses
}

type Option func(*options)

type options struct {
	base *http.Client
}

// WithHTTPClient sets the transport used under the bearer-token client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.base = c
	}
}

// New returns a client for the workspace at baseURL authenticating with
// token.
func New(ctx context.Context, baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, qerr.Newf(qerr.CodeValidation, "invalid workspace url %q", baseURL)
	}
	if token == "" {
		return nil, qerr.Newf(qerr.CodeAuth, "no credentials for %s, run `photon workspace login`", baseURL)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.base)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	api, err := client.NewClientWithResponses(u.String(), client.WithHTTPClient(oauth2.NewClient(ctx, src)))
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: u.String(), api: api}, nil
}

var _ remote.Client = (*Client)(nil)

func (c *Client) ListArtifacts(ctx context.Context) ([]remote.Artifact, error) {
	rsp, err := c.api.ListPhotonsWithResponse(ctx)
	if err != nil {
		return nil, transportErr(ctx, "listing photons", err)
	}
	if err := statusErr("listing photons", rsp.StatusCode(), rsp.Body); err != nil {
		return nil, err
	}
	if rsp.JSON200 == nil {
		return nil, unexpected("listing photons", rsp.HTTPResponse)
	}
	out := make([]remote.Artifact, 0, len(*rsp.JSON200))
	for _, p := range *rsp.JSON200 {
		out = append(out, fromPhoton(p))
	}
	return out, nil
}

// PushArtifact streams the archive as a multipart upload.
func (c *Client) PushArtifact(ctx context.Context, path string) (*remote.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, qerr.Newf(qerr.CodeNotFound, "archive %s does not exist", path)
		}
		return nil, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			if _, err = io.Copy(part, f); err != nil {
				err = fmt.Errorf("reading %s: %w", path, err)
			}
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	what := "pushing " + filepath.Base(path)
	rsp, err := c.api.PushPhotonWithBodyWithResponse(ctx, mw.FormDataContentType(), pr)
	pr.Close()
	if err != nil {
		return nil, transportErr(ctx, what, err)
	}
	if err := statusErr(what, rsp.StatusCode(), rsp.Body); err != nil {
		return nil, err
	}
	if rsp.JSON200 == nil {
		return nil, unexpected(what, rsp.HTTPResponse)
	}
	art := fromPhoton(*rsp.JSON200)
	return &art, nil
}

func (c *Client) RemoveArtifact(ctx context.Context, id string) error {
	rsp, err := c.api.DeletePhotonWithResponse(ctx, id)
	if err != nil {
		return transportErr(ctx, "removing "+id, err)
	}
	return statusErr("removing "+id, rsp.StatusCode(), rsp.Body)
}

// FetchArtifact streams the archive into w. It uses the plain generated
// client so the body is never held in memory.
func (c *Client) FetchArtifact(ctx context.Context, id string, w io.Writer) error {
	content := true
	resp, err := c.api.GetPhoton(ctx, id, &client.GetPhotonParams{Content: &content})
	if err != nil {
		return transportErr(ctx, "fetching "+id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return statusErr("fetching "+id, resp.StatusCode, body)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return qerr.Newf(qerr.CodeNetwork, "downloading %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListDeployments(ctx context.Context) ([]remote.Deployment, error) {
	rsp, err := c.api.ListDeploymentsWithResponse(ctx)
	if err != nil {
		return nil, transportErr(ctx, "listing deployments", err)
	}
	if err := statusErr("listing deployments", rsp.StatusCode(), rsp.Body); err != nil {
		return nil, err
	}
	if rsp.JSON200 == nil {
		return nil, unexpected("listing deployments", rsp.HTTPResponse)
	}
	out := make([]remote.Deployment, 0, len(*rsp.JSON200))
	for _, d := range *rsp.JSON200 {
		out = append(out, fromDeployment(d))
	}
	return out, nil
}

// Run submits spec. A 409 means the deployment name is taken.
func (c *Client) Run(ctx context.Context, spec remote.DeploymentSpec) (*remote.Deployment, error) {
	what := "deploying " + spec.Name
	rsp, err := c.api.CreateDeploymentWithResponse(ctx, toDeploymentSpec(spec))
	if err != nil {
		return nil, transportErr(ctx, what, err)
	}
	if err := statusErr(what, rsp.StatusCode(), rsp.Body); err != nil {
		return nil, err
	}
	if rsp.JSON200 == nil {
		return nil, unexpected(what, rsp.HTTPResponse)
	}
	dep := fromDeployment(*rsp.JSON200)
	return &dep, nil
}

func transportErr(ctx context.Context, what string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typ) {
		return qerr.Newf(qerr.CodeRemoteRejected, "%s: decoding response: %w", what, err)
	}
	return qerr.Newf(qerr.CodeNetwork, "%s: %w", what, err)
}

// statusErr maps a non-2xx status onto an error code. It returns nil for
// success.
func statusErr(what string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := errorMessage(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return qerr.Newf(qerr.CodeAuth, "workspace rejected credentials (%d): %s", status, msg)
	case http.StatusNotFound:
		return qerr.Newf(qerr.CodeNotFound, "%s: %s", what, msg)
	case http.StatusConflict:
		return qerr.Newf(qerr.CodeNameConflict, "%s: %s", what, msg)
	default:
		return qerr.Newf(qerr.CodeRemoteRejected, "%s failed (%d): %s", what, status, msg)
	}
}

func unexpected(what string, resp *http.Response) error {
	ct := ""
	if resp != nil {
		ct = resp.Header.Get("Content-Type")
	}
	return qerr.Newf(qerr.CodeRemoteRejected, "%s: unexpected response content type %q", what, ct)
}

// errorMessage extracts {"message"} or {"detail"} from an error body and
// falls back to the raw text.
func errorMessage(raw []byte) string {
	var body client.Error
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != nil && *body.Message != "" {
			return *body.Message
		}
		if body.Detail != nil && *body.Detail != "" {
			return *body.Detail
		}
	}
	return strings.TrimSpace(string(raw))
}

func fromPhoton(p client.Photon) remote.Artifact {
	a := remote.Artifact{ID: p.Id, Name: p.Name, Model: p.Model, CreatedAt: p.CreatedAt}
	if p.Image != nil {
		a.Image = *p.Image
	}
	if p.ExposedPaths != nil {
		a.Paths = *p.ExposedPaths
	}
	return a
}

func fromDeployment(d client.Deployment) remote.Deployment {
	out := remote.Deployment{Name: d.Name, PhotonID: d.PhotonId}
	if d.Status != nil {
		out.Status = *d.Status
	}
	if d.Url != nil {
		out.URL = *d.Url
	}
	if d.CreatedAt != nil {
		out.CreatedAt = *d.CreatedAt
	}
	return out
}

func toDeploymentSpec(s remote.DeploymentSpec) client.DeploymentSpec {
	out := client.DeploymentSpec{
		Name:     s.Name,
		PhotonId: s.PhotonID,
		ResourceRequirement: client.ResourceRequirement{
			Cpu:         s.Resources.CPU,
			Memory:      s.Resources.MemoryMB,
			MinReplicas: s.Resources.MinReplicas,
		},
	}
	if len(s.Mounts) > 0 {
		mounts := make([]client.Mount, 0, len(s.Mounts))
		for _, m := range s.Mounts {
			mounts = append(mounts, client.Mount{Path: m.Path, MountPath: m.MountPath})
		}
		out.Mounts = &mounts
	}
	if len(s.Env) > 0 {
		env := s.Env
		out.Envs = &env
	}
	if len(s.Secrets) > 0 {
		secrets := s.Secrets
		out.Secrets = &secrets
	}
	return out
}
