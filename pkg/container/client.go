// Package container exposes Docker container lifecycle operations through a
// Portainer-managed endpoint, along with a thin model and collection layer
// on top of the raw operations.
package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nicholas-fedor/portainerctl/pkg/client"
	"github.com/nicholas-fedor/portainerctl/pkg/filters"
	"github.com/nicholas-fedor/portainerctl/pkg/types"
)

// ErrNilResource indicates a resource-targeting operation was invoked
// without a resolvable identifier. It is raised before any network call.
var ErrNilResource = errors.New("resource ID was not provided")

// Signal names a POSIX signal, either symbolically ("SIGTERM") or
// numerically. The empty Signal leaves the server default in place.
type Signal string

// NumericSignal converts a raw signal number into a Signal, rendering it as
// its integer form on the wire.
func NumericSignal(num int) Signal {
	return Signal(strconv.Itoa(num))
}

// Client executes container operations against one Portainer endpoint.
type Client struct {
	api *client.Client
}

// NewClient wraps an API client in the container operation set.
func NewClient(api *client.Client) *Client {
	return &Client{api: api}
}

// Close releases the underlying transport.
func (c *Client) Close() {
	c.api.Close()
}

// ListOptions controls the container summary listing.
type ListOptions struct {
	All     bool         // Include stopped containers.
	Latest  bool         // Only the most recently created container.
	Size    bool         // Include size information.
	Trunc   bool         // Shorten ids to 12 characters.
	Quiet   bool         // Reduce entries to their id.
	Limit   int          // Cap on returned containers; unlimited when zero.
	Since   string       // Only containers created after this id or name.
	Before  string       // Only containers created before this id or name.
	Filters filters.Args // Filter set encoded into the filters parameter.
}

// ListContainers fetches the container summary list, similar to docker ps.
func (c *Client) ListContainers(ctx context.Context, opts ListOptions) ([]Attributes, error) {
	limit := opts.Limit

	switch {
	case opts.Latest:
		limit = 1
	case limit == 0:
		limit = -1
	}

	query := map[string]any{
		"limit":     limit,
		"all":       boolToInt(opts.All),
		"size":      boolToInt(opts.Size),
		"trunc_cmd": boolToInt(opts.Trunc),
		"since":     optString(opts.Since),
		"before":    optString(opts.Before),
	}

	if len(opts.Filters) > 0 {
		param, err := opts.Filters.ToParam()
		if err != nil {
			return nil, err
		}

		query["filters"] = param
	}

	outcome, err := c.api.Do(ctx, client.Descriptor{
		Path:  "/containers/json",
		Query: query,
	})
	if err != nil {
		return nil, err
	}

	if err := outcome.Err(); err != nil {
		return nil, err
	}

	var entries []Attributes
	if err := outcome.Decode(&entries); err != nil {
		return nil, err
	}

	if opts.Trunc {
		for _, entry := range entries {
			entry["Id"] = entry.ID().ShortID()
		}
	}

	if opts.Quiet {
		ids := make([]Attributes, 0, len(entries))
		for _, entry := range entries {
			ids = append(ids, Attributes{"Id": string(entry.ID())})
		}

		return ids, nil
	}

	return entries, nil
}

// InspectContainer fetches the full attribute set for one container,
// similar to docker inspect.
func (c *Client) InspectContainer(
	ctx context.Context,
	ref types.ContainerReference,
) (Attributes, error) {
	id, err := resolveReference(ref)
	if err != nil {
		return nil, err
	}

	outcome, err := c.api.Do(ctx, client.Descriptor{
		Path: fmt.Sprintf("/containers/%s/json", id),
	})
	if err != nil {
		return nil, err
	}

	if err := outcome.Err(); err != nil {
		return nil, err
	}

	var attrs Attributes
	if err := outcome.Decode(&attrs); err != nil {
		return nil, err
	}

	return attrs, nil
}

// StartContainer starts a created or stopped container.
func (c *Client) StartContainer(ctx context.Context, ref types.ContainerReference) error {
	return c.post(ctx, ref, "start", nil)
}

// StopContainer stops a running container, waiting up to timeout seconds
// before the daemon sends SIGKILL.
func (c *Client) StopContainer(ctx context.Context, ref types.ContainerReference, timeout int) error {
	return c.post(ctx, ref, "stop", map[string]any{"t": timeout})
}

// RestartContainer restarts a container, waiting up to timeout seconds for
// it to stop before killing it.
func (c *Client) RestartContainer(
	ctx context.Context,
	ref types.ContainerReference,
	timeout int,
) error {
	return c.post(ctx, ref, "restart", map[string]any{"t": timeout})
}

// KillContainer kills a container or sends it a signal. The empty Signal
// defaults to SIGKILL server-side.
func (c *Client) KillContainer(
	ctx context.Context,
	ref types.ContainerReference,
	signal Signal,
) error {
	return c.post(ctx, ref, "kill", map[string]any{"signal": optString(string(signal))})
}

// PauseContainer pauses all processes within a container.
func (c *Client) PauseContainer(ctx context.Context, ref types.ContainerReference) error {
	return c.post(ctx, ref, "pause", nil)
}

// UnpauseContainer resumes all processes within a paused container.
func (c *Client) UnpauseContainer(ctx context.Context, ref types.ContainerReference) error {
	return c.post(ctx, ref, "unpause", nil)
}

// ContainerStats returns a single resource usage snapshot for a container.
// The stats stream is explicitly disabled; there is no subscription.
func (c *Client) ContainerStats(
	ctx context.Context,
	ref types.ContainerReference,
) (Attributes, error) {
	return c.get(ctx, ref, "stats", map[string]any{"stream": "false"})
}

// ContainerTop lists the processes running inside a container. psArgs passes
// extra arguments to ps (e.g. "aux").
func (c *Client) ContainerTop(
	ctx context.Context,
	ref types.ContainerReference,
	psArgs string,
) (Attributes, error) {
	return c.get(ctx, ref, "top", map[string]any{"ps_args": optString(psArgs)})
}

// Version returns the Docker version information reported by the endpoint.
func (c *Client) Version(ctx context.Context) (Attributes, error) {
	outcome, err := c.api.Do(ctx, client.Descriptor{Path: "/version"})
	if err != nil {
		return nil, err
	}

	if err := outcome.Err(); err != nil {
		return nil, err
	}

	var attrs Attributes
	if err := outcome.Decode(&attrs); err != nil {
		return nil, err
	}

	return attrs, nil
}

// post dispatches a container verb with no expected payload.
func (c *Client) post(
	ctx context.Context,
	ref types.ContainerReference,
	verb string,
	query map[string]any,
) error {
	id, err := resolveReference(ref)
	if err != nil {
		return err
	}

	outcome, err := c.api.Do(ctx, client.Descriptor{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/containers/%s/%s", id, verb),
		Query:  query,
	})
	if err != nil {
		return err
	}

	return outcome.Err()
}

// get dispatches a container query returning a JSON attribute map.
func (c *Client) get(
	ctx context.Context,
	ref types.ContainerReference,
	verb string,
	query map[string]any,
) (Attributes, error) {
	id, err := resolveReference(ref)
	if err != nil {
		return nil, err
	}

	outcome, err := c.api.Do(ctx, client.Descriptor{
		Path:  fmt.Sprintf("/containers/%s/%s", id, verb),
		Query: query,
	})
	if err != nil {
		return nil, err
	}

	if err := outcome.Err(); err != nil {
		return nil, err
	}

	var attrs Attributes
	if err := outcome.Decode(&attrs); err != nil {
		return nil, err
	}

	return attrs, nil
}

// resolveReference flattens a reference into a plain identifier once,
// before any network call is made.
func resolveReference(ref types.ContainerReference) (types.ContainerID, error) {
	if ref == nil {
		return "", ErrNilResource
	}

	id := ref.ContainerID()
	if id == "" {
		return "", ErrNilResource
	}

	return id, nil
}

// optString returns nil for empty strings so the query encoder drops the key.
func optString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// boolToInt renders a flag in the 0/1 form the list endpoint expects.
func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
