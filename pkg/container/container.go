package container

import (
	"context"
	"strings"

	"github.com/nicholas-fedor/portainerctl/pkg/types"
)

// Attributes is a snapshot of the server-reported fields for one container,
// as returned by the summary listing or a full inspect.
type Attributes map[string]any

// ID returns the container id recorded in the snapshot, accepting both the
// "Id" and "ID" spellings the API uses.
func (a Attributes) ID() types.ContainerID {
	if id, ok := a["Id"].(string); ok {
		return types.ContainerID(id)
	}

	if id, ok := a["ID"].(string); ok {
		return types.ContainerID(id)
	}

	return ""
}

// String returns the string value stored under key, or empty when absent.
func (a Attributes) String(key string) string {
	value, _ := a[key].(string)

	return value
}

// Container wraps a cached attribute snapshot for one container.
//
// The snapshot is taken at list or inspect time and replaced wholesale by
// Reload; it is never partially mutated in place.
type Container struct {
	client *Client
	attrs  Attributes
}

// NewContainer builds a container entity around an attribute snapshot.
func NewContainer(client *Client, attrs Attributes) *Container {
	return &Container{client: client, attrs: attrs}
}

// ID returns the container id.
func (c *Container) ID() types.ContainerID {
	return c.attrs.ID()
}

// ContainerID implements types.ContainerReference, letting a fetched entity
// be passed directly to the operation layer.
func (c *Container) ContainerID() types.ContainerID {
	if c == nil {
		return ""
	}

	return c.ID()
}

// ShortID returns the 12-character short form of the container id.
func (c *Container) ShortID() string {
	return c.ID().ShortID()
}

// Name returns the container name without the leading slash. Summary
// snapshots record names under "Names"; inspect snapshots under "Name".
func (c *Container) Name() string {
	if name := c.attrs.String("Name"); name != "" {
		return strings.TrimPrefix(name, "/")
	}

	if names, ok := c.attrs["Names"].([]any); ok && len(names) > 0 {
		if name, ok := names[0].(string); ok {
			return strings.TrimPrefix(name, "/")
		}
	}

	return ""
}

// Image returns the image reference the container was created from.
func (c *Container) Image() string {
	return c.attrs.String("Image")
}

// State returns the container state (e.g. "running"). Summary snapshots
// record it as a plain string; inspect snapshots nest it under State.Status.
func (c *Container) State() string {
	if state := c.attrs.String("State"); state != "" {
		return state
	}

	if state, ok := c.attrs["State"].(map[string]any); ok {
		status, _ := state["Status"].(string)

		return status
	}

	return ""
}

// Status returns the human-readable status line from a summary snapshot
// (e.g. "Up 3 hours"), or empty when the snapshot came from an inspect.
func (c *Container) Status() string {
	return c.attrs.String("Status")
}

// Labels returns the container labels from either snapshot shape.
func (c *Container) Labels() map[string]string {
	raw, ok := c.attrs["Labels"].(map[string]any)
	if !ok {
		if config, isMap := c.attrs["Config"].(map[string]any); isMap {
			raw, ok = config["Labels"].(map[string]any)
		}

		if !ok {
			return nil
		}
	}

	labels := make(map[string]string, len(raw))

	for key, value := range raw {
		if text, isString := value.(string); isString {
			labels[key] = text
		}
	}

	return labels
}

// Attributes returns the current snapshot.
func (c *Container) Attributes() Attributes {
	return c.attrs
}

// Reload replaces the attribute snapshot with a fresh inspect result.
func (c *Container) Reload(ctx context.Context) error {
	attrs, err := c.client.InspectContainer(ctx, c.ID())
	if err != nil {
		return err
	}

	c.attrs = attrs

	return nil
}
