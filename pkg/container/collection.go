package container

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/portainerctl/pkg/client"
	"github.com/nicholas-fedor/portainerctl/pkg/types"
)

// Collection provides list and fetch access to container entities.
type Collection struct {
	client *Client
}

// NewCollection wraps an operation client in the entity collection.
func NewCollection(client *Client) *Collection {
	return &Collection{client: client}
}

// ListParams controls how the collection materializes container entities.
type ListParams struct {
	ListOptions

	// Sparse builds entities from summary fields only, skipping the
	// per-entry inspect.
	Sparse bool
	// IgnoreRemoved silently drops entries that disappear between the
	// summary listing and their individual inspect.
	IgnoreRemoved bool
}

// Get fetches a fully populated container entity by reference.
func (col *Collection) Get(
	ctx context.Context,
	ref types.ContainerReference,
) (*Container, error) {
	attrs, err := col.client.InspectContainer(ctx, ref)
	if err != nil {
		return nil, err
	}

	return NewContainer(col.client, attrs), nil
}

// List fetches the container summary set and, unless Sparse is requested,
// performs one inspect per entry to build fully populated entities.
func (col *Collection) List(ctx context.Context, params ListParams) ([]*Container, error) {
	entries, err := col.client.ListContainers(ctx, params.ListOptions)
	if err != nil {
		return nil, err
	}

	containers := make([]*Container, 0, len(entries))

	for _, entry := range entries {
		if params.Sparse {
			containers = append(containers, NewContainer(col.client, entry))

			continue
		}

		full, err := col.Get(ctx, entry.ID())
		if err != nil {
			// A container can legitimately vanish between the summary
			// listing and its inspect.
			if params.IgnoreRemoved && errors.Is(err, client.ErrNotFound) {
				logrus.WithField("container", entry.ID().ShortID()).
					Debug("Container removed during listing, skipping")

				continue
			}

			return nil, err
		}

		containers = append(containers, full)
	}

	return containers, nil
}
