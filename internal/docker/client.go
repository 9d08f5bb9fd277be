package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Client wraps the Docker API client for index-store lifecycle management
type Client struct {
	cli *client.Client
}

// NewClient creates a new Docker client
func NewClient(host string) (*Client, error) {
	opts := []client.Opt{
		client.WithAPIVersionNegotiation(),
	}

	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if _, err := cli.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &Client{cli: cli}, nil
}

// Close closes the Docker client
func (c *Client) Close() error {
	return c.cli.Close()
}

// StartContainer starts the named container
func (c *Client) StartContainer(ctx context.Context, name string) error {
	id, err := c.findContainer(ctx, name)
	if err != nil {
		return err
	}
	return c.cli.ContainerStart(ctx, id, container.StartOptions{})
}

// StopContainer stops the named container within the given timeout
func (c *Client) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	id, err := c.findContainer(ctx, name)
	if err != nil {
		return err
	}

	timeoutSeconds := int(timeout.Seconds())
	return c.cli.ContainerStop(ctx, id, container.StopOptions{
		Timeout: &timeoutSeconds,
	})
}

// findContainer resolves a container name to its ID, including stopped
// containers.
func (c *Client) findContainer(ctx context.Context, name string) (string, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("name", name)

	containers, err := c.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return "", err
	}

	// The name filter matches substrings; require an exact name.
	for _, ctr := range containers {
		for _, n := range ctr.Names {
			if strings.TrimPrefix(n, "/") == name {
				return ctr.ID, nil
			}
		}
	}

	return "", fmt.Errorf("container %q not found", name)
}
