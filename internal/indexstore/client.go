// Package indexstore queries the document-indexing service for reporting.
// All queries are best-effort: the pipeline never fails because the index
// store could not be reached.
package indexstore

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client wraps the index store API
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates a client for the given index store addresses
func NewClient(addresses []string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index store client: %w", err)
	}

	return &Client{es: es}, nil
}

// DocCount returns the number of documents in the named index, read from the
// docs.count column of the cat-indices status output.
func (c *Client) DocCount(ctx context.Context, index string) (int64, error) {
	req := esapi.CatIndicesRequest{
		Index: []string{index},
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return 0, fmt.Errorf("cat indices request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("cat indices returned %s", res.Status())
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read cat indices response: %w", err)
	}

	return parseDocCount(string(body), index)
}

// parseDocCount extracts the docs.count column for index from tabular
// cat-indices output. Default column layout:
//
//	health status index uuid pri rep docs.count docs.deleted store.size pri.store.size
func parseDocCount(output, index string) (int64, error) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 7 || fields[2] != index {
			continue
		}

		count, err := strconv.ParseInt(fields[6], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed docs.count %q for index %s", fields[6], index)
		}
		return count, nil
	}

	return 0, fmt.Errorf("index %q not present in status output", index)
}
