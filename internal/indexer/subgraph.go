// Package indexer queries the staking subgraph for pools that are due a distribution.
package indexer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

const stalePoolsQuery = `query StalePools($staking: Bytes!, $before: BigInt!, $first: Int!) {
  pools(
    first: $first
    where: {staking: $staking, lastDistributed_lt: $before}
    orderBy: lastDistributed
    orderDirection: asc
  ) {
    id
  }
}`

type Client struct {
	url  string
	http *http.Client
}

func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type stalePoolsResponse struct {
	Data struct {
		Pools []struct {
			ID string `json:"id"`
		} `json:"pools"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// StalePools returns up to first pools of staking whose lastDistributed is before the given
// time, oldest first.
func (c *Client) StalePools(ctx context.Context, staking common.Address, before time.Time, first int) ([]common.Address, error) {
	body, err := json.Marshal(request{
		Query: stalePoolsQuery,
		Variables: map[string]any{
			"staking": strings.ToLower(staking.Hex()),
			"before":  strconv.FormatInt(before.Unix(), 10),
			"first":   first,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "encode subgraph query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "build subgraph request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "query subgraph")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "read subgraph response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("subgraph returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out stalePoolsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "decode subgraph response")
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, eris.Errorf("subgraph: %s", strings.Join(msgs, "; "))
	}

	pools := make([]common.Address, 0, len(out.Data.Pools))
	for _, p := range out.Data.Pools {
		if !common.IsHexAddress(p.ID) {
			return nil, eris.Errorf("subgraph returned malformed pool id %q", p.ID)
		}
		pools = append(pools, common.HexToAddress(p.ID))
	}
	return pools, nil
}
