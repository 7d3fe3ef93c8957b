package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStalePools(t *testing.T) {
	staking := common.HexToAddress("0xAbCdEf0000000000000000000000000000000001")
	before := time.Unix(1_700_000_000, 0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "lastDistributed_lt")
		assert.Equal(t, "0xabcdef0000000000000000000000000000000001", req.Variables["staking"])
		assert.Equal(t, "1700000000", req.Variables["before"])
		assert.EqualValues(t, 3, req.Variables["first"])

		_, _ = w.Write([]byte(`{"data":{"pools":[
			{"id":"0x0000000000000000000000000000000000001001"},
			{"id":"0x0000000000000000000000000000000000001002"}
		]}}`))
	}))
	defer srv.Close()

	pools, err := New(srv.URL, nil).StalePools(context.Background(), staking, before, 3)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{
		common.HexToAddress("0x1001"),
		common.HexToAddress("0x1002"),
	}, pools)
}

func TestStalePoolsErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"graphqlErrors", http.StatusOK, `{"errors":[{"message":"indexing error"}]}`},
		{"httpStatus", http.StatusBadGateway, `bad gateway`},
		{"malformedJSON", http.StatusOK, `{"data":`},
		{"malformedID", http.StatusOK, `{"data":{"pools":[{"id":"pool-1"}]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, nil).StalePools(context.Background(), common.Address{}, time.Now(), 1)
			require.Error(t, err)
		})
	}
}
