package entropy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguredSeedWins(t *testing.T) {
	assert.Equal(t, int64(42), Seed(context.Background(), nil, 42))
}

func TestNilClientFallsBackToCrypto(t *testing.T) {
	var c *Client
	assert.False(t, c.Enabled())
	assert.Nil(t, NewClient(""))

	a := Seed(context.Background(), nil, 0)
	b := Seed(context.Background(), nil, 0)
	assert.Positive(t, a)
	assert.NotEqual(t, a, b)
}

func TestSeedFromRandomOrg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params struct {
				APIKey string `json:"apiKey"`
				N      int    `json:"n"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "generateIntegers", req.Method)
		assert.Equal(t, "key", req.Params.APIKey)
		assert.Equal(t, 2, req.Params.N)

		w.Write([]byte(`{"jsonrpc":"2.0","result":{"random":{"data":[3,5]}},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("key").WithEndpoint(srv.URL)
	assert.Equal(t, int64(3<<31|5), Seed(context.Background(), c, 0))
}

func TestRandomOrgErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":401,"message":"bad key"},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("key").WithEndpoint(srv.URL)
	_, err := c.fetch(context.Background())
	assert.ErrorContains(t, err, "bad key")
	assert.Positive(t, Seed(context.Background(), c, 0))
}
