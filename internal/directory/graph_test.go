package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphServer(t *testing.T, handler http.HandlerFunc) *GraphClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGraphClient(GraphConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestUsersForDomainFollowsPagesAndFilters(t *testing.T) {
	var srvURL string
	c := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		page := map[string]interface{}{}
		if r.URL.Query().Get("page") == "2" {
			page["value"] = []map[string]interface{}{
				{"id": "u3", "mail": "carol@acme.com", "displayName": "Carol"},
			}
		} else {
			page["value"] = []map[string]interface{}{
				{"id": "u1", "mail": "alice@acme.com", "displayName": "Alice"},
				{"id": "u2", "mail": "bob@other.com", "displayName": "Bob"},
				// Guest account with the home domain embedded in the UPN.
				{"id": "u4", "userPrincipalName": "dave_acme.com#EXT#@host.onmicrosoft.com", "givenName": "Dave", "surname": "Lee"},
			}
			page["@odata.nextLink"] = srvURL + "/users?page=2"
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	srvURL = c.base

	users, err := c.UsersForDomain(context.Background(), " Acme.COM ")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, User{OID: "u1", Email: "alice@acme.com", Name: "Alice"}, users[0])
	assert.Equal(t, User{OID: "u4", Email: "dave_acme.com#EXT#@host.onmicrosoft.com", Name: "Dave Lee"}, users[1])
	assert.Equal(t, User{OID: "u3", Email: "carol@acme.com", Name: "Carol"}, users[2])
}

func TestUsersForDomainEmptyDomain(t *testing.T) {
	c := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	users, err := c.UsersForDomain(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, users)
}

func TestUsersForDomainUpstreamError(t *testing.T) {
	c := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"throttled"}`, http.StatusTooManyRequests)
	})
	_, err := c.UsersForDomain(context.Background(), "acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSignInStatsCountsOutcomes(t *testing.T) {
	c := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auditLogs/signIns", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("$filter"), "createdDateTime ge ")
		fmt.Fprint(w, `{"value":[
			{"createdDateTime":"2026-03-01T10:00:00Z","status":{"errorCode":0}},
			{"createdDateTime":"2026-03-01T10:01:00Z","status":{"errorCode":0}},
			{"createdDateTime":"2026-03-01T10:02:00Z","status":{"errorCode":50126}}
		]}`)
	})

	stats, err := c.SignInStats(context.Background(), RangeLast7Days)
	require.NoError(t, err)
	assert.Equal(t, RangeLast7Days, stats.Range)
	assert.Equal(t, 2, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotEmpty(t, stats.From)
	assert.NotEmpty(t, stats.To)
}

func TestValidRange(t *testing.T) {
	for _, rng := range []string{RangeToday, RangeLast7Days, RangeLastMonth, RangeLastYear} {
		assert.True(t, ValidRange(rng), rng)
	}
	assert.False(t, ValidRange("yesterday"))
	assert.False(t, ValidRange(""))
}
