package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const defaultGraphBase = "https://graph.microsoft.com/v1.0"

// GraphConfig holds the client-credentials settings for a Graph client.
// BaseURL and HTTPClient are overridable for tests.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   *http.Client
}

// GraphClient talks to Microsoft Graph with an app-only token.
type GraphClient struct {
	base string
	http *http.Client
}

func NewGraphClient(cfg GraphConfig) *GraphClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultGraphBase
	}
	client := cfg.HTTPClient
	if client == nil {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		}
		client = cc.Client(context.Background())
	}
	return &GraphClient{base: base, http: client}
}

// FromEnv builds the directory client from GRAPH_* settings, or the Disabled
// directory when they are absent.
func FromEnv() Directory {
	tenantID := os.Getenv("GRAPH_TENANT_ID")
	clientID := os.Getenv("GRAPH_CLIENT_ID")
	clientSecret := os.Getenv("GRAPH_CLIENT_SECRET")
	if tenantID == "" || clientID == "" || clientSecret == "" {
		return Disabled{}
	}
	return NewGraphClient(GraphConfig{TenantID: tenantID, ClientID: clientID, ClientSecret: clientSecret})
}

type graphUser struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
}

type graphUserPage struct {
	Value    []graphUser `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

func (c *GraphClient) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ConsistencyLevel", "eventual")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph request failed: %d %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *GraphClient) UsersForDomain(ctx context.Context, domain string) ([]User, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, nil
	}
	next := c.base + "/users?$select=id,mail,userPrincipalName,displayName,givenName,surname,accountEnabled&$top=999"
	var all []graphUser
	for next != "" {
		var page graphUserPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Value...)
		next = page.NextLink
	}

	users := make([]User, 0, len(all))
	for _, gu := range all {
		mail := strings.ToLower(gu.Mail)
		upn := strings.ToLower(gu.UserPrincipalName)
		// Guest accounts carry the home domain inside the UPN local part.
		if !strings.HasSuffix(mail, "@"+domain) && !strings.Contains(upn, "_"+domain) {
			continue
		}
		email := gu.Mail
		if email == "" {
			email = gu.UserPrincipalName
		}
		if email == "" {
			continue
		}
		name := gu.DisplayName
		if name == "" {
			name = strings.TrimSpace(gu.GivenName + " " + gu.Surname)
		}
		if name == "" {
			name = email
		}
		users = append(users, User{OID: gu.ID, Email: email, Name: name})
	}
	return users, nil
}

type signInEvent struct {
	CreatedDateTime string `json:"createdDateTime"`
	Status          struct {
		ErrorCode int `json:"errorCode"`
	} `json:"status"`
}

type signInPage struct {
	Value    []signInEvent `json:"value"`
	NextLink string        `json:"@odata.nextLink"`
}

func rangeStart(rng string, now time.Time) time.Time {
	switch rng {
	case RangeToday:
		return now.UTC().Truncate(24 * time.Hour)
	case RangeLast7Days:
		return now.Add(-7 * 24 * time.Hour)
	case RangeLastMonth:
		return now.AddDate(0, -1, 0)
	case RangeLastYear:
		return now.AddDate(-1, 0, 0)
	}
	return now
}

func (c *GraphClient) SignInStats(ctx context.Context, rng string) (*LoginStats, error) {
	now := time.Now()
	startISO := rangeStart(rng, now).UTC().Format(time.RFC3339)
	endISO := now.UTC().Format(time.RFC3339)
	filter := fmt.Sprintf("createdDateTime ge %s and createdDateTime le %s", startISO, endISO)
	next := c.base + "/auditLogs/signIns?$select=createdDateTime,status&$top=999&$filter=" + url.QueryEscape(filter)

	stats := &LoginStats{Range: rng, From: startISO, To: endISO}
	for next != "" {
		var page signInPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, ev := range page.Value {
			if ev.Status.ErrorCode == 0 {
				stats.SuccessCount++
			} else {
				stats.FailureCount++
			}
		}
		next = page.NextLink
	}
	return stats, nil
}
