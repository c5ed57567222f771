package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to the Keycloak admin REST API of a single realm. Requests
// authenticate via the client-credentials grant; the underlying oauth2
// transport caches and refreshes the access token.
type Client struct {
	adminBase string
	http      *http.Client
}

// New returns an admin client for the given realm. serverURL is the
// Keycloak base URL (for example https://id.example.org). The context
// bounds the lifetime of token refreshes.
func New(ctx context.Context, serverURL, realm, clientID, clientSecret string) *Client {
	serverURL = strings.TrimSuffix(serverURL, "/")
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", serverURL, realm),
	}
	return &Client{
		adminBase: fmt.Sprintf("%s/admin/realms/%s", serverURL, realm),
		http:      cfg.Client(ctx),
	}
}

// UsersByAttribute lists users whose attribute name carries value, using
// the admin API's q=name:value search.
func (c *Client) UsersByAttribute(ctx context.Context, name, value string) ([]*User, error) {
	params := url.Values{}
	params.Set("q", name+":"+value)
	return c.users(ctx, params)
}

// UsersByEmail lists users with exactly the given e-mail address.
func (c *Client) UsersByEmail(ctx context.Context, email string) ([]*User, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("exact", "true")
	return c.users(ctx, params)
}

// UsersByUsername lists users with exactly the given username.
func (c *Client) UsersByUsername(ctx context.Context, username string) ([]*User, error) {
	params := url.Values{}
	params.Set("username", username)
	params.Set("exact", "true")
	return c.users(ctx, params)
}

func (c *Client) users(ctx context.Context, params url.Values) ([]*User, error) {
	var raws []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/users?"+params.Encode(), nil, &raws); err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(raws))
	for _, raw := range raws {
		u, err := parseUser(raw)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// GroupsByName lists groups matching the given name search.
func (c *Client) GroupsByName(ctx context.Context, name string) ([]Group, error) {
	params := url.Values{}
	params.Set("search", name)
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/groups?"+params.Encode(), nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// UserGroups lists the groups the given user is a member of.
func (c *Client) UserGroups(ctx context.Context, userID uuid.UUID) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/users/"+userID.String()+"/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateUser creates a user from the given representation fields and
// returns the id Keycloak assigned, taken from the Location header.
func (c *Client) CreateUser(ctx context.Context, fields map[string]any) (uuid.UUID, error) {
	location, err := c.doLocation(ctx, http.MethodPost, "/users", fields)
	if err != nil {
		return uuid.Nil, err
	}
	idx := strings.LastIndex(location, "/")
	if idx < 0 {
		return uuid.Nil, fmt.Errorf("create user: unexpected Location header %q", location)
	}
	id, err := uuid.Parse(location[idx+1:])
	if err != nil {
		return uuid.Nil, fmt.Errorf("create user: parsing id from Location %q: %w", location, err)
	}
	return id, nil
}

// UpdateUser replaces the user's representation with its stored raw form
// merged with the given fields.
func (c *Client) UpdateUser(ctx context.Context, user *User, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, "/users/"+user.ID.String(), user.mergedRep(fields), nil)
}

// AddUserToGroup adds the user to the group.
func (c *Client) AddUserToGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	return c.do(ctx, http.MethodPut, "/users/"+userID.String()+"/groups/"+groupID.String(), nil, nil)
}

// RemoveUserFromGroup removes the user from the group.
func (c *Client) RemoveUserFromGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/users/"+userID.String()+"/groups/"+groupID.String(), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	_, err := c.request(ctx, method, path, payload, out)
	return err
}

func (c *Client) doLocation(ctx context.Context, method, path string, payload any) (string, error) {
	rs, err := c.request(ctx, method, path, payload, nil)
	if err != nil {
		return "", err
	}
	return rs.Header.Get("Location"), nil
}

func (c *Client) request(ctx context.Context, method, path string, payload, out any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s keycloak %q: encoding payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	rq, err := http.NewRequestWithContext(ctx, method, c.adminBase+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		rq.Header.Set("Content-Type", "application/json")
	}

	rs, err := c.http.Do(rq)
	if err != nil {
		return nil, fmt.Errorf("%s keycloak %q: %w", method, path, err)
	}
	defer rs.Body.Close()

	data, err := io.ReadAll(rs.Body)
	if err != nil {
		return nil, fmt.Errorf("%s keycloak %q: %w", method, path, err)
	}
	if rs.StatusCode >= 300 {
		if len(data) > 0 {
			return nil, fmt.Errorf("%s keycloak %q: status %d: %s", method, path, rs.StatusCode, string(data))
		}
		return nil, fmt.Errorf("%s keycloak %q: status %d", method, path, rs.StatusCode)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("%s keycloak %q: decoding response: %w", method, path, err)
		}
	}
	return rs, nil
}
