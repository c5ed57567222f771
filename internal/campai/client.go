package campai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Pagination defaults for list endpoints; Campai caps pages at 50 entries.
const (
	DefaultPageLimit = 50
	DefaultPageSkip  = 0
)

// Filter holds query-language filter parameters passed through to the API
// verbatim, see https://docs2.campai.com/queryLanguage.
type Filter map[string]string

// Page selects an offset/limit window of a list endpoint. The zero value
// asks for the default first page.
type Page struct {
	Limit int
	Skip  int
}

// Client is a minimal Campai REST API client. All requests carry the API
// key in the Authorization header.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a client for the Campai API at baseURL. httpClient may be
// nil, in which case http.DefaultClient is used.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

// Organisations lists organisations matching filter.
func (c *Client) Organisations(ctx context.Context, filter Filter) ([]Organisation, error) {
	var orgs []Organisation
	if err := c.getList(ctx, "organisations", filter, Page{}, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Contacts lists contacts of the given organisation. The organisation is
// merged into the filter parameters; page selects the offset/limit window.
// An empty result signals the end of the collection.
func (c *Client) Contacts(ctx context.Context, organisationID string, filter Filter, page Page) ([]Contact, error) {
	merged := Filter{"organisation": organisationID}
	for k, v := range filter {
		merged[k] = v
	}
	var contacts []Contact
	if err := c.getList(ctx, "contacts", merged, page, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (c *Client) getList(ctx context.Context, path string, filter Filter, page Page, out any) error {
	params := url.Values{}
	if page.Limit <= 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Skip < 0 {
		page.Skip = DefaultPageSkip
	}
	params.Set("limit", strconv.Itoa(page.Limit))
	params.Set("skip", strconv.Itoa(page.Skip))
	for k, v := range filter {
		params.Set(k, v)
	}

	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	rq.Header.Set("Authorization", c.apiKey)

	rs, err := c.http.Do(rq)
	if err != nil {
		return fmt.Errorf("GET campai %q: %w", path, err)
	}
	defer rs.Body.Close()

	body, err := io.ReadAll(rs.Body)
	if err != nil {
		return fmt.Errorf("GET campai %q: %w", path, err)
	}
	if rs.StatusCode != http.StatusOK {
		if len(body) > 0 {
			return fmt.Errorf("GET campai %q: status %d: %s", path, rs.StatusCode, string(body))
		}
		return fmt.Errorf("GET campai %q: status %d", path, rs.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET campai %q: decoding response: %w", path, err)
	}
	return nil
}
