package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
)

// HTTPFetcher pulls the tenant user list from the identity service named by
// DIRECTORY_URL. The service answers GET <url>?customerId=&tenantId=&appId=
// with a JSON array of users.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: os.Getenv("DIRECTORY_URL"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPFetcher) FetchUsers(ctx context.Context, tenancy utils.Tenancy) ([]User, error) {
	if f.BaseURL == "" {
		return nil, fmt.Errorf("DIRECTORY_URL is required")
	}

	query := url.Values{}
	query.Set("customerId", tenancy.CustomerId)
	query.Set("tenantId", tenancy.TenantId)
	query.Set("appId", tenancy.AppId)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, err
	}
	return users, nil
}
