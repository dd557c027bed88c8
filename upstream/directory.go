package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"discord-relay/domain"
	"discord-relay/errors"
)

// Directory queries the gateway's REST surface for per-subscriber
// channel lists and profiles. The gateway applies its own visibility
// rules; whatever it returns is authoritative here.
type Directory struct {
	log     *slog.Logger
	baseURL string
	client  *http.Client
}

func NewDirectory(log *slog.Logger, baseURL string, timeout time.Duration) *Directory {
	return &Directory{
		log:     log,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// UserChannels lists the channels the subscriber may see.
func (d *Directory) UserChannels(ctx context.Context, subscriberID string) ([]domain.Channel, error) {
	var channels []domain.Channel
	if err := d.getJSON(ctx, fmt.Sprintf("/users/%s/channels", url.PathEscape(subscriberID)), &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// UserInfo resolves the subscriber's profile.
func (d *Directory) UserInfo(ctx context.Context, subscriberID string) (domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := d.getJSON(ctx, fmt.Sprintf("/users/%s", url.PathEscape(subscriberID)), &profile); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}

func (d *Directory) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d on %s", errors.ErrUpstreamUnavailable, resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
