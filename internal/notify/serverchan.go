package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ServerChan pushes WeChat notifications through the sctapi.ftqq.com
// relay, identified by a per-user token.
type ServerChan struct {
	token  string
	client *http.Client
}

func NewServerChan(token string) *ServerChan {
	return &ServerChan{
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *ServerChan) Notify(ctx context.Context, title, message string) error {
	endpoint := fmt.Sprintf("https://sctapi.ftqq.com/%s.send?title=%s&desp=%s",
		s.token, url.QueryEscape(title), url.QueryEscape(message))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("serverchan: http %d", resp.StatusCode)
	}
	return nil
}
