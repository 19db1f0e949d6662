package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/tradewinds/internal/payload"
	"github.com/talgya/tradewinds/internal/pipeline"
	"github.com/talgya/tradewinds/internal/world"
)

// Client talks to a generation server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// Generate starts a run.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	var out GenerateResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/generate", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	hr.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(hr)
	if err != nil {
		return out, fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return out, statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

// Follow reads a run's progress stream, calling fn for each stage event,
// and returns the final run status.
func (c *Client) Follow(ctx context.Context, id uuid.UUID, fn func(pipeline.Event)) (RunStatus, error) {
	var final RunStatus
	resp, err := c.get(ctx, "/api/v1/runs/"+id.String()+"/events")
	if err != nil {
		return final, err
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var name string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := []byte(strings.TrimPrefix(line, "data: "))
			if name == "done" {
				if err := json.Unmarshal(data, &final); err != nil {
					return final, fmt.Errorf("decode run status: %w", err)
				}
				return final, nil
			}
			var ev pipeline.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				return final, fmt.Errorf("decode event: %w", err)
			}
			if fn != nil {
				fn(ev)
			}
		case line == "":
			name = ""
		}
	}
	if err := sc.Err(); err != nil {
		return final, err
	}
	return final, io.ErrUnexpectedEOF
}

// Payload downloads and verifies a finished run's wire payload.
func (c *Client) Payload(ctx context.Context, id uuid.UUID) (*payload.Payload, error) {
	resp, err := c.get(ctx, "/api/v1/runs/"+id.String()+"/payload")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return payload.Unmarshal(data)
}

// World downloads a finished run and rebuilds its linked world.
func (c *Client) World(ctx context.Context, id uuid.UUID) (*world.World, error) {
	p, err := c.Payload(ctx, id)
	if err != nil {
		return nil, err
	}
	return payload.Decode(p)
}

// Tile asks the server which tile lies under (x, y).
func (c *Client) Tile(ctx context.Context, id uuid.UUID, x, y float64) (TileInfo, error) {
	var info TileInfo
	q := url.Values{}
	q.Set("x", strconv.FormatFloat(x, 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(y, 'f', -1, 64))
	resp, err := c.get(ctx, "/api/v1/runs/"+id.String()+"/tile?"+q.Encode())
	if err != nil {
		return info, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&info)
	return info, err
}

// get issues a GET and returns the response if it is 200.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	hr, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// StatusError is returned for a non-success HTTP response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}
