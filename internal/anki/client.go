// Package anki exports words to an Anki collection through the AnkiConnect
// add-on's HTTP API.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiVersion = 6

// Note is an AnkiConnect note. Fields are keyed by the model's field names.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
	Options   NoteOptions       `json:"options"`
}

type NoteOptions struct {
	AllowDuplicate        bool                  `json:"allowDuplicate"`
	DuplicateScope        string                `json:"duplicateScope"`
	DuplicateScopeOptions DuplicateScopeOptions `json:"duplicateScopeOptions"`
}

type DuplicateScopeOptions struct {
	DeckName       *string `json:"deckName"`
	CheckChildren  bool    `json:"checkChildren"`
	CheckAllModels bool    `json:"checkAllModels"`
}

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke posts one action and decodes its result into out, if non-nil.
// AnkiConnect reports failures in the body with status 200.
func (c *Client) invoke(ctx context.Context, action string, params, out any) error {
	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: status %d: %s", action, resp.StatusCode, string(respBody))
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode %s: %w", action, err)
	}
	if r.Error != nil {
		return fmt.Errorf("%s: %w", action, errors.New(*r.Error))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", action, err)
	}
	return nil
}

// AddNote creates a note and returns its id.
func (c *Client) AddNote(ctx context.Context, n Note) (int64, error) {
	var id int64
	if err := c.invoke(ctx, "addNote", map[string]any{"note": n}, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// CanAddNotes reports, per note, whether Anki would accept it.
func (c *Client) CanAddNotes(ctx context.Context, notes []Note) ([]bool, error) {
	out := make([]bool, 0, len(notes))
	if len(notes) == 0 {
		return out, nil
	}
	if err := c.invoke(ctx, "canAddNotes", map[string]any{"notes": notes}, &out); err != nil {
		return nil, err
	}
	if len(out) != len(notes) {
		return nil, fmt.Errorf("canAddNotes: got %d results for %d notes", len(out), len(notes))
	}
	return out, nil
}

// Sync pushes the local collection to AnkiWeb.
func (c *Client) Sync(ctx context.Context) error {
	return c.invoke(ctx, "sync", nil, nil)
}
