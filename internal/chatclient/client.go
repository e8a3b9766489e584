package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"minichat/pkg/domain"
)

// Client calls the chat RPC server over HTTP. One method per procedure; the
// server authenticates every call with the provider-issued bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs an RPC client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Me resolves the authenticated identity behind the configured token.
func (c *Client) Me(ctx context.Context) (domain.Identity, error) {
	var who domain.Identity
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, &who); err != nil {
		return domain.Identity{}, err
	}
	return who, nil
}

// AskModel forwards a prompt to the model and returns the generated text.
func (c *Client) AskModel(ctx context.Context, prompt string) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/rpc/askModel", map[string]string{"prompt": prompt}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CreateConversation inserts a new conversation for the user.
func (c *Client) CreateConversation(ctx context.Context, userID, title string) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.doJSON(ctx, http.MethodPost, "/rpc/createConversation",
		map[string]string{"userId": userID, "title": title}, &conv)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// GetConversations returns the user's conversations with nested messages.
func (c *Client) GetConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var items []domain.Conversation
	path := "/rpc/getConversations?userId=" + url.QueryEscape(userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// InsertMessage appends one message to a conversation.
func (c *Client) InsertMessage(ctx context.Context, conversationID, userID, content string, role domain.Role) (domain.Message, error) {
	var msg domain.Message
	err := c.doJSON(ctx, http.MethodPost, "/rpc/insertMessage", map[string]string{
		"conversationId": conversationID,
		"userId":         userID,
		"content":        content,
		"role":           string(role),
	}, &msg)
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// UpdateConversation overwrites a conversation's title and refreshes its
// last-updated timestamp.
func (c *Client) UpdateConversation(ctx context.Context, conversationID, title string) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.doJSON(ctx, http.MethodPost, "/rpc/updateConversation",
		map[string]string{"conversationId": conversationID, "title": title}, &conv)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// APIError carries the server's error payload and status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}
