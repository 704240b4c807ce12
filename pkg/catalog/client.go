package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// Client talks to a catalog MCP server over the streamable HTTP
// transport. It speaks raw JSON-RPC: initialize once, then tools/call,
// carrying the mcp-session-id header between requests.
type Client struct {
	url        string
	httpClient *http.Client

	mu          sync.Mutex
	sessionID   string
	initialized bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for catalog calls. Pass an
// authenticating client to reach a bearer-protected catalog.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a catalog client for the given endpoint URL.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProducts fetches products from the catalog, optionally filtered by
// category. Pass an empty category for the full list.
func (c *Client) ListProducts(ctx context.Context, category order.Category) ([]Product, error) {
	args := map[string]any{}
	if category != "" {
		args["category"] = string(category)
	}

	text, err := c.callTool(ctx, "list_products", args)
	if err != nil {
		return nil, err
	}

	var products []Product
	if err := json.Unmarshal([]byte(text), &products); err != nil {
		return nil, fmt.Errorf("failed to parse product list: %w", err)
	}
	return products, nil
}

// GetProduct fetches a single product by item type.
func (c *Client) GetProduct(ctx context.Context, t order.ItemType) (Product, error) {
	text, err := c.callTool(ctx, "get_product", map[string]any{"itemType": string(t)})
	if err != nil {
		return Product{}, err
	}

	var product Product
	if err := json.Unmarshal([]byte(text), &product); err != nil {
		return Product{}, fmt.Errorf("failed to parse product: %w", err)
	}
	return product, nil
}

// callTool issues a tools/call request, initializing the session first
// when needed, and returns the text content of the result.
func (c *Client) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}

	resp, err := c.rpc(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", fmt.Errorf("catalog call %s failed: %w", name, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("catalog call %s failed: %s", name, resp.Error.Message)
	}

	return parseToolResult(resp.Result)
}

func (c *Client) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	done := c.initialized
	c.mu.Unlock()
	if done {
		return nil
	}

	resp, err := c.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo": map[string]any{
			"name":    "coffeeshop-counter",
			"version": "1.0.0",
		},
		"capabilities": map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("catalog initialize failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("catalog initialize failed: %s", resp.Error.Message)
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return nil
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	body, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID != "" {
		httpReq.Header.Set("mcp-session-id", sessionID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if newSessionID := httpResp.Header.Get("mcp-session-id"); newSessionID != "" {
		c.mu.Lock()
		c.sessionID = newSessionID
		c.mu.Unlock()
	}

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusAccepted {
		responseBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(responseBody))
	}

	if strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEResponse(httpResp.Body)
	}

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(responseBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// readSSEResponse reads the first complete JSON-RPC response from an
// SSE stream. The streamable HTTP transport answers single requests
// with a one-event stream.
func readSSEResponse(body io.Reader) (*jsonRPCResponse, error) {
	reader := bufio.NewReader(body)
	var data strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read SSE stream: %w", err)
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "data:") {
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")))
		} else if trimmed == "" && data.Len() > 0 {
			var resp jsonRPCResponse
			if parseErr := json.Unmarshal([]byte(data.String()), &resp); parseErr == nil {
				return &resp, nil
			}
			data.Reset()
		}

		if err == io.EOF {
			break
		}
	}

	if data.Len() > 0 {
		var resp jsonRPCResponse
		if err := json.Unmarshal([]byte(data.String()), &resp); err == nil {
			return &resp, nil
		}
	}
	return nil, fmt.Errorf("no JSON-RPC response in SSE stream")
}

// parseToolResult extracts the first text content block from a
// tools/call result.
func parseToolResult(result any) (string, error) {
	resultMap, ok := result.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected tools/call result type %T", result)
	}

	contents, ok := resultMap["content"].([]any)
	if !ok || len(contents) == 0 {
		return "", fmt.Errorf("tools/call result has no content")
	}

	var text string
	for _, raw := range contents {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if block["type"] == "text" {
			text, _ = block["text"].(string)
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("tools/call result has no text content")
	}

	if isError, _ := resultMap["isError"].(bool); isError {
		return "", fmt.Errorf("tool error: %s", text)
	}
	return text, nil
}
