package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultMCPTool is the pricing tool exposed by the AWS pricing MCP server.
const DefaultMCPTool = "get_pricing"

// ToolCaller is the subset of an MCP client used by MCPLookup.
type ToolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// MCPOptions configures a stdio connection to a pricing MCP server.
type MCPOptions struct {
	Command string
	Args    []string
	Env     []string
	Tool    string
	Version string
}

// MCPLookup asks an MCP pricing server for price list documents.
type MCPLookup struct {
	caller ToolCaller
	tool   string
	close  func() error
}

// NewMCPLookup wraps an already connected tool caller.
func NewMCPLookup(caller ToolCaller, tool string) *MCPLookup {
	if tool == "" {
		tool = DefaultMCPTool
	}
	return &MCPLookup{caller: caller, tool: tool}
}

// DialMCP starts the MCP server over stdio and performs the handshake.
// The caller owns the returned lookup and must Close it.
func DialMCP(ctx context.Context, opts MCPOptions) (*MCPLookup, error) {
	if opts.Command == "" {
		return nil, errors.New("mcp command is empty")
	}

	c, err := client.NewStdioMCPClient(opts.Command, opts.Env, opts.Args...)
	if err != nil {
		return nil, fmt.Errorf("start mcp server %s: %w", opts.Command, err)
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "planspectre",
				Version: version,
			},
		},
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize mcp server %s: %w", opts.Command, err)
	}
	slog.Debug("Connected to pricing MCP server", "command", opts.Command, "tool", opts.Tool)

	l := NewMCPLookup(c, opts.Tool)
	l.close = c.Close
	return l, nil
}

// Close releases the MCP server process, if this lookup started one.
func (l *MCPLookup) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

func (l *MCPLookup) Lookup(ctx context.Context, service, sku, region string) (Rate, error) {
	q, ok := queryFor(service, sku, region)
	if !ok {
		return Rate{}, lookupErr(KindNotFound, service, sku, region, nil)
	}

	args := map[string]any{
		"service_code":   q.serviceCode,
		"region":         region,
		"filters":        mcpFilters(q),
		"output_options": map[string]any{"pricing_terms": []string{"OnDemand"}},
	}

	result, err := l.caller.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      l.tool,
			Arguments: args,
		},
	})
	if err != nil {
		return Rate{}, callErr(ctx, service, sku, region, err)
	}

	if result == nil {
		return Rate{}, lookupErr(KindMalformed, service, sku, region, fmt.Errorf("tool %s returned no result", l.tool))
	}
	text := resultText(result)
	if result.IsError {
		return Rate{}, lookupErr(KindTransport, service, sku, region, fmt.Errorf("tool %s: %s", l.tool, text))
	}

	items, err := priceListFromText(text)
	if err != nil {
		return Rate{}, lookupErr(KindMalformed, service, sku, region, err)
	}
	price, err := parsePriceList(items)
	if err != nil {
		return Rate{}, priceListErr(service, sku, region, err)
	}
	return Rate{HourlyRate: price, Currency: CurrencyUSD}, nil
}

// mcpFilters renders the product query as get_pricing filters. The region
// travels in its own argument, so regionCode is left out.
func mcpFilters(q productQuery) []map[string]any {
	out := make([]map[string]any, 0, len(q.attrs))
	for _, a := range q.attrs {
		if a.field == "regionCode" {
			continue
		}
		out = append(out, map[string]any{"Field": a.field, "Type": "EQUALS", "Value": a.value})
	}
	return out
}

func resultText(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		} else if tc, ok := content.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// priceListFromText accepts the shapes pricing servers return: a single
// product document, an array of documents (or of JSON-encoded documents),
// or an envelope with the array under "data".
func priceListFromText(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty tool response")
	}

	if strings.HasPrefix(text, "[") {
		return flattenItems([]byte(text))
	}

	var envelope struct {
		Terms json.RawMessage `json:"terms"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, fmt.Errorf("decode tool response: %w", err)
	}
	if len(envelope.Terms) > 0 {
		return []string{text}, nil
	}
	if len(envelope.Data) > 0 {
		return flattenItems(envelope.Data)
	}
	return nil, nil
}

func flattenItems(raw []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode price list: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(item))
	}
	return out, nil
}
