package catalog

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

// NewMCPServer builds the product catalog MCP server with its tools
// registered.
func NewMCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"product-catalog",
		version,
		server.WithLogging(),
		server.WithToolCapabilities(true),
	)

	srv.AddTool(newListProductsTool(), handleListProducts)
	srv.AddTool(newGetProductTool(), handleGetProduct)

	return srv
}

// NewHTTPHandler wraps the MCP server in the streamable HTTP transport
// so it can be mounted on a regular listener.
func NewHTTPHandler(srv *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(srv)
}

// ServeStdio runs the catalog on stdin/stdout for local tool hosts.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

func newListProductsTool() mcp.Tool {
	return mcp.NewTool(
		"list_products",
		mcp.WithDescription("List the coffeeshop products with their item types and prices. Optionally filter by category (BARISTA or KITCHEN)."),
		mcp.WithString("category",
			mcp.Description("Fulfillment category filter: BARISTA or KITCHEN. Omit for all products."),
		),
	)
}

func handleListProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	products := Products()

	if raw, ok := req.GetArguments()["category"].(string); ok && raw != "" {
		category := order.Category(raw)
		switch category {
		case order.CategoryBarista, order.CategoryKitchen:
			products = ProductsFor(category)
		default:
			return mcp.NewToolResultError("unknown category: " + raw), nil
		}
	}

	jsonBytes, err := json.Marshal(products)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal products: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func newGetProductTool() mcp.Tool {
	return mcp.NewTool(
		"get_product",
		mcp.WithDescription("Look up a single product by its item type identifier."),
		mcp.WithString("itemType",
			mcp.Required(),
			mcp.Description("Product identifier, e.g. COFFEE_BLACK or CROISSANT."),
		),
	)
}

func handleGetProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["itemType"].(string)
	if !ok || raw == "" {
		return mcp.NewToolResultError("itemType is required"), nil
	}

	product, found := Lookup(order.ItemType(raw))
	if !found {
		return mcp.NewToolResultError("no such product: " + raw), nil
	}

	jsonBytes, err := json.Marshal(product)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal product: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
