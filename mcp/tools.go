package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/pipeline"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

// RunFunc performs one scrape run.
type RunFunc func(ctx context.Context) (pipeline.Summary, error)

// Service is what the tools operate on. Run may be nil, in which case
// run_scrape reports that scraping is disabled.
type Service struct {
	Store storage.Store
	Run   RunFunc

	running sync.Mutex
}

func registerTools(s *server.MCPServer, svc *Service) {
	// list_products
	listTool := mcp.NewTool("list_products",
		mcp.WithDescription("List products the price watcher has seen"),
		mcp.WithString("site",
			mcp.Description("Only products from this site"),
		),
		mcp.WithBoolean("tracked_only",
			mcp.Description("Only products with alerts enabled (default: false)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of products (default: 50)"),
		),
	)
	s.AddTool(listTool, svc.handleListProducts)

	// get_product
	getTool := mcp.NewTool("get_product",
		mcp.WithDescription("Get the last known price and stock of one product"),
		mcp.WithString("site",
			mcp.Required(),
			mcp.Description("Site name"),
		),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Product code on that site"),
		),
	)
	s.AddTool(getTool, svc.handleGetProduct)

	// set_tracking
	trackTool := mcp.NewTool("set_tracking",
		mcp.WithDescription("Enable or disable alerts for a product"),
		mcp.WithString("site",
			mcp.Required(),
			mcp.Description("Site name"),
		),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Product code on that site"),
		),
		mcp.WithBoolean("tracked",
			mcp.Required(),
			mcp.Description("true to receive alerts, false to silence them"),
		),
	)
	s.AddTool(trackTool, svc.handleSetTracking)

	// run_scrape
	runTool := mcp.NewTool("run_scrape",
		mcp.WithDescription("Scrape every configured site now, diff against stored state and send alerts"),
	)
	s.AddTool(runTool, svc.handleRunScrape)
}

func (svc *Service) handleListProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := storage.Filter{
		Site:        request.GetString("site", ""),
		TrackedOnly: request.GetBool("tracked_only", false),
		Limit:       request.GetInt("limit", 50),
	}

	products, err := svc.Store.List(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
	}
	if products == nil {
		products = []models.ProductRecord{}
	}
	return jsonResult(products)
}

func (svc *Service) handleGetProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site := request.GetString("site", "")
	code := request.GetString("code", "")
	if site == "" || code == "" {
		return mcp.NewToolResultError("site and code are required"), nil
	}

	product, err := svc.Store.Get(ctx, site, code)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no product %s/%s", site, code)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get error: %v", err)), nil
	}
	return jsonResult(product)
}

func (svc *Service) handleSetTracking(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site := request.GetString("site", "")
	code := request.GetString("code", "")
	if site == "" || code == "" {
		return mcp.NewToolResultError("site and code are required"), nil
	}
	tracked, err := request.RequireBool("tracked")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = svc.Store.SetTracked(ctx, site, code, tracked)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no product %s/%s", site, code)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("set tracking error: %v", err)), nil
	}

	state := "disabled"
	if tracked {
		state = "enabled"
	}
	return mcp.NewToolResultText(fmt.Sprintf("alerts %s for %s/%s", state, site, code)), nil
}

func (svc *Service) handleRunScrape(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if svc.Run == nil {
		return mcp.NewToolResultError("scraping is not enabled on this server"), nil
	}
	if !svc.running.TryLock() {
		return mcp.NewToolResultError("a scrape run is already in progress"), nil
	}
	defer svc.running.Unlock()

	summary, err := svc.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run error: %v", err)), nil
	}
	return jsonResult(summary)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
