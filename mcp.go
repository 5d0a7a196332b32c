package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func runMCP(bank *Bank) {

	s := server.NewMCPServer(
		"Fader Bank MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	docTool := mcp.NewTool("faderbank_describe-protocol",
		mcp.WithDescription("Returns the control-change protocol description for the fader bank."),
	)

	s.AddTool(docTool, docToolHandler)

	getBankTool := mcp.NewTool("faderbank_get-bank",
		mcp.WithDescription("Returns the state of all 32 fader channels."),
	)
	s.AddTool(getBankTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling get bank request.")

		asJson, err := json.MarshalIndent(bank.Snapshot(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal bank state to JSON: %v", err)
		}

		return mcp.NewToolResultText(string(asJson)), nil
	})

	configureTool := mcp.NewTool("faderbank_configure-channel",
		mcp.WithDescription("Configures one fader channel (pickup policy, drift, gang, quantizer, encoding)."),
		mcp.WithNumber("channel", mcp.Required(), mcp.Description("The channel index (0-31).")),
		mcp.WithString("config-json", mcp.Required(), mcp.Description("The channel configuration in JSON format. The JSON must conform to the ChannelConfig structure.")),
	)
	s.AddTool(configureTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channel, err := request.RequireInt("channel")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		configJson, err := request.RequireString("config-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if channel < 0 || channel >= NumFaders {
			return mcp.NewToolResultError(fmt.Sprintf("channel %d out of range 0-%d", channel, NumFaders-1)), nil
		}

		log.Println("[mcp] Configuring channel", channel, "JSON:", configJson)

		var cfg ChannelConfig
		if err := json.Unmarshal([]byte(configJson), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channel configuration JSON: %v", err)
		}

		bank.Configure(channel, cfg)
		return mcp.NewToolResultText("Channel configured."), nil
	})

	moveTool := mcp.NewTool("faderbank_move",
		mcp.WithDescription("Injects a physical sample for one channel, as if the control surface moved."),
		mcp.WithNumber("channel", mcp.Required(), mcp.Description("The channel index (0-31).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Normalized physical position (0.0-1.0).")),
	)
	s.AddTool(moveTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channel, err := request.RequireInt("channel")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		value, err := request.RequireFloat("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if channel < 0 || channel >= NumFaders {
			return mcp.NewToolResultError(fmt.Sprintf("channel %d out of range 0-%d", channel, NumFaders-1)), nil
		}

		log.Println("[mcp] Moving channel", channel, "to", value)

		bank.Push(Sample{Channel: channel, Value: value})
		return mcp.NewToolResultText("Sample queued for the next tick."), nil
	})

	log.Println("Starting fader bank MCP server...")

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}

}

//go:embed faderbank_cc_protocol.txt
var protocolDoc string

func docToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling protocol documentation request.")

	return mcp.NewToolResultText(protocolDoc), nil
}
