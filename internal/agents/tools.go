package agents

// Tool is a tagged union over the runtime's tool definitions; only the
// fields matching Type are populated on the wire.
type Tool struct {
	Type         string              `json:"type"`
	DeepResearch *DeepResearchTool   `json:"deep_research,omitempty"`
	Function     *FunctionDefinition `json:"function,omitempty"`
	ServerLabel  string              `json:"server_label,omitempty"`
	ServerURL    string              `json:"server_url,omitempty"`
	AllowedTools []string            `json:"allowed_tools,omitempty"`
}

type DeepResearchTool struct {
	Model               string              `json:"deep_research_model"`
	BingGroundingConfig []BingGroundingConn `json:"deep_research_bing_grounding_connections"`
}

type BingGroundingConn struct {
	ConnectionID string `json:"connection_id"`
}

type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewDeepResearchTool attaches the hosted web-research tool backed by a
// Bing grounding connection.
func NewDeepResearchTool(bingConnectionID, researchModel string) Tool {
	return Tool{
		Type: "deep_research",
		DeepResearch: &DeepResearchTool{
			Model:               researchModel,
			BingGroundingConfig: []BingGroundingConn{{ConnectionID: bingConnectionID}},
		},
	}
}

// NewBrowserAutomationTool attaches an MCP browser-automation server.
func NewBrowserAutomationTool(serverLabel, serverURL string, allowedTools []string) Tool {
	return Tool{
		Type:         "mcp",
		ServerLabel:  serverLabel,
		ServerURL:    serverURL,
		AllowedTools: allowedTools,
	}
}

// NewImageGenerationTool declares the generate_image function the agent may
// call; execution happens locally through the images package.
func NewImageGenerationTool() Tool {
	return Tool{
		Type: "function",
		Function: &FunctionDefinition{
			Name:        "generate_image",
			Description: "Generate an image based on a text prompt and save it to the report images directory. Generated images are 1024x1024 PNG files.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{
						"type":        "string",
						"description": "A detailed description of the image to generate. Be specific about style, content, colors, and composition.",
					},
				},
				"required": []string{"prompt"},
			},
		},
	}
}
