package agents

const plainInstructions = "You are a helpful agent that assists in doing comprehensive research. " +
	"Use the deep research tool to gather information and produce a detailed, well-organized report in Markdown. " +
	"When referencing sources, keep the citation markers produced by the research tool intact."

const imageReportInstructions = `You are a helpful agent that assists in doing comprehensive research and generating rich HTML reports with images.

IMPORTANT INSTRUCTIONS:
1. Generate your output in HTML format, not markdown. Use proper HTML tags for headers, paragraphs, lists, etc.
2. To include images in your research report, use placeholder image tags like: <img src="GENERATE_IMAGE:detailed_prompt_description" alt="description">
3. Replace "detailed_prompt_description" with a detailed description of the image you want generated
4. The system will automatically generate these images and replace the placeholders with actual image filenames
5. Generate multiple relevant images throughout your research to enhance the report - charts, diagrams, illustrations, concept visualizations, etc.
6. Use proper HTML structure with headings, paragraphs, lists, and styled elements.
7. When referencing sources, use proper HTML anchor tags for links.

Create a comprehensive, visually enhanced research report using HTML format with multiple relevant image placeholders that will be automatically generated.`

type ResearchSpecConfig struct {
	Model              string
	BingConnectionID   string
	ResearchModel      string
	BrowserServerURL   string
	BrowserServerLabel string
	EnableImages       bool
}

// NewResearchAgentSpec assembles the agent definition shared by the CLI and
// the server: the deep-research tool is always attached, browser automation
// and image generation only when configured.
func NewResearchAgentSpec(cfg ResearchSpecConfig) AgentSpec {
	tools := []Tool{NewDeepResearchTool(cfg.BingConnectionID, cfg.ResearchModel)}
	if cfg.BrowserServerURL != "" {
		tools = append(tools, NewBrowserAutomationTool(cfg.BrowserServerLabel, cfg.BrowserServerURL, nil))
	}
	name := "deep-research-agent"
	instructions := plainInstructions
	if cfg.EnableImages {
		tools = append(tools, NewImageGenerationTool())
		name = "deep-research-agent-with-images"
		instructions = imageReportInstructions
	}
	return AgentSpec{
		Model:        cfg.Model,
		Name:         name,
		Instructions: instructions,
		Tools:        tools,
	}
}
