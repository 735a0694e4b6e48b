package images

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

type GeneratorConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Model      string
	OutputDir  string
}

// Generator renders prompts to PNG files through the hosted image model
// and saves them under OutputDir. Returned names are relative filenames.
type Generator struct {
	endpoint   string
	apiKey     string
	apiVersion string
	model      string
	outputDir  string
	client     *http.Client
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2025-04-01-preview"
	}
	return &Generator{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: apiVersion,
		model:      cfg.Model,
		outputDir:  cfg.OutputDir,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("missing API key for image generation")
	}
	if g.model == "" {
		return "", errors.New("missing model deployment for image generation")
	}
	payload := map[string]any{
		"prompt":        prompt,
		"n":             1,
		"size":          "1024x1024",
		"quality":       "medium",
		"output_format": "png",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/openai/deployments/%s/images/generations?api-version=%s", g.endpoint, g.model, g.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("image generation request failed: %s", resp.Status)
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return "", errors.New("image generation response had no image data")
	}
	decoded, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", err
	}
	filename := safeFilename(prompt)
	if err := os.WriteFile(filepath.Join(g.outputDir, filename), decoded, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

var (
	specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// safeFilename derives a stable filesystem name from the prompt: specials
// stripped, spaces collapsed to underscores, lowercased, and long prompts
// truncated with a hash suffix for uniqueness.
func safeFilename(prompt string) string {
	name := specialChars.ReplaceAllString(prompt, "")
	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.ToLower(name)
	if len(name) > 50 {
		sum := md5.Sum([]byte(prompt))
		name = name[:42] + "_" + hex.EncodeToString(sum[:])[:8]
	}
	return name + ".png"
}
