// Package ai generates blog content through a hosted language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// TaskType selects the system instruction sent with a prompt.
type TaskType string

const (
	TaskContent  TaskType = "CONTENT_GENERATOR"
	TaskHeadline TaskType = "HEADLINE_GENERATOR"
	TaskSummary  TaskType = "SUMMARIZER"
	TaskSEO      TaskType = "SEO_OPTIMIZER"
	TaskImage    TaskType = "IMAGE_PROMPT"
	TaskGeneral  TaskType = "GENERAL"
)

// TaskTypes lists the task types offered to authors, in display order.
var TaskTypes = []TaskType{TaskContent, TaskHeadline, TaskSummary, TaskSEO, TaskImage}

// ParseTaskType maps raw input to a known task type. Unknown values map to
// TaskGeneral.
func ParseTaskType(raw string) TaskType {
	t := TaskType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range TaskTypes {
		if t == known {
			return t
		}
	}
	return TaskGeneral
}

// Label is a short human-readable name for the task.
func (t TaskType) Label() string {
	switch t {
	case TaskContent:
		return "Full article"
	case TaskHeadline:
		return "Headlines"
	case TaskSummary:
		return "Summary"
	case TaskSEO:
		return "SEO review"
	case TaskImage:
		return "Image prompt"
	default:
		return "Answer"
	}
}

// SystemPrompt returns the instruction that frames the model's answer for t.
func SystemPrompt(t TaskType) string {
	switch t {
	case TaskContent:
		return "You are a professional writer. Write a complete, well-structured and engaging article on the topic provided. Format the article in Markdown."
	case TaskHeadline:
		return "Write 5 catchy, attention-grabbing headlines for an article on the following topic. Each headline should be short, clear and compelling."
	case TaskSummary:
		return "Write a concise summary (2-3 sentences) of the following article."
	case TaskSEO:
		return "Analyze the following article and suggest SEO improvements. Include recommended keywords, a meta description and any structural changes worth making."
	case TaskImage:
		return "Write a detailed prompt for generating an illustration for this article with an image model. Describe the scene, colors, artistic style and setting."
	default:
		return "Write a professional answer to the following request."
	}
}

// ErrEmptyPrompt is returned when there is nothing to send to the model.
var ErrEmptyPrompt = errors.New("ai: prompt is required")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, task TaskType, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, task TaskType, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, task TaskType, prompt string) (string, error) {
	return f(ctx, task, prompt)
}

// Config configures a GenAIClient.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

func (c *Config) setDefaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
}

// GenAIClient generates content with Google's Gemini API.
type GenAIClient struct {
	client *genai.Client
	cfg    Config
}

// NewGenAIClient creates a client for the Gemini API.
func NewGenAIClient(ctx context.Context, cfg Config) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: API key is required")
	}
	cfg.setDefaults()

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}
	return &GenAIClient{client: client, cfg: cfg}, nil
}

// Generate sends prompt with the system instruction for task and returns the
// model's text.
func (g *GenAIClient) Generate(ctx context.Context, task TaskType, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	resp, err := g.client.Models.GenerateContent(ctx,
		g.cfg.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemPrompt(task), genai.RoleUser),
			Temperature:       genai.Ptr(g.cfg.Temperature),
			MaxOutputTokens:   g.cfg.MaxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("ai: generate content: %w", err)
	}
	return resp.Text(), nil
}
