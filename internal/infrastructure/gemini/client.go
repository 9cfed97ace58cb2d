// Package gemini wraps the Gemini API for icebreaker generation. The
// matching engine passes in only interests both sides have already
// revealed; nothing else about either profile leaves the process.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewClient(apiKey string) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-1.5-pro")
	model.SetTemperature(0.7)

	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	c.client.Close()
}

// Icebreakers generates up to three opening lines from the two revealed
// interest lists. Either list may be empty when that side has not revealed
// interests yet.
func (c *Client) Icebreakers(ctx context.Context, aInterests, bInterests []string) ([]string, error) {
	prompt := fmt.Sprintf(`
		Generate 3 short icebreaker messages for two people who just matched
		in an anonymous social app. They know each other only by nickname.
		Person A interests: %v
		Person B interests: %v

		Task: Create 3 distinct opening lines Person A could send to Person B.
		Build on shared interests when they exist; stay generic and friendly
		when the lists are empty. Never guess at names, ages, or locations.
		Output: JSON array of strings. Example: ["Hi...", "Hello..."]
	`, aInterests, bInterests)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var lines []string
	if err := json.Unmarshal([]byte(text), &lines); err != nil {
		// Model sometimes answers in plain lines despite the instruction.
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "[") && !strings.HasSuffix(line, "]") {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			return nil, fmt.Errorf("failed to parse icebreakers: %w", err)
		}
	}
	return lines, nil
}
