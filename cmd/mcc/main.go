package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// debateRequest models the POST payload to /api/v1/debates
type debateRequest struct {
	Team     string       `json:"team"`
	SourceID string       `json:"source_id,omitempty"`
	Email    *debateEmail `json:"email,omitempty"`
	Query    string       `json:"query,omitempty"`
}

type debateEmail struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

// debateEventData models the data payload of the SSE events
type debateEventData struct {
	TaskID   string          `json:"task_id"`
	Message  *debateMessage  `json:"message,omitempty"`
	Decision *debateDecision `json:"decision,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

type debateMessage struct {
	Round    int    `json:"round"`
	Role     string `json:"role"`
	Icon     string `json:"icon"`
	Content  string `json:"content"`
	Thinking bool   `json:"thinking"`
}

type debateDecision struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	DecidedBy   string   `json:"decided_by"`
}

func main() {
	app := &cli.App{
		Name:  "mcc",
		Usage: "MailCouncil CLI - submit emails or queries for team debate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8844",
				Usage:   "MailCouncil API base URL",
				EnvVars: []string{"MCC_SERVER"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "JWT bearer token for authentication",
				EnvVars: []string{"MCC_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for authentication",
				EnvVars: []string{"MCC_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "team",
				Aliases: []string{"t"},
				Value:   "triage",
				Usage:   "team key to debate with",
				EnvVars: []string{"MCC_TEAM"},
			},
			&cli.StringFlag{
				Name:  "source-id",
				Usage: "caller-side identifier echoed back on the task",
			},
			&cli.StringFlag{
				Name:  "subject",
				Usage: "email subject (switches to email mode)",
			},
			&cli.StringFlag{
				Name:  "sender",
				Usage: "email sender address",
			},
			&cli.StringFlag{
				Name:  "body",
				Usage: "email body text",
			},
			&cli.StringFlag{
				Name:  "body-file",
				Usage: "path to a file holding the email body",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   10 * time.Minute,
				Usage:   "maximum time to wait for the debate to finish",
				EnvVars: []string{"MCC_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "output",
				Value:   "pretty",
				Usage:   "output format: pretty or json",
				EnvVars: []string{"MCC_OUTPUT"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable verbose output",
				EnvVars: []string{"MCC_VERBOSE"},
			},
		},
		ArgsUsage: "[QUERY]",
		Action:    runDebate,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runDebate(c *cli.Context) error {
	verbose := c.Bool("verbose")

	req, err := buildRequest(c)
	if err != nil {
		return err
	}

	server := strings.TrimSuffix(c.String("server"), "/")
	token := c.String("token")
	apiKey := c.String("api-key")

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	// Open the event stream before submitting so no turn can be missed.
	stream, err := openEventStream(ctx, server, token, apiKey)
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer stream.Close()

	taskID, err := submitDebate(server, token, apiKey, req, verbose)
	if err != nil {
		return fmt.Errorf("failed to submit debate: %w", err)
	}

	if verbose {
		log.Printf("Debate submitted, task ID: %s", taskID)
	}

	data, err := followDebate(stream, taskID, c.String("output") == "pretty")
	if err != nil {
		return err
	}

	return renderResult(server, token, apiKey, taskID, data, c.String("output"))
}

func buildRequest(c *cli.Context) (*debateRequest, error) {
	req := &debateRequest{
		Team:     c.String("team"),
		SourceID: c.String("source-id"),
	}

	emailMode := c.String("subject") != "" || c.String("sender") != "" ||
		c.String("body") != "" || c.String("body-file") != ""
	queryText := strings.Join(c.Args().Slice(), " ")

	switch {
	case emailMode && queryText != "":
		return nil, fmt.Errorf("provide either email flags or a query argument, not both")
	case emailMode:
		body := c.String("body")
		if path := c.String("body-file"); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read body file: %w", err)
			}
			body = string(raw)
		}
		req.Email = &debateEmail{
			Subject: c.String("subject"),
			Sender:  c.String("sender"),
			Body:    body,
		}
	default:
		req.Query = queryText
	}
	return req, nil
}

func applyAuth(req *http.Request, token, apiKey string) {
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func openEventStream(ctx context.Context, server, token, apiKey string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", server+"/api/v1/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	applyAuth(req, token, apiKey)

	// No client timeout here: the context deadline bounds the stream.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

func submitDebate(server, token, apiKey string, payload *debateRequest, verbose bool) (string, error) {
	endpoint := server + "/api/v1/debates"

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req, token, apiKey)

	if verbose {
		log.Printf("POST %s", endpoint)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	taskID, ok := result["task_id"].(string)
	if !ok {
		return "", fmt.Errorf("task_id not found in response")
	}
	return taskID, nil
}

// followDebate reads the SSE stream until the task finishes, printing turns
// as they land when live output is on. It returns the terminal event data.
func followDebate(stream io.Reader, taskID string, live bool) (*debateEventData, error) {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var eventName string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var data debateEventData
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err != nil {
				continue
			}
			if data.TaskID != taskID {
				continue
			}
			switch eventName {
			case "agent_message":
				if live && data.Message != nil && !data.Message.Thinking {
					fmt.Printf("\n[Round %d] %s %s:\n%s\n",
						data.Message.Round, data.Message.Icon, data.Message.Role, data.Message.Content)
				}
			case "debate_complete":
				return &data, nil
			case "debate_error":
				return nil, fmt.Errorf("debate failed: %s", data.Reason)
			}
		case line == "":
			eventName = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("event stream ended early: %w", err)
	}
	return nil, fmt.Errorf("event stream closed before the debate finished")
}

func renderResult(server, token, apiKey, taskID string, data *debateEventData, format string) error {
	switch format {
	case "json":
		return renderJSON(server, token, apiKey, taskID)
	case "pretty":
		renderPretty(data)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (must be json or pretty)", format)
	}
}

// renderJSON fetches the finished task and dumps the full record.
func renderJSON(server, token, apiKey, taskID string) error {
	req, err := http.NewRequest("GET", server+"/api/v1/debates/"+taskID, nil)
	if err != nil {
		return err
	}
	applyAuth(req, token, apiKey)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch task: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var task map[string]interface{}
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("failed to parse task: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(task)
}

func renderPretty(data *debateEventData) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	if data.Decision != nil {
		fmt.Printf("DECISION by %s\n", data.Decision.DecidedBy)
		fmt.Println(strings.Repeat("=", 80))
		fmt.Println(data.Decision.Summary)
		if len(data.Decision.ActionItems) > 0 {
			fmt.Println("\nAction items:")
			for _, item := range data.Decision.ActionItems {
				fmt.Printf("  - %s\n", item)
			}
		}
	}
	fmt.Println(strings.Repeat("=", 80) + "\n")
}
