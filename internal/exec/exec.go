package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnsupportedLanguage is returned for languages with no runtime mapping.
var ErrUnsupportedLanguage = errors.New("language not supported")

const DefaultBaseURL = "https://emkc.org/api/v2/piston"

// Result of one execution. Output is the interleaved stdout/stderr stream
// as reported by the runtime.
type Result struct {
	Stdout   string
	Stderr   string
	Output   string
	TimedOut bool
}

// Runner executes a submitted snippet in an isolated remote runtime.
// Calls hold no state between invocations and must honor ctx cancellation.
type Runner interface {
	Execute(ctx context.Context, language, code string) (*Result, error)
}

type runtime struct {
	Language string
	Version  string
}

// Fixed dispatch table; anything else is rejected before the network call.
var runtimes = map[string]runtime{
	"javascript": {"javascript", "18.15.0"},
	"python":     {"python", "3.10.0"},
	"java":       {"java", "15.0.2"},
}

// PistonClient runs code through the public Piston execution API.
type PistonClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPistonClient(baseURL string) *PistonClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &PistonClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type executeRequest struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []executeFile `json:"files"`
}

type executeFile struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type executeResponse struct {
	Run struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Output string `json:"output"`
		Code   int    `json:"code"`
	} `json:"run"`
	Message string `json:"message,omitempty"`
}

func (c *PistonClient) Execute(ctx context.Context, language, code string) (*Result, error) {
	rt, ok := runtimes[language]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}

	file := executeFile{Content: code}
	if language == "java" {
		// Piston compiles java by file name
		file.Name = "Main.java"
	}

	body, err := json.Marshal(executeRequest{
		Language: rt.Language,
		Version:  rt.Version,
		Files:    []executeFile{file},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &Result{TimedOut: true}, context.DeadlineExceeded
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution API returned status %d", resp.StatusCode)
	}

	var parsed executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding execution response: %w", err)
	}

	return &Result{
		Stdout: parsed.Run.Stdout,
		Stderr: parsed.Run.Stderr,
		Output: parsed.Run.Output,
	}, nil
}
