// Package problem proxies problem metadata from the upstream GraphQL source
// so the browser never has to deal with its CORS policy or headers.
package problem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultBaseURL = "https://leetcode.com/graphql"
	fetchTimeout   = 10 * time.Second

	// Query shape expected by the upstream source.
	questionQuery = `
        query getQuestionDetail($titleSlug: String!) {
            question(titleSlug: $titleSlug) {
                questionId
                title
                content
                difficulty
            }
        }
    `

	// The upstream rejects requests without a browser-ish user agent.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// ErrSlugEmpty is returned when no slug was supplied.
var ErrSlugEmpty = errors.New("problem slug cannot be empty")

// ErrNotFound is returned when the upstream has no question for the slug.
var ErrNotFound = errors.New("problem not found")

// UpstreamError wraps an error list returned by the upstream API.
type UpstreamError struct {
	Details json.RawMessage
}

func (e *UpstreamError) Error() string {
	return "upstream problem source returned errors"
}

// Problem is the metadata shown in the shared problem panel.
type Problem struct {
	QuestionID string `json:"questionId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Difficulty string `json:"difficulty"`
}

type graphqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		Question *Problem `json:"question"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Module fetches problem metadata from the upstream source.
type Module struct {
	baseURL string
}

// Compile-time interface check.
var _ mono.Module = (*Module)(nil)

// NewModule creates the problem module. The upstream URL comes from
// PROBLEM_API_URL so tests can point it at a local server.
func NewModule() *Module {
	baseURL := os.Getenv("PROBLEM_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Module{baseURL: baseURL}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "problem"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Printf("[problem] Module started - upstream %s", m.baseURL)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[problem] Module stopped")
	return nil
}

// Fetch looks up a problem by slug. Returns ErrNotFound when the upstream
// has no matching question and *UpstreamError when it reports an error list.
func (m *Module) Fetch(slug string) (Problem, error) {
	if slug == "" {
		return Problem{}, ErrSlugEmpty
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     questionQuery,
		Variables: map[string]string{"titleSlug": slug},
	})
	if err != nil {
		return Problem{}, fmt.Errorf("failed to marshal upstream request: %w", err)
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(fiber.MethodPost)
	req.Header.SetContentType(fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderUserAgent, browserUserAgent)
	req.Header.Set(fiber.HeaderReferer, "https://leetcode.com")
	req.SetRequestURI(m.baseURL)
	agent.Timeout(fetchTimeout)
	agent.Body(body)

	if err := agent.Parse(); err != nil {
		return Problem{}, fmt.Errorf("failed to build upstream request: %w", err)
	}

	_, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return Problem{}, fmt.Errorf("upstream request failed: %w", errs[0])
	}

	var resp graphqlResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Problem{}, fmt.Errorf("failed to decode upstream response: %w", err)
	}

	if len(resp.Errors) > 0 && string(resp.Errors) != "null" {
		return Problem{}, &UpstreamError{Details: resp.Errors}
	}
	if resp.Data.Question == nil {
		return Problem{}, ErrNotFound
	}
	return *resp.Data.Question, nil
}
