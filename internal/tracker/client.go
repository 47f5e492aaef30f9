// Package tracker is the issue-pool client. The pool is a GitHub-style
// tracker: work items are open issues, a claim is an ownership-marker
// comment, and a submission is a result comment. The marker is a soft
// lock — two agents can race past each other's dedup checks and both
// post markers; this client does not and cannot resolve that race.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/clawclub/clawclub/internal/item"
	clubotel "github.com/clawclub/clawclub/internal/otel"
)

var tracer = clubotel.Tracer("github.com/clawclub/clawclub/internal/tracker")

// requestTimeout bounds every tracker call.
const requestTimeout = 30 * time.Second

// Client talks to the shared issue pool.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a pool client. All calls share one token-bucket limiter so
// a busy scheduler cannot hammer the tracker API.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 5), // 2 req/s, burst 5
	}
}

// List fetches work items from the pool in source order. Pull requests
// are not work items and are skipped.
func (c *Client) List(ctx context.Context, pool, state string) ([]item.Item, error) {
	ctx, span := tracer.Start(ctx, "tracker.list",
		trace.WithAttributes(
			attribute.String("pool", pool),
			attribute.String("state", state),
		))
	defer span.End()

	url := fmt.Sprintf("%s/repos/%s/issues?state=%s&per_page=100", c.baseURL, pool, state)
	var raw []issuePayload
	if err := c.doJSON(ctx, "GET", url, nil, &raw); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing items in %s: %w", pool, err)
	}

	items := make([]item.Item, 0, len(raw))
	for _, is := range raw {
		if is.PullRequest != nil {
			continue
		}
		labels := make([]string, 0, len(is.Labels))
		for _, l := range is.Labels {
			labels = append(labels, l.Name)
		}
		items = append(items, item.Item{
			ID:     fmt.Sprintf("%s#%d", pool, is.Number),
			Number: is.Number,
			Title:  is.Title,
			Body:   is.Body,
			Labels: labels,
			Kind:   item.KindFromLabels(labels),
			Pool:   pool,
		})
	}
	span.SetAttributes(attribute.Int("items.count", len(items)))
	return items, nil
}

// Claim posts the ownership marker against the item. A non-2xx response
// is a failed claim; the caller must treat the item as still unowned.
func (c *Client) Claim(ctx context.Context, pool string, number int, agentID string) error {
	ctx, span := tracer.Start(ctx, "tracker.claim",
		trace.WithAttributes(
			attribute.String("pool", pool),
			attribute.Int("item.number", number),
		))
	defer span.End()

	body := fmt.Sprintf("🤖 **Claimed** by agent `%s` at %s.\n\nWorking on it — result will be posted here.",
		agentID, time.Now().UTC().Format(time.RFC3339))
	if err := c.postComment(ctx, pool, number, body); err != nil {
		span.RecordError(err)
		return fmt.Errorf("claiming %s#%d: %w", pool, number, err)
	}
	return nil
}

// SubmitMeta is the metadata attached to a submitted result.
type SubmitMeta struct {
	Elapsed         time.Duration
	EstimatedTokens int
	Deliverable     bool
	DeliverableURL  string
}

// Submit posts the result comment with its metadata block.
func (c *Client) Submit(ctx context.Context, pool string, number int, agentID, result string, meta SubmitMeta) error {
	ctx, span := tracer.Start(ctx, "tracker.submit",
		trace.WithAttributes(
			attribute.String("pool", pool),
			attribute.Int("item.number", number),
			attribute.Int("tokens.estimated", meta.EstimatedTokens),
		))
	defer span.End()

	var b strings.Builder
	fmt.Fprintf(&b, "## Submission by agent `%s`\n\n", agentID)
	if meta.Deliverable && meta.DeliverableURL != "" {
		fmt.Fprintf(&b, "Deliverable: %s\n\n", meta.DeliverableURL)
	}
	b.WriteString(result)
	fmt.Fprintf(&b, "\n\n---\n`elapsed: %s` · `estimated_tokens: %d`",
		meta.Elapsed.Round(time.Second), meta.EstimatedTokens)
	if meta.Deliverable {
		b.WriteString(" · `deliverable: true`")
	}

	if err := c.postComment(ctx, pool, number, b.String()); err != nil {
		span.RecordError(err)
		return fmt.Errorf("submitting result for %s#%d: %w", pool, number, err)
	}
	return nil
}

// CreateWorkspace provisions a repository deliverable and returns its
// URL, or "" when the tracker response carries none. When template is
// set, the repo is generated from that template instead of created bare.
func (c *Client) CreateWorkspace(ctx context.Context, name, description, template string) (string, error) {
	ctx, span := tracer.Start(ctx, "tracker.create_workspace",
		trace.WithAttributes(
			attribute.String("workspace.name", name),
			attribute.String("workspace.template", template),
		))
	defer span.End()

	url := c.baseURL + "/user/repos"
	payload := map[string]interface{}{
		"name":        name,
		"description": description,
	}
	if template != "" {
		url = fmt.Sprintf("%s/repos/%s/generate", c.baseURL, template)
		payload = map[string]interface{}{
			"name":        name,
			"description": description,
			"owner":       "",
		}
	}

	var created struct {
		HTMLURL string `json:"html_url"`
	}
	if err := c.doJSON(ctx, "POST", url, payload, &created); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("creating workspace %q: %w", name, err)
	}
	return created.HTMLURL, nil
}

type issuePayload struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

func (c *Client) postComment(ctx context.Context, pool string, number int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", c.baseURL, pool, number)
	return c.doJSON(ctx, "POST", url, map[string]string{"body": body}, nil)
}

// doJSON performs one rate-limited, authenticated round trip.
func (c *Client) doJSON(ctx context.Context, method, url string, payload, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tracker api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tracker api error %d: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding tracker response: %w", err)
		}
	}
	return nil
}
