package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// TrackerIssue is one scripted work item served by MockTracker.
type TrackerIssue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"-"`
	IsPull bool     `json:"-"`
}

// MockTracker is an httptest server speaking the tracker's issue API:
// listing, comments, and workspace creation. It records every comment
// posted so tests can assert on claims and submissions.
type MockTracker struct {
	Server *httptest.Server

	mu           sync.Mutex
	issues       []TrackerIssue
	comments     map[int][]string
	workspaces   []string
	failComments bool
	workspaceURL string
}

// NewMockTracker starts a tracker double serving the given issues.
// Callers must register t.Cleanup(mt.Server.Close).
func NewMockTracker(issues ...TrackerIssue) *MockTracker {
	mt := &MockTracker{
		issues:       issues,
		comments:     make(map[int][]string),
		workspaceURL: "https://tracker.test/workspace",
	}
	mt.Server = httptest.NewServer(http.HandlerFunc(mt.handle))
	return mt
}

// URL returns the server base URL, for tracker.New.
func (mt *MockTracker) URL() string { return mt.Server.URL }

// FailComments makes every comment post return 502, simulating a
// tracker outage between claim and submit.
func (mt *MockTracker) FailComments(fail bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.failComments = fail
}

// Comments returns the comments posted against the given issue number.
func (mt *MockTracker) Comments(number int) []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	out := make([]string, len(mt.comments[number]))
	copy(out, mt.comments[number])
	return out
}

// Workspaces returns the names of workspaces created so far.
func (mt *MockTracker) Workspaces() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	out := make([]string, len(mt.workspaces))
	copy(out, mt.workspaces)
	return out
}

func (mt *MockTracker) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/issues"):
		mt.handleList(w)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/comments"):
		mt.handleComment(w, r)
	case r.Method == http.MethodPost && (r.URL.Path == "/user/repos" || strings.HasSuffix(r.URL.Path, "/generate")):
		mt.handleWorkspace(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (mt *MockTracker) handleList(w http.ResponseWriter) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	type label struct {
		Name string `json:"name"`
	}
	type payload struct {
		Number      int       `json:"number"`
		Title       string    `json:"title"`
		Body        string    `json:"body"`
		Labels      []label   `json:"labels"`
		PullRequest *struct{} `json:"pull_request,omitempty"`
	}

	out := make([]payload, 0, len(mt.issues))
	for _, is := range mt.issues {
		p := payload{Number: is.Number, Title: is.Title, Body: is.Body}
		for _, l := range is.Labels {
			p.Labels = append(p.Labels, label{Name: l})
		}
		if is.IsPull {
			p.PullRequest = &struct{}{}
		}
		out = append(out, p)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (mt *MockTracker) handleComment(w http.ResponseWriter, r *http.Request) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.failComments {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	// path: /repos/{owner}/{repo}/issues/{number}/comments
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	number, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	mt.comments[number] = append(mt.comments[number], body.Body)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"body": body.Body})
}

func (mt *MockTracker) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	mt.workspaces = append(mt.workspaces, payload.Name)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"html_url": fmt.Sprintf("%s/%s", mt.workspaceURL, payload.Name),
	})
}
