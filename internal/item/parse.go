package item

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item bodies may embed a configuration block: either a fenced block
// tagged yaml/yml, or a front-matter style block delimited by "---"
// lines. The block holds flat key: value pairs. Recognized keys are
// prompt, category, requires_repo, repo_template; unknown keys are kept
// so the grammar can grow without touching the arbitration core.

// ParseBodyConfig extracts the first config block from body and returns
// its key/value pairs. Returns an empty map when no block parses.
func ParseBodyConfig(body string) map[string]string {
	block, _, ok := findConfigBlock(body)
	if !ok {
		return map[string]string{}
	}
	cfg, err := parseBlock(block)
	if err != nil {
		return map[string]string{}
	}
	return cfg
}

// StripConfigBlocks removes every config block from body, leaving the
// free text around them.
func StripConfigBlocks(body string) string {
	out := body
	for {
		_, span, ok := findConfigBlock(out)
		if !ok {
			break
		}
		out = strings.Replace(out, span, "", 1)
	}
	return out
}

// findConfigBlock locates the first fenced yaml block or ----delimited
// block. Returns the inner content, the full span including delimiters,
// and whether one was found.
func findConfigBlock(body string) (block, span string, ok bool) {
	if b, s, found := findFencedBlock(body); found {
		return b, s, true
	}
	return findFrontMatter(body)
}

func findFencedBlock(body string) (block, span string, ok bool) {
	for _, tag := range []string{"```yaml", "```yml"} {
		start := strings.Index(body, tag)
		if start < 0 {
			continue
		}
		rest := body[start+len(tag):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		block = rest[:end]
		span = body[start : start+len(tag)+end+3]
		return block, span, true
	}
	return "", "", false
}

// findFrontMatter matches a block whose first non-blank line is "---"
// and that is closed by another "---" line.
func findFrontMatter(body string) (block, span string, ok bool) {
	lines := strings.Split(body, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && start < 0 {
			continue
		}
		if trimmed == "---" {
			if start < 0 {
				start = i
				continue
			}
			inner := strings.Join(lines[start+1:i], "\n")
			full := strings.Join(lines[start:i+1], "\n")
			return inner, full, true
		}
		if start < 0 {
			// front matter must open the body
			return "", "", false
		}
	}
	return "", "", false
}

// parseBlock decodes a flat key: value mapping, stringifying scalars.
func parseBlock(block string) (map[string]string, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("parsing config block: %w", err)
	}
	cfg := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			cfg[k] = strings.TrimSpace(val)
		case nil:
			cfg[k] = ""
		default:
			cfg[k] = strings.TrimSpace(fmt.Sprintf("%v", val))
		}
	}
	return cfg, nil
}
