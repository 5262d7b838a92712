// Package debugdump writes intermediate pipeline artifacts (fetched posts,
// financial context, prompts, LLM exchanges) into the cache directory so a
// run can be inspected after the fact.
package debugdump

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StepName identifies a pipeline step for dump purposes.
type StepName string

const (
	StepPost       StepName = "step1_post"
	StepFinancials StepName = "step2_financials"
	StepPrompt     StepName = "step3_prompt"
	StepLLM        StepName = "llm"
)

// Dumper writes artifacts under a root directory. A nil or disabled Dumper
// writes nothing.
type Dumper struct {
	root    string
	enabled bool
	now     func() time.Time
}

// New creates a dumper rooted at dir
func New(dir string, enabled bool) *Dumper {
	return &Dumper{root: dir, enabled: enabled, now: time.Now}
}

// Enabled reports whether step dumps are written
func (d *Dumper) Enabled() bool {
	return d != nil && d.enabled
}

// stepDir returns the dump directory for a given step.
func (d *Dumper) stepDir(step StepName) string {
	return filepath.Join(d.root, string(step))
}

// generateFilename creates a timestamped filename tagged with key.
// Dashes replace colons for filesystem compatibility.
func (d *Dumper) generateFilename(key, ext string) string {
	name := d.now().Format("2006-01-02T15-04-05.000")
	if key != "" {
		name += "_" + sanitize(key)
	}
	return name + ext
}

// SaveStep saves JSON-serializable data to the step's directory.
// Returns the path to the saved file, or "" when dumps are disabled.
func (d *Dumper) SaveStep(step StepName, key string, data any) (string, error) {
	if !d.Enabled() {
		return "", nil
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}
	return d.write(step, d.generateFilename(key, ".json"), jsonData)
}

// SaveText saves text content (e.g. a composed prompt) to the step's directory.
func (d *Dumper) SaveText(step StepName, key, content, ext string) (string, error) {
	if !d.Enabled() {
		return "", nil
	}
	return d.write(step, d.generateFilename(key, ext), []byte(content))
}

func (d *Dumper) write(step StepName, filename string, data []byte) (string, error) {
	dir := d.stepDir(step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dump dir: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}
	return path, nil
}

// LatestStepFile returns the path to the most recent file in a step's directory.
func (d *Dumper) LatestStepFile(step StepName) (string, error) {
	dir := d.stepDir(step)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no dumped output for step %s", step)
		}
		return "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no dumped output for step %s", step)
	}

	return filepath.Join(dir, files[len(files)-1]), nil
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
