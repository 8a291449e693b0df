// Package taskwarrior imports tasks from `task export`.
package taskwarrior

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

type Client struct {
	// Binary is the taskwarrior executable, "task" when empty.
	Binary string
}

func NewClient() *Client {
	return &Client{Binary: "task"}
}

// Export runs `task <filter> export` and parses its output.
func (c *Client) Export(ctx context.Context, filter []string) ([]Task, error) {
	args := append(append([]string{}, filter...), "export", "rc.hooks=0")
	cmd := exec.CommandContext(ctx, c.Binary, args...)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("taskwarrior command failed: exit code %d, stderr: %s",
				exitErr.ExitCode(), bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("taskwarrior command failed: %w", err)
	}
	return ParseTasks(bytes.NewReader(output))
}

// ParseTasks accepts either a JSON array or one JSON object after another,
// which is what hooks receive.
func ParseTasks(r io.Reader) ([]Task, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var tasks []Task
		if err := dec.Decode(&tasks); err != nil {
			return nil, fmt.Errorf("failed to decode task json: %w", err)
		}
		return tasks, nil
	}

	var tasks []Task
	for {
		var t Task
		if err := dec.Decode(&t); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode task json: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !strings.ContainsRune(" \t\r\n", rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// ToDrafts maps exported tasks onto task drafts keyed by their uuid.
// Deleted tasks are skipped.
func ToDrafts(tasks []Task, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, tw := range tasks {
		if tw.Status == DELETED || strings.TrimSpace(tw.Description) == "" {
			continue
		}
		out = append(out, toDraft(tw, now))
	}
	return out
}

func toDraft(tw Task, now time.Time) model.Task {
	t := model.Task{
		ID:        tw.UUID,
		Title:     tw.Description,
		Category:  category(tw),
		CreatedAt: now,
	}
	if p, err := model.ParsePriority(tw.Priority); err == nil {
		t.Priority = p
	}
	if tw.Entry.IsSet() {
		t.CreatedAt = tw.Entry.Time
	}
	if tw.Modified.IsSet() {
		t.UpdatedAt = tw.Modified.Time
	}

	switch {
	case tw.Due.IsSet():
		t.DueDate = model.DateOf(tw.Due.Time.Local())
	case tw.Scheduled.IsSet():
		t.DueDate = model.DateOf(tw.Scheduled.Time.Local())
	}

	var notes []string
	for _, a := range tw.Annotations {
		if s := strings.TrimSpace(a.Description); s != "" {
			notes = append(notes, s)
		}
	}
	t.Description = strings.Join(notes, "\n")

	if tw.Status == COMPLETED {
		at := now
		if tw.End.IsSet() {
			at = tw.End.Time
		}
		t.Completed = true
		t.CompletedAt = &at
	}
	return t
}

// category uses the project when it names a category, then the tags.
func category(tw Task) model.Category {
	candidates := append([]string{tw.Project}, tw.Tags...)
	for _, s := range candidates {
		if s == "" {
			continue
		}
		if c, err := model.ParseCategory(s); err == nil {
			return c
		}
	}
	return model.CategoryPersonal
}
