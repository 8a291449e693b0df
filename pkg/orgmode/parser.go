// Package orgmode turns TODO/DONE headlines of Org files into task drafts.
package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

var (
	headlineRe = regexp.MustCompile(`^\*+\s+(TODO|DONE)\s+(?:\[#([A-Za-z])\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	deadlineRe = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	closedRe   = regexp.MustCompile(`CLOSED:\s+\[(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]+)?(?:\s+(\d{2}:\d{2}))?\]`)
	idRe       = regexp.MustCompile(`^:ID:\s+(\S+)`)
	drawerRe   = regexp.MustCompile(`^:[A-Za-z_-]+:`)
)

// ParseFiles parses every file in order.
func ParseFiles(paths []string, now time.Time) ([]model.Task, error) {
	var all []model.Task
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		tasks, err := Parse(f, now)
		f.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	return all, nil
}

type draft struct {
	task model.Task
	body []string
}

// Parse reads Org text and returns one draft per TODO or DONE headline.
// Drafts keep an :ID: property as their task id so a second import of the
// same file is recognized.
func Parse(r io.Reader, now time.Time) ([]model.Task, error) {
	var (
		out []model.Task
		cur *draft
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.task.Description = strings.TrimSpace(strings.Join(cur.body, "\n"))
		out = append(out, cur.task)
		cur = nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(raw, "*") {
			flush()
			if m := headlineRe.FindStringSubmatch(raw); m != nil {
				cur = &draft{task: headline(m, now)}
			}
			continue
		}
		if cur == nil {
			continue
		}

		planning := false
		if m := deadlineRe.FindStringSubmatch(line); m != nil {
			if d, err := model.ParseDate(m[1]); err == nil {
				cur.task.DueDate = d
			}
			planning = true
		}
		if m := closedRe.FindStringSubmatch(line); m != nil {
			if at, ok := closedAt(m[1], m[2]); ok && cur.task.Completed {
				cur.task.CompletedAt = &at
			}
			planning = true
		}
		switch {
		case planning, strings.HasPrefix(line, "SCHEDULED:"):
		case idRe.MatchString(line):
			cur.task.ID = idRe.FindStringSubmatch(line)[1]
		case drawerRe.MatchString(line):
		default:
			cur.body = append(cur.body, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

func headline(m []string, now time.Time) model.Task {
	t := model.Task{
		Title:     strings.TrimSpace(m[3]),
		Priority:  orgPriority(m[2]),
		Category:  tagCategory(m[4]),
		CreatedAt: now,
	}
	if m[1] == "DONE" {
		t.SetCompleted(true, now)
	}
	return t
}

func orgPriority(p string) model.Priority {
	switch strings.ToUpper(p) {
	case "A":
		return model.PriorityHigh
	case "C":
		return model.PriorityLow
	}
	return model.PriorityMedium
}

// tagCategory picks the first tag that names a category.
func tagCategory(tags string) model.Category {
	for _, tag := range strings.Split(strings.Trim(tags, ":"), ":") {
		if c, err := model.ParseCategory(tag); err == nil && tag != "" {
			return c
		}
	}
	return model.CategoryPersonal
}

func closedAt(day, clock string) (time.Time, bool) {
	layout, value := "2006-01-02", day
	if clock != "" {
		layout, value = "2006-01-02 15:04", day+" "+clock
	}
	t, err := time.ParseInLocation(layout, value, time.Local)
	return t, err == nil
}
