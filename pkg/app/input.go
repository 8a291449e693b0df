package app

import (
	"fmt"
	"strings"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

// Input is the raw content of the task form. Empty priority or category
// take their defaults; an empty due date means none.
type Input struct {
	Title       string
	Description string
	Priority    string
	Category    string
	DueDate     string
}

type parsedInput struct {
	priority model.Priority
	category model.Category
	due      model.Date
}

func (in Input) parse() (parsedInput, error) {
	var (
		out parsedInput
		err error
	)
	if out.priority, err = model.ParsePriority(in.Priority); err != nil {
		return out, err
	}
	if out.category, err = model.ParseCategory(in.Category); err != nil {
		return out, err
	}
	if out.due, err = model.ParseDate(in.DueDate); err != nil {
		return out, err
	}
	return out, nil
}

// Patch lists the fields an edit changes. Nil fields are left alone; an
// empty DueDate clears the due date.
type Patch struct {
	Title       *string
	Description *string
	Priority    *string
	Category    *string
	DueDate     *string
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Category == nil && p.DueDate == nil
}

func (p Patch) apply(t *model.Task) error {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
		if t.Title == "" {
			return model.ErrEmptyTitle
		}
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		prio, err := model.ParsePriority(*p.Priority)
		if err != nil {
			return err
		}
		t.Priority = prio
	}
	if p.Category != nil {
		cat, err := model.ParseCategory(*p.Category)
		if err != nil {
			return err
		}
		t.Category = cat
	}
	if p.DueDate != nil {
		due, err := model.ParseDate(*p.DueDate)
		if err != nil {
			return fmt.Errorf("due date: %w", err)
		}
		t.DueDate = due
	}
	return nil
}

// Ptr is a small helper for building patches.
func Ptr(s string) *string { return &s }
