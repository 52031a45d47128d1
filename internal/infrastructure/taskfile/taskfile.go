// Package taskfile reads the batch input: a JSON array of objects carrying a
// task id and its prompt.
package taskfile

import (
	"fmt"

	"chat-scraper/internal/domain/entity"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// Options name the fields holding the id and the prompt. Both are gjson
// paths, so nested fields such as "meta.id" work.
type Options struct {
	IDField     string
	PromptField string
}

func DefaultOptions() Options {
	return Options{IDField: "id", PromptField: "prompt"}
}

// Load reads and parses path. Every failure wraps entity.ErrInvalidInput.
func Load(fsys afero.Fs, path string, opts Options) ([]entity.Task, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", entity.ErrInvalidInput, path, err)
	}
	tasks, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

func Parse(data []byte, opts Options) ([]entity.Task, error) {
	if opts.IDField == "" {
		opts.IDField = "id"
	}
	if opts.PromptField == "" {
		opts.PromptField = "prompt"
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", entity.ErrInvalidInput)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: top level must be an array, got %s", entity.ErrInvalidInput, root.Type)
	}

	var (
		tasks []entity.Task
		seen  = make(map[string]int)
		err   error
		index int
	)
	root.ForEach(func(_, item gjson.Result) bool {
		defer func() { index++ }()

		var task entity.Task
		task, err = parseItem(item, opts)
		if err != nil {
			err = fmt.Errorf("%w: item %d: %v", entity.ErrInvalidInput, index, err)
			return false
		}
		if first, dup := seen[task.ID]; dup {
			err = fmt.Errorf("%w: item %d: duplicate id %q (first at item %d)", entity.ErrInvalidInput, index, task.ID, first)
			return false
		}
		seen[task.ID] = index
		tasks = append(tasks, task)
		return true
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func parseItem(item gjson.Result, opts Options) (entity.Task, error) {
	if !item.IsObject() {
		return entity.Task{}, fmt.Errorf("expected an object, got %s", item.Type)
	}

	id := item.Get(opts.IDField)
	var taskID string
	switch id.Type {
	case gjson.String:
		taskID = id.Str
	case gjson.Number:
		taskID = id.Raw
	default:
		return entity.Task{}, fmt.Errorf("field %q missing or not a string/number", opts.IDField)
	}
	if taskID == "" {
		return entity.Task{}, fmt.Errorf("field %q is empty", opts.IDField)
	}

	prompt := item.Get(opts.PromptField)
	if prompt.Type != gjson.String {
		return entity.Task{}, fmt.Errorf("task %s: field %q missing or not a string", taskID, opts.PromptField)
	}

	return entity.Task{ID: taskID, Text: prompt.Str}, nil
}

// Filter keeps tasks whose id matches at least one glob pattern.
type Filter struct {
	patterns []glob.Glob
}

func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: id pattern %q: %v", entity.ErrInvalidInput, p, err)
		}
		f.patterns = append(f.patterns, g)
	}
	return f, nil
}

// Apply returns the matching tasks in input order. No patterns keep everything.
func (f *Filter) Apply(tasks []entity.Task) []entity.Task {
	if len(f.patterns) == 0 {
		return tasks
	}
	out := make([]entity.Task, 0, len(tasks))
	for _, t := range tasks {
		for _, g := range f.patterns {
			if g.Match(t.ID) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
