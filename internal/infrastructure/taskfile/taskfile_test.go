package taskfile

import (
	"testing"

	"chat-scraper/internal/domain/entity"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tasks, err := Parse([]byte(`[
		{"id": "101", "prompt": "Explain Quantum Entanglement simply."},
		{"id": 102, "prompt": "Write a Haiku about coding.", "extra": true}
	]`), DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []entity.Task{
		{ID: "101", Text: "Explain Quantum Entanglement simply."},
		{ID: "102", Text: "Write a Haiku about coding."},
	}, tasks)
}

func TestParse_CustomFields(t *testing.T) {
	tasks, err := Parse([]byte(`[{"meta": {"uid": "a-1"}, "text": "hi"}]`),
		Options{IDField: "meta.uid", PromptField: "text"})

	require.NoError(t, err)
	assert.Equal(t, []entity.Task{{ID: "a-1", Text: "hi"}}, tasks)
}

func TestParse_EmptyArray(t *testing.T) {
	tasks, err := Parse([]byte(`[]`), DefaultOptions())

	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Invalid JSON", `[{"id": "1"`, "not valid JSON"},
		{"Object top level", `{"id": "1", "prompt": "x"}`, "must be an array"},
		{"Item not object", `["x"]`, "expected an object"},
		{"Missing id", `[{"prompt": "x"}]`, `"id" missing`},
		{"Empty id", `[{"id": "", "prompt": "x"}]`, `"id" is empty`},
		{"Bool id", `[{"id": true, "prompt": "x"}]`, `"id" missing`},
		{"Missing prompt", `[{"id": "1"}]`, `"prompt" missing`},
		{"Duplicate id", `[{"id": "1", "prompt": "a"}, {"id": 1, "prompt": "b"}]`, `duplicate id "1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), DefaultOptions())

			require.ErrorIs(t, err, entity.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "prompts.json", []byte(`[{"id": "1", "prompt": "A"}]`), 0644))

	tasks, err := Load(fsys, "prompts.json", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []entity.Task{{ID: "1", Text: "A"}}, tasks)

	_, err = Load(fsys, "missing.json", DefaultOptions())
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestFilter(t *testing.T) {
	tasks := []entity.Task{{ID: "101"}, {ID: "102"}, {ID: "201"}, {ID: "abc"}}

	f, err := NewFilter([]string{"10*", "abc"})
	require.NoError(t, err)
	assert.Equal(t, []entity.Task{{ID: "101"}, {ID: "102"}, {ID: "abc"}}, f.Apply(tasks))

	all, err := NewFilter(nil)
	require.NoError(t, err)
	assert.Equal(t, tasks, all.Apply(tasks))

	_, err = NewFilter([]string{"[unclosed"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
