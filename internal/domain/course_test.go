package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mods(n int) []Module {
	out := make([]Module, n)
	for i := range out {
		out[i] = Module{ID: string(rune('a' + i)), Title: "m", Type: ModuleText, Content: "body"}
	}
	return out
}

func TestTotalModules(t *testing.T) {
	deleted := time.Now()
	sections := []Section{
		{Modules: mods(3)},
		{Modules: mods(2), SubSections: []SubSection{{Modules: mods(3)}}},
		{Modules: mods(4), DeletedAt: &deleted},
	}

	assert.Equal(t, 3, sections[0].ModuleCount())
	assert.Equal(t, 5, sections[1].ModuleCount())
	assert.Equal(t, 8, TotalModules(sections))
	assert.Equal(t, 0, TotalModules(nil))
}

func TestSectionFindAndRemoveModule(t *testing.T) {
	s := Section{
		Modules:     []Module{{ID: "top"}},
		SubSections: []SubSection{{ID: "sub", Modules: []Module{{ID: "nested"}, {ID: "other"}}}},
	}

	require.NotNil(t, s.FindModule("nested"))
	assert.Nil(t, s.FindModule("missing"))

	assert.True(t, s.RemoveModule("nested"))
	assert.False(t, s.RemoveModule("nested"))
	assert.Equal(t, []Module{{ID: "other"}}, s.SubSections[0].Modules)
	assert.True(t, s.RemoveModule("top"))
	assert.Empty(t, s.Modules)
}

func TestModuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		module  Module
		wantErr bool
	}{
		{"text ok", Module{Title: "Intro", Type: ModuleText, Content: "hello"}, false},
		{"missing title", Module{Type: ModuleText, Content: "hello"}, true},
		{"bad type", Module{Title: "x", Type: "audio", Content: "a"}, true},
		{"video without url", Module{Title: "x", Type: ModuleVideo}, true},
		{"empty quiz", Module{Title: "x", Type: ModuleQuiz}, true},
		{"quiz ok", Module{Title: "x", Type: ModuleQuiz, QuizQuestions: []Question{{Text: "Explain", Type: QuestionParagraph}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.module.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeModulePatch(t *testing.T) {
	patch, err := DecodeModulePatch(map[string]any{"title": "Renamed", "content": "new body"})
	require.NoError(t, err)

	m := Module{ID: "m1", Title: "Old", Type: ModuleText, Content: "old"}
	require.NoError(t, patch.Apply(&m))
	assert.Equal(t, "Renamed", m.Title)
	assert.Equal(t, "new body", m.Content)
	assert.Equal(t, ModuleText, m.Type)

	_, err = DecodeModulePatch(map[string]any{"colour": "red"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodeModulePatch(map[string]any{"title": 42})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodeModulePatch(map[string]any{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecodeModulePatchRejectsFractionalIndices(t *testing.T) {
	decode := func(body string) (ModulePatch, error) {
		var raw map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &raw))
		return DecodeModulePatch(raw)
	}

	_, err := decode(`{"quizQuestions":[{"text":"q","type":"single_choice","options":["a","b"],"correctAnswer":1.7}]}`)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = decode(`{"quizQuestions":[{"text":"q","type":"multiple_choice","options":["a","b"],"correctAnswers":[0,1.5]}]}`)
	assert.ErrorIs(t, err, ErrValidation)

	patch, err := decode(`{"quizQuestions":[{"text":"q","type":"single_choice","options":["a","b"],"correctAnswer":1.0}]}`)
	require.NoError(t, err)
	require.NotNil(t, patch.QuizQuestions)
	questions := *patch.QuizQuestions
	require.Len(t, questions, 1)
	require.NotNil(t, questions[0].CorrectAnswer)
	assert.Equal(t, 1, *questions[0].CorrectAnswer)
}

func TestModulePatchApplyKeepsModuleOnInvalidResult(t *testing.T) {
	empty := ""
	m := Module{ID: "m1", Title: "Old", Type: ModuleText, Content: "old"}
	err := ModulePatch{Title: &empty}.Apply(&m)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Old", m.Title)
}

func TestProgressPercent(t *testing.T) {
	var none *Progress
	assert.Zero(t, none.Percent(10))

	p := &Progress{CompletedModules: []string{"a", "b"}}
	assert.InDelta(t, 25.0, p.Percent(8), 0.001)
	assert.Zero(t, p.Percent(0))
	assert.InDelta(t, 100.0, p.Percent(1), 0.001)
}
