package domain

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// ModulePatch is a partial module update. Nil fields are left unchanged.
type ModulePatch struct {
	Title         *string     `mapstructure:"title"`
	Type          *ModuleType `mapstructure:"type"`
	Content       *string     `mapstructure:"content"`
	QuizQuestions *[]Question `mapstructure:"quizQuestions"`
}

// DecodeModulePatch decodes a loosely typed JSON object into a ModulePatch.
// Unknown keys and mistyped values are rejected, including JSON numbers with a
// fractional part bound for integer fields.
func DecodeModulePatch(raw map[string]any) (ModulePatch, error) {
	var patch ModulePatch
	if len(raw) == 0 {
		return patch, fmt.Errorf("%w: empty module update", ErrValidation)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		DecodeHook:  mapstructure.DecodeHookFuncType(rejectFractionalInts),
		Result:      &patch,
	})
	if err != nil {
		return patch, err
	}
	if err := dec.Decode(raw); err != nil {
		return patch, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return patch, nil
}

func rejectFractionalInts(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32 {
		return data, nil
	}
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v is not an integer", data)
	}
	return data, nil
}

// Apply merges the patch into m. m is left untouched if the result is invalid.
func (p ModulePatch) Apply(m *Module) error {
	next := *m
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Type != nil {
		next.Type = *p.Type
	}
	if p.Content != nil {
		next.Content = *p.Content
	}
	if p.QuizQuestions != nil {
		next.QuizQuestions = *p.QuizQuestions
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*m = next
	return nil
}
