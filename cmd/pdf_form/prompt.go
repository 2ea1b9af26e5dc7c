package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/a3tai/mcp-pdf-form/internal/form"
)

// errAborted is returned when the user interrupts a prompt
var errAborted = errors.New("aborted")

// skipOption leaves a choice field unchanged
const skipOption = "(leave unchanged)"

// prompter asks for one value at a time so the fill flow can be tested
// without a terminal.
type prompter interface {
	Input(ctx context.Context, message, def string) (string, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
	Select(ctx context.Context, message string, options []string, def string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(ctx context.Context, message, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	if err := survey.AskOne(&survey.Input{Message: message, Default: def}, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Select(ctx context.Context, message string, options []string, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Select{Message: message, Options: options}
	if indexOf(options, def) >= 0 {
		prompt.Default = def
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}

// promptFields asks for every field in turn, per kind. Values already given
// on the command line become the prompt defaults.
func promptFields(ctx context.Context, p prompter, fields []form.Field, given map[string]string) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	for k, v := range given {
		values[k] = v
	}

	for _, f := range fields {
		message := fieldLabel(f)
		current, ok := given[f.Key]
		if !ok {
			current, ok = given[f.Name]
		}
		if !ok {
			current = currentValue(f)
		}
		set := func(v string) {
			delete(values, f.Name)
			values[f.Key] = v
		}

		switch f.Kind {
		case form.KindCheckbox:
			checked, err := p.Confirm(ctx, message, current == "true")
			if err != nil {
				return nil, err
			}
			set(fmt.Sprint(checked))
		case form.KindDropdown, form.KindRadioGroup:
			options := append([]string{skipOption}, f.Options...)
			choice, err := p.Select(ctx, message, options, current)
			if err != nil {
				return nil, err
			}
			if choice != skipOption {
				set(choice)
			}
		default:
			text, err := p.Input(ctx, message, current)
			if err != nil {
				return nil, err
			}
			if text != "" || current != "" {
				set(text)
			}
		}
	}
	return values, nil
}

// promptTags asks for a text value per tag; empty answers are skipped
func promptTags(ctx context.Context, p prompter, tags []form.TagField, given map[string]string) (map[string]string, error) {
	values := make(map[string]string, len(tags))
	for k, v := range given {
		values[k] = v
	}

	for _, tag := range tags {
		current, ok := given[tag.ID]
		if !ok {
			current = given[tag.Label]
		}
		text, err := p.Input(ctx, tag.ID, current)
		if err != nil {
			return nil, err
		}
		if text != "" {
			delete(values, tag.Label)
			values[tag.ID] = text
		}
	}
	return values, nil
}

func fieldLabel(f form.Field) string {
	if f.Key != f.Name {
		return fmt.Sprintf("%s (%s)", f.Key, f.Name)
	}
	return f.Name
}

func currentValue(f form.Field) string {
	switch v := f.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
