package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// errQuit is returned by prompts when the user interrupts input.
var errQuit = errors.New("quit")

// PromptForCompany asks for the company to analyse. An empty answer starts
// a general conversation.
func PromptForCompany() (string, error) {
	var name string
	prompt := &survey.Input{
		Message: "Company to analyse (leave empty for a general conversation):",
		Help:    "The name is matched against the comparison dataset, e.g. Snowflake or Datadog",
	}
	err := survey.AskOne(prompt, &name, survey.WithValidator(func(val interface{}) error {
		if len(strings.TrimSpace(val.(string))) > 200 {
			return fmt.Errorf("company name too long (max 200 characters)")
		}
		return nil
	}))
	if err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(name), nil
}

// PromptForMessage reads the next chat line.
func PromptForMessage() (string, error) {
	var text string
	if err := survey.AskOne(&survey.Input{Message: "You:"}, &text); err != nil {
		return "", promptErr(err)
	}
	return text, nil
}

// PromptForConfirm asks a yes/no question.
func PromptForConfirm(message string, def bool) (bool, error) {
	ok := def
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &ok); err != nil {
		return false, promptErr(err)
	}
	return ok, nil
}

func promptErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errQuit
	}
	return err
}
