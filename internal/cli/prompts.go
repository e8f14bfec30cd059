package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.^-]+$`)

// Actions offered once a contract is selected.
const (
	actionNextPage   = "Next page"
	actionPrevPage   = "Previous page"
	actionDates      = "Change dates"
	actionRight      = "Change call/put"
	actionStrike     = "Change strike"
	actionExpiration = "Change expiration"
	actionQuit       = "Quit"
)

// PromptForSymbol asks for a ticker symbol.
func PromptForSymbol() (string, error) {
	var symbol string
	prompt := &survey.Input{
		Message: "Ticker symbol (e.g. AAPL, SPY):",
		Help:    "Letters, digits, dots and hyphens",
	}
	err := survey.AskOne(prompt, &symbol, survey.WithValidator(func(val interface{}) error {
		return validateSymbol(val.(string))
	}))
	if err != nil {
		return "", err
	}
	return normalizeSymbol(symbol), nil
}

// PromptForExpiration lets the user pick one of the listed expirations.
func PromptForExpiration(expirations []string) (string, error) {
	if len(expirations) == 0 {
		return "", fmt.Errorf("no expirations to choose from")
	}
	var exp string
	prompt := &survey.Select{
		Message:  "Expiration:",
		Options:  expirations,
		PageSize: 12,
	}
	if err := survey.AskOne(prompt, &exp); err != nil {
		return "", err
	}
	return exp, nil
}

// PromptForStrike lets the user pick one of the listed strikes.
func PromptForStrike(strikes []float64) (string, error) {
	if len(strikes) == 0 {
		return "", fmt.Errorf("no strikes to choose from")
	}
	opts := make([]string, len(strikes))
	for i, k := range strikes {
		opts[i] = FormatStrike(k)
	}
	var strike string
	prompt := &survey.Select{
		Message:  "Strike:",
		Options:  opts,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &strike); err != nil {
		return "", err
	}
	return strike, nil
}

// PromptForRight asks for call or put.
func PromptForRight() (string, error) {
	var right string
	prompt := &survey.Select{
		Message: "Call or put:",
		Options: []string{"call", "put"},
		Default: "call",
	}
	if err := survey.AskOne(prompt, &right); err != nil {
		return "", err
	}
	return right, nil
}

// PromptForDates asks for the history window. An empty answer keeps the
// suggested default.
func PromptForDates(defStart, defEnd string) (start, end string, err error) {
	qs := []*survey.Question{
		{
			Name: "start",
			Prompt: &survey.Input{
				Message: "Start date (YYYY-MM-DD):",
				Default: defStart,
			},
			Validate: validateDate,
		},
		{
			Name: "end",
			Prompt: &survey.Input{
				Message: "End date (YYYY-MM-DD):",
				Default: defEnd,
			},
			Validate: validateDate,
		},
	}
	answers := struct {
		Start string
		End   string
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(answers.Start), strings.TrimSpace(answers.End), nil
}

// PromptForAction asks what to do next with the selected contract.
func PromptForAction(page, pages int) (string, error) {
	opts := make([]string, 0, 7)
	if page+1 < pages {
		opts = append(opts, actionNextPage)
	}
	if page > 0 {
		opts = append(opts, actionPrevPage)
	}
	opts = append(opts, actionDates, actionRight, actionStrike, actionExpiration, actionQuit)

	var action string
	prompt := &survey.Select{
		Message: "Next:",
		Options: opts,
	}
	if err := survey.AskOne(prompt, &action); err != nil {
		return "", err
	}
	return action, nil
}

func validateSymbol(s string) error {
	s = normalizeSymbol(s)
	if s == "" {
		return fmt.Errorf("ticker symbol cannot be empty")
	}
	if len(s) > 10 {
		return fmt.Errorf("ticker symbol too long (max 10 characters)")
	}
	if !tickerPattern.MatchString(s) {
		return fmt.Errorf("invalid ticker format")
	}
	return nil
}

func validateDate(val interface{}) error {
	str := strings.TrimSpace(val.(string))
	if str == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, str); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
