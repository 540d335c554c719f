package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// errNotInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var errNotInteractive = errors.New("CLI_PROMPT: input is not a terminal")

// prompter asks the user to pick or confirm. Tests replace it.
type prompter interface {
	MultiSelect(title string, options []string, preselect bool) ([]string, error)
	Confirm(title string) (bool, error)
}

var prompt prompter = huhPrompter{}

type huhPrompter struct{}

func (huhPrompter) MultiSelect(title string, options []string, preselect bool) ([]string, error) {
	if !isTerminal(os.Stdin) {
		return nil, errNotInteractive
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o).Selected(preselect)
	}
	var selected []string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Options(opts...).
				Value(&selected),
		),
	).Run()
	if err != nil {
		return nil, fmt.Errorf("selection prompt failed: %w", err)
	}
	return selected, nil
}

func (huhPrompter) Confirm(title string) (bool, error) {
	if !isTerminal(os.Stdin) {
		return false, errNotInteractive
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, fmt.Errorf("confirm prompt failed: %w", err)
	}
	return ok, nil
}

// progress shows a spinner on stderr when it is a terminal and JSON output
// is off.
type progress struct {
	mu      sync.Mutex
	writer  io.Writer
	spinner *spinner.Spinner
}

func newProgress(jsonOutput bool) *progress {
	writer := io.Discard
	if !jsonOutput && isTerminal(os.Stderr) && strings.ToLower(os.Getenv("ASTER_PROGRESS")) != "false" {
		writer = os.Stderr
	}
	return &progress{writer: writer}
}

func (p *progress) Start(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		p.spinner.Suffix = " " + label
		return
	}
	sp := spinner.New(spinner.CharSets[11], 120*time.Millisecond,
		spinner.WithWriter(p.writer), spinner.WithColor("fgCyan"))
	sp.Suffix = " " + label
	sp.Start()
	p.spinner = sp
}

func (p *progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}
