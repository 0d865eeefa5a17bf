package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hottestseason/Stone/pkg/parser"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	prompt         = "stone> "
	continuePrompt = "  ...> "
)

func historyPath(c *cli.Context) string {
	if path := c.String("history"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".stone_history")
}

// replAction keeps one driver for the whole session so that definitions stay
// callable. Input whose syntax error is only that it ended early keeps being
// read on continuation lines.
func replAction(c *cli.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	history := historyPath(c)
	if history != "" {
		if f, err := os.Open(history); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	d := newDriver(c)
	var pending []string

	for {
		p := prompt
		if len(pending) > 0 {
			p = continuePrompt
		}

		input, err := line.Prompt(p)
		if err == liner.ErrPromptAborted {
			pending = nil
			continue
		}
		if err == io.EOF {
			fmt.Println()
			break
		}
		if err != nil {
			return errors.Wrap(err, "reading input")
		}

		if len(pending) == 0 && strings.TrimSpace(input) == "" {
			continue
		}
		pending = append(pending, input)
		source := strings.Join(pending, "\n")

		_, err = d.Run("<repl>", source)
		if parser.IsIncomplete(err) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		line.AppendHistory(source)
		pending = nil
	}

	if history != "" {
		f, err := os.Create(history)
		if err != nil {
			return errors.Wrap(err, "writing history")
		}
		defer f.Close()
		if _, err := line.WriteHistory(f); err != nil {
			return errors.Wrap(err, "writing history")
		}
	}
	return nil
}
