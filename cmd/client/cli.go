// cmd/client/cli.go

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"jasondb/internal/database"
)

// command pairs a handler with its help line and the category it is listed
// under in 'help'.
type command struct {
	help     string
	handler  func(c *cli, args string) error
	category string
}

type cli struct {
	db                *database.Database
	rl                *readline.Instance
	rlConfig          *readline.Config
	historyFile       string
	out               io.Writer
	commands          map[string]command
	multiWordCommands []string // longest first
	currentCollection string
}

func newCLI(db *database.Database, historyFile string) *cli {
	c := &cli{
		db:          db,
		historyFile: historyFile,
		out:         os.Stdout,
	}
	c.commands = c.getCommands()

	var mwCmds []string
	for cmd := range c.commands {
		if strings.Contains(cmd, " ") {
			mwCmds = append(mwCmds, cmd)
		}
	}
	// Longest first so "find one" wins over "find".
	sort.Slice(mwCmds, func(i, j int) bool {
		return len(mwCmds[i]) > len(mwCmds[j])
	})
	c.multiWordCommands = mwCmds

	return c
}

func (c *cli) run() error {
	c.rlConfig = &readline.Config{
		Prompt:          "> ",
		HistoryFile:     c.historyFile,
		AutoComplete:    c.getCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}

	var err error
	c.rl, err = readline.NewEx(c.rlConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() { c.rl.Close() }()

	fmt.Fprintln(c.out, colorInfo("Connected to ", c.db.Path(), ". Type 'help' for commands."))
	return c.mainLoop()
}

func (c *cli) prompt() string {
	if c.currentCollection != "" {
		return c.currentCollection + "> "
	}
	return "> "
}

func (c *cli) mainLoop() error {
	for {
		c.rl.SetPrompt(colorPrompt(c.prompt()))

		input, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(input) == 0 {
					break
				}
				continue
			} else if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if done := c.execute(input); done {
			break
		}
	}
	fmt.Fprintln(c.out, colorInfo("\nExiting client. Goodbye!"))
	return nil
}

// execute runs one input line and reports whether the shell should exit.
func (c *cli) execute(input string) bool {
	cmd, args := c.getCommandAndRawArgs(input)

	handler, found := c.commands[cmd]
	if !found {
		fmt.Fprintln(c.out, colorErr("Error: Unknown command. Type 'help' for commands: ", cmd))
		return false
	}

	startTime := time.Now()
	if err := handler.handler(c, args); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		fmt.Fprintln(c.out, colorErr("Command failed: ", err))
	}
	duration := time.Since(startTime)
	if cmd != "clear" && cmd != "help" {
		fmt.Fprintln(c.out, colorInfo("Request time: ", duration.Round(time.Millisecond)))
	}
	return false
}
