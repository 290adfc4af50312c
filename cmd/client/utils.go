// cmd/client/utils.go

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"

	"jasondb/internal/document"
)

// Documents with more distinct keys than this are printed as JSON.
const maxTableColumns = 8

// Color definitions for the interface
var (
	colorOK     = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorErr    = color.New(color.FgRed, color.Bold).SprintFunc()
	colorPrompt = color.New(color.FgMagenta).SprintFunc()
	colorInfo   = color.New(color.FgBlue).SprintFunc()
)

// getCommandAndRawArgs parses user input into a command and its arguments.
func (c *cli) getCommandAndRawArgs(input string) (string, string) {
	for _, mwCmd := range c.multiWordCommands {
		if strings.HasPrefix(input, mwCmd+" ") || input == mwCmd {
			return mwCmd, strings.TrimSpace(input[len(mwCmd):])
		}
	}

	parts := strings.SplitN(input, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

// clearScreen clears the terminal screen.
func clearScreen() {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "cls")
	default:
		cmd = exec.Command("clear")
	}
	cmd.Stdout = os.Stdout
	_ = cmd.Run()
}

func (c *cli) getJSONFromEditor() ([]byte, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		if runtime.GOOS == "windows" {
			editor = "notepad"
		} else {
			editor = "vim"
		}
	}

	tmpfile, err := os.CreateTemp("", "jasondb-*.json")
	if err != nil {
		return nil, fmt.Errorf("could not create temp file: %w", err)
	}
	tmpfile.Close()
	defer os.Remove(tmpfile.Name())

	// Give the terminal to the editor while it runs.
	if c.rl != nil {
		c.rl.Close()
	}

	fmt.Fprintln(c.out, colorInfo("Opening editor (", editor, ") for JSON input. Save and close the file to continue..."))

	cmd := exec.Command(editor, tmpfile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()

	if c.rlConfig != nil {
		c.rl, err = readline.NewEx(c.rlConfig)
		if err != nil {
			return nil, fmt.Errorf("fatal: could not re-initialize readline: %w", err)
		}
	}

	if runErr != nil {
		return nil, fmt.Errorf("error running editor: %w", runErr)
	}

	return os.ReadFile(tmpfile.Name())
}

// getJSONPayload resolves a payload argument: "-" opens the editor,
// "file:<path>" reads a file, anything else is the JSON itself.
func (c *cli) getJSONPayload(payload string) (document.Value, error) {
	var raw []byte
	switch {
	case payload == "-":
		b, err := c.getJSONFromEditor()
		if err != nil {
			return document.Value{}, err
		}
		raw = b
	case strings.HasPrefix(payload, "file:"):
		b, err := os.ReadFile(strings.TrimPrefix(payload, "file:"))
		if err != nil {
			return document.Value{}, fmt.Errorf("could not read payload file: %w", err)
		}
		raw = b
	default:
		raw = []byte(payload)
	}

	v, err := document.Parse(raw)
	if err != nil {
		return document.Value{}, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return v, nil
}

// getFilter resolves an optional filter argument. An empty argument means
// no filter.
func (c *cli) getFilter(arg string) (*document.Map, error) {
	if arg == "" {
		return nil, nil
	}
	v, err := c.getJSONPayload(arg)
	if err != nil {
		return nil, err
	}
	if !v.IsMapping() {
		return nil, fmt.Errorf("filter must be a JSON object, got %s", v.Kind())
	}
	return v.Map(), nil
}

// isPayload reports whether an argument starts a JSON payload rather than
// naming a collection.
func isPayload(arg string) bool {
	return strings.HasPrefix(arg, "{") ||
		strings.HasPrefix(arg, "[") ||
		strings.HasPrefix(arg, "file:") ||
		arg == "-"
}

// nextPayload splits the first payload argument off args. Inline JSON may
// contain spaces; file: and editor arguments end at the first space.
func nextPayload(args string) (string, string, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", nil
	}
	if args[0] == '{' || args[0] == '[' {
		iter := jsoniter.ParseString(jsoniter.ConfigDefault, args)
		value := iter.SkipAndReturnBytes()
		if iter.Error != nil && iter.Error != io.EOF {
			return "", "", fmt.Errorf("invalid JSON argument: %w", iter.Error)
		}
		return string(value), strings.TrimSpace(args[len(value):]), nil
	}
	token, rest, _ := strings.Cut(args, " ")
	return token, strings.TrimSpace(rest), nil
}

// resolveCollectionName picks the collection a command targets: an explicit
// first argument, or the collection selected with 'use'.
func (c *cli) resolveCollectionName(args string) (string, string, error) {
	first, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	if first != "" && !isPayload(first) {
		return first, strings.TrimSpace(rest), nil
	}

	if c.currentCollection != "" {
		return c.currentCollection, strings.TrimSpace(args), nil
	}
	return "", "", errors.New("no collection name provided and no collection is in use. Use 'use <collection_name>' or specify it in the command")
}

// parseID reads a document id typed at the prompt. JSON strings and numbers
// keep their type; anything else is taken as a bare string.
func parseID(arg string) document.Value {
	if v, err := document.Parse([]byte(arg)); err == nil {
		if v.Kind() == document.String || v.Kind() == document.Number {
			return v
		}
	}
	return document.StringValue(arg)
}

// cellText renders a value for a table cell.
func cellText(v document.Value) string {
	switch v.Kind() {
	case document.String:
		return v.Str()
	case document.Null:
		return "(nil)"
	case document.Undefined:
		return "(n/a)"
	default:
		return v.String()
	}
}

// printDocuments renders documents as a table whose columns follow the
// order in which keys first appear.
func (c *cli) printDocuments(docs []*document.Map) {
	if len(docs) == 0 {
		fmt.Fprintln(c.out, colorInfo("(no documents)"))
		return
	}

	var headers []string
	seen := make(map[string]bool)
	for _, doc := range docs {
		for _, key := range doc.Keys() {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}

	if len(headers) > maxTableColumns {
		c.printJSON(docs)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, doc := range docs {
		row := make([]string, len(headers))
		for i, header := range headers {
			row[i] = cellText(doc.Get(header))
		}
		table.Append(row)
	}
	table.Render()
}

// printDocument renders one document as a key/value table.
func (c *cli) printDocument(doc *document.Map) {
	if doc == nil {
		fmt.Fprintln(c.out, colorInfo("(no document)"))
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Key", "Value"})
	table.SetAutoWrapText(false)
	doc.Range(func(key string, v document.Value) bool {
		table.Append([]string{key, cellText(v)})
		return true
	})
	table.Render()
}

// printJSON pretty-prints documents, for output too wide for a table.
func (c *cli) printJSON(docs []*document.Map) {
	out, err := document.MarshalMaps(docs, 2)
	if err != nil {
		fmt.Fprintln(c.out, colorErr("Could not render documents: ", err))
		return
	}
	fmt.Fprintf(c.out, "  %s\n%s\n", colorInfo("Data:"), out)
}
