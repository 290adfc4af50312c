// cmd/client/completer.go

package main

import (
	"strings"

	"github.com/chzyer/readline"
)

func (c *cli) getCompleter() readline.AutoCompleter {
	collections := func() readline.PrefixCompleterInterface {
		return readline.PcItemDynamic(c.fetchCollectionNames)
	}
	withVariants := func(name string) readline.PrefixCompleterInterface {
		return readline.PcItem(name,
			readline.PcItem("one", collections()),
			readline.PcItem("id", collections()),
			collections(),
		)
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("use",
			readline.PcItem("exit"),
			collections(),
		),
		readline.PcItem("collection",
			readline.PcItem("list"),
			readline.PcItem("load"),
			readline.PcItem("delete", collections()),
		),
		readline.PcItem("count", collections()),
		readline.PcItem("create", collections()),
		withVariants("find"),
		withVariants("update"),
		withVariants("delete"),
		readline.PcItem("destroy"),
		readline.PcItem("clear"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// fetchCollectionNames suggests registered collections matching the word
// being typed.
func (c *cli) fetchCollectionNames(line string) []string {
	prefix := ""
	if parts := strings.Fields(line); len(parts) > 1 && !strings.HasSuffix(line, " ") {
		prefix = parts[len(parts)-1]
	}

	var suggestions []string
	for _, name := range c.db.Names() {
		if strings.HasPrefix(name, prefix) {
			suggestions = append(suggestions, name)
		}
	}
	return suggestions
}
