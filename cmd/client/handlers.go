// cmd/client/handlers.go

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"jasondb/internal/collection"
	"jasondb/internal/document"
	"jasondb/internal/persistence"
)

// getCommands defines all available commands, their help, handler, and category.
func (c *cli) getCommands() map[string]command {
	return map[string]command{
		// General
		"help":  {help: "help - Shows this help message", handler: (*cli).handleHelp, category: "General"},
		"exit":  {help: "exit - Exits the client", handler: (*cli).handleExit, category: "General"},
		"clear": {help: "clear - Clears the screen", handler: (*cli).handleClear, category: "General"},
		"use":   {help: "use <collection>|exit - Selects the collection used when a command omits it", handler: (*cli).handleUse, category: "General"},

		// Collection Management
		"collection list":   {help: "collection list - Lists loaded collections and collection files on disk", handler: (*cli).handleCollectionList, category: "Collection Management"},
		"collection load":   {help: "collection load <name> [name...] - Loads collections, creating empty ones as needed", handler: (*cli).handleCollectionLoad, category: "Collection Management"},
		"collection delete": {help: "collection delete <name> - Deletes a collection and its file", handler: (*cli).handleCollectionDelete, category: "Collection Management"},
		"destroy":           {help: "destroy confirm - Deletes every loaded collection", handler: (*cli).handleDestroy, category: "Collection Management"},

		// Documents
		"count":  {help: "count [coll] - Counts the documents in a collection", handler: (*cli).handleCount, category: "Documents"},
		"create": {help: "create [coll] <json|file:path|-> - Creates one document or an array of documents", handler: (*cli).handleCreate, category: "Documents"},

		// Queries
		"find":       {help: "find [coll] [filter] - Finds every matching document", handler: (*cli).handleFind, category: "Queries"},
		"find one":   {help: "find one [coll] [filter] - Finds the first matching document", handler: (*cli).handleFindOne, category: "Queries"},
		"find id":    {help: "find id [coll] <id> - Finds a document by _id", handler: (*cli).handleFindByID, category: "Queries"},
		"update":     {help: "update [coll] <filter> <data> - Merges data into every matching document", handler: (*cli).handleUpdate, category: "Queries"},
		"update one": {help: "update one [coll] <filter> <data> - Merges data into the first matching document", handler: (*cli).handleUpdateOne, category: "Queries"},
		"update id":  {help: "update id [coll] <id> <data> - Merges data into the document with that _id", handler: (*cli).handleUpdateByID, category: "Queries"},
		"delete":     {help: "delete [coll] [filter] - Deletes every matching document", handler: (*cli).handleDelete, category: "Queries"},
		"delete one": {help: "delete one [coll] [filter] - Deletes the first matching document", handler: (*cli).handleDeleteOne, category: "Queries"},
		"delete id":  {help: "delete id [coll] <id> - Deletes the document with that _id", handler: (*cli).handleDeleteByID, category: "Queries"},
	}
}

func (c *cli) handleHelp(args string) error {
	fmt.Fprintln(c.out, colorInfo("\njasondb CLI Help"))
	fmt.Fprintln(c.out, "---------------------")
	fmt.Fprintln(c.out, "The collection may be omitted after 'use <collection>'. Payloads are inline JSON, file:<path>, or - to open $EDITOR.")
	fmt.Fprintln(c.out, "---------------------")

	categories := make(map[string][]string)
	for cmdName, cmdDetails := range c.commands {
		if cmdDetails.category == "" {
			continue
		}
		categories[cmdDetails.category] = append(categories[cmdDetails.category], cmdName)
	}

	categoryNames := make([]string, 0, len(categories))
	for name := range categories {
		categoryNames = append(categoryNames, name)
	}
	sort.Strings(categoryNames)

	for _, category := range categoryNames {
		fmt.Fprintf(c.out, "\n%s%s%s\n", colorOK("== "), colorOK(category), colorOK(" =="))
		table := tablewriter.NewWriter(c.out)
		table.SetHeader([]string{"Command", "Description"})
		table.SetAutoWrapText(false)

		cmds := categories[category]
		sort.Strings(cmds)

		for _, cmd := range cmds {
			table.Append([]string{cmd, c.commands[cmd].help})
		}
		table.Render()
	}
	fmt.Fprintln(c.out, "---------------------")
	return nil
}

func (c *cli) handleExit(args string) error {
	return io.EOF
}

func (c *cli) handleClear(args string) error {
	clearScreen()
	return nil
}

func (c *cli) handleUse(args string) error {
	name := strings.TrimSpace(args)
	switch name {
	case "":
		return errors.New("usage: use <collection>|exit")
	case "exit":
		c.currentCollection = ""
		fmt.Fprintln(c.out, colorOK("OK: no collection in use"))
		return nil
	}
	if _, err := c.collection(name); err != nil {
		return err
	}
	c.currentCollection = strings.TrimSuffix(name, ".json")
	fmt.Fprintln(c.out, colorOK("OK: using collection '", c.currentCollection, "'"))
	return nil
}

func (c *cli) handleCollectionList(args string) error {
	ctx := context.Background()
	loaded := c.db.Names()
	onDisk, err := c.db.Discover()
	if err != nil {
		return err
	}

	names := append([]string{}, loaded...)
	for _, name := range onDisk {
		if !slices.Contains(loaded, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		fmt.Fprintln(c.out, colorInfo("(no collections)"))
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Collection", "Loaded", "Documents", "File"})
	table.SetAutoWrapText(false)
	for _, name := range names {
		row := []string{name, "no", "-", persistence.CollectionPath(c.db.Path(), name)}
		if coll, ok := c.db.Collection(name); ok {
			n, err := coll.Count(ctx)
			if err != nil {
				return err
			}
			row[1], row[2] = "yes", fmt.Sprint(n)
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

func (c *cli) handleCollectionLoad(args string) error {
	names := strings.Fields(args)
	if len(names) == 0 {
		return errors.New("usage: collection load <name> [name...]")
	}
	if err := c.db.Load(context.Background(), names...); err != nil {
		return err
	}
	fmt.Fprintln(c.out, colorOK("OK: loaded ", strings.Join(names, ", ")))
	return nil
}

func (c *cli) handleCollectionDelete(args string) error {
	parts := strings.Fields(args)
	if len(parts) != 1 {
		return errors.New("usage: collection delete <name>")
	}
	docs, err := c.db.DeleteCollection(context.Background(), parts[0])
	if err != nil {
		return err
	}
	if strings.TrimSuffix(parts[0], ".json") == c.currentCollection {
		c.currentCollection = ""
	}
	fmt.Fprintln(c.out, colorOK("OK: deleted collection '", parts[0], "' holding ", len(docs), " document(s)"))
	return nil
}

func (c *cli) handleDestroy(args string) error {
	if strings.TrimSpace(args) != "confirm" {
		return errors.New("usage: destroy confirm (this deletes every loaded collection)")
	}
	removed, err := c.db.Destroy(context.Background())
	c.currentCollection = ""

	names := make([]string, 0, len(removed))
	for name := range removed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(c.out, colorOK("OK: deleted '", name, "' holding ", len(removed[name]), " document(s)"))
	}
	return err
}

func (c *cli) handleCount(args string) error {
	name, _, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	coll, err := c.collection(name)
	if err != nil {
		return err
	}
	n, err := coll.Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, colorOK("OK: '", name, "' holds ", n, " document(s)"))
	return nil
}

func (c *cli) handleCreate(args string) error {
	name, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	coll, err := c.collection(name)
	if err != nil {
		return err
	}
	payload, extra, err := nextPayload(rest)
	if err != nil {
		return err
	}
	if payload == "" || extra != "" {
		return errors.New("usage: create [coll] <json|file:path|->")
	}
	data, err := c.getJSONPayload(payload)
	if err != nil {
		return err
	}

	docs, err := coll.Create(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, colorOK("OK: '", name, "' now holds ", len(docs), " document(s)"))
	c.printDocuments(docs)
	return nil
}

func (c *cli) handleFind(args string) error    { return c.find(args, true) }
func (c *cli) handleFindOne(args string) error { return c.find(args, false) }

func (c *cli) find(args string, many bool) error {
	coll, filter, err := c.collectionAndFilter(args)
	if err != nil {
		return err
	}
	docs, err := coll.Find(context.Background(), filter, many)
	if err != nil {
		return err
	}
	if !many {
		c.printDocument(first(docs))
		return nil
	}
	fmt.Fprintln(c.out, colorOK("OK: found ", len(docs), " document(s)"))
	c.printDocuments(docs)
	return nil
}

func (c *cli) handleFindByID(args string) error {
	coll, id, _, err := c.collectionAndID(args, false)
	if err != nil {
		return err
	}
	doc, err := coll.FindByID(context.Background(), id)
	if err != nil {
		return err
	}
	c.printDocument(doc)
	return nil
}

func (c *cli) handleUpdate(args string) error    { return c.update(args, true) }
func (c *cli) handleUpdateOne(args string) error { return c.update(args, false) }

func (c *cli) update(args string, many bool) error {
	name, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	coll, err := c.collection(name)
	if err != nil {
		return err
	}
	filterArg, rest, err := nextPayload(rest)
	if err != nil {
		return err
	}
	dataArg, extra, err := nextPayload(rest)
	if err != nil {
		return err
	}
	if filterArg == "" || dataArg == "" || extra != "" {
		return errors.New("usage: update [coll] <filter> <data>")
	}
	filter, err := c.getFilter(filterArg)
	if err != nil {
		return err
	}
	data, err := c.getJSONPayload(dataArg)
	if err != nil {
		return err
	}

	docs, err := coll.Update(context.Background(), filter, data, many)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, colorOK("OK: updated ", len(docs), " document(s)"))
	c.printDocuments(docs)
	return nil
}

func (c *cli) handleUpdateByID(args string) error {
	coll, id, rest, err := c.collectionAndID(args, true)
	if err != nil {
		return err
	}
	dataArg, extra, err := nextPayload(rest)
	if err != nil {
		return err
	}
	if dataArg == "" || extra != "" {
		return errors.New("usage: update id [coll] <id> <data>")
	}
	data, err := c.getJSONPayload(dataArg)
	if err != nil {
		return err
	}
	doc, err := coll.UpdateByID(context.Background(), id, data)
	if err != nil {
		return err
	}
	c.printDocument(doc)
	return nil
}

func (c *cli) handleDelete(args string) error    { return c.remove(args, true) }
func (c *cli) handleDeleteOne(args string) error { return c.remove(args, false) }

func (c *cli) remove(args string, many bool) error {
	coll, filter, err := c.collectionAndFilter(args)
	if err != nil {
		return err
	}
	docs, err := coll.Delete(context.Background(), filter, many)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, colorOK("OK: deleted ", len(docs), " document(s)"))
	c.printDocuments(docs)
	return nil
}

func (c *cli) handleDeleteByID(args string) error {
	coll, id, _, err := c.collectionAndID(args, false)
	if err != nil {
		return err
	}
	doc, err := coll.DeleteByID(context.Background(), id)
	if err != nil {
		return err
	}
	c.printDocument(doc)
	return nil
}

// collection returns a loaded collection.
func (c *cli) collection(name string) (*collection.Collection, error) {
	coll, ok := c.db.Collection(name)
	if !ok {
		return nil, fmt.Errorf("collection '%s' is not loaded, use 'collection load %s' first", name, name)
	}
	return coll, nil
}

func (c *cli) collectionAndFilter(args string) (*collection.Collection, *document.Map, error) {
	name, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return nil, nil, err
	}
	coll, err := c.collection(name)
	if err != nil {
		return nil, nil, err
	}
	filterArg, extra, err := nextPayload(rest)
	if err != nil {
		return nil, nil, err
	}
	if extra != "" {
		return nil, nil, fmt.Errorf("unexpected argument: %s", extra)
	}
	filter, err := c.getFilter(filterArg)
	if err != nil {
		return nil, nil, err
	}
	return coll, filter, nil
}

// collectionAndID parses "[coll] <id>", followed by a payload when
// withPayload is set. The collection is explicit when two words precede the
// payload.
func (c *cli) collectionAndID(args string, withPayload bool) (*collection.Collection, document.Value, string, error) {
	line := strings.TrimSpace(args)
	rest := ""
	if withPayload {
		if i := payloadStart(line); i >= 0 {
			line, rest = line[:i], line[i:]
		}
	}
	head := strings.Fields(line)

	var name, idArg string
	switch len(head) {
	case 1:
		if c.currentCollection == "" {
			return nil, document.Value{}, "", errors.New("no collection name provided and no collection is in use")
		}
		name, idArg = c.currentCollection, head[0]
	case 2:
		name, idArg = head[0], head[1]
	default:
		return nil, document.Value{}, "", errors.New("expected [coll] <id>")
	}

	coll, err := c.collection(name)
	if err != nil {
		return nil, document.Value{}, "", err
	}
	return coll, parseID(idArg), rest, nil
}

func first(docs []*document.Map) *document.Map {
	if len(docs) == 0 {
		return nil
	}
	return docs[0]
}

// payloadStart returns the offset of the first word of s that starts a
// payload, or -1.
func payloadStart(s string) int {
	pos := 0
	for _, w := range strings.Fields(s) {
		i := pos + strings.Index(s[pos:], w)
		if isPayload(w) {
			return i
		}
		pos = i + len(w)
	}
	return -1
}
