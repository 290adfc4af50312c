package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"jasondb/internal/collection"
	"jasondb/internal/document"
	"jasondb/internal/persistence"
)

func (a *app) collectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List the collections in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.open(ctx)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Collection", "Documents", "File"})
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(false)
			for _, name := range db.Names() {
				coll, _ := db.Collection(name)
				n, err := coll.Count(ctx)
				if err != nil {
					return err
				}
				table.Append([]string{name, fmt.Sprint(n), persistence.CollectionPath(db.Path(), name)})
			}
			table.Render()
			return nil
		},
	}
}

func (a *app) dropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <collection>",
		Short: "Delete a collection and print the documents it held",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.open(ctx)
			if err != nil {
				return err
			}
			docs, err := db.DeleteCollection(ctx, args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), docs)
		},
	}
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <collection>",
		Short: "Count the documents in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := a.collection(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			n, err := coll.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <collection> <json|file:path|->",
		Short: "Create one document or an array of documents",
		Long: `Create one document or an array of documents.

A document without an _id (or with a null one) gets a generated id. The
whole collection is printed afterwards.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := a.collection(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			data, err := readPayload(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			docs, err := coll.Create(cmd.Context(), data)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), docs)
		},
	}
}

func (a *app) findCmd() *cobra.Command {
	var one bool
	var id string

	cmd := &cobra.Command{
		Use:   "find <collection> [filter]",
		Short: "Find the documents matching a filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, err := a.collection(ctx, args[0], false)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("id") {
				if len(args) > 1 {
					return errors.New("--id does not take a filter")
				}
				doc, err := coll.FindByID(ctx, parseID(id))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), single(doc))
			}

			filter, err := filterArg(cmd.InOrStdin(), args, 1)
			if err != nil {
				return err
			}
			docs, err := coll.Find(ctx, filter, !one)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "return the first match only")
	cmd.Flags().StringVar(&id, "id", "", "find the document with this _id")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var one bool
	var id string

	cmd := &cobra.Command{
		Use:   "update <collection> <filter> <data>",
		Short: "Merge data into the documents matching a filter",
		Long: `Merge data into the documents matching a filter.

Nested objects are merged key by key. The _id of a document never changes.
With --id the filter is omitted: update <collection> --id <id> <data>.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, err := a.collection(ctx, args[0], false)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("id") {
				if len(args) != 2 {
					return errors.New("usage: update <collection> --id <id> <data>")
				}
				data, err := readPayload(cmd.InOrStdin(), args[1])
				if err != nil {
					return err
				}
				doc, err := coll.UpdateByID(ctx, parseID(id), data)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), single(doc))
			}

			if len(args) != 3 {
				return errors.New("usage: update <collection> <filter> <data>")
			}
			filter, err := filterArg(cmd.InOrStdin(), args, 1)
			if err != nil {
				return err
			}
			data, err := readPayload(cmd.InOrStdin(), args[2])
			if err != nil {
				return err
			}
			docs, err := coll.Update(ctx, filter, data, !one)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "update the first match only")
	cmd.Flags().StringVar(&id, "id", "", "update the document with this _id")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var one bool
	var id string

	cmd := &cobra.Command{
		Use:   "delete <collection> [filter]",
		Short: "Delete the documents matching a filter and print them",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, err := a.collection(ctx, args[0], false)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("id") {
				if len(args) > 1 {
					return errors.New("--id does not take a filter")
				}
				doc, err := coll.DeleteByID(ctx, parseID(id))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), single(doc))
			}

			filter, err := filterArg(cmd.InOrStdin(), args, 1)
			if err != nil {
				return err
			}
			docs, err := coll.Delete(ctx, filter, !one)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "delete the first match only")
	cmd.Flags().StringVar(&id, "id", "", "delete the document with this _id")
	return cmd
}

// collection returns a collection of the opened database. With create set a
// missing collection is created; otherwise it is an error.
func (a *app) collection(ctx context.Context, name string, create bool) (*collection.Collection, error) {
	db, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	if coll, ok := db.Collection(name); ok {
		return coll, nil
	}
	if !create {
		return nil, fmt.Errorf("collection '%s' does not exist in %s", name, db.Path())
	}
	if err := db.Load(ctx, name); err != nil {
		return nil, err
	}
	coll, _ := db.Collection(name)
	return coll, nil
}

// readPayload resolves a JSON argument: "-" reads stdin, "file:<path>"
// reads a file, anything else is the JSON itself.
func readPayload(stdin io.Reader, arg string) (document.Value, error) {
	var raw []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return document.Value{}, fmt.Errorf("could not read standard input: %w", err)
		}
		raw = b
	case strings.HasPrefix(arg, "file:"):
		b, err := os.ReadFile(strings.TrimPrefix(arg, "file:"))
		if err != nil {
			return document.Value{}, fmt.Errorf("could not read payload file: %w", err)
		}
		raw = b
	default:
		raw = []byte(arg)
	}
	v, err := document.Parse(raw)
	if err != nil {
		return document.Value{}, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return v, nil
}

// filterArg reads the optional filter at args[i].
func filterArg(stdin io.Reader, args []string, i int) (*document.Map, error) {
	if len(args) <= i {
		return nil, nil
	}
	v, err := readPayload(stdin, args[i])
	if err != nil {
		return nil, err
	}
	if !v.IsMapping() {
		return nil, fmt.Errorf("filter must be a JSON object, got %s", v.Kind())
	}
	return v.Map(), nil
}

// parseID keeps JSON numbers and quoted strings typed; anything else is a
// bare string.
func parseID(arg string) document.Value {
	if v, err := document.Parse([]byte(arg)); err == nil {
		if v.Kind() == document.String || v.Kind() == document.Number {
			return v
		}
	}
	return document.StringValue(arg)
}

func single(doc *document.Map) []*document.Map {
	if doc == nil {
		return nil
	}
	return []*document.Map{doc}
}

// renderDocuments prints documents as a table with one column per key, in
// the order keys first appear.
func renderDocuments(w io.Writer, docs []*document.Map) {
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
	if len(headers) == 0 {
		fmt.Fprintln(w, "(no documents)")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, doc := range docs {
		row := make([]string, len(headers))
		for i, header := range headers {
			v := doc.Get(header)
			switch v.Kind() {
			case document.String:
				row[i] = v.Str()
			case document.Undefined:
				row[i] = ""
			default:
				row[i] = v.String()
			}
		}
		table.Append(row)
	}
	table.Render()
}
