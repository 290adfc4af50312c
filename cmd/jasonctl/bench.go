package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"jasondb/internal/collection"
	"jasondb/internal/database"
	"jasondb/internal/document"
)

const benchCollection = "users"

var defaultBenchSizes = []int{1, 10, 100, 1000, 10000}

// benchOp is one timed step. Steps that delete documents return them so
// they can be recreated before the next step.
type benchOp struct {
	name string
	run  func(ctx context.Context, db *database.Database, users *collection.Collection) ([]*document.Map, error)
}

type benchResults struct {
	ops   []string
	sizes []int
	times map[string]map[int]time.Duration
}

func (a *app) benchCmd() *cobra.Command {
	var sizes []int
	var dir string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time every collection operation at growing collection sizes",
		Long: `Time every collection operation at growing collection sizes.

For each size a fresh "users" collection is filled with generated documents,
then created, counted, searched, updated and deleted. Deleted documents are
recreated before the next step. The benchmark runs in a temporary directory
unless --dir is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			if dir == "" {
				tmp, err := os.MkdirTemp("", "jasondb-bench-*")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmp)
				dir = tmp
			}

			results, err := runBench(cmd.Context(), dir, sizes, []database.Option{database.WithStorage(a.storage())}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			results.render(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&sizes, "sizes", defaultBenchSizes, "collection sizes to benchmark")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to run in (default: a temporary directory)")
	return cmd
}

func runBench(ctx context.Context, dir string, sizes []int, opts []database.Option, progress io.Writer) (*benchResults, error) {
	results := &benchResults{sizes: sizes, times: make(map[string]map[int]time.Duration)}

	for _, size := range sizes {
		db, err := database.Open(ctx, dir, []string{benchCollection}, opts...)
		if err != nil {
			return nil, err
		}
		users, _ := db.Collection(benchCollection)

		for _, op := range benchOps(seedUsers(size)) {
			fmt.Fprintf(progress, "[Size: %d] [Operation: %s] Running...\n", size, op.name)

			start := time.Now()
			deleted, err := op.run(ctx, db, users)
			elapsed := time.Since(start)
			if err != nil {
				return nil, fmt.Errorf("%s at size %d: %w", op.name, size, err)
			}

			if _, ok := results.times[op.name]; !ok {
				results.ops = append(results.ops, op.name)
				results.times[op.name] = make(map[int]time.Duration)
			}
			results.times[op.name][size] = elapsed

			if len(deleted) > 0 {
				fmt.Fprintf(progress, "[Size: %d] Recreating deleted documents...\n", size)
				if _, err := users.Create(ctx, mapsValue(deleted)); err != nil {
					return nil, fmt.Errorf("recreating documents at size %d: %w", size, err)
				}
			}
		}
	}
	return results, nil
}

func benchOps(seed []*document.Map) []benchOp {
	filter := document.MustParseObject(`{"age": 5}`)
	address := func(s string) document.Value {
		m := document.NewMap()
		m.Set("address", document.StringValue(s))
		return document.ObjectValue(m)
	}

	find := func(filter *document.Map, many bool) benchOp {
		return benchOp{run: func(ctx context.Context, _ *database.Database, users *collection.Collection) ([]*document.Map, error) {
			_, err := users.Find(ctx, filter, many)
			return nil, err
		}}
	}
	update := func(filter *document.Map, data document.Value, many bool) benchOp {
		return benchOp{run: func(ctx context.Context, _ *database.Database, users *collection.Collection) ([]*document.Map, error) {
			_, err := users.Update(ctx, filter, data, many)
			return nil, err
		}}
	}
	remove := func(filter *document.Map, many bool) benchOp {
		return benchOp{run: func(ctx context.Context, _ *database.Database, users *collection.Collection) ([]*document.Map, error) {
			return users.Delete(ctx, filter, many)
		}}
	}
	named := func(name string, op benchOp) benchOp {
		op.name = name
		return op
	}

	return []benchOp{
		{"Bulk Create", func(ctx context.Context, _ *database.Database, users *collection.Collection) ([]*document.Map, error) {
			_, err := users.Create(ctx, mapsValue(seed))
			return nil, err
		}},
		{"Count", func(ctx context.Context, _ *database.Database, users *collection.Collection) ([]*document.Map, error) {
			_, err := users.Count(ctx)
			return nil, err
		}},
		named("Find All", find(nil, true)),
		named("Find All (with filter)", find(filter, true)),
		named("Find One", find(nil, false)),
		named("Find One (with filter)", find(filter, false)),
		named("Update All", update(nil, address("Now I know the address"), true)),
		named("Update All (with filter)", update(filter, address("I forgot the address"), true)),
		named("Update One", update(nil, address("Some address here"), false)),
		named("Update One (with filter)", update(filter, address("Huh?"), false)),
		named("Delete All", remove(nil, true)),
		named("Delete All (with filter)", remove(filter, true)),
		named("Delete One", remove(nil, false)),
		named("Delete One (with filter)", remove(filter, false)),
		{"Delete Collection", func(ctx context.Context, db *database.Database, _ *collection.Collection) ([]*document.Map, error) {
			_, err := db.DeleteCollection(ctx, benchCollection)
			return nil, err
		}},
	}
}

func seedUsers(n int) []*document.Map {
	docs := make([]*document.Map, n)
	for i := range docs {
		m := document.NewMap()
		m.Set("name", document.StringValue(fmt.Sprintf("User %d", i)))
		m.Set("age", document.IntValue(int64(rand.IntN(10))))
		m.Set("address", document.StringValue("Idk"))
		docs[i] = m
	}
	return docs
}

func mapsValue(docs []*document.Map) document.Value {
	items := make([]document.Value, len(docs))
	for i, d := range docs {
		items[i] = document.ObjectValue(d)
	}
	return document.ArrayValue(items...)
}

func (r *benchResults) render(w io.Writer) {
	header := []string{"Operation"}
	for _, size := range r.sizes {
		header = append(header, strconv.Itoa(size))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	for _, op := range r.ops {
		row := []string{op}
		for _, size := range r.sizes {
			row = append(row, fmt.Sprintf("%dms", r.times[op][size].Milliseconds()))
		}
		table.Append(row)
	}
	table.Render()
}
