package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/derived"
	"github.com/sipico/covid-counter-client/internal/guard"
	"github.com/sipico/covid-counter-client/internal/listing"
	"github.com/sipico/covid-counter-client/internal/record"
	"github.com/sipico/covid-counter-client/internal/view"
)

// requireLogin applies the dashboard route guard to data commands.
func requireLogin(app *App) error {
	if d := guard.Resolve(string(guard.RouteDashboard), app.Session); !d.Redirected {
		return nil
	}
	if app.Session.HasPendingChallenge() {
		return errors.New("a login is waiting for its one-time passcode; run `covid-counter verify`")
	}
	return errors.New("not logged in; run `covid-counter login`")
}

// splitAssignment parses a name=value flag.
func splitAssignment(flag, s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("--%s %q: want name=value", flag, s)
	}
	return name, value, nil
}

func datasetUsage() string {
	return "Datasets: " + strings.Join(dataset.Names(), ", ")
}

func newListCommand(rt *runtime) *cobra.Command {
	var filters []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <dataset>",
		Short: "List the records of a dataset",
		Long: `List the records of a dataset, optionally filtered.

` + datasetUsage() + `

Filters are given as name=value: search (countries), country and continent
(worldometer), date (day-wise), region and continent (covid-data).`,
		Example: `  covid-counter list countries --filter search=al
  covid-counter list worldometer --filter continent=Europe --json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: dataset.Names(),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			ds, err := dataset.ByName(args[0])
			if err != nil {
				return err
			}
			if err := requireLogin(app); err != nil {
				return err
			}

			c := app.NewController(ds)
			defer c.Close()

			for _, f := range filters {
				name, value, err := splitAssignment("filter", f)
				if err != nil {
					return err
				}
				if err := c.SetFilter(name, value); err != nil {
					return err
				}
			}

			c.Mount(cmd.Context())
			c.Wait()
			snap := c.Snapshot()
			if snap.Err != "" {
				return explainRequest(snap.Cause, ds.LoadError)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap.Records)
			}

			//nolint:errcheck
			fmt.Fprintf(out, "%s (%d of %d records)\n", view.TitleStyle.Render(ds.Title), len(snap.Records), snap.Fetched)
			if ds.Name == dataset.Countries.Name {
				//nolint:errcheck
				fmt.Fprintln(out, view.Totals(derived.Summarize(snap.Records)))
			}
			//nolint:errcheck
			fmt.Fprintln(out, view.Table(ds, snap.Records, -1))
			if legend := view.Legend(ds); legend != "" {
				//nolint:errcheck
				fmt.Fprintln(out, legend)
			}
			return nil
		}),
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as name=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newEditCommand(rt *runtime) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "edit <dataset> <key>",
		Short: "Change fields of one record",
		Long: `Change fields of the record identified by key and print what the server
saved. Numeric fields take numbers; an empty value sets the field to null.

` + datasetUsage(),
		Example: `  covid-counter edit countries Albania --set deaths=150 --set active=2000
  covid-counter edit covid-data 3 --set region=Europe`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: dataset.Names(),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			ds, err := dataset.ByName(args[0])
			if err != nil {
				return err
			}
			key := args[1]
			if len(sets) == 0 {
				return errors.New("nothing to change: pass at least one --set field=value")
			}
			if err := requireLogin(app); err != nil {
				return err
			}

			c := app.NewController(ds)
			defer c.Close()

			c.Mount(cmd.Context())
			c.Wait()
			if snap := c.Snapshot(); snap.Err != "" {
				return explainRequest(snap.Cause, ds.LoadError)
			}

			if err := c.OpenEditor(key); err != nil {
				if errors.Is(err, listing.ErrNotFound) {
					return fmt.Errorf("no %s record with %s %q", ds.Name, ds.KeyField, key)
				}
				return err
			}

			var changed []string
			for _, s := range sets {
				name, value, err := splitAssignment("set", s)
				if err != nil {
					return err
				}
				if err := c.SetDraftField(name, value); err != nil {
					if errors.Is(err, listing.ErrNotEditable) {
						return notEditable(ds, name, c.Snapshot().Edit.Draft)
					}
					return err
				}
				changed = append(changed, name)
			}
			draft := c.Snapshot().Edit.Draft

			if err := c.Save(cmd.Context()); err != nil {
				return explainRequest(err, dataset.SaveError)
			}

			saved, ok := findRecord(c.Snapshot().Records, ds.KeyField, key)
			if !ok {
				return nil
			}
			out := cmd.OutOrStdout()
			//nolint:errcheck
			fmt.Fprintf(out, "Saved %s %s:\n%s", ds.Name, key, view.Detail(ds, saved))
			for _, name := range changed {
				if view.FieldValue(draft, name) != view.FieldValue(saved, name) {
					//nolint:errcheck
					fmt.Fprintf(out, "Note: the server kept %s = %s\n", name, view.FieldValue(saved, name))
				}
			}
			return nil
		}),
	}

	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "field to change as name=value (repeatable)")
	return cmd
}

func notEditable(ds dataset.Dataset, name string, draft record.Record) error {
	fields := ds.EditableFields(draft)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return fmt.Errorf("%s is not editable in %s (editable: %s)", name, ds.Name, strings.Join(names, ", "))
}

func findRecord(records []record.Record, keyField, key string) (record.Record, bool) {
	for _, r := range records {
		if k, ok := r.Key(keyField); ok && k == key {
			return r, true
		}
	}
	return nil, false
}
