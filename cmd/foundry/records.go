package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/view"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// printRecord prints a single record as JSON or as a card.
func printRecord(cmd *cobra.Command, rec model.Record) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	printRecordCard(cmd.OutOrStdout(), rec)
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "List the records of a resource",
	Long: `List the records of a resource.

--filter keeps records where any --field contains the text (case-insensitive);
without --field the resource's summary columns are searched. Each --sort
selects a key; repeating the same key flips the direction.`,
	GroupID: "records",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resource := args[0]
		query, _ := cmd.Flags().GetString("filter")
		fields, _ := cmd.Flags().GetStringArray("field")
		sorts, _ := cmd.Flags().GetStringArray("sort")

		recs, err := foundryClient.ListRecords(context.Background(), resource)
		if err != nil {
			return fmt.Errorf("listing %s: %w", resource, err)
		}

		if len(fields) == 0 {
			if res, ok := model.Lookup(resource); ok {
				fields = res.Summary
			}
		}
		recs = view.Filter(recs, query, fields...)

		var state view.SortState
		for _, key := range sorts {
			state.Toggle(key)
		}
		recs = view.Sort(recs, state)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), recs)
		}
		return printRecordTable(cmd.OutOrStdout(), tableColumns(resource, recs), recs)
	},
}

var showCmd = &cobra.Command{
	Use:     "show <resource> <id>",
	Short:   "Show one record",
	GroupID: "records",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		rec, err := foundryClient.GetRecord(context.Background(), args[0], id)
		if err != nil {
			return fmt.Errorf("getting %s %d: %w", args[0], id, err)
		}
		return printRecord(cmd, rec)
	},
}

var createCmd = &cobra.Command{
	Use:     "create <resource> --set key=value...",
	Short:   "Create a record",
	GroupID: "records",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, _ := cmd.Flags().GetStringArray("set")
		in, err := parseSets(sets)
		if err != nil {
			return err
		}
		rec, err := foundryClient.CreateRecord(context.Background(), args[0], in)
		if err != nil {
			return fmt.Errorf("creating %s: %w", args[0], err)
		}
		return printRecord(cmd, rec)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <resource> <id> --set key=value...",
	Short: "Replace a record; unset columns become empty",
	Long: `Replace every writable column of a record. Columns not given with --set
are cleared (or reset to their default). Use "edit" to change only some fields.`,
	GroupID: "records",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		in, err := parseSets(sets)
		if err != nil {
			return err
		}
		rec, err := foundryClient.UpdateRecord(context.Background(), args[0], id, in)
		if err != nil {
			return fmt.Errorf("updating %s %d: %w", args[0], id, err)
		}
		return printRecord(cmd, rec)
	},
}

var editCmd = &cobra.Command{
	Use:     "edit <resource> <id> --set key=value...",
	Short:   "Change some fields of a record (merge patch)",
	GroupID: "records",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		if len(sets) == 0 {
			return fmt.Errorf("nothing to change; pass at least one --set")
		}
		patch, err := parseSets(sets)
		if err != nil {
			return err
		}
		rec, err := foundryClient.PatchRecord(context.Background(), args[0], id, patch)
		if err != nil {
			return fmt.Errorf("editing %s %d: %w", args[0], id, err)
		}
		return printRecord(cmd, rec)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <resource> <id>",
	Short:   "Delete a record",
	GroupID: "records",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		msg, err := foundryClient.DeleteRecord(context.Background(), args[0], id)
		if err != nil {
			return fmt.Errorf("deleting %s %d: %w", args[0], id, err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"message": msg})
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:     "add <resource> <id> <kind> --set key=value...",
	Short:   "Add a child entry (e.g. an option or keyword) to a record",
	GroupID: "records",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		in, err := parseSets(sets)
		if err != nil {
			return err
		}
		rec, err := foundryClient.AddChild(context.Background(), args[0], id, args[2], in)
		if err != nil {
			return fmt.Errorf("adding %s to %s %d: %w", args[2], args[0], id, err)
		}
		return printRecord(cmd, rec)
	},
}

var resourcesCmd = &cobra.Command{
	Use:               "resources",
	Short:             "List the resources the service exposes",
	GroupID:           "reference",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := model.Catalog()
		if jsonOutput {
			type entry struct {
				Name     string   `json:"name"`
				Aliases  []string `json:"aliases,omitempty"`
				Children []string `json:"children,omitempty"`
				ReadOnly bool     `json:"read_only,omitempty"`
			}
			out := make([]entry, 0, len(catalog))
			for _, r := range catalog {
				out = append(out, entry{Name: r.Name, Aliases: r.Aliases, Children: childNames(r), ReadOnly: r.ReadOnly})
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RESOURCE\tALIASES\tCHILDREN\tMODE")
		for _, r := range catalog {
			mode := "read-write"
			switch {
			case r.ReadOnly:
				mode = "read-only"
			case r.Singleton:
				mode = "singleton"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, strings.Join(r.Aliases, ","), strings.Join(childNames(r), ","), mode)
		}
		return w.Flush()
	},
}

func childNames(r model.Resource) []string {
	var out []string
	for _, c := range r.Children {
		out = append(out, c.Name)
	}
	return out
}

func init() {
	listCmd.Flags().String("filter", "", "keep records containing this text")
	listCmd.Flags().StringArray("field", nil, "field searched by --filter (repeatable)")
	listCmd.Flags().StringArray("sort", nil, "sort key; repeat a key to reverse (repeatable)")

	for _, c := range []*cobra.Command{createCmd, updateCmd, editCmd, addCmd} {
		c.Flags().StringArray("set", nil, "field value as key=value (repeatable)")
	}
}
