package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

func newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage collections",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd.Context(), func(cs *collection.Collections) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tFIELDS\tUPDATED")
				for _, name := range cs.Names() {
					c, _ := cs.Collection(name)
					fmt.Fprintf(w, "%s\t%d\t%s\n", c.Name, len(c.Fields), c.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a collection schema as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd.Context(), func(cs *collection.Collections) error {
				c, ok := cs.Collection(args[0])
				if !ok {
					return fmt.Errorf("collection not found: %s", args[0])
				}
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}

	var fieldSpecs []string
	createCmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a collection with declared fields",
		Example: "  bunstore-cli collections create users --field email:String:required --field active:Boolean=true",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make([]collection.Field, 0, len(fieldSpecs))
			for _, spec := range fieldSpecs {
				f, err := parseFieldSpec(spec)
				if err != nil {
					return err
				}
				fields = append(fields, f)
			}
			return withRegistry(cmd.Context(), func(cs *collection.Collections) error {
				c, err := cs.CreateCollection(cmd.Context(), args[0], fields)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}
	createCmd.Flags().StringArrayVar(&fieldSpecs, "field", nil, "field as name:Type[:required][=default] (repeatable)")

	var force bool
	dropCmd := &cobra.Command{
		Use:   "drop <name>",
		Short: "Drop a collection and all of its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to drop %s without --force", args[0])
			}
			return withRegistry(cmd.Context(), func(cs *collection.Collections) error {
				if err := cs.RemoveCollection(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", args[0])
				return nil
			})
		},
	}
	dropCmd.Flags().BoolVar(&force, "force", false, "confirm the drop")

	cmd.AddCommand(listCmd, showCmd, createCmd, dropCmd)
	return cmd
}

func newFieldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage collection fields",
	}

	var (
		required   bool
		defaultRaw string
	)
	addCmd := &cobra.Command{
		Use:   "add <collection> <name> <type>",
		Short: "Add a field to a collection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := collection.ParseFieldType(args[2])
			if err != nil {
				return err
			}
			field := collection.Field{Name: args[1], FieldType: ft}
			if cmd.Flags().Changed("required") {
				field.Required = &required
			}
			if cmd.Flags().Changed("default") {
				field.Default, err = parseDefault(ft, defaultRaw)
				if err != nil {
					return err
				}
			}
			return withRegistry(cmd.Context(), func(cs *collection.Collections) error {
				c, err := cs.AddField(cmd.Context(), args[0], field)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}
	addCmd.Flags().BoolVar(&required, "required", false, "reject writes that leave the field null")
	addCmd.Flags().StringVar(&defaultRaw, "default", "", "default value as JSON (bare strings allowed for String fields)")

	dropCmd := &cobra.Command{
		Use:   "drop <collection> <name>",
		Short: "Drop a field and its column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd.Context(), func(cs *collection.Collections) error {
				c, err := cs.RemoveField(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}

	cmd.AddCommand(addCmd, dropCmd)
	return cmd
}
