package main

import (
	"fmt"
	"strconv"

	"budget/internal/core"

	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage income and expense categories",
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := app.ledger.Categories(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No categories. Use 'budget categories add' to create one."))
				return nil
			}

			t := newTable(out, "ID", "Name", "Type", "Color")
			for _, c := range categories {
				t.row(c.ID, c.Name, typeLabel(c.Type), swatch(c.Color))
			}
			return t.flush()
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var typ, color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseCategoryType(typ)
			if err != nil {
				return err
			}

			cat, err := app.ledger.CreateCategory(cmd.Context(), core.CategoryInput{
				Name:  args[0],
				Type:  t,
				Color: color,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s category %q (%s) with ID %d\n",
				successStyle.Render("Created"), cat.Name, cat.Type, cat.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "expense", "category type (income or expense)")
	cmd.Flags().StringVarP(&color, "color", "c", "", "hex color, e.g. #6a1b9a (default depends on type)")
	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var name, typ, color string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename, retype or recolor a category",
		Long: `Update a category. Changing the type re-signs every transaction linked
to the category: expenses become negative, income non-negative.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			current, err := app.ledger.Category(ctx, id)
			if err != nil {
				return err
			}

			in := core.CategoryInput{Name: current.Name, Type: current.Type, Color: current.Color}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("type") {
				if in.Type, err = core.ParseCategoryType(typ); err != nil {
					return err
				}
				if !cmd.Flags().Changed("color") && current.Color == current.Type.DefaultColor() {
					in.Color = ""
				}
			}
			if cmd.Flags().Changed("color") {
				in.Color = color
			}

			cat, err := app.ledger.UpdateCategory(ctx, id, in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s category %d: %q (%s)\n",
				successStyle.Render("Updated"), cat.ID, cat.Name, cat.Type)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&typ, "type", "t", "", "new type (income or expense)")
	cmd.Flags().StringVarP(&color, "color", "c", "", "new hex color")
	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category; its transactions become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.ledger.DeleteCategory(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s category %d\n", successStyle.Render("Deleted"), id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Message: fmt.Sprintf("%q is not a valid id", s)}
	}
	return id, nil
}
