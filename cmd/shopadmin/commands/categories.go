package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// NewCategoriesCommand creates the categories command group.
func NewCategoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Manage categories",
		Long:    "List, create, rename and delete product categories",
	}

	cmd.AddCommand(newCategoriesListCommand())
	cmd.AddCommand(newCategoriesGetCommand())
	cmd.AddCommand(newCategoriesCreateCommand())
	cmd.AddCommand(newCategoriesUpdateCommand())
	cmd.AddCommand(newCategoriesDeleteCommand())

	return cmd
}

func newCategoriesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Long:  "List all product categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			categories, err := sess.client.Categories().List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			return outputCategories(cmd.OutOrStdout(), categories)
		},
	}
}

func newCategoriesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get CATEGORY_ID",
		Short: "Get category details",
		Long:  "Display a specific category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			category, err := sess.client.Categories().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get category: %w", err)
			}

			return outputCategories(cmd.OutOrStdout(), []shop.Category{*category})
		},
	}
}

func newCategoriesCreateCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		Long:  "Create a new product category",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return constants.ErrNameRequired
			}

			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			category, err := sess.client.Categories().Create(ctx, &shop.CategoryInput{Name: name})
			if err != nil {
				return fmt.Errorf("failed to create category: %w", describeFields(err))
			}

			return outputCategories(cmd.OutOrStdout(), []shop.Category{*category})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "category name (required)")

	return cmd
}

func newCategoriesUpdateCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "update CATEGORY_ID",
		Short: "Rename a category",
		Long:  "Change the name of an existing category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if name == "" {
				return constants.ErrNameRequired
			}

			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			category, err := sess.client.Categories().Update(ctx, id, &shop.CategoryInput{Name: name})
			if err != nil {
				return fmt.Errorf("failed to update category: %w", describeFields(err))
			}

			return outputCategories(cmd.OutOrStdout(), []shop.Category{*category})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new category name (required)")

	return cmd
}

func newCategoriesDeleteCommand() *cobra.Command {
	return createDeleteCommand("category", func(ctx context.Context, client shop.Client, id int) error {
		return client.Categories().Remove(ctx, id)
	})
}

func outputCategories(out io.Writer, categories []shop.Category) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return outputJSON(out, categories)
	case constants.FormatYAML:
		return outputYAML(out, categories)
	default:
		if len(categories) == 0 {
			_, _ = fmt.Fprintln(out, "No categories found")

			return nil
		}

		rows := make([][]string, 0, len(categories))
		for _, category := range categories {
			rows = append(rows, []string{strconv.Itoa(category.ID), category.Name})
		}

		return renderTable(out, []string{"ID", "Name"}, rows)
	}
}
