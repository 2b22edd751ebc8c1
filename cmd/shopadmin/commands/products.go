package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// NewProductsCommand creates the products command group.
func NewProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Manage products",
		Long:    "List, create, update and delete catalog products",
	}

	cmd.AddCommand(newProductsListCommand())
	cmd.AddCommand(newProductsGetCommand())
	cmd.AddCommand(newProductsCreateCommand())
	cmd.AddCommand(newProductsUpdateCommand())
	cmd.AddCommand(newProductsAvailabilityCommand("enable", true))
	cmd.AddCommand(newProductsAvailabilityCommand("disable", false))
	cmd.AddCommand(newProductsDeleteCommand())

	return cmd
}

func newProductsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products",
		Long:  "List all products in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			products, err := sess.client.Products().List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list products: %w", err)
			}

			return outputProducts(cmd.OutOrStdout(), products)
		},
	}
}

func newProductsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PRODUCT_ID",
		Short: "Get product details",
		Long:  "Display detailed information about a specific product",
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

			product, err := sess.client.Products().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get product: %w", err)
			}

			return outputProduct(cmd.OutOrStdout(), product)
		},
	}
}

// productFlags are the write flags shared by create and update.
type productFlags struct {
	name        string
	description string
	price       float64
	stock       int
	category    int
	available   bool
	image       string
	removeImage bool
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().StringVar(&f.description, "description", "", "product description")
	cmd.Flags().Float64Var(&f.price, "price", 0, "unit price")
	cmd.Flags().IntVar(&f.stock, "stock", 0, "units in stock")
	cmd.Flags().IntVar(&f.category, "category", 0, "category id (0 for none)")
	cmd.Flags().BoolVar(&f.available, "available", true, "whether the product is available for sale")
	cmd.Flags().StringVar(&f.image, "image", "", "path of an image file to upload")
}

// apply copies the flags the user set onto input.
func (f *productFlags) apply(cmd *cobra.Command, input *shop.ProductInput) error {
	flags := cmd.Flags()

	if flags.Changed("name") {
		input.Name = f.name
	}

	if flags.Changed("description") {
		input.Description = f.description
	}

	if flags.Changed("price") {
		input.Price = f.price
	}

	if flags.Changed("stock") {
		input.Stock = f.stock
	}

	if flags.Changed("category") {
		input.CategoryID = nil

		if f.category > 0 {
			category := f.category
			input.CategoryID = &category
		}
	}

	if flags.Changed("available") {
		input.IsAvailable = f.available
	}

	if f.image != "" && f.removeImage {
		return constants.ErrImageConflict
	}

	if f.image != "" {
		image, err := readImage(f.image)
		if err != nil {
			return err
		}

		input.Image = image
	}

	input.ImageDeleted = f.removeImage

	return nil
}

func readImage(path string) (*shop.FormFile, error) {
	// #nosec G304 -- path is supplied by the CLI user
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return &shop.FormFile{FieldName: "image", FileName: filepath.Base(path), Content: content}, nil
}

func newProductsCreateCommand() *cobra.Command {
	flags := &productFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Long:  "Create a new product, optionally with an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.name == "" {
				return constants.ErrNameRequired
			}

			input := &shop.ProductInput{IsAvailable: true}

			err := flags.apply(cmd, input)
			if err != nil {
				return err
			}

			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			product, err := sess.client.Products().Create(ctx, input)
			if err != nil {
				return fmt.Errorf("failed to create product: %w", describeFields(err))
			}

			return outputProduct(cmd.OutOrStdout(), product)
		},
	}

	flags.register(cmd)

	return cmd
}

func newProductsUpdateCommand() *cobra.Command {
	flags := &productFlags{}

	cmd := &cobra.Command{
		Use:   "update PRODUCT_ID",
		Short: "Update a product",
		Long:  "Update fields of an existing product. Fields without a flag keep their current value.",
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

			current, err := sess.client.Products().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get product: %w", err)
			}

			input := current.Input()

			err = flags.apply(cmd, input)
			if err != nil {
				return err
			}

			product, err := sess.client.Products().Update(ctx, id, input)
			if err != nil {
				return fmt.Errorf("failed to update product: %w", describeFields(err))
			}

			return outputProduct(cmd.OutOrStdout(), product)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.removeImage, "remove-image", false, "remove the current image")

	return cmd
}

func newProductsAvailabilityCommand(use string, available bool) *cobra.Command {
	short := "Mark a product available"
	if !available {
		short = "Mark a product unavailable"
	}

	return &cobra.Command{
		Use:   use + " PRODUCT_ID",
		Short: short,
		Long:  short + ", keeping every other field",
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

			product, err := sess.client.Products().SetAvailability(ctx, id, available)
			if err != nil {
				return fmt.Errorf("failed to update product: %w", err)
			}

			return outputProduct(cmd.OutOrStdout(), product)
		},
	}
}

func newProductsDeleteCommand() *cobra.Command {
	return createDeleteCommand("product", func(ctx context.Context, client shop.Client, id int) error {
		return client.Products().Remove(ctx, id)
	})
}

func outputProducts(out io.Writer, products []shop.Product) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return outputJSON(out, products)
	case constants.FormatYAML:
		return outputYAML(out, products)
	default:
		if len(products) == 0 {
			_, _ = fmt.Fprintln(out, "No products found")

			return nil
		}

		rows := make([][]string, 0, len(products))
		for _, product := range products {
			rows = append(rows, []string{
				strconv.Itoa(product.ID),
				product.Name,
				product.Price.String(),
				strconv.Itoa(product.Stock),
				formatCategoryID(product.CategoryID),
				strconv.FormatBool(bool(product.IsAvailable)),
			})
		}

		return renderTable(out, []string{"ID", "Name", "Price", "Stock", "Category", "Available"}, rows)
	}
}

func outputProduct(out io.Writer, product *shop.Product) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return outputJSON(out, product)
	case constants.FormatYAML:
		return outputYAML(out, product)
	default:
		return renderTable(out, []string{"Property", "Value"}, [][]string{
			{"ID", strconv.Itoa(product.ID)},
			{"Name", product.Name},
			{"Description", formatConfigValue(product.Description)},
			{"Price", product.Price.String()},
			{"Stock", strconv.Itoa(product.Stock)},
			{"Category", formatCategoryID(product.CategoryID)},
			{"Available", strconv.FormatBool(bool(product.IsAvailable))},
			{"Image", formatConfigValue(product.ImageURL)},
		})
	}
}

func formatCategoryID(id *int) string {
	if id == nil {
		return constants.None
	}

	return strconv.Itoa(*id)
}
