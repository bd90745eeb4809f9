package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/internal/catalog"
	"github.com/phonelife/storefront/pkg/config"
	"github.com/phonelife/storefront/pkg/db"
	"github.com/phonelife/storefront/pkg/logger"
	"github.com/phonelife/storefront/pkg/migrate"
	"github.com/phonelife/storefront/pkg/shopapi"
)

const defaultSession = "local"

type cliOptions struct {
	dbPath   string
	session  string
	shopAPI  string
	logLevel string
}

// cartSession is an open cart plus the handle that must be closed after use.
type cartSession struct {
	store  *cart.Store
	client *db.Client
}

func (o *cliOptions) open(ctx context.Context) (*cartSession, error) {
	logg := logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(o.logLevel),
		Output:      os.Stderr,
	})
	dbCfg := config.DBConfig{Driver: config.DBDriverSQLite, DSN: o.dbPath}
	client, err := db.New(ctx, dbCfg, logg)
	if err != nil {
		return nil, fmt.Errorf("open cart file: %w", err)
	}
	if err := migrate.MaybeRun(ctx, dbCfg, logg, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("prepare cart file: %w", err)
	}
	store := cart.Open(ctx, cart.NewDBStorage(client.DB(), o.session), cart.WithLogger(logg))
	return &cartSession{store: store, client: client}, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and edit a PhoneLife cart stored in a local file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "phonelife-cart.db", "sqlite file holding the cart")
	root.PersistentFlags().StringVar(&opts.session, "session", defaultSession, "cart namespace inside the file")
	root.PersistentFlags().StringVar(&opts.shopAPI, "shop-api", "", "shop API base URL used to look products up")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newShowCmd(opts),
		newAddCmd(opts),
		newDecrementCmd(opts),
		newRemoveCmd(opts),
		newClearCmd(opts),
	)
	return root
}

// withCart opens the cart, runs fn and prints the resulting cart.
func withCart(cmd *cobra.Command, opts *cliOptions, fn func(ctx context.Context, store *cart.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer sess.client.Close()

	if fn != nil {
		if err := fn(ctx, sess.store); err != nil {
			return err
		}
	}
	return printCart(cmd.OutOrStdout(), sess.store.Items())
}

func newShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, nil)
		},
	}
}

func newAddCmd(opts *cliOptions) *cobra.Command {
	var (
		name     string
		price    string
		promo    string
		imageURL string
		quantity int
	)
	cmd := &cobra.Command{
		Use:   "add <productId>",
		Short: "Add a product to the cart",
		Long: "Add a product to the cart. With --shop-api the product is looked up and its stock checked; " +
			"otherwise --name and --price describe it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			if quantity < 1 {
				return fmt.Errorf("invalid --quantity %d: must be at least 1", quantity)
			}
			return withCart(cmd, opts, func(ctx context.Context, store *cart.Store) error {
				product, err := resolveProduct(ctx, opts, id, name, price, promo, imageURL, quantity)
				if err != nil {
					return err
				}
				store.AddToCart(ctx, product, quantity)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&price, "price", "", "unit price")
	cmd.Flags().StringVar(&promo, "promo", "", "promotional price")
	cmd.Flags().StringVar(&imageURL, "image", "", "image url")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", cart.DefaultQuantity, "quantity to add")
	return cmd
}

func resolveProduct(ctx context.Context, opts *cliOptions, id int64, name, price, promo, imageURL string, quantity int) (cart.Product, error) {
	if opts.shopAPI != "" {
		client, err := shopapi.NewClient(opts.shopAPI)
		if err != nil {
			return cart.Product{}, err
		}
		svc, err := catalog.NewService(client)
		if err != nil {
			return cart.Product{}, err
		}
		product, err := svc.Get(ctx, id)
		if err != nil {
			return cart.Product{}, err
		}
		if err := svc.CheckStock(*product, quantity); err != nil {
			return cart.Product{}, err
		}
		return catalog.CartProduct(*product), nil
	}

	if name == "" || price == "" {
		return cart.Product{}, fmt.Errorf("--name and --price are required without --shop-api")
	}
	unit, err := decimal.NewFromString(price)
	if err != nil || unit.IsNegative() {
		return cart.Product{}, fmt.Errorf("invalid --price %q", price)
	}
	product := cart.Product{ID: cart.ProductID(id), Name: name, Price: unit, ImageURL: imageURL}
	if promo != "" {
		p, err := decimal.NewFromString(promo)
		if err != nil || p.IsNegative() {
			return cart.Product{}, fmt.Errorf("invalid --promo %q", promo)
		}
		product.PromoPrice = decimal.NewNullDecimal(p)
	}
	return product, nil
}

func newDecrementCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dec <productId>",
		Short: "Remove one unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			return withCart(cmd, opts, func(ctx context.Context, store *cart.Store) error {
				store.RemoveOneFromCart(ctx, cart.ProductID(id))
				return nil
			})
		},
	}
}

func newRemoveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <productId>",
		Short: "Remove a product line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			return withCart(cmd, opts, func(ctx context.Context, store *cart.Store) error {
				store.RemoveFromCart(ctx, cart.ProductID(id))
				return nil
			})
		},
	}
}

func newClearCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, func(ctx context.Context, store *cart.Store) error {
				store.ClearCart(ctx)
				return nil
			})
		},
	}
}

func parseProductID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}

func printCart(out io.Writer, items cart.Items) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "Votre panier est vide")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUIT\tPRIX\tQTE\tSOUS-TOTAL")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s €\t%d\t%s €\n",
			item.ProductID, item.Name, item.UnitPrice.StringFixed(2), item.Quantity, item.Subtotal().StringFixed(2))
	}
	summary := items.Summary()
	fmt.Fprintf(tw, "\t\t\t%d\t%s €\n", summary.Count, summary.Total.StringFixed(2))
	return tw.Flush()
}
