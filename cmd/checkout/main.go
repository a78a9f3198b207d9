// Command checkout prices the product codes given as arguments, in scan
// order, and prints the receipt.
//
//	checkout [-catalog-file catalog.yaml] [-strict] [-v] FR1 SR1 FR1 FR1 CF1
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/go-faster/errors"

	"github.com/xenking/basket-checkout/internal/domain/basket"
	"github.com/xenking/basket-checkout/internal/domain/product"
	"github.com/xenking/basket-checkout/internal/storage/yamlfile"
)

type options struct {
	catalogFile string
	verbose     bool
	strict      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.catalogFile, "catalog-file", "", "catalog YAML file (default: embedded catalog)")
	flag.BoolVar(&opts.verbose, "v", false, "print each line and available offers")
	flag.BoolVar(&opts.strict, "strict", false, "fail on unknown product codes instead of skipping them")
	flag.Parse()

	lg := slog.Default()
	if err := run(os.Stdout, lg, opts, flag.Args()); err != nil {
		lg.Error("checkout failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(out io.Writer, lg *slog.Logger, opts options, codes []string) error {
	store, err := yamlfile.Default()
	if opts.catalogFile != "" {
		store, err = yamlfile.Open(opts.catalogFile)
	}
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	b := basket.New(store.Catalog(), store.Rules())
	for _, code := range codes {
		if _, err := store.Catalog().Get(code); err != nil {
			if opts.strict || !errors.Is(err, product.ErrNotFound) {
				return err
			}
			lg.Warn("skipping unknown product", slog.String("code", code))
		}
		b.Add(code)
	}

	if !opts.verbose {
		_, err := fmt.Fprintln(out, b.Total().StringFixed(2))
		return err
	}
	return printReceipt(out, b.Receipt())
}

func printReceipt(out io.Writer, rc basket.Receipt) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, l := range rc.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", l.Code, l.Name, l.Price.StringFixed(2), l.Rule)
	}
	fmt.Fprintf(tw, "\tSubtotal\t%s\t\t\n", rc.Subtotal.StringFixed(2))
	fmt.Fprintf(tw, "\tDiscount\t-%s\t\t\n", rc.Discount.StringFixed(2))
	fmt.Fprintf(tw, "\tTotal\t%s\t\t\n", rc.Total.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, o := range rc.Offers {
		if _, err := fmt.Fprintf(out, "Add %d more %s for %s\n", o.Needed, o.Code, o.Rule); err != nil {
			return err
		}
	}
	return nil
}
