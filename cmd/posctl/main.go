package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/config"
	"github.com/ariefcatur/go-venue-pos/internal/events"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
	"github.com/ariefcatur/go-venue-pos/internal/storage"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

const usage = `usage: posctl <command> [flags]

commands:
  migrate                                   apply database migrations
  add-client  -name -contact                create a client
  add-item    -name -stock -price           create an inventory item
  restock     -id -qty                      add stock to an item
  set-price   -id -price                    change an item's unit price
  append      -type -specific -method -amount -desc
                                            record a manual treasury transaction
  reconcile   -id [-date YYYY-MM-DD]        reconcile one treasury transaction
  close       [-until YYYY-MM-DD] [-date YYYY-MM-DD]
                                            reconcile everything dated on or before until
  balance                                   print the treasury balances
  verify                                    replay the treasury chain`

// errChainBroken exits with status 2 rather than 1.
var errChainBroken = errors.New("treasury chain broken")

var errUsage = errors.New(usage)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if err := run(context.Background(), cfg, os.Stdout, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errChainBroken) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fail(err)
	}
}

// run executes one command against the configured store and closes it on
// every path.
func run(ctx context.Context, cfg config.Config, out io.Writer, cmd string, args []string) error {
	log := logger.New(cfg.ServiceName+"-ctl", cfg.LogLevel)

	st, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	inv := inventory.NewService(st, log)
	tre := treasury.NewService(st, events.Nop, cfg.ServiceName+"-ctl", log)
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "migrate":
		if err := st.Migrate(ctx, log); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "add-client":
		name := fs.String("name", "", "client name")
		contact := fs.String("contact", "", "contact info")
		if err := fs.Parse(args); err != nil {
			return err
		}
		c, err := st.CreateClient(ctx, *name, *contact)
		if err != nil {
			return err
		}
		return printJSON(out, c)

	case "add-item":
		name := fs.String("name", "", "item name")
		stock := fs.Int("stock", 0, "initial stock")
		price := fs.String("price", "", "unit price")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := parseAmount(*price)
		if err != nil {
			return err
		}
		it, err := inv.Create(ctx, *name, *stock, p)
		if err != nil {
			return err
		}
		return printJSON(out, it)

	case "restock":
		id := fs.String("id", "", "inventory item id")
		qty := fs.Int("qty", 0, "quantity to add")
		if err := fs.Parse(args); err != nil {
			return err
		}
		it, err := inv.Restock(ctx, *id, *qty)
		if err != nil {
			return err
		}
		return printJSON(out, it)

	case "set-price":
		id := fs.String("id", "", "inventory item id")
		price := fs.String("price", "", "new unit price")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := parseAmount(*price)
		if err != nil {
			return err
		}
		it, err := inv.SetPrice(ctx, *id, p)
		if err != nil {
			return err
		}
		return printJSON(out, it)

	case "append":
		typ := fs.String("type", string(treasury.TypeExpense), "income or expense")
		specific := fs.String("specific", string(treasury.SpecificOther), "specific type")
		method := fs.String("method", string(treasury.MethodCash), "cash or visa")
		amount := fs.String("amount", "", "positive amount")
		desc := fs.String("desc", "", "description")
		if err := fs.Parse(args); err != nil {
			return err
		}
		a, err := parseAmount(*amount)
		if err != nil {
			return err
		}
		t, err := tre.Append(ctx, treasury.Entry{
			Amount:        a,
			Type:          treasury.Type(*typ),
			SpecificType:  treasury.SpecificType(*specific),
			PaymentMethod: treasury.Method(*method),
			Description:   *desc,
		})
		if err != nil {
			return err
		}
		return printJSON(out, t)

	case "reconcile":
		id := fs.String("id", "", "treasury transaction id")
		date := fs.String("date", "", "reconciliation date (default today)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		d, err := dateOrToday(*date)
		if err != nil {
			return err
		}
		t, err := tre.Reconcile(ctx, *id, d)
		if err != nil {
			return err
		}
		return printJSON(out, t)

	case "close":
		until := fs.String("until", "", "close transactions dated on or before (default today)")
		date := fs.String("date", "", "reconciliation date (default today)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := dateOrToday(*until)
		if err != nil {
			return err
		}
		d, err := dateOrToday(*date)
		if err != nil {
			return err
		}
		n, err := tre.Close(ctx, u, d)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d transactions reconciled\n", n)
		return nil

	case "balance":
		b, err := tre.Balance(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, b)

	case "verify":
		n, err := tre.Verify(ctx)
		if err != nil {
			return fmt.Errorf("%w after checking %d transactions: %v", errChainBroken, n, err)
		}
		fmt.Fprintf(out, "treasury chain ok: %d transactions\n", n)
		return nil

	default:
		return errUsage
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func dateOrToday(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
