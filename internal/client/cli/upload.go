package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/chainstash/internal/client/models"
)

const defaultDurationDays = 30

var errUploadCancelled = errors.New("upload cancelled")

// Select makes the file at args[0] the one to register.
func (a *App) Select(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: select <path>")
	}

	f, err := a.registration.Select(strings.Join(args, " "))
	if err != nil {
		return err
	}

	a.println("Selected", f.Name(), "("+datasize.ByteSize(f.Size).HR()+")")
	return nil
}

// Quote prints the storage cost for args[0] days at the live ledger price.
func (a *App) Quote(ctx context.Context, args []string) error {
	days := int64(defaultDurationDays)
	if len(args) > 0 {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number of days", args[0])
		}
		days = n
	}

	q, err := a.registration.Quote(ctx, days)
	if err != nil {
		return err
	}

	a.println("Storage cost:", q.String())
	return nil
}

// Upload asks for the storage terms of the selected file, shows the quote
// and, once confirmed, publishes and registers the file.
func (a *App) Upload(ctx context.Context) error {
	f, ok := a.registration.Pending()
	if !ok {
		return errors.New("no file selected, use 'select <path>' first")
	}

	days, err := GetInt(a.reader, "Storage duration in days (1-365)", defaultDurationDays, a.out)
	if err != nil {
		return err
	}

	// fail fast on the price before asking anything else
	q, err := a.registration.Quote(ctx, days)
	if err != nil {
		return err
	}

	encrypted, err := GetYesNo(a.reader, "Mark as encrypted?", false, a.out)
	if err != nil {
		return err
	}
	public, err := GetYesNo(a.reader, "Make public?", true, a.out)
	if err != nil {
		return err
	}

	a.println(fmt.Sprintf("%s: %s", f.Name(), q.String()))
	proceed, err := GetYesNo(a.reader, "Proceed with payment?", false, a.out)
	if err != nil {
		return err
	}
	if !proceed {
		return errUploadCancelled
	}

	res, err := a.registration.Register(ctx, models.RegisterOptions{
		IsEncrypted:  encrypted,
		IsPublic:     public,
		DurationDays: days,
	})
	if err != nil {
		return err
	}

	if res.Publication.Degraded {
		a.println("Warning: no gateway accepted the file; registered placeholder id", res.Publication.ContentID)
	} else {
		a.println("Published", res.Publication.ContentID, "via", res.Publication.Endpoint)
	}
	a.println("Registered in block", res.Receipt.BlockNumber, "tx", res.Receipt.TxHash.Hex())
	a.println("Paid", models.FormatEther(res.Quote.Total), a.session.Chain().CurrencySymbol)
	return nil
}
