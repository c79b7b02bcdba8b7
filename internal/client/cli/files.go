package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/models"
)

// List prints the records owned by the active account.
func (a *App) List(ctx context.Context) error {
	recs, err := a.files.ListMine(ctx)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		a.println("No files registered")
		return nil
	}

	now := time.Now()
	for _, r := range recs {
		line := r.String()
		if r.Expired(now) {
			line += " [expired]"
		}
		a.println(line)
	}
	return nil
}

// Delete revokes the record of args[0].
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: delete <cid>")
	}

	receipt, err := a.files.DeleteOwned(ctx, args[0])
	if err != nil {
		return err
	}

	a.println("Deleted", args[0], "tx", receipt.TxHash.Hex())
	return nil
}

func (a *App) Orphans(ctx context.Context) error {
	entries, err := a.files.Orphans(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		a.println("No orphaned uploads")
		return nil
	}

	a.println("Published but not registered (select the file again and upload to retry):")
	for _, e := range entries {
		a.println(formatEntry(e))
	}
	return nil
}

func (a *App) History(ctx context.Context) error {
	entries, err := a.files.History(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		a.println("Journal is empty")
		return nil
	}

	for _, e := range entries {
		a.println(formatEntry(e))
	}
	return nil
}

func formatEntry(e *models.UploadEntry) string {
	s := fmt.Sprintf("%s  %-9s %s  %s", e.CreatedAt.Local().Format(time.DateTime), e.Status, e.ContentID, e.FileName)
	if e.Degraded {
		s += " (placeholder id)"
	}
	if e.Error != "" {
		s += ": " + e.Error
	}
	return s
}
