package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/dentdocs/internal/client/journal"
	"github.com/dmitrijs2005/dentdocs/internal/client/store"
)

type orphanView struct {
	ObjectKey string    `json:"objectKey"`
	OwnerID   string    `json:"ownerId"`
	FileName  string    `json:"fileName"`
	AttemptID string    `json:"attemptId"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *App) orphansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Inspect and reconcile uploads that were sent but never confirmed",
	}
	cmd.AddCommand(a.orphansListCommand(), a.orphansRetryCommand(), a.orphansSweepCommand())
	return cmd
}

func (a *App) orphansListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open entries of the local orphan journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withJournal(cmd.Context(), func(repo journal.Repository) error {
				return a.listOrphans(cmd.Context(), cmd.OutOrStdout(), repo)
			})
		},
	}
}

func (a *App) listOrphans(ctx context.Context, w io.Writer, repo journal.Repository) error {
	entries, err := repo.ListOpen(ctx)
	if err != nil {
		return err
	}

	if !a.tty(w) {
		enc := jsonLines(w)
		for _, e := range entries {
			v := orphanView{ObjectKey: e.ObjectKey, OwnerID: e.OwnerID, FileName: e.FileName, AttemptID: e.AttemptID, Reason: e.Reason, CreatedAt: e.CreatedAt}
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No orphaned uploads.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "OBJECT KEY\tPATIENT\tFILE\tSINCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ObjectKey, e.OwnerID, e.FileName, e.CreatedAt.Local().Format(timeLayout))
	}
	return tw.Flush()
}

func (a *App) orphansRetryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry [object-key]...",
		Short: "Confirm journaled uploads again without resending their bytes",
		Long: "Confirm journaled uploads again without resending their bytes.\n" +
			"With no arguments every open entry is retried.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(func(st store.Store) error {
				return a.withJournal(ctx, func(repo journal.Repository) error {
					return a.retryOrphans(ctx, cmd.OutOrStdout(), journal.NewReconciler(repo, st, a.logger), args)
				})
			})
		},
	}
}

func (a *App) retryOrphans(ctx context.Context, w io.Writer, r *journal.Reconciler, keys []string) error {
	var results []journal.RetryResult
	if len(keys) == 0 {
		var err error
		if results, err = r.RetryAll(ctx); err != nil {
			return err
		}
	} else {
		for _, k := range keys {
			results = append(results, r.RetryOne(ctx, k))
		}
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No orphaned uploads.")
		return nil
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(w, "%s: %v\n", res.Entry.ObjectKey, res.Err)
			continue
		}
		fmt.Fprintf(w, "%s: confirmed\n", res.Entry.ObjectKey)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d orphans not reconciled", failed, len(results))
	}
	return nil
}

func (a *App) orphansSweepCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire unconfirmed reservations on the document store (manager only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			return a.withStore(func(st store.Store) error {
				rep, err := st.SweepOrphans(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, deleted %d, expired %d, failed %d\n",
					rep.Scanned, rep.Deleted, rep.Expired, rep.Failed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0,
		"expire reservations created longer ago than this (0 expires those past their deadline)")
	return cmd
}
