package cli

import (
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/client/store"
)

type documentView struct {
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Format       string    `json:"format"`
	ObjectKey    string    `json:"objectKey"`
	CreatedAt    time.Time `json:"createdAt"`
	RetrievalURL string    `json:"retrievalUrl,omitempty"`
}

func viewOf(d *models.DocumentRecord) documentView {
	return documentView{
		OwnerID:      d.OwnerID,
		Name:         d.DisplayName,
		Format:       d.Format,
		ObjectKey:    d.ObjectKey,
		CreatedAt:    d.CreatedAt,
		RetrievalURL: d.RetrievalURL,
	}
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <patient>",
		Short: "List a patient's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st store.Store) error {
				return a.list(cmd.Context(), cmd.OutOrStdout(), st, args[0])
			})
		},
	}
}

func (a *App) list(ctx context.Context, w io.Writer, st store.Store, patient string) error {
	docs := st.ListDocuments(ctx, patient)
	if a.tty(w) {
		return printDocumentTable(w, docs)
	}
	enc := jsonLines(w)
	for d, err := range docs {
		if err != nil {
			return err
		}
		if err := enc.Encode(viewOf(d)); err != nil {
			return err
		}
	}
	return nil
}

func printDocumentTable(w io.Writer, docs iter.Seq2[*models.DocumentRecord, error]) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tFORMAT\tCREATED\tOBJECT KEY")

	n := 0
	for d, err := range docs {
		if err != nil {
			_ = tw.Flush()
			return err
		}
		n++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.DisplayName, d.Format, d.CreatedAt.Local().Format(timeLayout), d.ObjectKey)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(w, "No documents.")
	}
	return nil
}
