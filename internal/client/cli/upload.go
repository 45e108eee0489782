package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/dentdocs/internal/client/journal"
	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/client/store"
	"github.com/dmitrijs2005/dentdocs/internal/client/upload"
	"github.com/dmitrijs2005/dentdocs/internal/filex"
)

const sniffLen = 512

type uploadResult struct {
	path    string
	outcome upload.Outcome
	err     error
}

func (a *App) uploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <patient> <file>...",
		Short: "Upload files to a patient's documents",
		Long: "Upload files to a patient's documents. Files are uploaded concurrently.\n" +
			"Ctrl-C cancels uploads that are still reserving or sending; uploads\n" +
			"already being saved run to completion.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() { err = errors.Join(err, a.writeMetrics()) }()

			ctx := cmd.Context()
			return a.withStore(func(st store.Store) error {
				return a.withJournal(ctx, func(repo journal.Repository) error {
					sigs, stop := a.notify()
					defer stop()
					return a.upload(ctx, cmd.OutOrStdout(), a.coordinator(st, repo), args[0], args[1:], sigs)
				})
			})
		},
	}
}

func readUploadRequest(patient, path string) (models.UploadRequest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return models.UploadRequest{}, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return models.UploadRequest{
		OwnerID:     patient,
		FileName:    name,
		ContentType: filex.DetectContentType(name, payload[:min(len(payload), sniffLen)]),
		Payload:     payload,
	}, nil
}

// upload runs one attempt per path and waits for all of them. Every value
// received on sigs asks the coordinator to cancel the attempts.
func (a *App) upload(ctx context.Context, w io.Writer, coord *upload.Coordinator, patient string, paths []string, sigs <-chan os.Signal) error {
	reqs := make([]models.UploadRequest, 0, len(paths))
	for _, p := range paths {
		req, err := readUploadRequest(patient, p)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	results := make([]uploadResult, len(reqs))
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := coord.Upload(ctx, req)
			results[i] = uploadResult{path: paths[i], outcome: out, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

wait:
	for {
		select {
		case <-done:
			break wait
		case <-sigs:
			cancelAll(w, coord, reqs)
		}
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			a.logger.Debug(ctx, "upload failed", "file", r.path, "attempt_id", r.outcome.AttemptID, "error", r.err)
			fmt.Fprintf(w, "%s: %s\n", r.path, upload.UserMessage(r.err))
			if key, orphaned := upload.NeedsReconciliation(r.err); orphaned {
				fmt.Fprintf(w, "%s: set aside as %s; run \"dentctl orphans retry\" to save it\n", r.path, key)
			}
			continue
		}
		fmt.Fprintf(w, "%s: uploaded as %s\n", r.path, r.outcome.Record.ObjectKey)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func cancelAll(w io.Writer, coord *upload.Coordinator, reqs []models.UploadRequest) {
	for _, req := range reqs {
		err := coord.Cancel(req.OwnerID, req.FileName)
		switch {
		case err == nil:
			fmt.Fprintf(w, "%s: canceling\n", req.FileName)
		case errors.Is(err, upload.ErrCancellationRefused):
			fmt.Fprintf(w, "%s: %s\n", req.FileName, upload.UserMessage(err))
		}
	}
}
