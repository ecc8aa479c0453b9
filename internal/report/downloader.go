package report

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/queue"
)

// Downloader drains report jobs and stores the DOCX artifacts locally.
// Report generation is strictly secondary: a failure here is logged
// and dropped, it never revisits the submission that queued it.
type Downloader struct {
	API *apiclient.Client
	Dir string
}

// New creates a downloader writing into dir.
func New(api *apiclient.Client, dir string) *Downloader {
	return &Downloader{API: api, Dir: dir}
}

// Run consumes jobs until the channel closes or ctx is done.
func (d *Downloader) Run(ctx context.Context, jobs <-chan queue.Job) {
	for job := range jobs {
		path, err := d.Fetch(ctx, job)
		if err != nil {
			log.Printf("report %s (%s %s) failed: %v", job.ID, job.Kind, job.RecordID, err)
			continue
		}
		log.Printf("report %s saved to %s", job.ID, path)
	}
}

// Fetch downloads one record's report and returns the stored path.
func (d *Downloader) Fetch(ctx context.Context, job queue.Job) (string, error) {
	kind := apiclient.RecordKind(job.Kind)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown record kind %q", job.Kind)
	}
	data, err := d.API.DownloadReport(ctx, kind, job.RecordID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(d.Dir, fmt.Sprintf("%s_%s.docx", kind, job.RecordID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
