// Package gcs archives raw uploaded statements in a Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"time"

	"cloud.google.com/go/storage"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/google/uuid"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Archive stores each document under raw/<account>/<yyyy/mm/dd>/<uuid>-<name>.
type Archive struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

var _ portssvc.DocumentArchive = (*Archive)(nil)

// NewArchive uses Application Default Credentials.
func NewArchive(ctx context.Context, bucket string) (*Archive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Archive{client: client, bucket: bucket, now: time.Now}, nil
}

// Archive uploads doc and returns its gs:// URI.
func (a *Archive) Archive(ctx context.Context, accountID string, doc domain.Document) (string, error) {
	name := objectName(accountID, doc.Filename, uuid.NewString(), a.now().UTC())

	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = doc.MIMEType
	w.Metadata = map[string]string{
		"account_id":        accountID,
		"original_filename": doc.Filename,
	}
	if _, err := w.Write(doc.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, name), nil
}

// Close releases the storage client.
func (a *Archive) Close() error {
	return a.client.Close()
}

func objectName(accountID, filename, id string, at time.Time) string {
	base := unsafeNameChars.ReplaceAllString(path.Base(filename), "_")
	if base == "" || base == "." || base == "_" {
		base = "document"
	}
	return path.Join("raw", unsafeNameChars.ReplaceAllString(accountID, "_"), at.Format("2006/01/02"), id+"-"+base)
}
