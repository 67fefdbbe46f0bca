package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// multipartThreshold is the payload size above which archive uploads switch
// to the multipart path.
const multipartThreshold = 8 * 1024 * 1024

// ScanArchiver writes each completed scan's result set to object storage as
// one date-partitioned JSONL file. Archives are append-only history: the
// primary store keeps only the live window, the bucket keeps everything.
type ScanArchiver struct {
	writer *Writer
	now    func() time.Time
}

// NewScanArchiver creates a ScanArchiver uploading through the given Writer.
func NewScanArchiver(writer *Writer) *ScanArchiver {
	return &ScanArchiver{
		writer: writer,
		now:    time.Now,
	}
}

// ArchiveScan serializes the batch to JSONL and uploads it under
// scans/YYYY-MM-DD/HHMMSS.jsonl. Empty batches are skipped.
func (a *ScanArchiver) ArchiveScan(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return fmt.Errorf("s3blob: archive scan marshal: %w", err)
	}

	path := scanPath(a.now().UTC())
	if int64(len(buf)) > multipartThreshold {
		if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize); err != nil {
			return fmt.Errorf("s3blob: archive scan upload: %w", err)
		}
		return nil
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive scan upload: %w", err)
	}
	return nil
}

// scanPath builds the S3 key for one scan's archive file.
//
//	scans/2026-08-30/142957.jsonl
func scanPath(ts time.Time) string {
	return fmt.Sprintf("scans/%s/%s.jsonl", ts.Format("2006-01-02"), ts.Format("150405"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
