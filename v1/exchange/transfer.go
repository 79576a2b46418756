package exchange

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// DefaultImportBatchSize is the number of items sent per AddItems call.
const DefaultImportBatchSize = 100

// Write encodes b in the given format. includeEmbeddings only affects CSV;
// JSON always carries the vectors present in the batch.
func Write(w io.Writer, b *vectordb.ItemBatch, format Format, includeEmbeddings bool) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, b)
	case FormatCSV:
		return WriteCSV(w, b, includeEmbeddings)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Read decodes a batch in the given format.
func Read(r io.Reader, format Format) (*vectordb.ItemBatch, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(r)
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ExportFile writes b to path, choosing the format from the extension.
func ExportFile(path string, b *vectordb.ItemBatch, includeEmbeddings bool) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, b, format, includeEmbeddings); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ImportFile reads a batch from path, choosing the format from the extension.
func ImportFile(path string) (*vectordb.ItemBatch, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format)
}

// ExportCollection scans a collection with embeddings and writes it to w.
// A limit of zero exports up to vectordb.DefaultScanCap items.
func ExportCollection(ctx context.Context, conn vectordb.Connection, collection string, w io.Writer, format Format, limit int) (int, error) {
	b, err := conn.GetAllItems(ctx, collection, vectordb.ScanOptions{Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", collection, err)
	}
	if err := Write(w, b, format, true); err != nil {
		return 0, err
	}
	return b.Len(), nil
}

// ImportCollection adds b to a collection in chunks of batchSize items
// (DefaultImportBatchSize when zero). It stops at the first failing chunk
// and reports how many items were added before it.
func ImportCollection(ctx context.Context, conn vectordb.Connection, collection string, b *vectordb.ItemBatch, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}
	added := 0
	for start := 0; start < b.Len(); start += batchSize {
		chunk := b.Slice(start, batchSize)
		if err := conn.AddItems(ctx, collection, ToAddRequest(chunk)); err != nil {
			return added, fmt.Errorf("import %s: %w", collection, err)
		}
		added += chunk.Len()
	}
	return added, nil
}

// ToAddRequest converts a batch into an AddItems request. Missing documents
// become empty strings. Embeddings are passed only when every item has
// one; otherwise the adapter generates them.
func ToAddRequest(b *vectordb.ItemBatch) vectordb.AddRequest {
	n := b.Len()
	req := vectordb.AddRequest{
		IDs:       make([]string, n),
		Documents: make([]string, n),
		Metadatas: make([]map[string]any, n),
	}
	complete := b.HasEmbeddings()
	for i := 0; i < n; i++ {
		it := b.Item(i)
		req.IDs[i] = it.ID
		req.Documents[i] = deref(it.Document)
		req.Metadatas[i] = it.Metadata
		if len(it.Embedding) == 0 {
			complete = false
		}
	}
	if complete {
		req.Embeddings = make([][]float32, n)
		for i := 0; i < n; i++ {
			req.Embeddings[i] = b.Embeddings[i]
		}
	}
	return req
}
