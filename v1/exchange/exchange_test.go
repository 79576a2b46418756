package exchange

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func strPtr(s string) *string { return &s }

func sampleBatch() *vectordb.ItemBatch {
	return vectordb.BatchFromItems([]vectordb.Item{
		{
			ID:        "a",
			Document:  strPtr("first, with comma"),
			Metadata:  map[string]any{"year": int64(2024), "score": 0.5, "tags": []any{"x", "y"}},
			Embedding: []float32{0.1, 0.2},
		},
		{
			ID:        "b",
			Document:  nil,
			Metadata:  map[string]any{"source": "wiki", "draft": true},
			Embedding: []float32{0.3, 0.4},
		},
	}, true)
}

func TestJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleBatch()))
	assert.Contains(t, buf.String(), `"document": null`)

	b, err := ReadJSON(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"a", "b"}, b.IDs)
	assert.Equal(t, "first, with comma", *b.Documents[0])
	assert.Nil(t, b.Documents[1])
	assert.Equal(t, int64(2024), b.Metadatas[0]["year"])
	assert.Equal(t, 0.5, b.Metadatas[0]["score"])
	assert.Equal(t, []any{"x", "y"}, b.Metadatas[0]["tags"])
	assert.Equal(t, []float32{0.3, 0.4}, b.Embeddings[1])
}

func TestJSON_WithoutEmbeddings(t *testing.T) {
	in := vectordb.BatchFromItems([]vectordb.Item{{ID: "a", Document: strPtr("d")}}, false)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, in))
	assert.NotContains(t, buf.String(), "embedding")
	assert.Contains(t, buf.String(), `"metadata": {}`)

	b, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.False(t, b.HasEmbeddings())
	assert.NotNil(t, b.Metadatas[0])
}

func TestJSON_Malformed(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"id": "not an array"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCSV_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBatch(), true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,document,metadata_draft,metadata_score,metadata_source,metadata_tags,metadata_year,embedding", lines[0])
	assert.Equal(t, `a,"first, with comma",,0.5,,"[""x"",""y""]",2024,"[0.1,0.2]"`, lines[1])
	assert.Equal(t, `b,,true,,wiki,,,"[0.3,0.4]"`, lines[2])
}

func TestCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBatch(), true))

	b, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())

	assert.Equal(t, map[string]any{"year": int64(2024), "score": 0.5, "tags": []any{"x", "y"}}, b.Metadatas[0])
	assert.Equal(t, map[string]any{"source": "wiki", "draft": true}, b.Metadatas[1])
	assert.Equal(t, "", *b.Documents[1])
	assert.Equal(t, []float32{0.1, 0.2}, b.Embeddings[0])
}

func TestCSV_WithoutEmbeddings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBatch(), false))
	assert.NotContains(t, buf.String(), "embedding")

	b, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.False(t, b.HasEmbeddings())
}

func TestReadCSV_Inference(t *testing.T) {
	in := "\ufeffid,metadata_n,metadata_f,metadata_b,metadata_s,metadata_nan,embedding\n" +
		"1,7,1.5,False,hello,NaN,\n"

	b, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "1", b.IDs[0])
	assert.Nil(t, b.Documents[0])
	assert.Equal(t, map[string]any{
		"n": int64(7), "f": 1.5, "b": false, "s": "hello", "nan": "NaN",
	}, b.Metadatas[0])
	assert.True(t, b.HasEmbeddings())
	assert.Empty(t, b.Embeddings[0])
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("document\nx\n"))
	assert.ErrorIs(t, err, ErrMissingIDColumn)

	_, err = ReadCSV(strings.NewReader("id,embedding\na,[1,\n"))
	assert.ErrorIs(t, err, ErrMalformed)

	b, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, b.Len())
}

func TestFormat(t *testing.T) {
	f, err := FormatFromPath("/tmp/out.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = FormatFromPath("out.parquet")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.ErrorIs(t, Write(&bytes.Buffer{}, sampleBatch(), "xml", false), ErrUnsupportedFormat)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"items.json", "items.csv"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, ExportFile(path, sampleBatch(), true))

			b, err := ImportFile(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, b.IDs)
			assert.Equal(t, []float32{0.3, 0.4}, b.Embeddings[1])
		})
	}
}

func TestToAddRequest(t *testing.T) {
	req := ToAddRequest(sampleBatch())
	assert.Equal(t, []string{"a", "b"}, req.IDs)
	assert.Equal(t, []string{"first, with comma", ""}, req.Documents)
	require.Len(t, req.Embeddings, 2)
	require.NoError(t, vectordb.ValidateAdd(req))

	partial := sampleBatch()
	partial.Embeddings[1] = nil
	assert.Nil(t, ToAddRequest(partial).Embeddings)
}

// recordingConnection captures AddItems calls and serves one fixed scan.
type recordingConnection struct {
	vectordb.Connection
	scan  *vectordb.ItemBatch
	added [][]string
	err   error
}

func (r *recordingConnection) AddItems(_ context.Context, _ string, in vectordb.AddRequest) error {
	if r.err != nil && len(r.added) > 0 {
		return r.err
	}
	r.added = append(r.added, in.IDs)
	return nil
}

func (r *recordingConnection) GetAllItems(context.Context, string, vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	return r.scan, r.err
}

func TestImportCollection_Chunks(t *testing.T) {
	items := make([]vectordb.Item, 5)
	for i := range items {
		items[i] = vectordb.Item{ID: string(rune('a' + i)), Document: strPtr("d")}
	}
	conn := &recordingConnection{}

	n, err := ImportCollection(context.Background(), conn, "docs", vectordb.BatchFromItems(items, false), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, conn.added)
}

func TestImportCollection_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	conn := &recordingConnection{err: boom}

	n, err := ImportCollection(context.Background(), conn, "docs", sampleBatch(), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestExportCollection(t *testing.T) {
	conn := &recordingConnection{scan: sampleBatch()}

	var buf bytes.Buffer
	n, err := ExportCollection(context.Background(), conn, "docs", &buf, FormatCSV, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), ",embedding\n")
}
