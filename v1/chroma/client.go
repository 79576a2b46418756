package chroma

import (
	"context"
	"encoding/json"
	"fmt"

	chromav2 "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// api is the part of the Chroma client the adapter drives. Data calls take
// the resolved collection so a stale handle surfaces as not found.
type api interface {
	Heartbeat(ctx context.Context) error
	ListDatabases(ctx context.Context, tenant string) ([]string, error)
	ListCollections(ctx context.Context) ([]remoteCollection, error)
	CreateCollection(ctx context.Context, name string, metadata map[string]any) (remoteCollection, error)
	GetCollection(ctx context.Context, name string) (remoteCollection, error)
	DeleteCollection(ctx context.Context, name string) error

	Add(ctx context.Context, coll remoteCollection, in records) error
	Upsert(ctx context.Context, coll remoteCollection, in records) error
	Get(ctx context.Context, coll remoteCollection, req getRequest) (getResponse, error)
	Query(ctx context.Context, coll remoteCollection, req queryRequest) (queryResponse, error)
	Delete(ctx context.Context, coll remoteCollection, ids []string) error
	Count(ctx context.Context, coll remoteCollection) (int, error)

	Close() error
}

// sdkAPI implements api with chroma-go's v2 HTTP client.
type sdkAPI struct {
	client chromav2.Client
}

func dialSDK(cfg Config) (api, error) {
	opts := []chromav2.ClientOption{
		chromav2.WithBaseURL(cfg.BaseURL()),
		chromav2.WithDatabaseAndTenant(cfg.Database, cfg.Tenant),
		chromav2.WithTimeout(cfg.Timeout),
	}
	if cfg.APIKey != "" {
		opts = append(opts, chromav2.WithAuth(
			chromav2.NewTokenAuthCredentialsProvider(cfg.APIKey, chromav2.XChromaTokenHeader),
		))
	}
	client, err := chromav2.NewHTTPClient(opts...)
	if err != nil {
		return nil, err
	}
	return &sdkAPI{client: client}, nil
}

func (s *sdkAPI) Heartbeat(ctx context.Context) error {
	return translateError(s.client.Heartbeat(ctx))
}

func (s *sdkAPI) ListDatabases(ctx context.Context, tenant string) ([]string, error) {
	dbs, err := s.client.ListDatabases(ctx, chromav2.NewTenant(tenant))
	if err != nil {
		return nil, translateError(err)
	}
	names := make([]string, 0, len(dbs))
	for _, db := range dbs {
		names = append(names, db.Name())
	}
	return names, nil
}

func (s *sdkAPI) ListCollections(ctx context.Context) ([]remoteCollection, error) {
	colls, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]remoteCollection, 0, len(colls))
	for _, c := range colls {
		out = append(out, fromSDKCollection(c))
	}
	return out, nil
}

func (s *sdkAPI) CreateCollection(ctx context.Context, name string, metadata map[string]any) (remoteCollection, error) {
	c, err := s.client.CreateCollection(ctx, name,
		chromav2.WithCollectionMetadataCreate(chromav2.NewMetadataFromMap(metadata)),
		chromav2.WithEmbeddingFunctionCreate(suppliedEmbeddings{}),
	)
	if err != nil {
		return remoteCollection{}, translateError(err)
	}
	return fromSDKCollection(c), nil
}

func (s *sdkAPI) GetCollection(ctx context.Context, name string) (remoteCollection, error) {
	c, err := s.client.GetCollection(ctx, name, chromav2.WithEmbeddingFunctionGet(suppliedEmbeddings{}))
	if err != nil {
		return remoteCollection{}, translateError(err)
	}
	return fromSDKCollection(c), nil
}

func (s *sdkAPI) DeleteCollection(ctx context.Context, name string) error {
	return translateError(s.client.DeleteCollection(ctx, name))
}

func (s *sdkAPI) Add(ctx context.Context, coll remoteCollection, in records) error {
	opts, err := in.addOptions()
	if err != nil {
		return err
	}
	return translateError(coll.handle.Add(ctx, opts...))
}

func (s *sdkAPI) Upsert(ctx context.Context, coll remoteCollection, in records) error {
	opts, err := in.addOptions()
	if err != nil {
		return err
	}
	return translateError(coll.handle.Upsert(ctx, opts...))
}

func (s *sdkAPI) Get(ctx context.Context, coll remoteCollection, req getRequest) (getResponse, error) {
	opts := []chromav2.CollectionGetOption{chromav2.WithIncludeGet(includes(req.Include)...)}
	if len(req.IDs) > 0 {
		opts = append(opts, chromav2.WithIDsGet(documentIDs(req.IDs)...))
	}
	if len(req.Where) > 0 {
		w := rawWhere(req.Where)
		opts = append(opts, chromav2.WithWhereGet(&w))
	}
	if req.Limit != nil {
		opts = append(opts, chromav2.WithLimitGet(*req.Limit))
	}
	if req.Offset != nil && *req.Offset > 0 {
		opts = append(opts, chromav2.WithOffsetGet(*req.Offset))
	}
	res, err := coll.handle.Get(ctx, opts...)
	if err != nil {
		return getResponse{}, translateError(err)
	}
	return getResponse{
		IDs:        stringIDs(res.GetIDs()),
		Documents:  documentTexts(res.GetDocuments()),
		Metadatas:  metadataMaps(res.GetMetadatas()),
		Embeddings: vectors(res.GetEmbeddings()),
	}, nil
}

func (s *sdkAPI) Query(ctx context.Context, coll remoteCollection, req queryRequest) (queryResponse, error) {
	embs := make([]embeddings.Embedding, len(req.QueryEmbeddings))
	for i, v := range req.QueryEmbeddings {
		embs[i] = embeddings.NewEmbeddingFromFloat32(v)
	}
	opts := []chromav2.CollectionQueryOption{
		chromav2.WithQueryEmbeddings(embs...),
		chromav2.WithNResults(req.NResults),
		chromav2.WithIncludeQuery(includes(req.Include)...),
	}
	if len(req.Where) > 0 {
		w := rawWhere(req.Where)
		opts = append(opts, chromav2.WithWhereQuery(&w))
	}
	res, err := coll.handle.Query(ctx, opts...)
	if err != nil {
		return queryResponse{}, translateError(err)
	}

	var out queryResponse
	for _, ids := range res.GetIDGroups() {
		out.IDs = append(out.IDs, stringIDs(ids))
	}
	for _, docs := range res.GetDocumentsGroups() {
		out.Documents = append(out.Documents, documentTexts(docs))
	}
	for _, mds := range res.GetMetadatasGroups() {
		out.Metadatas = append(out.Metadatas, metadataMaps(mds))
	}
	for _, embs := range res.GetEmbeddingsGroups() {
		out.Embeddings = append(out.Embeddings, vectors(embs))
	}
	for _, ds := range res.GetDistancesGroups() {
		group := make([]float32, len(ds))
		for i, d := range ds {
			group[i] = float32(d)
		}
		out.Distances = append(out.Distances, group)
	}
	return out, nil
}

func (s *sdkAPI) Delete(ctx context.Context, coll remoteCollection, ids []string) error {
	return translateError(coll.handle.Delete(ctx, chromav2.WithIDsDelete(documentIDs(ids)...)))
}

func (s *sdkAPI) Count(ctx context.Context, coll remoteCollection) (int, error) {
	n, err := coll.handle.Count(ctx)
	return n, translateError(err)
}

func (s *sdkAPI) Close() error {
	return s.client.Close()
}

func fromSDKCollection(c chromav2.Collection) remoteCollection {
	out := remoteCollection{ID: c.ID(), Name: c.Name(), Metadata: map[string]any{}, handle: c}
	if md := c.Metadata(); md != nil {
		for _, k := range md.Keys() {
			if v, ok := md.GetRaw(k); ok {
				out.Metadata[k] = v
			}
		}
	}
	if d := c.Dimension(); d > 0 {
		out.Dimension = &d
	}
	return out
}

// addOptions builds the options shared by add and upsert. Vectors are
// always supplied, so the collection's embedding function is never used.
func (r records) addOptions() ([]chromav2.CollectionAddOption, error) {
	embs := make([]embeddings.Embedding, len(r.Embeddings))
	for i, v := range r.Embeddings {
		embs[i] = embeddings.NewEmbeddingFromFloat32(v)
	}
	opts := []chromav2.CollectionAddOption{
		chromav2.WithIDs(documentIDs(r.IDs)...),
		chromav2.WithEmbeddings(embs...),
	}
	if texts, ok := r.texts(); ok {
		opts = append(opts, chromav2.WithTexts(texts...))
	}
	if len(r.Metadatas) > 0 {
		mds := make([]chromav2.DocumentMetadata, len(r.Metadatas))
		for i, m := range r.Metadatas {
			md, err := chromav2.NewDocumentMetadataFromMap(m)
			if err != nil {
				return nil, fmt.Errorf("%w: metadata of %q: %v", vectordb.ErrInvalidArgument, r.IDs[i], err)
			}
			mds[i] = md
		}
		opts = append(opts, chromav2.WithMetadatas(mds...))
	}
	return opts, nil
}

// texts returns the documents when at least one is set. Missing documents
// are sent as empty strings.
func (r records) texts() ([]string, bool) {
	out := make([]string, len(r.Documents))
	set := false
	for i, d := range r.Documents {
		if d != nil {
			out[i] = *d
			set = true
		}
	}
	return out, set
}

func includes(in []string) []chromav2.Include {
	out := make([]chromav2.Include, len(in))
	for i, s := range in {
		out[i] = chromav2.Include(s)
	}
	return out
}

func documentIDs(ids []string) []chromav2.DocumentID {
	out := make([]chromav2.DocumentID, len(ids))
	for i, id := range ids {
		out[i] = chromav2.DocumentID(id)
	}
	return out
}

func stringIDs(ids chromav2.DocumentIDs) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func documentTexts(docs chromav2.Documents) []*string {
	out := make([]*string, len(docs))
	for i, d := range docs {
		if d != nil {
			s := d.ContentString()
			out[i] = &s
		}
	}
	return out
}

func metadataMaps(mds chromav2.DocumentMetadatas) []map[string]any {
	out := make([]map[string]any, len(mds))
	for i, md := range mds {
		if md == nil {
			continue
		}
		m := map[string]any{}
		for _, k := range md.Keys() {
			if v, ok := md.GetRaw(k); ok {
				m[k] = v
			}
		}
		out[i] = m
	}
	return out
}

func vectors(embs embeddings.Embeddings) [][]float32 {
	out := make([][]float32, len(embs))
	for i, e := range embs {
		if e != nil {
			out[i] = e.ContentAsFloat32()
		}
	}
	return out
}

// rawWhere passes a compiled where document through as is.
type rawWhere map[string]any

func (w rawWhere) String() string {
	b, _ := json.Marshal(map[string]any(w))
	return string(b)
}

func (w rawWhere) Validate() error { return nil }

func (w rawWhere) MarshalJSON() ([]byte, error) { return json.Marshal(map[string]any(w)) }

func (w *rawWhere) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*w = m
	return nil
}

// suppliedEmbeddings is the embedding function of every collection the
// adapter opens. The adapter embeds documents itself before writing.
type suppliedEmbeddings struct{}

func (suppliedEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	return nil, ErrEmbeddingsRequired
}

func (suppliedEmbeddings) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	return nil, ErrEmbeddingsRequired
}
