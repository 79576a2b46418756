package localstore

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/veclite"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the store.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=localstore
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Payload keys of stored records.
const (
	payloadID       = "_id"
	payloadDocument = "_document"
	payloadMetadata = "_metadata"
)

// Store is a directory of collections backed by one veclite database.
// It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	dir       string
	ephemeral bool
	db        *veclite.DB
	catalog   *catalog
	colls     map[string]*veclite.Collection
	closed    bool
}

// row is a stored item together with its veclite record id.
type row struct {
	recordID uint64
	item     vectordb.Item
}

// Open opens or creates the store in dir. An empty dir creates an ephemeral
// store in a temporary directory.
func Open(dir string) (*Store, error) {
	ephemeral := dir == ""
	if ephemeral {
		tmp, err := os.MkdirTemp("", "vectorinspector-*")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	cat, err := loadCatalog(dir)
	if err != nil {
		return nil, err
	}

	db, err := veclite.Open(filepath.Join(dir, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open veclite database: %w", err)
	}

	s := &Store{
		dir:       dir,
		ephemeral: ephemeral,
		db:        db,
		catalog:   cat,
		colls:     make(map[string]*veclite.Collection),
	}
	for _, spec := range cat.Collections {
		coll, err := s.openCollection(spec)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.colls[spec.Name] = coll
	}
	return s, nil
}

func (s *Store) openCollection(spec CollectionSpec) (*veclite.Collection, error) {
	if coll, err := s.db.GetCollection(spec.Name); err == nil {
		return coll, nil
	}
	// Dot products are ranked by a full scan, so their index uses cosine.
	distance := veclite.DistanceCosine
	if spec.Distance == vectordb.DistanceEuclidean {
		distance = veclite.DistanceEuclidean
	}
	return s.db.CreateCollection(spec.Name,
		veclite.WithDimension(spec.Dimension),
		veclite.WithDistanceType(distance),
		veclite.WithHNSW(DefaultHNSWM, DefaultHNSWEfConstruction),
	)
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Ephemeral reports whether the store lives in a temporary directory.
func (s *Store) Ephemeral() bool { return s.ephemeral }

// Close syncs and closes the database. Ephemeral stores are deleted.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.db.Close()
	if s.ephemeral {
		if rmErr := os.RemoveAll(s.dir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// Collections returns the collection names in sorted order.
func (s *Store) Collections() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	names := make([]string, 0, len(s.catalog.Collections))
	for _, spec := range s.catalog.Collections {
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Spec returns the catalog entry of a collection.
func (s *Store) Spec(name string) (CollectionSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return CollectionSpec{}, ErrClosed
	}
	spec, ok := s.catalog.find(name)
	if !ok {
		return CollectionSpec{}, fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	return spec, nil
}

// SetMetadata merges md into the catalog metadata of a collection.
func (s *Store) SetMetadata(name string, md map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	spec, ok := s.catalog.find(name)
	if !ok {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	if spec.Metadata == nil {
		spec.Metadata = map[string]string{}
	}
	for k, v := range md {
		spec.Metadata[k] = v
	}
	s.catalog.put(spec)
	return s.catalog.save(s.dir)
}

// Create adds an empty collection.
func (s *Store) Create(name string, dimension int, distance vectordb.Distance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.catalog.find(name); ok {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionExists, name)
	}
	spec := CollectionSpec{
		Name:      name,
		Dimension: dimension,
		Distance:  distance,
		CreatedAt: time.Now().UTC(),
	}
	// A stale engine collection without catalog entry is replaced.
	_ = s.db.DropCollection(name)
	coll, err := s.openCollection(spec)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	s.colls[name] = coll
	s.catalog.put(spec)
	if err := s.catalog.save(s.dir); err != nil {
		return err
	}
	return s.db.Sync()
}

// Drop removes a collection and its items.
func (s *Store) Drop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.catalog.find(name); !ok {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	if err := s.db.DropCollection(name); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	delete(s.colls, name)
	s.catalog.remove(name)
	if err := s.catalog.save(s.dir); err != nil {
		return err
	}
	return s.db.Sync()
}

// collection returns the engine collection and its spec. Callers hold s.mu.
func (s *Store) collection(name string) (*veclite.Collection, CollectionSpec, error) {
	if s.closed {
		return nil, CollectionSpec{}, ErrClosed
	}
	spec, ok := s.catalog.find(name)
	coll := s.colls[name]
	if !ok || coll == nil {
		return nil, CollectionSpec{}, fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	return coll, spec, nil
}

// Upsert inserts items, replacing any item with the same id.
func (s *Store) Upsert(name string, items []vectordb.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsert(name, items)
}

// Update reads the items with the given ids, passes them to merge and writes
// back what merge returns, all under one lock.
func (s *Store) Update(name string, ids []string, merge func(existing *vectordb.ItemBatch) []vectordb.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.get(name, ids)
	if err != nil {
		return err
	}
	return s.upsert(name, merge(existing))
}

// upsert writes items. Callers hold s.mu.
func (s *Store) upsert(name string, items []vectordb.Item) error {
	coll, spec, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, it := range items {
		if len(it.Embedding) != spec.Dimension {
			return fmt.Errorf("%w: item %s has %d values, collection %s expects %d",
				ErrDimensionMismatch, it.ID, len(it.Embedding), name, spec.Dimension)
		}
	}
	for _, it := range items {
		if _, err := coll.DeleteWhere(veclite.Equal(payloadID, it.ID)); err != nil {
			return fmt.Errorf("replace item %s: %w", it.ID, err)
		}
		payload, err := encodePayload(it)
		if err != nil {
			return err
		}
		if _, err := coll.Insert(it.Embedding, payload); err != nil {
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	return s.db.Sync()
}

// Delete removes items by id. Unknown ids are ignored.
func (s *Store) Delete(name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, _, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := coll.DeleteWhere(veclite.Equal(payloadID, id)); err != nil {
			return fmt.Errorf("delete item %s: %w", id, err)
		}
	}
	return s.db.Sync()
}

// Count returns the number of items in a collection.
func (s *Store) Count(name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, _, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	return int64(coll.Count()), nil
}

// Get returns the items with the given ids in request order.
func (s *Store) Get(name string, ids []string) (*vectordb.ItemBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(name, ids)
}

// get reads items by id. Callers hold s.mu.
func (s *Store) get(name string, ids []string) (*vectordb.ItemBatch, error) {
	coll, _, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	out := vectordb.NewItemBatch(len(ids), true)
	for _, id := range ids {
		records, err := coll.Find(veclite.Equal(payloadID, id))
		if err != nil || len(records) == 0 {
			continue
		}
		it, err := decodeRecord(records[0].Payload, records[0].Vector)
		if err != nil {
			return nil, err
		}
		out.Append(it)
	}
	return out, nil
}

// Scan returns the items matching filter in insertion order, skipping offset
// matches and returning at most limit items (0 = all).
func (s *Store) Scan(name string, filter *vectordb.FilterSet, offset, limit int) (*vectordb.ItemBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, _, err := s.rows(name)
	if err != nil {
		return nil, err
	}
	matched := vectordb.NewItemBatch(len(rows), true)
	for _, r := range rows {
		if filter.Matches(r.item.Metadata) {
			matched.Append(r.item)
		}
	}
	return matched.Slice(offset, limit), nil
}

// Search returns the n items closest to vector that match filter.
func (s *Store) Search(name string, vector []float32, n int, filter *vectordb.FilterSet) (*vectordb.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, spec, err := s.rows(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, collection %s expects %d",
			ErrDimensionMismatch, len(vector), name, spec.Dimension)
	}

	type scored struct {
		item vectordb.Item
		dist float32
	}
	candidates := make([]scored, 0, len(rows))
	for _, r := range rows {
		if !filter.Matches(r.item.Metadata) {
			continue
		}
		candidates = append(candidates, scored{item: r.item, dist: Distance(spec.Distance, vector, r.item.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return closer(spec.Distance, candidates[i].dist, candidates[j].dist)
	})
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}

	res := &vectordb.SearchResult{ItemBatch: *vectordb.NewItemBatch(len(candidates), true)}
	res.Distances = make([]float32, 0, len(candidates))
	for _, c := range candidates {
		res.Append(c.item)
		res.Distances = append(res.Distances, c.dist)
	}
	return res, nil
}

// rows loads every item of a collection ordered by record id. Callers hold s.mu.
func (s *Store) rows(name string) ([]row, CollectionSpec, error) {
	coll, spec, err := s.collection(name)
	if err != nil {
		return nil, CollectionSpec{}, err
	}
	var rows []row
	for _, r := range coll.All() {
		it, err := decodeRecord(r.Payload, r.Vector)
		if err != nil {
			return nil, CollectionSpec{}, err
		}
		rows = append(rows, row{recordID: r.ID, item: it})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].recordID < rows[j].recordID })
	return rows, spec, nil
}

func encodePayload(it vectordb.Item) (map[string]any, error) {
	md := it.Metadata
	if md == nil {
		md = map[string]any{}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode metadata of %s: %w", it.ID, err)
	}
	payload := map[string]any{
		payloadID:       it.ID,
		payloadMetadata: string(raw),
	}
	if it.Document != nil {
		payload[payloadDocument] = *it.Document
	}
	return payload, nil
}

func decodeRecord(payload map[string]any, vector []float32) (vectordb.Item, error) {
	it := vectordb.Item{Metadata: map[string]any{}}
	it.ID, _ = payload[payloadID].(string)
	if doc, ok := payload[payloadDocument].(string); ok {
		it.Document = &doc
	}
	if raw, ok := payload[payloadMetadata].(string); ok && raw != "" {
		md, err := vectordb.DecodeMetadata([]byte(raw))
		if err != nil {
			return vectordb.Item{}, fmt.Errorf("decode metadata of %s: %w", it.ID, err)
		}
		it.Metadata = md
	}
	it.Embedding = append([]float32(nil), vector...)
	return it, nil
}

// Distance computes the distance reported for a metric: 1 - cosine
// similarity, the L2 norm of the difference, or the raw inner product.
func Distance(metric vectordb.Distance, a, b []float32) float32 {
	n := min(len(a), len(b))
	switch metric {
	case vectordb.DistanceEuclidean:
		var sum float64
		for i := 0; i < n; i++ {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return float32(math.Sqrt(sum))
	case vectordb.DistanceDot:
		var dot float64
		for i := 0; i < n; i++ {
			dot += float64(a[i]) * float64(b[i])
		}
		return float32(dot)
	default:
		var dot, na, nb float64
		for i := 0; i < n; i++ {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
	}
}

// closer orders results: larger inner products rank first, other metrics
// rank ascending.
func closer(metric vectordb.Distance, a, b float32) bool {
	if metric == vectordb.DistanceDot {
		return a > b
	}
	return a < b
}
