// Package manager implements the index manager (component K): the front
// door that owns the tenant registry, the memory budget, the facet cache,
// and the oplog roots, and exposes the ingest and query operations every
// other surface (HTTP API, replication) is built on.
package manager

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/fernsearch/fern/facet"
	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/filter"
	"github.com/fernsearch/fern/manager/task"
	"github.com/fernsearch/fern/memory"
	"github.com/fernsearch/fern/oplog"
	"github.com/fernsearch/fern/query"
	"github.com/fernsearch/fern/rules"
	"github.com/fernsearch/fern/schema"
	"github.com/fernsearch/fern/writer"
)

// maxResultWindow is the hard limit+offset cap from the query API contract.
const maxResultWindow = 1000

// facetScanCap bounds how many matching documents a facet aggregation pass
// reads to build bucket counts. Tenants with more matches than this get an
// approximate count from the first facetScanCap hits rather than a full
// scan; exceeding it is logged rather than silently swallowed.
const facetScanCap = 10000

const (
	settingsFileName      = "settings.json"
	numericFieldsFileName = "numeric_fields.json"
	indexDirName           = "index"
)

// tenantState is one tenant's live, in-memory resources. Load-on-demand:
// constructed the first time a tenant is referenced, retained after that.
type tenantState struct {
	mu sync.Mutex

	name string
	dir  string

	settings           schema.Settings
	knownNumericFields map[string]struct{}

	index  bleve.Index
	writer *writer.ManagedWriter
	log    *oplog.Log
}

// ReplicationHook is notified of every oplog entry committed locally so it
// can be fanned out to peers. Set with SetReplicationHook; nil (the
// standalone default) means no fan-out happens.
type ReplicationHook interface {
	Broadcast(tenant string, entry oplog.Entry)
}

// Manager is the process-wide index manager singleton.
type Manager struct {
	mu      sync.RWMutex
	dataDir string
	log     *zap.Logger

	budget     *memory.Budget
	observer   *memory.Observer
	facetCache *facet.Cache
	tasks      *task.Queue

	replication ReplicationHook

	queueCapacity int
	tenants       map[string]*tenantState
}

// SetReplicationHook wires a peer fan-out target. Not safe to call
// concurrently with writes.
func (m *Manager) SetReplicationHook(h ReplicationHook) {
	m.replication = h
}

// New constructs a Manager rooted at dataDir. budget and observer are
// shared, process-wide singletons; facetCacheCapacity sizes the LRU facet
// cache at Normal pressure.
func New(dataDir string, budget *memory.Budget, observer *memory.Observer, facetCacheCapacity int, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		dataDir:       dataDir,
		log:           log,
		budget:        budget,
		observer:      observer,
		facetCache:    facet.NewCache(facetCacheCapacity),
		tasks:         task.NewQueue(task.DefaultQueueCapacity),
		queueCapacity: writer.DefaultQueueCapacity,
		tenants:       make(map[string]*tenantState),
	}
	return m
}

// Close drains the task queue and closes every materialized tenant.
func (m *Manager) Close() {
	m.tasks.Close()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.tenants {
		m.closeTenant(ts)
	}
}

func (m *Manager) closeTenant(ts *tenantState) {
	if ts.writer != nil {
		ts.writer.Close()
	}
	if err := ts.index.Close(); err != nil {
		m.log.Warn("close tenant index", zap.String("tenant", ts.name), zap.Error(err))
	}
	if err := ts.log.Close(); err != nil {
		m.log.Warn("close tenant oplog", zap.String("tenant", ts.name), zap.Error(err))
	}
}

func (m *Manager) tenantDir(tenant string) string {
	return filepath.Join(m.dataDir, tenant)
}

// TenantDir returns tenant's on-disk directory for callers (snapshot
// export/import) that need direct filesystem access, failing if the
// tenant does not exist.
func (m *Manager) TenantDir(tenant string) (string, error) {
	if _, err := m.getTenant(tenant); err != nil {
		return "", err
	}
	return m.tenantDir(tenant), nil
}

// NewTenantDir returns the on-disk directory a snapshot import should
// extract tenant into, failing if tenant already exists (live or on
// disk) — snapshot.Import itself also refuses an existing destination,
// but checking here first avoids the case where tenant is live in memory
// with no on-disk settings file yet (a tenant created but never
// written to).
func (m *Manager) NewTenantDir(tenant string) (string, error) {
	m.mu.RLock()
	_, live := m.tenants[tenant]
	m.mu.RUnlock()
	if live {
		return "", &ferrors.TenantAlreadyExistsError{Tenant: tenant}
	}
	dir := m.tenantDir(tenant)
	if _, err := os.Stat(filepath.Join(dir, settingsFileName)); err == nil {
		return "", &ferrors.TenantAlreadyExistsError{Tenant: tenant}
	}
	return dir, nil
}

// CreateTenant provisions a fresh on-disk index and oplog for tenant and
// persists its settings. It fails if the tenant already exists, either in
// the live registry or on disk from a prior process.
func (m *Manager) CreateTenant(tenant string, settings schema.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenant]; ok {
		return &ferrors.TenantAlreadyExistsError{Tenant: tenant}
	}
	dir := m.tenantDir(tenant)
	if _, err := os.Stat(filepath.Join(dir, settingsFileName)); err == nil {
		return &ferrors.TenantAlreadyExistsError{Tenant: tenant}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "create tenant directory", err)
	}

	idx, err := bleve.New(filepath.Join(dir, indexDirName), schema.BuildIndexMapping())
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "create tenant index", err)
	}
	lg, err := oplog.Open(m.dataDir, tenant)
	if err != nil {
		idx.Close()
		return err
	}

	ts := &tenantState{
		name:               tenant,
		dir:                dir,
		settings:           settings,
		knownNumericFields: make(map[string]struct{}),
		index:              idx,
		log:                lg,
	}
	if err := persistSettings(dir, settings); err != nil {
		idx.Close()
		lg.Close()
		return err
	}
	if err := persistNumericFields(dir, ts.knownNumericFields); err != nil {
		idx.Close()
		lg.Close()
		return err
	}

	m.tenants[tenant] = ts
	return nil
}

// DeleteTenant tears down and removes every trace of a tenant: its live
// writer, its index, its oplog, and its on-disk directory.
func (m *Manager) DeleteTenant(tenant string) error {
	m.mu.Lock()
	ts, ok := m.tenants[tenant]
	delete(m.tenants, tenant)
	m.mu.Unlock()

	if ok {
		m.closeTenant(ts)
	}
	if err := os.RemoveAll(m.tenantDir(tenant)); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "remove tenant directory", err)
	}
	if err := os.RemoveAll(filepath.Join(m.dataDir, "oplog", tenant)); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "remove tenant oplog directory", err)
	}
	m.facetCache.Invalidate(tenant)
	return nil
}

// getTenant returns the live state for tenant, lazily re-opening it from
// disk (a prior process's CreateTenant) on first reference.
func (m *Manager) getTenant(tenant string) (*tenantState, error) {
	m.mu.RLock()
	ts, ok := m.tenants[tenant]
	m.mu.RUnlock()
	if ok {
		return ts, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ts, ok := m.tenants[tenant]; ok {
		return ts, nil
	}

	dir := m.tenantDir(tenant)
	settings, err := loadSettings(dir)
	if err != nil {
		return nil, &ferrors.TenantNotFoundError{Tenant: tenant}
	}
	numericFields, err := loadNumericFields(dir)
	if err != nil {
		return nil, err
	}
	idx, err := bleve.Open(filepath.Join(dir, indexDirName))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "reopen tenant index", err)
	}
	lg, err := oplog.Open(m.dataDir, tenant)
	if err != nil {
		idx.Close()
		return nil, err
	}

	ts = &tenantState{
		name:               tenant,
		dir:                dir,
		settings:           settings,
		knownNumericFields: numericFields,
		index:              idx,
		log:                lg,
	}
	m.tenants[tenant] = ts
	return ts, nil
}

// Budget returns the shared write-concurrency/size budget, for surfaces
// (health checks, HTTP middleware) that need to report or gate on it
// without duplicating Manager's bookkeeping.
func (m *Manager) Budget() *memory.Budget { return m.budget }

// Observer returns the shared memory-pressure observer, or nil if this
// Manager was built without one.
func (m *Manager) Observer() *memory.Observer { return m.observer }

// FacetCacheStats reports the facet cache's current entry count and
// effective capacity at the current pressure level.
func (m *Manager) FacetCacheStats() (entries, capacity int) {
	return m.facetCache.Len(), m.facetCache.EffectiveCapacity()
}

// RefreshPressure re-derives the facet cache's effective capacity from the
// observer's current reading and returns that level. Write paths do this
// as a side effect of checkWritable; read-only paths (Search) never call
// checkWritable, so callers that need the cache kept in sync on quiet
// read-only traffic (the HTTP pressure-gating middleware) call this
// directly instead.
func (m *Manager) RefreshPressure() memory.PressureLevel {
	if m.observer == nil {
		m.facetCache.SetPressureLevel(memory.Normal)
		return memory.Normal
	}
	level := m.observer.PressureLevel()
	m.facetCache.SetPressureLevel(level)
	return level
}

// checkWritable enforces the Elevated/Critical write-rejection contract:
// Elevated halves the facet cache and rejects writes, Critical sheds it
// entirely and keeps rejecting them (reads are never blocked).
func (m *Manager) checkWritable() error {
	level := m.RefreshPressure()
	switch level {
	case memory.Critical:
		return &ferrors.MemoryPressureError{RetryAfterSeconds: 30}
	case memory.Elevated:
		return &ferrors.MemoryPressureError{RetryAfterSeconds: 5}
	default:
		return nil
	}
}

func (m *Manager) tenantWriter(ts *tenantState) (*writer.ManagedWriter, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.writer != nil && !ts.writer.Failed() {
		return ts.writer, nil
	}
	if ts.writer != nil {
		ts.writer.Close()
	}
	w, err := writer.New(ts.name, ts.index, m.budget, ts.log, m.queueCapacity)
	if err != nil {
		return nil, err
	}
	ts.writer = w
	return w, nil
}

type docItem struct {
	ID     string
	Fields map[string]interface{}
}

type addDocumentsPayload struct {
	Items []docItem `json:"items"`
}

type deleteByQueryPayload struct {
	Filter string   `json:"filter"`
	IDs    []string `json:"ids"`
}

// structuralDocFields are the top-level keys BuildIndexDocument always
// sets; everything else left in the built document is a numeric fast
// field, keyed by its dotted path.
var structuralDocFields = map[string]struct{}{
	schema.IDFieldName:      {},
	schema.BodyFieldName:    {},
	schema.SearchFieldName:  {},
	schema.FacetDocFieldName: {},
}

func (m *Manager) commitDocs(tenant string, items []docItem, oplogKind string) error {
	if err := m.checkWritable(); err != nil {
		return err
	}
	ts, err := m.getTenant(tenant)
	if err != nil {
		return err
	}

	ts.mu.Lock()
	settings := ts.settings
	ts.mu.Unlock()

	ops := make([]writer.IndexOp, 0, len(items))
	newNumericFields := make(map[string]struct{})
	for _, item := range items {
		body, err := sonic.Marshal(item.Fields)
		if err != nil {
			return ferrors.Wrap(ferrors.KindInvalidDocument, "marshal document for size check", err)
		}
		if err := m.budget.ValidateDocumentSize(int64(len(body))); err != nil {
			return err
		}

		indexDoc, err := schema.BuildIndexDocument(item.ID, item.Fields, settings)
		if err != nil {
			return err
		}
		for path, v := range indexDoc {
			if _, structural := structuralDocFields[path]; structural {
				continue
			}
			if _, ok := v.(float64); ok {
				newNumericFields[path] = struct{}{}
			}
		}
		ops = append(ops, writer.IndexOp{ID: item.ID, Doc: indexDoc})
	}

	payload, err := sonic.Marshal(addDocumentsPayload{Items: items})
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "marshal oplog payload", err)
	}

	w, err := m.tenantWriter(ts)
	if err != nil {
		return err
	}
	cmd := &writer.Command{
		Kind:         writer.CommandUpsert,
		Upserts:      ops,
		OplogKind:    oplogKind,
		OplogPayload: payload,
		Done:         make(chan error, 1),
	}
	if err := w.Submit(cmd); err != nil {
		return err
	}
	if err := <-cmd.Done; err != nil {
		return err
	}
	if m.replication != nil {
		m.replication.Broadcast(tenant, cmd.Entry)
	}

	ts.mu.Lock()
	for f := range newNumericFields {
		ts.knownNumericFields[f] = struct{}{}
	}
	numericSnapshot := cloneNumericSet(ts.knownNumericFields)
	ts.mu.Unlock()
	if err := persistNumericFields(ts.dir, numericSnapshot); err != nil {
		return err
	}

	m.facetCache.Invalidate(tenant)
	return nil
}

// AddDocuments upserts a batch of caller-supplied JSON documents,
// resolving a fresh objectID for any document that doesn't carry one.
// Existing IDs are replaced in place.
func (m *Manager) AddDocuments(tenant string, docs []map[string]interface{}) ([]string, error) {
	items := make([]docItem, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, _ := schema.ResolveID(doc)
		items = append(items, docItem{ID: id, Fields: doc})
		ids = append(ids, id)
	}
	if err := m.commitDocs(tenant, items, "add_documents"); err != nil {
		return nil, err
	}
	return ids, nil
}

// PartialUpdate merges patch into the document identified by id,
// creating it if absent.
func (m *Manager) PartialUpdate(tenant, id string, patch map[string]interface{}) error {
	ts, err := m.getTenant(tenant)
	if err != nil {
		return err
	}
	existing, found, err := ts.fetchByID(id)
	if err != nil {
		return err
	}
	merged := existing
	if !found {
		merged = make(map[string]interface{}, len(patch))
	}
	for k, v := range patch {
		merged[k] = v
	}
	return m.commitDocs(tenant, []docItem{{ID: id, Fields: merged}}, "partial_update")
}

// DeleteByQuery deletes every document matching filterText, returning the
// count removed. An empty filter matches every document.
func (m *Manager) DeleteByQuery(tenant, filterText string) (int, error) {
	if err := m.checkWritable(); err != nil {
		return 0, err
	}
	ts, err := m.getTenant(tenant)
	if err != nil {
		return 0, err
	}

	ts.mu.Lock()
	settings := ts.settings
	numericFields := cloneNumericSet(ts.knownNumericFields)
	ts.mu.Unlock()

	fq, err := filter.CompileString(filterText, settings, numericFields)
	if err != nil {
		return 0, err
	}
	ids, err := ts.matchingIDs(fq, math.MaxInt)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	payload, err := sonic.Marshal(deleteByQueryPayload{Filter: filterText, IDs: ids})
	if err != nil {
		return 0, ferrors.Wrap(ferrors.KindIO, "marshal oplog payload", err)
	}
	w, err := m.tenantWriter(ts)
	if err != nil {
		return 0, err
	}
	cmd := &writer.Command{
		Kind:         writer.CommandDeleteByQuery,
		DeleteIDs:    ids,
		OplogKind:    "delete_by_query",
		OplogPayload: payload,
		Done:         make(chan error, 1),
	}
	if err := w.Submit(cmd); err != nil {
		return 0, err
	}
	if err := <-cmd.Done; err != nil {
		return 0, err
	}
	if m.replication != nil {
		m.replication.Broadcast(tenant, cmd.Entry)
	}
	m.facetCache.Invalidate(tenant)
	return len(ids), nil
}

// Clear removes every document for tenant while preserving its settings.
func (m *Manager) Clear(tenant string) (int, error) {
	return m.DeleteByQuery(tenant, "")
}

// SearchRequest is one query against a tenant's index.
type SearchRequest struct {
	QueryText string
	Filter    string
	Sort      []string
	Limit     int
	Offset    int
	Facets    []facet.Request
	Language  string
}

// SearchResult is the outcome of a SearchRequest.
type SearchResult struct {
	Hits   []rules.Hit
	Total  uint64
	Facets map[string][]facet.Bucket
}

// Search runs a query without facet aggregation.
func (m *Manager) Search(tenant string, req SearchRequest) (*SearchResult, error) {
	return m.runSearch(tenant, req, false)
}

// SearchWithFacets runs a query and aggregates the requested facets over
// every matching document, using the facet cache when possible.
func (m *Manager) SearchWithFacets(tenant string, req SearchRequest) (*SearchResult, error) {
	return m.runSearch(tenant, req, true)
}

func (m *Manager) runSearch(tenant string, req SearchRequest, withFacets bool) (*SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit+req.Offset > maxResultWindow {
		return nil, ferrors.InvalidQuery("limit %d + offset %d exceeds maximum of %d", req.Limit, req.Offset, maxResultWindow)
	}

	ts, err := m.getTenant(tenant)
	if err != nil {
		return nil, err
	}
	ts.mu.Lock()
	settings := ts.settings
	numericFields := cloneNumericSet(ts.knownNumericFields)
	ts.mu.Unlock()

	textQuery := query.Parse(req.QueryText, settings, req.Language)
	filterQuery, err := filter.CompileString(req.Filter, settings, numericFields)
	if err != nil {
		return nil, err
	}
	combined := bleve.NewConjunctionQuery([]bq.Query{textQuery, filterQuery})

	bsearch := bleve.NewSearchRequestOptions(combined, req.Limit, req.Offset, false)
	bsearch.Fields = []string{schema.BodyFieldName}
	if len(req.Sort) > 0 {
		bsearch.SortBy(append(append([]string{}, req.Sort...), schema.IDFieldName))
	}

	res, err := ts.index.Search(bsearch)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "execute search", err)
	}

	hits := make([]rules.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		fields, err := decodeBody(h.Fields[schema.BodyFieldName])
		if err != nil {
			return nil, err
		}
		hits = append(hits, rules.Hit{ID: h.ID, Score: h.Score, Fields: fields})
	}

	effects := rules.MatchingEffects(strings.ToLower(req.QueryText), settings.Rules)
	hits, err = rules.Apply(hits, effects, ts.fetchByIDAsHit)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Hits: hits, Total: res.Total}
	if withFacets && len(req.Facets) > 0 {
		buckets, err := m.aggregateFacets(tenant, ts, settings, combined, req)
		if err != nil {
			return nil, err
		}
		result.Facets = buckets
	}
	return result, nil
}

func (m *Manager) aggregateFacets(tenant string, ts *tenantState, settings schema.Settings, combined bq.Query, req SearchRequest) (map[string][]facet.Bucket, error) {
	facetFieldNames := make([]string, len(req.Facets))
	keyParts := make([]string, 0, len(req.Facets)*3)
	for i, r := range req.Facets {
		facetFieldNames[i] = schema.FacetFieldName(r.Field)
		keyParts = append(keyParts, r.Field, r.Path, fmt.Sprintf("%d", r.MaxValues))
	}
	queryFP := facet.Fingerprint(req.QueryText)
	filterFP := facet.Fingerprint(req.Filter)
	facetFP := facet.Fingerprint(keyParts...)

	if cached, ok := m.facetCache.Get(tenant, queryFP, filterFP, facetFP); ok {
		return cached, nil
	}

	countReq := bleve.NewSearchRequestOptions(combined, 0, 0, false)
	countRes, err := ts.index.Search(countReq)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "count matching documents for facets", err)
	}
	scanSize := int(countRes.Total)
	if scanSize > facetScanCap {
		m.log.Warn("facet aggregation truncated",
			zap.String("tenant", tenant), zap.Uint64("total", countRes.Total), zap.Int("scanned", facetScanCap))
		scanSize = facetScanCap
	}
	if scanSize == 0 {
		return facet.Aggregate(nil, req.Facets, settings.MaxValuesPerFacet), nil
	}

	fullReq := bleve.NewSearchRequestOptions(combined, scanSize, 0, false)
	fullReq.Fields = facetFieldNames
	fullRes, err := ts.index.Search(fullReq)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "scan documents for facet aggregation", err)
	}

	docFacetPaths := make([]map[string][]string, 0, len(fullRes.Hits))
	for _, h := range fullRes.Hits {
		perDoc := make(map[string][]string, len(req.Facets))
		for i, r := range req.Facets {
			perDoc[r.Field] = toStringSlice(h.Fields[facetFieldNames[i]])
		}
		docFacetPaths = append(docFacetPaths, perDoc)
	}

	buckets := facet.Aggregate(docFacetPaths, req.Facets, settings.MaxValuesPerFacet)
	m.facetCache.Put(tenant, queryFP, filterFP, facetFP, buckets)
	return buckets, nil
}

// Compact rewrites tenant's oplog, dropping entries that are fully
// superseded by a later entry touching the same document IDs.
func (m *Manager) Compact(tenant string) error {
	ts, err := m.getTenant(tenant)
	if err != nil {
		return err
	}
	entries, err := ts.log.ReadAll()
	if err != nil {
		return err
	}
	keep := buildCompactionKeep(entries)
	return ts.log.Compact(keep)
}

func (ts *tenantState) matchingIDs(q bq.Query, cap int) ([]string, error) {
	countReq := bleve.NewSearchRequestOptions(q, 0, 0, false)
	countRes, err := ts.index.Search(countReq)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "count matching documents", err)
	}
	size := int(countRes.Total)
	if size > cap {
		size = cap
	}
	if size == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := ts.index.Search(req)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "list matching document ids", err)
	}
	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}

func (ts *tenantState) fetchByID(id string) (map[string]interface{}, bool, error) {
	tq := bleve.NewTermQuery(id)
	tq.SetField(schema.IDFieldName)
	req := bleve.NewSearchRequestOptions(tq, 1, 0, false)
	req.Fields = []string{schema.BodyFieldName}
	res, err := ts.index.Search(req)
	if err != nil {
		return nil, false, ferrors.Wrap(ferrors.KindIO, "fetch document by id", err)
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}
	fields, err := decodeBody(res.Hits[0].Fields[schema.BodyFieldName])
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

// fetchByIDAsHit adapts fetchByID to rules.Fetcher's signature.
func (ts *tenantState) fetchByIDAsHit(id string) (map[string]interface{}, bool, error) {
	return ts.fetchByID(id)
}

func decodeBody(v interface{}) (map[string]interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return map[string]interface{}{}, nil
	}
	var fields map[string]interface{}
	if err := sonic.Unmarshal([]byte(s), &fields); err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "decode stored document body", err)
	}
	return fields, nil
}

func toStringSlice(v interface{}) []string {
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{val}
	default:
		return nil
	}
}

func cloneNumericSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func persistSettings(dir string, settings schema.Settings) error {
	b, err := sonic.Marshal(settings)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "marshal tenant settings", err)
	}
	if err := os.WriteFile(filepath.Join(dir, settingsFileName), b, 0o644); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "persist tenant settings", err)
	}
	return nil
}

func loadSettings(dir string) (schema.Settings, error) {
	b, err := os.ReadFile(filepath.Join(dir, settingsFileName))
	if err != nil {
		return schema.Settings{}, err
	}
	var settings schema.Settings
	if err := sonic.Unmarshal(b, &settings); err != nil {
		return schema.Settings{}, ferrors.Wrap(ferrors.KindIO, "decode tenant settings", err)
	}
	return settings, nil
}

func persistNumericFields(dir string, fields map[string]struct{}) error {
	list := make([]string, 0, len(fields))
	for f := range fields {
		list = append(list, f)
	}
	sort.Strings(list)
	b, err := sonic.Marshal(list)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "marshal known numeric fields", err)
	}
	if err := os.WriteFile(filepath.Join(dir, numericFieldsFileName), b, 0o644); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "persist known numeric fields", err)
	}
	return nil
}

func loadNumericFields(dir string) (map[string]struct{}, error) {
	b, err := os.ReadFile(filepath.Join(dir, numericFieldsFileName))
	if os.IsNotExist(err) {
		return make(map[string]struct{}), nil
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "read known numeric fields", err)
	}
	var list []string
	if err := sonic.Unmarshal(b, &list); err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "decode known numeric fields", err)
	}
	out := make(map[string]struct{}, len(list))
	for _, f := range list {
		out[f] = struct{}{}
	}
	return out, nil
}

// affectedIDs returns the document IDs an oplog entry touched, decoded from
// its kind-specific payload. An unrecognized kind returns nil, which
// buildCompactionKeep treats as "always keep" (conservative default).
func affectedIDs(e oplog.Entry) []string {
	switch e.Kind {
	case "add_documents", "partial_update":
		var p addDocumentsPayload
		if err := sonic.Unmarshal(e.Payload, &p); err != nil {
			return nil
		}
		ids := make([]string, len(p.Items))
		for i, it := range p.Items {
			ids[i] = it.ID
		}
		return ids
	case "delete_by_query":
		var p deleteByQueryPayload
		if err := sonic.Unmarshal(e.Payload, &p); err != nil {
			return nil
		}
		return p.IDs
	default:
		return nil
	}
}

// buildCompactionKeep computes, for each oplog entry, whether it still
// carries information not superseded by a later entry. Because entries are
// never split, a batch entry is kept in full if any of the IDs it touches
// is still "live" as of that entry (no later entry also touches it).
func buildCompactionKeep(entries []oplog.Entry) func(oplog.Entry) bool {
	lastSeqForID := make(map[string]uint64)
	touched := make([][]string, len(entries))
	for i, e := range entries {
		ids := affectedIDs(e)
		touched[i] = ids
		for _, id := range ids {
			lastSeqForID[id] = e.Seq
		}
	}
	keepSeq := make(map[uint64]bool, len(entries))
	for i, e := range entries {
		if len(touched[i]) == 0 {
			keepSeq[e.Seq] = true
			continue
		}
		for _, id := range touched[i] {
			if lastSeqForID[id] == e.Seq {
				keepSeq[e.Seq] = true
				break
			}
		}
	}
	return func(e oplog.Entry) bool { return keepSeq[e.Seq] }
}
