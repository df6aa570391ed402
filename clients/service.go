// ABOUTME: Client persistence service over a document store and an analyzer
// ABOUTME: Implements create, get, list, update, delete, analyze, stats, bulk status and insights

package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/agencycrm/analysis"
	"github.com/harperreed/agencycrm/docstore"
	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

// DefaultCollection holds client documents.
const DefaultCollection = "clients"

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// prefixSentinel closes a prefix range: every string starting with the
// prefix sorts at or below prefix+prefixSentinel.
const prefixSentinel = "\uf8ff"

// Operation names used in logs and metrics.
const (
	OpCreate           = "create"
	OpGet              = "get"
	OpList             = "list"
	OpUpdate           = "update"
	OpDelete           = "delete"
	OpAnalyze          = "analyze"
	OpStats            = "stats"
	OpBulkUpdateStatus = "bulk_update_status"
	OpInsights         = "insights"
)

var (
	ErrNotFound     = errors.New("client not found")
	ErrCreateFailed = errors.New("failed to create client")
)

// CreateResult is returned by Create. Analysis is nil when analysis was
// deferred after a failure.
type CreateResult struct {
	ID       string             `json:"id"`
	Analysis *models.AIAnalysis `json:"analysis,omitempty"`
}

// ListResult is one page of clients plus the total matching count.
type ListResult struct {
	Clients []models.Client `json:"clients"`
	Total   int             `json:"total"`
}

// Service is the client persistence façade.
type Service struct {
	store      docstore.Store
	analyzer   analysis.Analyzer
	collection string
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	deferred   bool
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock sets the clock used for lastQACheck, lastAnalyzed on create and
// for defaulting missing timestamps on read.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDeferredAnalysis lets Create store a client without analysis when
// the analyzer fails.
func WithDeferredAnalysis(enabled bool) Option {
	return func(s *Service) { s.deferred = enabled }
}

func WithCollection(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.collection = name
		}
	}
}

// NewService wires a store handle and an analyzer.
func NewService(store docstore.Store, analyzer analysis.Analyzer, opts ...Option) *Service {
	s := &Service{
		store:      store,
		analyzer:   analyzer,
		collection: DefaultCollection,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns the collection the service reads and writes.
func (s *Service) Collection() string {
	return s.collection
}

// Create validates the form, analyzes it and stores a new client.
func (s *Service) Create(ctx context.Context, form models.ClientFormData) (res *CreateResult, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(OpCreate, start, err) }()

	form = form.WithDefaults()
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	now := s.now()
	provisional := form.Client(now)

	var result *models.AIAnalysis
	a, aerr := s.analyzer.AnalyzeClient(ctx, &provisional)
	switch {
	case aerr == nil:
		a.LastAnalyzed = now
		result = &a
	case s.deferred:
		s.logger.Warn("Client analysis failed, storing without analysis",
			zap.String("op", OpCreate), zap.String("name", form.Name), zap.Error(aerr))
	default:
		s.logger.Error("Client analysis failed",
			zap.String("op", OpCreate), zap.String("name", form.Name), zap.Error(aerr))
		return nil, fmt.Errorf("%w: analysis: %w", ErrCreateFailed, aerr)
	}

	fields := formFields(form)
	fields[fieldLastQACheck] = now
	fields[fieldQAStatus] = models.QAPending
	fields[fieldQAScore] = 0
	fields[fieldPerformanceScore] = 0
	if result != nil {
		fields[fieldAIAnalysis] = analysisFields(*result, now)
	}
	fields[fieldCreatedAt] = docstore.ServerTimestamp
	fields[fieldUpdatedAt] = docstore.ServerTimestamp
	fields[fieldLastContact] = docstore.ServerTimestamp

	id, err := s.store.Add(ctx, s.collection, fields)
	if err != nil {
		s.logger.Error("Failed to store client",
			zap.String("op", OpCreate), zap.String("name", form.Name), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	s.logger.Info("Client created", zap.String("op", OpCreate), zap.String("client_id", id))
	return &CreateResult{ID: id, Analysis: result}, nil
}

// storableID reports whether id could name a stored document. Ids the
// store would reject can never match a client, so callers treat them as
// not found.
func storableID(id string) bool {
	return docstore.ValidateName("document id", id) == nil
}

// Get returns (nil, nil) when no client has the id.
func (s *Service) Get(ctx context.Context, id string) (c *models.Client, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(OpGet, start, err) }()

	if !storableID(id) {
		return nil, nil
	}
	snap, err := s.store.Get(ctx, s.collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to fetch client",
			zap.String("op", OpGet), zap.String("client_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	return clientFromSnapshot(snap, s.now()), nil
}

// listQuery builds the filtered, ordered query for a filter.
func (s *Service) listQuery(f models.ClientsFilter) docstore.Query {
	q := docstore.NewQuery(s.collection)
	filtered := false

	if f.Search != "" {
		q = q.Where(fieldName, docstore.OpGreaterOrEqual, f.Search).
			Where(fieldName, docstore.OpLessOrEqual, f.Search+prefixSentinel)
		filtered = true
	}

	equalities := []struct {
		field, value string
	}{
		{fieldStatus, f.Status},
		{fieldServiceType, f.ServiceType},
		{fieldServiceTier, f.ServiceTier},
		{fieldPaymentStatus, f.PaymentStatus},
	}
	for _, eq := range equalities {
		if eq.value == "" || eq.value == models.FilterAll {
			continue
		}
		q = q.Where(eq.field, docstore.OpEqual, eq.value)
		filtered = true
	}

	if filtered {
		return q.OrderBy(fieldName, docstore.Ascending)
	}
	return q.OrderBy(fieldCreatedAt, docstore.Descending)
}

// List returns one page of clients. A failing query is logged and reported
// as an empty page.
func (s *Service) List(ctx context.Context, f models.ClientsFilter) (*ListResult, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.ObserveOperation(OpList, start, err) }()

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := s.listQuery(f)
	empty := &ListResult{Clients: []models.Client{}, Total: 0}

	total, err := s.store.Count(ctx, q)
	if err != nil {
		s.logger.Error("Failed to count clients", zap.String("op", OpList), zap.Error(err))
		return empty, nil
	}

	offset := (page - 1) * limit
	docs, err := s.store.Query(ctx, q.Window(offset, limit))
	if err != nil {
		s.logger.Error("Failed to list clients", zap.String("op", OpList), zap.Error(err))
		return empty, nil
	}
	// Count and Query are separate reads; a write between them must not
	// leave the total short of what this page already shows.
	if seen := offset + len(docs); total < seen {
		total = seen
	}

	now := s.now()
	out := make([]models.Client, 0, len(docs))
	for i := range docs {
		out = append(out, *clientFromSnapshot(&docs[i], now))
	}
	return &ListResult{Clients: out, Total: total}, nil
}

// Update merges the supplied fields and refreshes updatedAt.
func (s *Service) Update(ctx context.Context, id string, u models.ClientUpdate) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(OpUpdate, start, err) }()

	if err := u.Validate(); err != nil {
		return err
	}
	if !storableID(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	fields := updateFields(u)
	fields[fieldUpdatedAt] = docstore.ServerTimestamp

	err = s.store.Update(ctx, s.collection, id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		s.logger.Error("Failed to update client",
			zap.String("op", OpUpdate), zap.String("client_id", id), zap.Error(err))
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// Delete removes the client. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(OpDelete, start, err) }()

	if !storableID(id) {
		return nil
	}
	if err = s.store.Delete(ctx, s.collection, id); err != nil {
		s.logger.Error("Failed to delete client",
			zap.String("op", OpDelete), zap.String("client_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return nil
}

// Analyze re-runs analysis on the stored record and saves the result.
func (s *Service) Analyze(ctx context.Context, id string) (out models.AIAnalysis, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(OpAnalyze, start, err) }()

	c, err := s.Get(ctx, id)
	if err != nil {
		return models.AIAnalysis{}, err
	}
	if c == nil {
		return models.AIAnalysis{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	a, err := s.analyzer.AnalyzeClient(ctx, c)
	if err != nil {
		s.logger.Error("Client analysis failed",
			zap.String("op", OpAnalyze), zap.String("client_id", id), zap.Error(err))
		return models.AIAnalysis{}, fmt.Errorf("failed to analyze client: %w", err)
	}

	err = s.store.Update(ctx, s.collection, id, docstore.Fields{
		fieldAIAnalysis: analysisFields(a, docstore.ServerTimestamp),
		fieldUpdatedAt:  docstore.ServerTimestamp,
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return models.AIAnalysis{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		s.logger.Error("Failed to store analysis",
			zap.String("op", OpAnalyze), zap.String("client_id", id), zap.Error(err))
		return models.AIAnalysis{}, fmt.Errorf("failed to store analysis: %w", err)
	}

	// Report the timestamp the store actually resolved.
	a.LastAnalyzed = s.now()
	if stored, gerr := s.Get(ctx, id); gerr == nil && stored != nil && stored.AIAnalysis != nil {
		a.LastAnalyzed = stored.AIAnalysis.LastAnalyzed
	}
	return a, nil
}

// All returns every client in the collection.
func (s *Service) All(ctx context.Context) ([]models.Client, error) {
	docs, err := s.store.Query(ctx, docstore.NewQuery(s.collection))
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]models.Client, 0, len(docs))
	for i := range docs {
		out = append(out, *clientFromSnapshot(&docs[i], now))
	}
	return out, nil
}

// Stats folds every client into totals. A failing scan is logged and
// reported as zero stats.
func (s *Service) Stats(ctx context.Context) (*models.ClientStats, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.ObserveOperation(OpStats, start, err) }()

	stats := &models.ClientStats{
		ByStatus:  map[string]int{},
		ByService: map[string]int{},
	}

	var all []models.Client
	all, err = s.All(ctx)
	if err != nil {
		s.logger.Error("Failed to compute client stats", zap.String("op", OpStats), zap.Error(err))
		return stats, nil
	}

	for _, c := range all {
		stats.Total++
		stats.Revenue += c.MonthlyRetainer

		status := c.Status
		if status == "" {
			status = unknownValue
		}
		stats.ByStatus[status]++

		service := c.ServiceType
		if service == "" {
			service = unknownValue
		}
		stats.ByService[service]++

		if c.Status == models.StatusActive {
			stats.ActiveClients++
		}
	}
	return stats, nil
}

// BulkUpdateStatus sets one status on every id in a single atomic batch.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status string) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(OpBulkUpdateStatus, start, err) }()

	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: status %q", models.ErrInvalidClient, status)
	}

	seen := make(map[string]bool, len(ids))
	batch := docstore.NewBatch()
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !storableID(id) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		batch.Update(s.collection, id, docstore.Fields{
			fieldStatus:    status,
			fieldUpdatedAt: docstore.ServerTimestamp,
		})
	}
	if batch.Len() == 0 {
		return nil
	}

	err = s.store.Commit(ctx, batch)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err != nil {
		s.logger.Error("Bulk status update failed",
			zap.String("op", OpBulkUpdateStatus), zap.Int("count", batch.Len()), zap.Error(err))
		return fmt.Errorf("failed to update client statuses: %w", err)
	}

	s.logger.Info("Bulk status update committed",
		zap.String("op", OpBulkUpdateStatus), zap.Int("count", batch.Len()), zap.String("status", status))
	return nil
}

// GenerateInsights forwards every client to the analyzer.
func (s *Service) GenerateInsights(ctx context.Context) (out *models.Insights, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(OpInsights, start, err) }()

	all, err := s.All(ctx)
	if err != nil {
		s.logger.Error("Failed to load clients for insights", zap.String("op", OpInsights), zap.Error(err))
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}

	insights, err := s.analyzer.GenerateInsights(ctx, all)
	if err != nil {
		s.logger.Error("Insights generation failed", zap.String("op", OpInsights), zap.Error(err))
		return nil, fmt.Errorf("failed to generate insights: %w", err)
	}
	return &insights, nil
}
