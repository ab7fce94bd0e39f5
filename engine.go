package dynaplan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/kartikbazzad/dynaplan/internal/condition"
	"github.com/kartikbazzad/dynaplan/internal/config"
	dperrors "github.com/kartikbazzad/dynaplan/internal/errors"
	"github.com/kartikbazzad/dynaplan/internal/executor"
	"github.com/kartikbazzad/dynaplan/internal/logger"
	"github.com/kartikbazzad/dynaplan/internal/materialize"
	"github.com/kartikbazzad/dynaplan/internal/metrics"
	"github.com/kartikbazzad/dynaplan/internal/planner"
	"github.com/kartikbazzad/dynaplan/internal/schema"
)

// Re-exported collaborator types. The schema catalog, the record shape,
// and the condition constructors are the engine's public vocabulary.
type (
	Record     = materialize.Record
	Mapper     = materialize.Mapper
	Condition  = condition.Condition
	Catalog    = schema.Catalog
	Descriptor = schema.Descriptor
	Config     = config.Config
	Client     = executor.Client
	FailedItem = executor.FailedItem
)

// Condition constructors.
var (
	Eq    = condition.Eq
	In    = condition.In
	Range = condition.Range
)

// Range operators accepted by Range.
const (
	OpLt  = condition.OpLt
	OpLte = condition.OpLte
	OpGt  = condition.OpGt
	OpGte = condition.OpGte
)

// Engine error sentinels, matchable with errors.Is.
var (
	ErrNotFound             = dperrors.ErrNotFound
	ErrUnknownRecordType    = dperrors.ErrUnknownRecordType
	ErrUnsupportedOperator  = dperrors.ErrUnsupportedOperator
	ErrConflictingCondition = dperrors.ErrConflictingCondition
	ErrMapping              = dperrors.ErrMapping
	ErrUnprocessedItems     = dperrors.ErrUnprocessedItems
	ErrStoreUnavailable     = dperrors.ErrStoreUnavailable
)

// WriteResult reports a batch write outcome. Failed items carry their
// index in the submitted record list.
type WriteResult struct {
	Succeeded int
	Failed    []FailedItem
}

// DeleteResult reports a conditional delete outcome.
type DeleteResult struct {
	Deleted int
	Failed  []FailedItem
}

// Engine is the caller-facing facade wiring catalog, planner, executor,
// and materializer. All four operations are synchronous; chunked work
// runs concurrently inside the executor.
type Engine struct {
	catalog *schema.Catalog
	cfg     *config.Config
	logger  *logger.Logger
	planner *planner.Planner
	exec    *executor.Executor
	mat     *materialize.Materializer
}

// New creates an engine. mapper, cfg, and log may be nil, selecting the
// attributevalue-backed mapper, default config, and stderr logger.
func New(client executor.Client, catalog *schema.Catalog, mapper materialize.Mapper, cfg *config.Config, log *logger.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Default()
	}
	if mapper == nil {
		mapper = materialize.NewDefaultMapper()
	}

	retry := dperrors.NewRetryControllerWith(cfg.Executor.InitialBackoff, cfg.Executor.MaxBackoff, cfg.Executor.MaxRetries)
	exec, err := executor.New(client, cfg, retry, log)
	if err != nil {
		return nil, err
	}

	return &Engine{
		catalog: catalog,
		cfg:     cfg,
		logger:  log,
		planner: planner.New(catalog, cfg.Planner.PlanCacheSize, log),
		exec:    exec,
		mat:     materialize.New(mapper),
	}, nil
}

// Close releases the executor's worker pool.
func (e *Engine) Close() {
	e.exec.Release()
}

// FetchOne retrieves a single record by its full primary key. Returns
// ErrNotFound when no item exists under the key.
func (e *Engine) FetchOne(ctx context.Context, recordType string, key Record) (Record, error) {
	start := time.Now()
	log := e.opLogger("fetch_one")

	conds := make([]Condition, 0, len(key))
	for field, value := range key {
		conds = append(conds, condition.Eq(field, value))
	}

	set, err := condition.Normalize(conds)
	if err != nil {
		return nil, e.observe("fetch_one", start, err)
	}

	plans, err := e.planner.PlanAccess(recordType, set)
	if err != nil {
		return nil, e.observe("fetch_one", start, err)
	}
	if len(plans) != 1 || plans[0].Kind != planner.KindGet {
		err := fmt.Errorf("%w: key must pin the full primary key of %s", dperrors.ErrUnsupportedOperator, recordType)
		return nil, e.observe("fetch_one", start, err)
	}

	res, err := e.exec.ExecutePlan(ctx, &plans[0])
	if err != nil {
		return nil, e.observe("fetch_one", start, err)
	}
	if len(res.Items) == 0 {
		return nil, e.observe("fetch_one", start, dperrors.ErrNotFound)
	}

	records, err := e.mat.Records(res.Items, plans[0].Residual)
	if err != nil {
		return nil, e.observe("fetch_one", start, err)
	}
	if len(records) == 0 {
		return nil, e.observe("fetch_one", start, dperrors.ErrNotFound)
	}

	log.Debug("fetched %s %v", recordType, key)
	return records[0], e.observe("fetch_one", start, nil)
}

// FetchMany retrieves every record matching the condition set. Fan-out
// sub-plans execute independently; their results concatenate. When the
// retry budget leaves batch-get keys unprocessed, the records found so
// far are returned together with ErrUnprocessedItems.
func (e *Engine) FetchMany(ctx context.Context, recordType string, conds []Condition) ([]Record, error) {
	start := time.Now()
	log := e.opLogger("fetch_many")

	set, err := condition.Normalize(conds)
	if err != nil {
		return nil, e.observe("fetch_many", start, err)
	}

	plans, err := e.planner.PlanAccess(recordType, set)
	if err != nil {
		return nil, e.observe("fetch_many", start, err)
	}
	e.warnOnScan(log, recordType, plans)

	var records []Record
	var unprocessed int
	for i := range plans {
		res, err := e.exec.ExecutePlan(ctx, &plans[i])
		if err != nil {
			// Exhausted unprocessed keys still come with the items that
			// did resolve; keep them and report the shortfall below.
			if res == nil || !errors.Is(err, dperrors.ErrUnprocessedItems) {
				return nil, e.observe("fetch_many", start, err)
			}
		}
		unprocessed += len(res.UnprocessedKeys)

		recs, err := e.mat.Records(res.Items, plans[i].Residual)
		if err != nil {
			return nil, e.observe("fetch_many", start, err)
		}
		records = append(records, recs...)
	}

	if unprocessed > 0 {
		log.Warn("fetch_many %s: %d keys unprocessed after retries", recordType, unprocessed)
		return records, e.observe("fetch_many", start, dperrors.ErrUnprocessedItems)
	}

	log.Debug("fetch_many %s: %d record(s) from %d plan(s)", recordType, len(records), len(plans))
	return records, e.observe("fetch_many", start, nil)
}

// WriteMany upserts records in store-compliant chunks. The store
// overwrites by key, so repeating a fully successful call succeeds
// again. A record that fails mapping never aborts its siblings; it is
// reported in Failed and the rest proceed.
func (e *Engine) WriteMany(ctx context.Context, recordType string, records []Record) (*WriteResult, error) {
	start := time.Now()
	log := e.opLogger("write_many")

	desc, err := e.catalog.Describe(recordType)
	if err != nil {
		return nil, e.observe("write_many", start, err)
	}

	result := &WriteResult{}
	reqs := make([]types.WriteRequest, 0, len(records))
	origIdx := make([]int, 0, len(records))

	for i, rec := range records {
		item, err := e.mat.ToItem(rec)
		if err != nil {
			result.Failed = append(result.Failed, FailedItem{Index: i, Err: err})
			continue
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		origIdx = append(origIdx, i)
	}

	wres, err := e.exec.BatchWrite(ctx, desc.TableName, reqs)
	if err != nil {
		return nil, e.observe("write_many", start, err)
	}

	result.Succeeded = wres.Succeeded
	for _, f := range wres.Failed {
		if f.Index >= 0 && f.Index < len(origIdx) {
			f.Index = origIdx[f.Index]
		}
		result.Failed = append(result.Failed, f)
	}

	log.Info("write_many %s: %d succeeded, %d failed", recordType, result.Succeeded, len(result.Failed))
	return result, e.observe("write_many", start, nil)
}

// DeleteMany removes every record matching the condition set: the
// matching items are fetched first, then deleted by key in chunks.
// Deletes already applied stay applied if a later chunk fails.
func (e *Engine) DeleteMany(ctx context.Context, recordType string, conds []Condition) (*DeleteResult, error) {
	start := time.Now()
	log := e.opLogger("delete_many")

	desc, err := e.catalog.Describe(recordType)
	if err != nil {
		return nil, e.observe("delete_many", start, err)
	}

	set, err := condition.Normalize(conds)
	if err != nil {
		return nil, e.observe("delete_many", start, err)
	}

	plans, err := e.planner.PlanAccess(recordType, set)
	if err != nil {
		return nil, e.observe("delete_many", start, err)
	}
	e.warnOnScan(log, recordType, plans)

	var keys []map[string]types.AttributeValue
	for i := range plans {
		res, err := e.exec.ExecutePlan(ctx, &plans[i])
		if err != nil {
			if res == nil || !errors.Is(err, dperrors.ErrUnprocessedItems) {
				return nil, e.observe("delete_many", start, err)
			}
		}
		if n := len(res.UnprocessedKeys); n > 0 {
			log.Warn("delete_many %s: %d keys unprocessed during fetch, skipping them", recordType, n)
		}
		for _, item := range materialize.FilterResidual(res.Items, plans[i].Residual) {
			keys = append(keys, itemKey(desc, item))
		}
	}

	reqs := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}

	wres, err := e.exec.BatchWrite(ctx, desc.TableName, reqs)
	if err != nil {
		return nil, e.observe("delete_many", start, err)
	}

	log.Info("delete_many %s: %d deleted, %d failed", recordType, wres.Succeeded, len(wres.Failed))
	return &DeleteResult{Deleted: wres.Succeeded, Failed: wres.Failed}, e.observe("delete_many", start, nil)
}

// itemKey projects a raw item onto the table's primary key attributes.
func itemKey(desc *schema.Descriptor, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	key := make(map[string]types.AttributeValue, 2)
	for _, field := range desc.KeyFields() {
		if av, ok := item[field]; ok {
			key[field] = av
		}
	}
	return key
}

// warnOnScan logs the cost warning when planning degraded to a full
// scan. Not fatal; correctness is preserved by residual filtering.
func (e *Engine) warnOnScan(log *logger.Logger, recordType string, plans []planner.Plan) {
	for i := range plans {
		if plans[i].Kind == planner.KindScan {
			log.Warn("no usable key condition for %s, falling back to scan with client-side filtering", recordType)
			return
		}
	}
}

func (e *Engine) opLogger(op string) *logger.Logger {
	return e.logger.With("op=" + op + "/" + uuid.NewString()[:8])
}

func (e *Engine) observe(op string, start time.Time, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.OperationsTotal.WithLabelValues(op, status).Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}
