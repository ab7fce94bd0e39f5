package executor

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/dynaplan/internal/chunker"
	"github.com/kartikbazzad/dynaplan/internal/config"
	dperrors "github.com/kartikbazzad/dynaplan/internal/errors"
	"github.com/kartikbazzad/dynaplan/internal/logger"
	"github.com/kartikbazzad/dynaplan/internal/metrics"
	"github.com/kartikbazzad/dynaplan/internal/planner"
)

// FailedItem is one write request that could not be applied after the
// retry budget was exhausted. Index is the item's position in the
// batch originally submitted by the caller (-1 if it cannot be mapped
// back, which only happens if the store rewrites the request).
type FailedItem struct {
	Index   int
	Request types.WriteRequest
	Err     error
}

// WriteResult is the outcome of a batch write. Partial failure is a
// first-class value: succeeded writes stay committed even when sibling
// items fail.
type WriteResult struct {
	Succeeded int
	Failed    []FailedItem
}

// PlanResult is the outcome of executing one read plan. UnprocessedKeys
// lists keys the store never completed within the retry budget; they are
// surfaced, never silently dropped.
type PlanResult struct {
	Items           []map[string]types.AttributeValue
	UnprocessedKeys []map[string]types.AttributeValue
}

// Executor issues planned requests against the store. Sibling chunks of
// one logical batch run concurrently on a bounded worker pool; no
// mutable state is shared across chunk executions except the guarded
// result aggregate.
type Executor struct {
	client     Client
	cfg        *config.Config
	pool       *ants.Pool
	retry      *dperrors.RetryController
	classifier *dperrors.Classifier
	logger     *logger.Logger
}

// New creates an executor with a worker pool bounded by
// Executor.MaxConcurrentChunks.
func New(client Client, cfg *config.Config, retry *dperrors.RetryController, log *logger.Logger) (*Executor, error) {
	pool, err := ants.NewPool(cfg.Executor.MaxConcurrentChunks, ants.WithPanicHandler(func(v interface{}) {
		log.Error("chunk worker panic: %v", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Executor{
		client:     client,
		cfg:        cfg,
		pool:       pool,
		retry:      retry,
		classifier: dperrors.NewClassifier(),
		logger:     log,
	}, nil
}

// Release frees the worker pool. The executor must not be used afterwards.
func (e *Executor) Release() {
	e.pool.Release()
}

// ExecutePlan runs one read plan to completion: a direct get, a chunked
// batch get, or a fully paginated query/scan. The switch is exhaustive
// over plan kinds; a new kind fails loudly rather than silently.
func (e *Executor) ExecutePlan(ctx context.Context, plan *planner.Plan) (*PlanResult, error) {
	switch plan.Kind {
	case planner.KindGet:
		return e.executeGet(ctx, plan)
	case planner.KindBatchGet:
		keys, err := MarshalKeys(plan.Keys)
		if err != nil {
			return nil, err
		}
		return e.BatchGet(ctx, plan.Table, keys)
	case planner.KindQuery:
		in, err := compileQuery(plan)
		if err != nil {
			return nil, err
		}
		items, err := e.queryPages(ctx, in)
		if err != nil {
			return nil, err
		}
		return &PlanResult{Items: items}, nil
	case planner.KindScan:
		items, err := e.scanPages(ctx, compileScan(plan))
		if err != nil {
			return nil, err
		}
		return &PlanResult{Items: items}, nil
	default:
		return nil, fmt.Errorf("unhandled plan kind %d", plan.Kind)
	}
}

func (e *Executor) executeGet(ctx context.Context, plan *planner.Plan) (*PlanResult, error) {
	in, err := compileGet(plan)
	if err != nil {
		return nil, err
	}

	var out *dynamodb.GetItemOutput
	err = e.retry.Do(ctx, func() error {
		var callErr error
		out, callErr = e.client.GetItem(ctx, in)
		return callErr
	}, e.classifier)
	if err != nil {
		return nil, e.wrapStoreError(err)
	}

	if out.Item == nil {
		return &PlanResult{}, nil
	}
	return &PlanResult{Items: []map[string]types.AttributeValue{out.Item}}, nil
}

// BatchWrite applies write requests in store-compliant chunks. Chunks
// run concurrently; within each chunk, unprocessed items are retried
// with backoff until they succeed or the budget runs out. A zero-length
// batch returns an empty success without touching the store.
func (e *Executor) BatchWrite(ctx context.Context, table string, reqs []types.WriteRequest) (*WriteResult, error) {
	chunks := chunker.Split(reqs, e.cfg.Batch.WriteSize)
	if len(chunks) == 0 {
		return &WriteResult{}, nil
	}

	result := &WriteResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := range chunks {
		chunk := chunks[i]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			metrics.ChunksTotal.WithLabelValues("write").Inc()
			succeeded, failed := e.writeChunk(ctx, table, chunk)
			mu.Lock()
			result.Succeeded += succeeded
			result.Failed = append(result.Failed, failed...)
			mu.Unlock()
		}
		if err := e.pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			for j, req := range chunk.Items {
				result.Failed = append(result.Failed, FailedItem{
					Index:   chunk.Offset + j,
					Request: req,
					Err:     fmt.Errorf("%w: %v", dperrors.ErrExecutorStopped, err),
				})
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return result, nil
}

// writeChunk drives one chunk to completion. The retry loop is ordered:
// each attempt fully resolves before the chunk is considered complete.
func (e *Executor) writeChunk(ctx context.Context, table string, chunk chunker.Chunk[types.WriteRequest]) (int, []FailedItem) {
	pending := chunk.Items
	attempt := 0
	outages := 0

	fail := func(err error) (int, []FailedItem) {
		failed := make([]FailedItem, 0, len(pending))
		for _, req := range pending {
			failed = append(failed, FailedItem{
				Index:   e.originalIndex(chunk, req),
				Request: req,
				Err:     err,
			})
		}
		return len(chunk.Items) - len(pending), failed
	}

	for {
		if cerr := ctx.Err(); cerr != nil {
			return fail(cerr)
		}

		out, err := e.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: pending},
		})
		if err != nil {
			cont, ferr := e.absorb(ctx, err, &attempt, &outages)
			if !cont {
				return fail(ferr)
			}
			continue
		}

		unprocessed := out.UnprocessedItems[table]
		if len(unprocessed) == 0 {
			return len(chunk.Items), nil
		}

		metrics.UnprocessedItemsTotal.WithLabelValues("write").Add(float64(len(unprocessed)))
		e.logger.Warn("batch write: %d/%d items unprocessed (attempt %d)", len(unprocessed), len(pending), attempt)

		pending = unprocessed
		if attempt >= e.retry.MaxRetries() {
			return fail(dperrors.ErrUnprocessedItems)
		}
		metrics.RetriesTotal.WithLabelValues("unprocessed").Inc()
		if serr := e.retry.Sleep(ctx, attempt); serr != nil {
			return fail(serr)
		}
		attempt++
	}
}

// BatchGet fetches keys in store-compliant chunks, reconciling
// unprocessed keys the same way writes reconcile unprocessed items.
// Result ordering follows the store's response batching, not the
// request order.
func (e *Executor) BatchGet(ctx context.Context, table string, keys []map[string]types.AttributeValue) (*PlanResult, error) {
	chunks := chunker.Split(keys, e.cfg.Batch.ReadSize)
	if len(chunks) == 0 {
		return &PlanResult{}, nil
	}

	result := &PlanResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for i := range chunks {
		chunk := chunks[i]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			metrics.ChunksTotal.WithLabelValues("read").Inc()
			items, unprocessed, err := e.readChunk(ctx, table, chunk.Items)
			mu.Lock()
			result.Items = append(result.Items, items...)
			result.UnprocessedKeys = append(result.UnprocessedKeys, unprocessed...)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
		if err := e.pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			result.UnprocessedKeys = append(result.UnprocessedKeys, chunk.Items...)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %v", dperrors.ErrExecutorStopped, err)
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return result, firstErr
}

func (e *Executor) readChunk(ctx context.Context, table string, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, []map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pending := keys
	attempt := 0
	outages := 0

	for {
		if cerr := ctx.Err(); cerr != nil {
			return items, pending, cerr
		}

		out, err := e.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				table: {Keys: pending},
			},
		})
		if err != nil {
			cont, ferr := e.absorb(ctx, err, &attempt, &outages)
			if !cont {
				return items, pending, ferr
			}
			continue
		}

		items = append(items, out.Responses[table]...)

		unprocessed, ok := out.UnprocessedKeys[table]
		if !ok || len(unprocessed.Keys) == 0 {
			return items, nil, nil
		}

		metrics.UnprocessedItemsTotal.WithLabelValues("read").Add(float64(len(unprocessed.Keys)))
		e.logger.Warn("batch get: %d/%d keys unprocessed (attempt %d)", len(unprocessed.Keys), len(pending), attempt)

		pending = unprocessed.Keys
		if attempt >= e.retry.MaxRetries() {
			return items, pending, dperrors.ErrUnprocessedItems
		}
		metrics.RetriesTotal.WithLabelValues("unprocessed").Inc()
		if serr := e.retry.Sleep(ctx, attempt); serr != nil {
			return items, pending, serr
		}
		attempt++
	}
}

// queryPages follows the continuation token until exhausted. A page is
// never returned as a final result while a token is outstanding.
func (e *Executor) queryPages(ctx context.Context, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	for {
		var out *dynamodb.QueryOutput
		err := e.retry.Do(ctx, func() error {
			var callErr error
			out, callErr = e.client.Query(ctx, in)
			return callErr
		}, e.classifier)
		if err != nil {
			return nil, e.wrapStoreError(err)
		}

		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (e *Executor) scanPages(ctx context.Context, in *dynamodb.ScanInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	for {
		var out *dynamodb.ScanOutput
		err := e.retry.Do(ctx, func() error {
			var callErr error
			out, callErr = e.client.Scan(ctx, in)
			return callErr
		}, e.classifier)
		if err != nil {
			return nil, e.wrapStoreError(err)
		}

		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// WriteOne applies a single put without batch framing.
func (e *Executor) WriteOne(ctx context.Context, table string, item map[string]types.AttributeValue) error {
	err := e.retry.Do(ctx, func() error {
		_, callErr := e.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(table),
			Item:      item,
		})
		return callErr
	}, e.classifier)
	return e.wrapStoreError(err)
}

// DeleteOne removes a single item by full primary key.
func (e *Executor) DeleteOne(ctx context.Context, table string, key map[string]types.AttributeValue) error {
	err := e.retry.Do(ctx, func() error {
		_, callErr := e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(table),
			Key:       key,
		})
		return callErr
	}, e.classifier)
	return e.wrapStoreError(err)
}

// absorb handles a store call error inside a chunk retry loop. It
// returns cont=true when the loop should retry, or cont=false with the
// error to fail the remaining items with. Throttling draws from the
// retry budget; outages draw from the much smaller unavailable budget.
func (e *Executor) absorb(ctx context.Context, err error, attempt *int, outages *int) (bool, error) {
	category := e.classifier.Classify(err)

	switch {
	case category == dperrors.ErrorTransient:
		if *attempt >= e.retry.MaxRetries() {
			return false, err
		}
		metrics.RetriesTotal.WithLabelValues("throttle").Inc()
		if serr := e.retry.Sleep(ctx, *attempt); serr != nil {
			return false, serr
		}
		*attempt++
		return true, nil

	case category == dperrors.ErrorNetwork || category == dperrors.ErrorCritical:
		*outages++
		if *outages >= e.cfg.Executor.UnavailableAttempts {
			return false, fmt.Errorf("%w: %v", dperrors.ErrStoreUnavailable, err)
		}
		metrics.RetriesTotal.WithLabelValues("unavailable").Inc()
		if serr := e.retry.Sleep(ctx, *outages); serr != nil {
			return false, serr
		}
		return true, nil

	default:
		return false, err
	}
}

// wrapStoreError converts an exhausted network failure into the
// store-unavailable sentinel so callers can match on it.
func (e *Executor) wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if e.classifier.Classify(err) == dperrors.ErrorNetwork {
		return fmt.Errorf("%w: %v", dperrors.ErrStoreUnavailable, err)
	}
	return err
}

// originalIndex maps an unprocessed request back to its position in the
// caller's batch. The store echoes requests verbatim, so deep equality
// within the chunk recovers the index.
func (e *Executor) originalIndex(chunk chunker.Chunk[types.WriteRequest], req types.WriteRequest) int {
	for i, candidate := range chunk.Items {
		if reflect.DeepEqual(candidate, req) {
			return chunk.Offset + i
		}
	}
	return -1
}
