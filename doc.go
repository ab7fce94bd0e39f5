// Package dynaplan plans and executes record queries and mutations
// against a DynamoDB-shaped store. Given equality, range, and membership
// conditions over a schema's fields, the planner picks the cheapest valid
// access pattern (direct get, index query, batch get, or filtered scan);
// the executor splits oversized batches into store-compliant chunks, runs
// sibling chunks concurrently, retries unprocessed items with backoff,
// and follows pagination tokens to exhaustion.
//
// Consistency caveats, inherited from the store's native semantics:
//
//   - Batch writes are not transactional across chunks. Cancelling an
//     operation cannot roll back chunks that already committed.
//   - Batch get results follow the store's response batching, not the
//     request order; callers needing request order re-sort by key.
//
// Partial failure is a first-class return value: batch writes report
// both the succeeded count and the failed items, so callers decide
// whether to retry the remainder.
package dynaplan
