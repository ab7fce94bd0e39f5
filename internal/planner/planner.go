package planner

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kartikbazzad/dynaplan/internal/condition"
	"github.com/kartikbazzad/dynaplan/internal/logger"
	"github.com/kartikbazzad/dynaplan/internal/metrics"
	"github.com/kartikbazzad/dynaplan/internal/schema"
)

// mode is the cached access decision. Decisions depend on the shape of
// the condition set, not its operand values, so one decision serves every
// set with the same signature. Operand binding happens per call.
type mode struct {
	kind     Kind
	indexPos int // index position in the descriptor; -1 = primary key
}

// Planner chooses access plans. Safe for concurrent use: the catalog is
// read-only and the decision cache is internally synchronized.
type Planner struct {
	catalog *schema.Catalog
	cache   *lru.Cache[string, mode]
	logger  *logger.Logger
}

// New creates a planner. cacheSize bounds the decision cache; zero or
// negative disables caching. Schema metadata itself is never cached here,
// decisions are looked up against the live catalog on every call.
func New(catalog *schema.Catalog, cacheSize int, log *logger.Logger) *Planner {
	p := &Planner{catalog: catalog, logger: log}
	if cacheSize > 0 {
		// Only errors on non-positive size, which is excluded above.
		p.cache, _ = lru.New[string, mode](cacheSize)
	}
	return p
}

// PlanAccess produces one or more independent plans for the condition
// set. Fan-out plans (several queries, one per hash value) are
// order-insensitive; their results concatenate before materialization.
func (p *Planner) PlanAccess(recordType string, set condition.Set) ([]Plan, error) {
	desc, err := p.catalog.Describe(recordType)
	if err != nil {
		return nil, err
	}

	m := p.decide(desc, set)
	plans := p.bind(desc, set, m)

	p.logger.Debug("Planned %s: %d plan(s), kind=%s", recordType, len(plans), plans[0].Kind)
	metrics.PlansTotal.WithLabelValues(plans[0].Kind.String()).Inc()

	return plans, nil
}

// decide picks the access mode, consulting the decision cache.
func (p *Planner) decide(desc *schema.Descriptor, set condition.Set) mode {
	var key string
	if p.cache != nil {
		key = desc.RecordType + "|" + set.Signature()
		if m, ok := p.cache.Get(key); ok {
			metrics.PlanCacheHitsTotal.Inc()
			return m
		}
		metrics.PlanCacheMissesTotal.Inc()
	}

	m := decide(desc, set)

	if p.cache != nil {
		p.cache.Add(key, m)
	}
	return m
}

// decide implements the priority order: direct get, primary-key batch
// get or fan-out query, secondary index query, scan. First match wins;
// index ties break on declaration order so the choice is deterministic.
func decide(desc *schema.Descriptor, set condition.Set) mode {
	hashFC := set[desc.Key.Hash.Field]
	if hashFC.Membership != nil {
		if keyComplete(desc, set) {
			if len(hashFC.Membership.Values) == 1 && rangeValueCount(desc, set) <= 1 {
				return mode{kind: KindGet, indexPos: -1}
			}
			return mode{kind: KindBatchGet, indexPos: -1}
		}
		// Hash match without an addressable item: one query per hash value.
		return mode{kind: KindQuery, indexPos: -1}
	}

	best := -1
	bestCoversRange := false
	for i, idx := range desc.Indexes {
		fc := set[idx.Hash.Field]
		if fc.Membership == nil {
			continue
		}
		covers := idx.Range != nil && rangeUsable(set[idx.Range.Field])
		if best == -1 || (covers && !bestCoversRange) {
			best = i
			bestCoversRange = covers
		}
	}

	if best >= 0 {
		return mode{kind: KindQuery, indexPos: best}
	}

	return mode{kind: KindScan}
}

// keyComplete reports whether the condition set pins the full primary
// key for every hash value: either no range field exists, or the range
// field carries an exact membership. Item-addressed access (GetItem,
// BatchGetItem) needs the complete key.
func keyComplete(desc *schema.Descriptor, set condition.Set) bool {
	if desc.Key.Range == nil {
		return true
	}
	fc := set[desc.Key.Range.Field]
	return fc.Membership != nil && fc.Range == nil
}

func rangeValueCount(desc *schema.Descriptor, set condition.Set) int {
	if desc.Key.Range == nil {
		return 0
	}
	fc := set[desc.Key.Range.Field]
	if fc.Membership == nil {
		return 0
	}
	return len(fc.Membership.Values)
}

// rangeUsable reports whether a field's conditions can ride a query's
// key condition: an ordered range predicate, or a single exact value.
func rangeUsable(fc condition.FieldConditions) bool {
	if fc.Range != nil {
		return true
	}
	return fc.Membership != nil && len(fc.Membership.Values) == 1
}

// bind turns the decision into concrete plans, binding operand values
// and computing residuals. Every condition not consumed by the key
// match survives in Residual.
func (p *Planner) bind(desc *schema.Descriptor, set condition.Set, m mode) []Plan {
	switch m.kind {
	case KindGet:
		return bindGet(desc, set)
	case KindBatchGet:
		return bindBatchGet(desc, set)
	case KindQuery:
		return bindQuery(desc, set, m.indexPos)
	default:
		return []Plan{{Kind: KindScan, Table: desc.TableName, Residual: set.Clone()}}
	}
}

func bindGet(desc *schema.Descriptor, set condition.Set) []Plan {
	residual := set.Clone()
	key := map[string]interface{}{
		desc.Key.Hash.Field: set[desc.Key.Hash.Field].Membership.Values[0],
	}
	consumeMembership(residual, desc.Key.Hash.Field)

	if desc.Key.Range != nil {
		key[desc.Key.Range.Field] = set[desc.Key.Range.Field].Membership.Values[0]
		consumeMembership(residual, desc.Key.Range.Field)
	}

	return []Plan{{Kind: KindGet, Table: desc.TableName, Key: key, Residual: residual}}
}

func bindBatchGet(desc *schema.Descriptor, set condition.Set) []Plan {
	residual := set.Clone()
	hashValues := set[desc.Key.Hash.Field].Membership.Values
	consumeMembership(residual, desc.Key.Hash.Field)

	var keys []map[string]interface{}
	if desc.Key.Range == nil {
		keys = make([]map[string]interface{}, 0, len(hashValues))
		for _, hv := range hashValues {
			keys = append(keys, map[string]interface{}{desc.Key.Hash.Field: hv})
		}
	} else {
		rangeValues := set[desc.Key.Range.Field].Membership.Values
		consumeMembership(residual, desc.Key.Range.Field)
		keys = make([]map[string]interface{}, 0, len(hashValues)*len(rangeValues))
		for _, hv := range hashValues {
			for _, rv := range rangeValues {
				keys = append(keys, map[string]interface{}{
					desc.Key.Hash.Field:  hv,
					desc.Key.Range.Field: rv,
				})
			}
		}
	}

	return []Plan{{Kind: KindBatchGet, Table: desc.TableName, Keys: keys, Residual: residual}}
}

func bindQuery(desc *schema.Descriptor, set condition.Set, indexPos int) []Plan {
	indexName := ""
	hashDef := desc.Key.Hash
	rangeDef := desc.Key.Range
	if indexPos >= 0 {
		idx := desc.Indexes[indexPos]
		indexName = idx.Name
		hashDef = idx.Hash
		rangeDef = idx.Range
	}

	residual := set.Clone()
	hashValues := set[hashDef.Field].Membership.Values
	consumeMembership(residual, hashDef.Field)

	var pred *RangePredicate
	if rangeDef != nil {
		fc := set[rangeDef.Field]
		switch {
		case fc.Range != nil:
			pred = &RangePredicate{Field: rangeDef.Field, Op: fc.Range.Op, Value: fc.Range.Value}
			consumeRange(residual, rangeDef.Field)
		case fc.Membership != nil && len(fc.Membership.Values) == 1:
			pred = &RangePredicate{Field: rangeDef.Field, Op: condition.OpEq, Value: fc.Membership.Values[0]}
			consumeMembership(residual, rangeDef.Field)
		}
		// Multi-valued membership on the range field stays residual;
		// a key condition can hold at most one range constraint.
	}

	plans := make([]Plan, 0, len(hashValues))
	for _, hv := range hashValues {
		plans = append(plans, Plan{
			Kind:      KindQuery,
			Table:     desc.TableName,
			IndexName: indexName,
			HashField: hashDef.Field,
			HashValue: hv,
			Range:     pred,
			Residual:  residual,
		})
	}
	return plans
}

func consumeMembership(set condition.Set, field string) {
	fc := set[field]
	fc.Membership = nil
	if fc.Range == nil {
		delete(set, field)
	} else {
		set[field] = fc
	}
}

func consumeRange(set condition.Set, field string) {
	fc := set[field]
	fc.Range = nil
	if fc.Membership == nil {
		delete(set, field)
	} else {
		set[field] = fc
	}
}
