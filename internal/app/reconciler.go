package app

import (
	"fmt"
	"slices"
	"strings"

	"github.com/evanschultz/kanbases/internal/domain"
)

// RetentionPolicy decides how long empty, previously seen columns stay on the board.
type RetentionPolicy string

// RetainUntilRegroup and related constants define retention policies.
const (
	RetainUntilRegroup RetentionPolicy = "until-regroup"
	RetainIndefinitely RetentionPolicy = "indefinite"
	RetainNone         RetentionPolicy = "none"
)

// ParseRetentionPolicy canonicalizes a configured policy name; blank selects until-regroup.
func ParseRetentionPolicy(raw string) (RetentionPolicy, error) {
	switch RetentionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RetainUntilRegroup:
		return RetainUntilRegroup, nil
	case RetainIndefinitely:
		return RetainIndefinitely, nil
	case RetainNone:
		return RetainNone, nil
	default:
		return "", fmt.Errorf("%w: unknown retention policy %q", domain.ErrInvalidArgument, raw)
	}
}

// BoardStatus describes which surface the board renders.
type BoardStatus string

// StatusReady and related constants define renderable board states.
const (
	StatusReady                BoardStatus = "ready"
	StatusConfigurationMissing BoardStatus = "configuration_missing"
	StatusEmpty                BoardStatus = "empty"
)

// Empty-state messages rendered in place of the board.
const (
	MessageConfigurationMissing = "No grouping property configured. Please select a property to group by."
	MessageNoEntries            = "No entries to display"
)

// Column is one reconciled column with its current members.
type Column struct {
	domain.ColumnDescriptor
	Records []domain.Record
}

// ReconcileInput carries one reconciliation cycle's inputs.
type ReconcileInput struct {
	Groups     []domain.Group
	Identity   string
	Persisted  domain.PersistedBoardState
	Configured []domain.GroupKey
}

// ReconcileResult is the authoritative board layout for one cycle.
type ReconcileResult struct {
	Status    BoardStatus
	Order     []domain.GroupKey
	Columns   []Column
	Hidden    []domain.ColumnDescriptor
	Persisted domain.PersistedBoardState
	Changed   bool
	Total     int
}

// Reconciler merges live groups with persisted order. It remembers which columns were seen for the active grouping identity.
type Reconciler struct {
	policy   RetentionPolicy
	started  bool
	identity string
	seen     map[domain.GroupKey]struct{}
}

// NewReconciler constructs a reconciler with the given retention policy.
func NewReconciler(policy RetentionPolicy) *Reconciler {
	if policy == "" {
		policy = RetainUntilRegroup
	}
	return &Reconciler{
		policy: policy,
		seen:   map[domain.GroupKey]struct{}{},
	}
}

// Policy returns the active retention policy.
func (r *Reconciler) Policy() RetentionPolicy {
	return r.policy
}

// Reconcile computes the column order to render for one data batch.
func (r *Reconciler) Reconcile(in ReconcileInput) ReconcileResult {
	persisted := in.Persisted.Clone()
	if in.Identity == "" {
		return ReconcileResult{
			Status:    StatusConfigurationMissing,
			Persisted: persisted,
		}
	}

	prior := persisted.OrderFor(in.Identity)
	hidden := persisted.HiddenFor(in.Identity)
	r.enter(in.Identity, prior)

	members := map[domain.GroupKey][]domain.Record{}
	dataKeys := make([]domain.GroupKey, 0, len(in.Groups))
	total := 0
	for _, group := range in.Groups {
		if group.Key == "" || len(group.Records) == 0 {
			continue
		}
		if _, ok := members[group.Key]; !ok {
			dataKeys = append(dataKeys, group.Key)
		}
		members[group.Key] = append(members[group.Key], group.Records...)
		total += len(group.Records)
	}

	retained := map[domain.GroupKey]struct{}{}
	for _, key := range dataKeys {
		retained[key] = struct{}{}
	}
	for _, key := range in.Configured {
		retained[key] = struct{}{}
	}
	for _, key := range prior {
		_, seen := r.seen[key]
		_, isHidden := hidden[key]
		if seen || isHidden {
			retained[key] = struct{}{}
		}
	}

	order := make([]domain.GroupKey, 0, len(retained))
	placed := map[domain.GroupKey]struct{}{}
	place := func(key domain.GroupKey) {
		if _, ok := retained[key]; !ok {
			return
		}
		if _, ok := placed[key]; ok {
			return
		}
		placed[key] = struct{}{}
		order = append(order, key)
	}
	for _, key := range prior {
		place(key)
	}
	for _, key := range in.Configured {
		place(key)
	}
	for _, key := range dataKeys {
		place(key)
	}

	for _, key := range order {
		r.seen[key] = struct{}{}
	}

	changed := !slices.Equal(order, prior)
	if changed {
		persisted = persisted.WithOrder(in.Identity, order)
	}

	result := ReconcileResult{
		Status:    StatusReady,
		Order:     order,
		Columns:   make([]Column, 0, len(order)),
		Persisted: persisted,
		Changed:   changed,
		Total:     total,
	}
	for _, key := range order {
		if _, ok := hidden[key]; ok {
			result.Hidden = append(result.Hidden, Descriptor(key))
			continue
		}
		records := members[key]
		if records == nil {
			records = []domain.Record{}
		}
		result.Columns = append(result.Columns, Column{
			ColumnDescriptor: Descriptor(key),
			Records:          records,
		})
	}
	if total == 0 {
		result.Status = StatusEmpty
	}
	return result
}

// enter switches the reconciler to identity, applying the retention policy to the seen set.
func (r *Reconciler) enter(identity string, prior []domain.GroupKey) {
	switch {
	case !r.started:
		r.started = true
		r.identity = identity
		r.seen = keySet(prior)
	case identity != r.identity:
		r.identity = identity
		if r.policy == RetainIndefinitely {
			r.seen = keySet(prior)
		} else {
			r.seen = map[domain.GroupKey]struct{}{}
		}
	}
	if r.policy == RetainNone {
		r.seen = map[domain.GroupKey]struct{}{}
	}
}

// keySet converts keys into a set.
func keySet(keys []domain.GroupKey) map[domain.GroupKey]struct{} {
	out := make(map[domain.GroupKey]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out
}
