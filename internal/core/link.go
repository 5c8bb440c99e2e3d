package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/salon/internal/model"
	"github.com/JonMunkholm/salon/internal/store"
)

// Lookup sentinels, shared with the store so either source can be used.
var (
	ErrNotFound  = store.ErrNotFound
	ErrAmbiguous = store.ErrAmbiguous
)

// Lookup resolves a natural key (client surname, service title) to an id.
// It returns ErrNotFound or ErrAmbiguous for keys that cannot be linked;
// any other error is a collaborator failure.
type Lookup interface {
	Resolve(ctx context.Context, table, key string) (int64, error)
}

// TableLookup resolves keys against tables already held in memory.
type TableLookup struct {
	ids map[string]map[string][]int64 // table -> key -> ids
}

// NewTableLookup indexes clients by trimmed last name and services by
// trimmed title. Keys shared by several records resolve as ambiguous.
func NewTableLookup(clients []model.ClientRecord, services []model.ServiceOffering) *TableLookup {
	l := &TableLookup{ids: map[string]map[string][]int64{
		model.TableClient:  make(map[string][]int64, len(clients)),
		model.TableService: make(map[string][]int64, len(services)),
	}}
	for _, c := range clients {
		k := c.NaturalKey()
		l.ids[model.TableClient][k] = append(l.ids[model.TableClient][k], c.ID)
	}
	for _, s := range services {
		k := strings.TrimSpace(s.Title)
		l.ids[model.TableService][k] = append(l.ids[model.TableService][k], s.ID)
	}
	return l
}

func (l *TableLookup) Resolve(_ context.Context, table, key string) (int64, error) {
	byKey, ok := l.ids[table]
	if !ok {
		return 0, fmt.Errorf("%w: %q", store.ErrUnknownTable, table)
	}
	switch ids := byKey[strings.TrimSpace(key)]; len(ids) {
	case 0:
		return 0, ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return 0, ErrAmbiguous
	}
}

// StoreLookup resolves keys with the store's natural-key lookup.
type StoreLookup struct {
	Store store.Store
}

func (l StoreLookup) Resolve(ctx context.Context, table, key string) (int64, error) {
	return l.Store.LookupByNaturalKey(ctx, table, key)
}

// CachedLookup remembers answers from next, including not-found and
// ambiguous ones, for the life of one batch. Collaborator failures are not
// cached.
type CachedLookup struct {
	next  Lookup
	cache map[string]cachedID
}

type cachedID struct {
	id  int64
	err error
}

func NewCachedLookup(next Lookup) *CachedLookup {
	return &CachedLookup{next: next, cache: make(map[string]cachedID)}
}

func (l *CachedLookup) Resolve(ctx context.Context, table, key string) (int64, error) {
	k := table + "\x00" + strings.TrimSpace(key)
	if hit, ok := l.cache[k]; ok {
		return hit.id, hit.err
	}
	id, err := l.next.Resolve(ctx, table, key)
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAmbiguous) {
		l.cache[k] = cachedID{id: id, err: err}
	}
	return id, err
}

// LinkResult holds the linked bookings, the rows that could not be linked
// and the linked rows whose start time could not be read.
type LinkResult struct {
	Bookings []model.BookingRecord
	Rejects  []LinkReject
	Issues   []FieldIssue
}

// Start time issue reasons.
const (
	issueMissingStart = "missing start time"
	issueBadStart     = "unreadable start time, kept as text only"
)

// LinkBookingBatch resolves the client and service of every booking row.
// Rows whose references are missing, unknown or ambiguous are left out and
// reported in Rejects. Every row whose references resolve becomes a booking
// with the start time kept exactly as written; a start that is empty or not
// a readable timestamp is recorded in Issues. An error is returned only
// when lookup itself fails; the result then holds the rows linked so far.
func LinkBookingBatch(ctx context.Context, rows []Canonical, lookup Lookup) (LinkResult, error) {
	res := LinkResult{Bookings: make([]model.BookingRecord, 0, len(rows))}

	for _, row := range rows {
		client := strings.TrimSpace(row.Text(FieldClient))
		service := strings.TrimSpace(row.Text(FieldService))
		reject := func(reason RejectReason) {
			res.Rejects = append(res.Rejects, LinkReject{Line: row.Line, Client: client, Service: service, Reason: reason})
		}

		if client == "" {
			reject(RejectMissingClient)
			continue
		}
		if service == "" {
			reject(RejectMissingService)
			continue
		}

		clientID, err := lookup.Resolve(ctx, model.TableClient, client)
		if reason, linkErr := classify(err, RejectClientNotFound, RejectClientAmbiguous); linkErr != nil {
			return res, fmt.Errorf("resolve client %q (line %d): %w", client, row.Line, linkErr)
		} else if reason != "" {
			reject(reason)
			continue
		}

		serviceID, err := lookup.Resolve(ctx, model.TableService, service)
		if reason, linkErr := classify(err, RejectServiceNotFound, RejectServiceAmbiguous); linkErr != nil {
			return res, fmt.Errorf("resolve service %q (line %d): %w", service, row.Line, linkErr)
		} else if reason != "" {
			reject(reason)
			continue
		}

		start := row.Text(FieldStartTime)
		at, ok := ParseStartTime(start)
		if !ok {
			reason := issueBadStart
			if strings.TrimSpace(start) == "" {
				reason = issueMissingStart
			}
			res.Issues = append(res.Issues, FieldIssue{
				Line:   row.Line,
				Field:  FieldStartTime,
				Value:  start,
				Reason: reason,
			})
		}

		res.Bookings = append(res.Bookings, model.BookingRecord{
			ClientID:  clientID,
			ServiceID: serviceID,
			StartTime: start,
			Start:     at,
			Comment:   row.Text(FieldComment),
		})
	}
	return res, nil
}

// classify splits a lookup error into a reject reason or a real failure.
func classify(err error, notFound, ambiguous RejectReason) (RejectReason, error) {
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, ErrNotFound):
		return notFound, nil
	case errors.Is(err, ErrAmbiguous):
		return ambiguous, nil
	default:
		return "", err
	}
}
