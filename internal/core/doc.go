// Package core provides the business logic for importing salon spreadsheets.
//
// It holds no transport code and is used as-is by the HTTP server, the
// ingest CLI and tests.
//
// # Table Registry
//
// Tables are registered at init time using [Register] (see the tables
// subpackage). Each [TableDefinition] names its store table, the column
// mapping used when no mapping file overrides it, and a [BuildFunc] that
// turns normalized rows into store rows:
//
//	core.Register(core.TableDefinition{
//	    Info:           core.TableInfo{Key: "service", Param: "services", Stage: core.StageEntities},
//	    DefaultMapping: core.Mapping{{Source: "Стоимость", Field: core.FieldCost}},
//	    Build:          buildServices,
//	})
//
// # Ingestion
//
// [Service.Ingest] processes a [Batch] of source tables:
//
//  1. Each table is normalized with [NormalizeBatch]. Unreadable values are
//     defaulted and reported as [FieldIssue]s, never dropped.
//  2. The table's BuildFunc produces rows. Bookings are resolved against the
//     store with [LinkBookingBatch]; rows that cannot be linked become
//     [LinkReject]s.
//  3. The store table is cleared and rewritten in one transaction.
//
// Entity tables (services, clients) load before link tables (bookings). If
// an entity table fails, bookings from the same run are skipped with
// [ErrDependencyFailed].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// message carries a code for support reference (DB, FILE, IMP and TBL
// series, ERR000 as fallback).
package core
