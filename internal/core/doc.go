// Package core provides the record store for WiTE2 scenario data.
//
// This package owns everything that touches the CSV files themselves. It has
// no knowledge of graphs, audits or the command line and can be used by any
// frontend.
//
// # Record Kinds
//
// A scenario is made of three files, one per record kind:
//
//   - Unit: combat units, each referencing an OB template and carrying its
//     own ground element slots
//   - OB: order-of-battle templates, linked into upgrade chains through a
//     predecessor reference
//   - Ground: ground elements (equipment), identified by WID
//
// # Layouts
//
// Each kind declares its columns once as a [Layout]: an enumerated mapping
// from logical [Field] to column name plus a fixed-width [SlotBlock]. Layouts
// are registered at init time by the tables subpackage:
//
//	core.Register(&core.Layout{
//	    Kind:   core.KindOB,
//	    Fields: []core.FieldSpec{{Field: core.FieldID, Column: "id", Required: true}},
//	    Slots:  core.SlotBlock{Item: "sqd ", Count: "sqdNum ", Width: 32},
//	})
//
// [Bind] validates a file header against a layout before any row is read and
// fails with [SchemaMismatchError] rather than guessing positions.
//
// # Reading
//
// [NewReader] decodes the stream with an externally resolved encoding and
// yields rows lazily. Memory use is bounded by a single row. Malformed rows
// surface as [RowParseError]; the caller picks a [RowPolicy].
//
// # Writing
//
// [WriteAtomic] is the only way records reach disk. It writes a temporary
// file next to the target, verifies the row count and renames it over the
// original. A failure at any step leaves the original untouched.
//
// # Error Handling
//
// Typed errors match their sentinel with errors.Is. [MapError] turns any of
// them into a coded [UserMessage] for display.
package core
