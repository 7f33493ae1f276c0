// Package extract recovers typed tables from a CBC "Historical Results by
// Count" export.
//
// The export is one CSV grid holding several unrelated tables. Extraction runs
// in three stages:
//
//	lex        text -> rows (quoting, embedded newlines, size caps)
//	scan       rows -> raw section records, located by sentinel rows
//	reconcile  join sections on count index, pivot the species matrix
//
// Sections are found through a dispatch table of {match, read} pairs, so a
// new section type is one more table entry. A section that is never found is
// an empty list, not an error, and malformed cells degrade to null or zero.
// The only failures are size-limit violations ([ErrTooManyRows],
// [ErrTooManyColumns], [ErrInputTooLarge]).
//
// Extraction is pure: no I/O, no logging and no shared mutable state, so one
// [Extractor] may serve concurrent callers.
package extract
