// Package history persists conversion outcomes in SQLite.
//
// Every Session.Split opens a conversion row, records one row per chapter job
// and closes the conversion with its final status. Activation keys that
// decrypted a container are remembered so later runs can try them without
// being told again. History is an audit trail only; nothing resumes from it.
package history
