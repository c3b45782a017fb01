// Package postgres implements the goAlert stores on PostgreSQL using pgx
// and squirrel. Every repository takes a Querier so it runs the same way
// on a pool, a transaction or a mock.
//
// Audit details are sealed with a server key before they are written; the
// database never sees them in clear text.
package postgres
