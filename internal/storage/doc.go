// Package storage implements the backing relational store on top of bun.
//
// Store[T] satisfies repositorycache.Store[T] for any bun model with an
// integer primary key. Open connects to PostgreSQL (lib/pq) in deployed
// environments and SQLite (mattn/go-sqlite3) locally and in tests.
package storage
