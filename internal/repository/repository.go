// Package repository holds the SQL the sink runs against Postgres.
package repository
