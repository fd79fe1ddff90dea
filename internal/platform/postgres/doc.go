// Package postgres implements the store interfaces using a PostgreSQL
// database accessed through the pgx stdlib driver.
package postgres
