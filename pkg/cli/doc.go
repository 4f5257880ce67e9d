// Package cli implements the mysqlmock command line: serving fixtures,
// validating them and running statements against them offline.
package cli
