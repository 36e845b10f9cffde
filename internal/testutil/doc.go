// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing conversation turns and asserting
// on history shape. These helpers are not intended for production usage.
package testutil
