// Package mysql persists plugin descriptors in MySQL. It owns the connection
// pool settings, the embedded schema migrations and the descriptor store used
// by the config server when the mysql driver is selected.
package mysql
