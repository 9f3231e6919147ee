// Package commands contains the built-in command candidates registered on
// the dispatch pipeline. Each command owns its trigger syntax and talks to
// the bot services through narrow interfaces so tests can stub them.
package commands
