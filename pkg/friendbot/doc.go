// Package friendbot defines the neutral contracts shared by the bot core:
// trigger events, command candidates, scoped cache keys, the permission
// vocabulary, cache and voice interfaces, and the stateful command helper.
// Implementations live under internal/.
package friendbot
