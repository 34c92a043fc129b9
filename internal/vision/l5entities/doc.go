// Package l5entities owns Layer 5 of the table pose model: classification
// of non-corner marker IDs into entities and the per-frame result handed to
// dispatch sinks.
//
// An Entity is a tagged variant (robot, station or unknown) resolved once
// per marker from a Registry built at startup; pose code below this layer
// never branches on roles.
package l5entities
