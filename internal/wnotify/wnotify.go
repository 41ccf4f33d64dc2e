// Package wnotify defines the contracts shared by the wnotify client: the
// transport used to reach the service, the watch poller, the event tracker and
// the payload they exchange.
package wnotify

// DefaultBaseURL is the public wnotify service.
const DefaultBaseURL = "http://wnotify.menez.es/"
