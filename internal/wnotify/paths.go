package wnotify

import "net/url"

// WatchPath returns the long-poll endpoint for a private key.
func WatchPath(privateKey string) string {
	return "/watch/" + url.PathEscape(privateKey)
}

// TrackPath returns the tracking endpoint for an event under a public key.
func TrackPath(publicKey, event string) string {
	return "/track/" + url.PathEscape(publicKey) + "/" + url.PathEscape(event)
}

// SoundPath returns the location of a notification sound.
func SoundPath(sound string) string {
	return "/static/sounds/" + url.PathEscape(sound) + ".mp3"
}
