// Package jellyfin asks a Jellyfin server to rescan its libraries once new
// books have been shelved.
package jellyfin
