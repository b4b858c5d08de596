package model

import "fmt"

// Platform 标识记录所属的后端
type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformMastodon Platform = "mastodon"
)

// Valid reports whether p is one of the two supported backends.
func (p Platform) Valid() bool {
	return p == PlatformTwitter || p == PlatformMastodon
}

// Identity 平台限定标识（联邦账号带 domain）
type Identity struct {
	Platform Platform
	Domain   string
	RemoteID string
}

// Key returns the canonical lookup key, e.g. "twitter:123" or
// "mastodon:example.social:456".
func (i Identity) Key() string {
	if i.Domain != "" {
		return fmt.Sprintf("%s:%s:%s", i.Platform, i.Domain, i.RemoteID)
	}
	return fmt.Sprintf("%s:%s", i.Platform, i.RemoteID)
}

// IsZero reports whether the identity carries no remote id.
func (i Identity) IsZero() bool { return i.RemoteID == "" }
