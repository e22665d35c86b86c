package plex

import (
	"fmt"
	"strings"
)

type sessionsResponse struct {
	MediaContainer sessionContainer `json:"MediaContainer"`
}

type sessionContainer struct {
	Metadata []Session `json:"Metadata"`
}

// Session is a snapshot of one playback in progress. It is rebuilt wholesale
// on every poll cycle, never merged with the previous snapshot. Fields that
// Plex may omit are pointers so that absence survives the round trip.
type Session struct {
	Title            string  `json:"title"`
	Type             string  `json:"type"`
	Year             *int    `json:"year,omitempty"`
	Duration         *int64  `json:"duration,omitempty"`
	ViewOffset       *int64  `json:"viewOffset,omitempty"`
	GrandparentTitle string  `json:"grandparentTitle,omitempty"`
	ParentTitle      string  `json:"parentTitle,omitempty"`
	ParentIndex      *int    `json:"parentIndex,omitempty"`
	Index            *int    `json:"index,omitempty"`
	User             *User   `json:"User,omitempty"`
	Player           *Player `json:"Player,omitempty"`
	Guids            []Guid  `json:"Guid,omitempty"`
	Key              string  `json:"key,omitempty"`
	GrandparentKey   string  `json:"grandparentKey,omitempty"`

	// Stamped during poll-and-publish, not part of the Plex response.
	ArtURL     string `json:"artUrl,omitempty"`
	ServerName string `json:"serverName,omitempty"`
}

type User struct {
	Title string `json:"title"`
}

type Player struct {
	State string `json:"state"`
}

type Guid struct {
	ID string `json:"id"`
}

type identityResponse struct {
	MediaContainer identityContainer `json:"MediaContainer"`
}

type identityContainer struct {
	FriendlyName string `json:"friendlyName"`
}

type metadataResponse struct {
	MediaContainer metadataContainer `json:"MediaContainer"`
}

type metadataContainer struct {
	Metadata []itemMetadata `json:"Metadata"`
}

type itemMetadata struct {
	Guids []Guid `json:"Guid"`
}

const barWidth = 10

// ProgressBar renders playback progress as a ten segment bar. Sessions with
// no duration render fully empty with a placeholder percentage.
func (s Session) ProgressBar() string {
	if s.Duration == nil || s.ViewOffset == nil || *s.Duration <= 0 {
		return fmt.Sprintf("[%s] --%%", strings.Repeat("-", barWidth))
	}

	progress := float64(*s.ViewOffset) / float64(*s.Duration)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(progress * barWidth)
	percent := int(progress * 100)

	return fmt.Sprintf("[%s%s] %d%%",
		strings.Repeat("#", filled),
		strings.Repeat("-", barWidth-filled),
		percent,
	)
}
