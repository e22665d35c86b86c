package shared

const (
	CATEGORY_CLIP    = "clip"
	CATEGORY_EPISODE = "episode"
	CATEGORY_MOVIE   = "movie"
	CATEGORY_TRACK   = "track"

	PLAYER_STATE_PLAYING = "playing"
	PLAYER_STATE_PAUSED  = "paused"

	USER_AGENT = "Plexboard/1.0 <github.com/plexboard/plexboard>"
)
