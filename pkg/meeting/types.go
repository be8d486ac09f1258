package meeting

// SessionState is the lifecycle state of a session
type SessionState int32

const (
	SessionStateIdle SessionState = iota
	SessionStateInitializing
	SessionStateActive
	SessionStateEnding
	SessionStateEnded
)

func (s SessionState) String() string {
	switch s {
	case SessionStateIdle:
		return "Idle"
	case SessionStateInitializing:
		return "Initializing"
	case SessionStateActive:
		return "Active"
	case SessionStateEnding:
		return "Ending"
	case SessionStateEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// LayoutMode selects the tile arrangement strategy
type LayoutMode string

const (
	LayoutGrid         LayoutMode = "grid"
	LayoutSpeaker      LayoutMode = "speaker"
	LayoutPresentation LayoutMode = "presentation"
)

// ConnectionQuality is a coarse classification of link health
type ConnectionQuality int

const (
	QualityUnknown ConnectionQuality = iota
	QualityPoor
	QualityFair
	QualityGood
	QualityExcellent
)

func (q ConnectionQuality) String() string {
	switch q {
	case QualityPoor:
		return "Poor"
	case QualityFair:
		return "Fair"
	case QualityGood:
		return "Good"
	case QualityExcellent:
		return "Excellent"
	default:
		return "Unknown"
	}
}

// TrackKind distinguishes audio and video tracks
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// TileRole identifies what a tile renders
type TileRole string

const (
	TileRoleLocal  TileRole = "local"
	TileRoleRemote TileRole = "remote"
	TileRoleScreen TileRole = "screen"
)

// TileSize is the render hint for one tile
type TileSize string

const (
	TileSizeFull      TileSize = "full"
	TileSizeLarge     TileSize = "large"
	TileSizeNormal    TileSize = "normal"
	TileSizeThumbnail TileSize = "thumbnail"
)
