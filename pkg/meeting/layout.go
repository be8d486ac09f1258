package meeting

import "sort"

// LocalTileID is the participant id used for the local tile
const LocalTileID = "local"

// ComputeLayout maps a participant snapshot and a layout mode onto an
// ordered tile arrangement. Pure and deterministic: identical input
// yields identical output, so equivalent re-renders can be skipped.
// Ties are always broken by participant join order ascending.
func ComputeLayout(local LocalMediaState, participants []Participant, mode LayoutMode) []Tile {
	ordered := make([]Participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].JoinOrder < ordered[j].JoinOrder
	})

	switch mode {
	case LayoutSpeaker:
		return speakerLayout(ordered)
	case LayoutPresentation:
		return presentationLayout(local, ordered)
	default:
		return gridLayout(ordered)
	}
}

// gridLayout renders one uniform tile per participant, local tile first,
// remote tiles in join order.
func gridLayout(participants []Participant) []Tile {
	tiles := make([]Tile, 0, len(participants)+1)
	tiles = append(tiles, Tile{
		ParticipantID: LocalTileID,
		Role:          TileRoleLocal,
		Size:          TileSizeNormal,
		Position:      0,
	})
	for i, p := range participants {
		tiles = append(tiles, Tile{
			ParticipantID: p.ID,
			Role:          TileRoleRemote,
			Size:          TileSizeNormal,
			Position:      i + 1,
		})
	}
	return tiles
}

// speakerLayout renders exactly one highlighted tile plus a filmstrip.
// Highlight priority: a speaking participant, then the most recently
// speaking one, then the first in join order. With no remote
// participants the local tile is highlighted so the invariant of exactly
// one highlighted tile always holds.
func speakerLayout(participants []Participant) []Tile {
	if len(participants) == 0 {
		return []Tile{{
			ParticipantID: LocalTileID,
			Role:          TileRoleLocal,
			Size:          TileSizeLarge,
			Position:      0,
			Highlighted:   true,
		}}
	}

	highlighted := pickHighlighted(participants)

	tiles := make([]Tile, 0, len(participants)+1)
	tiles = append(tiles, Tile{
		ParticipantID: highlighted.ID,
		Role:          TileRoleRemote,
		Size:          TileSizeLarge,
		Position:      0,
		Highlighted:   true,
	})

	// Filmstrip: local tile first, then the remaining participants
	pos := 1
	tiles = append(tiles, Tile{
		ParticipantID: LocalTileID,
		Role:          TileRoleLocal,
		Size:          TileSizeThumbnail,
		Position:      pos,
	})
	pos++
	for _, p := range participants {
		if p.ID == highlighted.ID {
			continue
		}
		tiles = append(tiles, Tile{
			ParticipantID: p.ID,
			Role:          TileRoleRemote,
			Size:          TileSizeThumbnail,
			Position:      pos,
		})
		pos++
	}
	return tiles
}

// pickHighlighted selects the speaker tile. participants must be sorted
// by join order so every tie resolves the same way on re-invocation.
func pickHighlighted(participants []Participant) Participant {
	for _, p := range participants {
		if p.IsSpeaking {
			return p
		}
	}

	best := -1
	for i, p := range participants {
		if p.LastSpokeAt.IsZero() {
			continue
		}
		if best == -1 || p.LastSpokeAt.After(participants[best].LastSpokeAt) {
			best = i
		}
	}
	if best >= 0 {
		return participants[best]
	}

	return participants[0]
}

// presentationLayout renders one full-size tile bound to the active
// screen share (or a placeholder when the share dropped mid-session),
// with every participant including the local one in a side rail.
func presentationLayout(local LocalMediaState, participants []Participant) []Tile {
	tiles := make([]Tile, 0, len(participants)+2)

	screenID := ""
	if local.ScreenSharing {
		screenID = LocalTileID
	}
	tiles = append(tiles, Tile{
		ParticipantID: screenID,
		Role:          TileRoleScreen,
		Size:          TileSizeFull,
		Position:      0,
	})

	pos := 1
	tiles = append(tiles, Tile{
		ParticipantID: LocalTileID,
		Role:          TileRoleLocal,
		Size:          TileSizeThumbnail,
		Position:      pos,
	})
	pos++
	for _, p := range participants {
		tiles = append(tiles, Tile{
			ParticipantID: p.ID,
			Role:          TileRoleRemote,
			Size:          TileSizeThumbnail,
			Position:      pos,
		})
		pos++
	}
	return tiles
}
