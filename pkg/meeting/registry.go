package meeting

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Quality classification thresholds over a sampled score in [0,1]
const (
	QualityThresholdExcellent = 0.95
	QualityThresholdGood      = 0.8
	QualityThresholdFair      = 0.5
)

// ClassifyQuality maps a sampled link-health score onto a coarse class.
// Pure function of the sample.
func ClassifyQuality(score float64) ConnectionQuality {
	switch {
	case score >= QualityThresholdExcellent:
		return QualityExcellent
	case score >= QualityThresholdGood:
		return QualityGood
	case score >= QualityThresholdFair:
		return QualityFair
	default:
		return QualityPoor
	}
}

// ParticipantRegistry holds per-participant state. Unsampled participants
// stay Unknown; a participant's quality only changes when a sample
// arrives, never by the registry's own initiative.
type ParticipantRegistry struct {
	mu           sync.RWMutex
	participants map[string]*Participant
	order        []string
	nextOrder    int
	// samples keeps raw scores with a TTL so stale links can be told
	// apart from freshly sampled ones
	samples *gocache.Cache
	// removed remembers recently departed participants so late roster or
	// quality events cannot resurrect them
	removed  *lru.Cache[string, time.Time]
	onRemove func(participantID string)
	logger   *zap.Logger
}

// NewParticipantRegistry 创建参与者注册表
func NewParticipantRegistry(sampleTTL time.Duration, removedCacheSize int, logger *zap.Logger) *ParticipantRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if removedCacheSize <= 0 {
		removedCacheSize = 128
	}
	removed, _ := lru.New[string, time.Time](removedCacheSize)
	return &ParticipantRegistry{
		participants: make(map[string]*Participant),
		samples:      gocache.New(sampleTTL, 2*sampleTTL),
		removed:      removed,
		logger:       logger,
	}
}

// OnRemove registers the hook fired when a participant is removed, used
// to release per-connection resources tied to that id.
func (pr *ParticipantRegistry) OnRemove(fn func(participantID string)) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.onRemove = fn
}

// Upsert merges a partial state update, creating the participant on first
// sight. Returns a copy of the resulting state, or false when the event
// was dropped because the participant recently left.
func (pr *ParticipantRegistry) Upsert(participantID string, patch ParticipantPatch) (Participant, bool) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	p, exists := pr.participants[participantID]
	if !exists {
		if _, left := pr.removed.Get(participantID); left {
			pr.logger.Debug("dropping event for departed participant",
				zap.String("participant_id", participantID))
			return Participant{}, false
		}
		p = &Participant{
			ID:        participantID,
			Quality:   QualityUnknown,
			JoinOrder: pr.nextOrder,
			JoinedAt:  time.Now(),
		}
		pr.nextOrder++
		pr.participants[participantID] = p
		pr.order = append(pr.order, participantID)
		pr.logger.Info("participant joined",
			zap.String("participant_id", participantID),
			zap.Int("join_order", p.JoinOrder))
	}

	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.AudioEnabled != nil {
		p.AudioEnabled = *patch.AudioEnabled
	}
	if patch.VideoEnabled != nil {
		p.VideoEnabled = *patch.VideoEnabled
	}
	if patch.IsSpeaking != nil {
		p.IsSpeaking = *patch.IsSpeaking
		if *patch.IsSpeaking {
			p.LastSpokeAt = time.Now()
		}
	}
	if patch.SpokeAt != nil {
		p.LastSpokeAt = *patch.SpokeAt
	}
	if patch.QualityScore != nil {
		p.Quality = ClassifyQuality(*patch.QualityScore)
		pr.samples.Set(participantID, *patch.QualityScore, gocache.DefaultExpiration)
	}

	return *p, true
}

// Remove deletes a participant and fires the resource-release hook.
// Returns false when the participant was not present.
func (pr *ParticipantRegistry) Remove(participantID string) bool {
	pr.mu.Lock()

	if _, exists := pr.participants[participantID]; !exists {
		pr.mu.Unlock()
		return false
	}

	delete(pr.participants, participantID)
	pr.order = lo.Without(pr.order, participantID)
	pr.samples.Delete(participantID)
	pr.removed.Add(participantID, time.Now())
	hook := pr.onRemove
	pr.mu.Unlock()

	pr.logger.Info("participant removed", zap.String("participant_id", participantID))

	if hook != nil {
		hook(participantID)
	}
	return true
}

// Get returns a copy of one participant's state
func (pr *ParticipantRegistry) Get(participantID string) (Participant, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	p, ok := pr.participants[participantID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// List returns a join-order snapshot of all participants
func (pr *ParticipantRegistry) List() []Participant {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return lo.Map(pr.order, func(id string, _ int) Participant {
		return *pr.participants[id]
	})
}

// Count returns the number of registered participants
func (pr *ParticipantRegistry) Count() int {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return len(pr.participants)
}

// LastScore returns the most recent raw quality sample for a participant
// if it has not expired.
func (pr *ParticipantRegistry) LastScore(participantID string) (float64, bool) {
	v, ok := pr.samples.Get(participantID)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}
