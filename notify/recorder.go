package notify

import "sync"

// Recorder is an in-memory Sink/EffectSink used by tests.
type Recorder struct {
	mu         sync.Mutex
	Broadcasts []RecordedBroadcast
	Directs    []RecordedDirect
	Effects    []RecordedEffect
}

type RecordedBroadcast struct {
	GuildID, Title, Body string
}

type RecordedDirect struct {
	PlayerID int64
	Message  string
}

type RecordedEffect struct {
	Op        string
	PlayerID  int64
	GuildID   string
	Type      string
	Magnitude float64
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) GuildBroadcast(guildID, title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Broadcasts = append(r.Broadcasts, RecordedBroadcast{guildID, title, body})
}

func (r *Recorder) PlayerNotify(playerID int64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Directs = append(r.Directs, RecordedDirect{playerID, message})
}

func (r *Recorder) ApplyEffect(playerID int64, guildID, effectType string, magnitude float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Effects = append(r.Effects, RecordedEffect{"apply", playerID, guildID, effectType, magnitude})
}

func (r *Recorder) RemoveEffect(playerID int64, guildID, effectType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Effects = append(r.Effects, RecordedEffect{"remove", playerID, guildID, effectType, 0})
}

// BroadcastCount returns the number of recorded guild broadcasts.
func (r *Recorder) BroadcastCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Broadcasts)
}

// EffectsFor returns the recorded effect events for one player.
func (r *Recorder) EffectsFor(playerID int64) []RecordedEffect {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RecordedEffect
	for _, e := range r.Effects {
		if e.PlayerID == playerID {
			out = append(out, e)
		}
	}
	return out
}
