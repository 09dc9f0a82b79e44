package game

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Frame is one accepted step of a game: the action that produced it and the
// encoded state after it. The first frame of a replay has no action and holds
// the state NewGame returned.
type Frame struct {
	Version  int
	Action   *Action
	Checksum string
	State    []byte
}

// Replay is the recorded history of one game.
type Replay struct {
	GameID       string
	Frames       []Frame
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		Frames: make([]Frame, 0),
	}
}

// Record appends the state reached by action. action is nil for the
// initial state.
func (r *Replay) Record(action *Action, s *State) error {
	frame, err := newFrame(action, s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = append(r.Frames, frame)
	return nil
}

func newFrame(action *Action, s *State) (Frame, error) {
	data, err := Encode(s)
	if err != nil {
		return Frame{}, err
	}
	sum, err := Checksum(s)
	if err != nil {
		return Frame{}, err
	}
	frame := Frame{Version: s.Version, Checksum: sum.Hash, State: data}
	if action != nil {
		copied := *action
		frame.Action = &copied
	}
	return frame, nil
}

// Start resets playback to the first frame.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentIndex = 0
}

// Next returns the state at the playback position and advances it.
func (r *Replay) Next() (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex >= len(r.Frames) {
		return nil, nil
	}
	frame := r.Frames[r.CurrentIndex]
	r.CurrentIndex++
	return Decode(frame.State)
}

// Previous steps playback back one frame and returns that state.
func (r *Replay) Previous() (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex == 0 {
		return nil, nil
	}
	r.CurrentIndex--
	return Decode(r.Frames[r.CurrentIndex].State)
}

// Size returns the number of recorded frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Frames)
}

// StateAt decodes the state of a frame.
func (r *Replay) StateAt(index int) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.Frames) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, len(r.Frames))
	}
	return Decode(r.Frames[index].State)
}

// Verify replays every recorded action from the first frame through engine
// and checks that each resulting state matches the recorded checksum. It
// returns the index of the first diverging frame in the error.
func (r *Replay) Verify(ctx context.Context, engine *Engine) error {
	r.mu.RLock()
	frames := append([]Frame(nil), r.Frames...)
	r.mu.RUnlock()

	if len(frames) == 0 {
		return fmt.Errorf("replay %s has no frames", r.GameID)
	}
	state, err := Decode(frames[0].State)
	if err != nil {
		return fmt.Errorf("frame 0: %w", err)
	}
	for i, frame := range frames[1:] {
		if frame.Action == nil {
			return fmt.Errorf("frame %d: missing action", i+1)
		}
		state, err = engine.Apply(ctx, state, *frame.Action)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		sum, err := Checksum(state)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		if sum.Hash != frame.Checksum {
			return fmt.Errorf("frame %d: checksum mismatch: replayed=%s recorded=%s", i+1, sum.Hash, frame.Checksum)
		}
	}
	return nil
}

// SaveToFile writes the replay to <directory>/<game id>.replay as gzipped gob.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := gob.NewEncoder(gzipWriter)
	metadata := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now().UTC(),
		Version:    replayFormatVersion,
		FrameCount: len(r.Frames),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.Frames {
		if err := encoder.Encode(&r.Frames[i]); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	return ReadReplayFile(filepath.Join(directory, fmt.Sprintf("%s.replay", gameID)))
}

// ReadReplayFile reads a replay file by path.
func ReadReplayFile(filename string) (*Replay, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)
	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayFormatVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.FrameCount; i++ {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, frame)
	}
	return replay, nil
}

const replayFormatVersion = 1

type replayMetadata struct {
	GameID     string
	Timestamp  time.Time
	Version    int
	FrameCount int
}

// ReplayRecorder keeps replays of running games and writes them to disk
// when a game finishes.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	enabled map[string]bool
	saveDir string
}

// NewReplayRecorder creates a recorder saving into saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
		saveDir: saveDir,
	}
}

// StartRecording begins recording a game.
func (rr *ReplayRecorder) StartRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[gameID] = NewReplay(gameID)
	rr.enabled[gameID] = true

	if rr.logger != nil {
		rr.logger.Info("started replay recording", zap.String("game_id", gameID))
	}
}

// StopRecording stops recording a game but keeps what was recorded.
func (rr *ReplayRecorder) StopRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[gameID] = false
}

// Record appends a frame if recording is enabled for the game.
func (rr *ReplayRecorder) Record(gameID string, action *Action, s *State) {
	rr.mu.RLock()
	enabled := rr.enabled[gameID]
	replay := rr.replays[gameID]
	rr.mu.RUnlock()

	if !enabled || replay == nil {
		return
	}
	if err := replay.Record(action, s); err != nil {
		if rr.logger != nil {
			rr.logger.Warn("failed to record replay frame",
				zap.String("game_id", gameID),
				zap.Error(err),
			)
		}
		return
	}
	if rr.logger != nil {
		rr.logger.Debug("recorded replay frame",
			zap.String("game_id", gameID),
			zap.Int("frame_count", replay.Size()),
		)
	}
}

// GetReplay returns the in-memory replay of a game.
func (rr *ReplayRecorder) GetReplay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, exists := rr.replays[gameID]
	return replay, exists
}

// SaveReplay writes a replay to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[gameID]
	if !exists {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for game %s", gameID)
	}
	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	if rr.logger != nil {
		rr.logger.Info("saved replay to disk",
			zap.String("game_id", gameID),
			zap.Int("frame_count", replay.Size()),
			zap.String("directory", rr.saveDir),
		)
	}
	return nil
}

// LoadReplay reads a saved replay from the recorder's directory.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	return LoadReplayFromFile(rr.saveDir, gameID)
}

// ClearReplay drops a replay without saving it.
func (rr *ReplayRecorder) ClearReplay(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
}

// IsRecording reports whether a game is being recorded.
func (rr *ReplayRecorder) IsRecording(gameID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.enabled[gameID]
}
