package recovery

import (
	"path/filepath"
	"time"

	"github.com/vinayprograms/recoverkit/config"
	rkerrors "github.com/vinayprograms/recoverkit/errors"
	"github.com/vinayprograms/recoverkit/logging"
	"github.com/vinayprograms/recoverkit/memory"
	"github.com/vinayprograms/recoverkit/state"
)

// badgerDirName is the badger database directory inside the state dir.
const badgerDirName = "badger"

const badgerRetryDelay = 50 * time.Millisecond

// Open builds an engine for a resolved project configuration.
//
// Storage that cannot be opened degrades to an in-memory store with a
// warning, so a hook invocation still produces a response.
func Open(cfg *config.Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	log := logger.WithComponent("recovery")

	store, sessions := openStores(cfg, log, defaultLockTimeout)

	return New(store, sessions,
		WithRecorder(openRecorder(cfg)),
		WithLimits(cfg.Limits),
		WithLogger(log),
		WithPruneAfter(cfg.PruneAfter()),
	)
}

func openStores(cfg *config.Config, log *logging.Logger, wait time.Duration) (state.Store, state.SessionStore) {
	switch cfg.Backend {
	case config.BackendMemory:
		m := state.NewMemoryStore()
		return m, m

	case config.BackendBadger:
		b, err := openBadger(state.BadgerConfig{
			Path:       BadgerDir(cfg),
			SyncWrites: true,
			Logger:     log.WithComponent("badger"),
		}, wait)
		if err == nil {
			return b, b
		}
		log.Warn("badger store unavailable, using memory store", map[string]interface{}{"error": err.Error()})

	default:
		fs, err := state.NewFileStore(cfg.StateDir)
		if err == nil {
			var sf *state.SessionFile
			sf, err = state.NewSessionFile(cfg.StateDir)
			if err == nil {
				return fs, sf
			}
		}
		log.Warn("file store unavailable, using memory store", map[string]interface{}{"error": err.Error()})
	}

	m := state.NewMemoryStore()
	return m, m
}

// BadgerDir is where the badger backend keeps its database.
func BadgerDir(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, badgerDirName)
}

// openBadger retries while another process holds the database directory
// lock, giving up after wait.
func openBadger(cfg state.BadgerConfig, wait time.Duration) (*state.BadgerStore, error) {
	deadline := time.Now().Add(wait)
	for {
		b, err := state.NewBadgerStore(cfg)
		if err == nil {
			return b, nil
		}
		if !rkerrors.Is(err, rkerrors.ErrCodeLockFailed) || time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(badgerRetryDelay)
	}
}

func openRecorder(cfg *config.Config) memory.Recorder {
	var recorders []memory.Recorder
	for _, name := range cfg.Recorders {
		switch name {
		case config.RecorderMarkdown:
			recorders = append(recorders, memory.NewMarkdownRecorder(cfg.MemoryDir))
		case config.RecorderBleve:
			recorders = append(recorders, memory.NewBleveRecorder(memory.BleveRecorderConfig{BasePath: cfg.MemoryDir}))
		}
	}
	return memory.NewMultiRecorder(recorders...)
}
