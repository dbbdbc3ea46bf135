package jwtgate

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileSecret serves an HMAC secret read from a file and reloads it whenever
// the file changes, so secrets can be rotated without a restart.
type FileSecret struct {
	path   string
	logger *zap.Logger

	secret atomic.Pointer[[]byte]

	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stoppedCh chan struct{}
	closeOnce sync.Once

	debounce time.Duration
}

// FileSecretOption configures a FileSecret.
type FileSecretOption func(*FileSecret)

// WithFileSecretLogger sets the logger used to report reloads.
func WithFileSecretLogger(logger *zap.Logger) FileSecretOption {
	return func(s *FileSecret) {
		s.logger = logger
	}
}

// WithDebounce sets how long to wait for writes to settle before reloading.
func WithDebounce(d time.Duration) FileSecretOption {
	return func(s *FileSecret) {
		s.debounce = d
	}
}

// NewFileSecret loads the secret at path and starts watching it. Leading and
// trailing whitespace of the file is ignored. Call Close to stop watching.
func NewFileSecret(path string, opts ...FileSecretOption) (*FileSecret, error) {
	s := &FileSecret{
		path:      path,
		logger:    zap.NewNop(),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		debounce:  defaultDebounce,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("jwtgate: create watcher: %w", err)
	}
	// Watch the directory: editors and secret mounts replace the file
	// instead of writing to it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("jwtgate: watch secret directory: %w", err)
	}
	s.watcher = watcher

	go s.watch()

	return s, nil
}

// ResolveSecret implements SecretProvider.
func (s *FileSecret) ResolveSecret(*http.Request, map[string]any, any) (any, error) {
	return *s.secret.Load(), nil
}

// Close stops watching the file. The last loaded secret stays in use.
func (s *FileSecret) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		err = s.watcher.Close()
		<-s.stoppedCh
	})
	return err
}

func (s *FileSecret) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("jwtgate: read secret file: %w", err)
	}

	secret := bytes.TrimSpace(raw)
	if len(secret) == 0 {
		return fmt.Errorf("jwtgate: secret file %s is empty", s.path)
	}

	s.secret.Store(&secret)
	return nil
}

func (s *FileSecret) watch() {
	defer close(s.stoppedCh)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	target := filepath.Clean(s.path)

	for {
		select {
		case <-s.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(s.debounce)
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if err := s.load(); err != nil {
				s.logger.Warn("secret reload failed, keeping previous secret",
					zap.String("path", s.path),
					zap.Error(err),
				)
				continue
			}
			s.logger.Info("secret reloaded", zap.String("path", s.path))

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("secret watcher error", zap.Error(err))
		}
	}
}
