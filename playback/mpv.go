package playback

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/media"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
	eventBuffer       = 64
)

// MPV implements Player by driving an mpv process over its JSON-IPC socket.
// The process is started on the first SetSource and kept idle between items.
type MPV struct {
	binary     string
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	listener   *listener
	events     chan Event
	logger     logrus.FieldLogger

	// mu protects socket writes.
	mu sync.Mutex
	// lifecycle protects process start and shutdown.
	lifecycle sync.Mutex
	closed    bool
}

// NewMPV returns an MPV player using the given executable, "mpv" when empty.
func NewMPV(binary string, logger logrus.FieldLogger) *MPV {
	if binary == "" {
		binary = "mpv"
	}

	return &MPV{
		binary: binary,
		events: make(chan Event, eventBuffer),
		logger: logger,
	}
}

func (m *MPV) Events() <-chan Event {
	return m.events
}

// SetSource loads item paused, replacing whatever was loaded.
func (m *MPV) SetSource(item media.Item) error {
	target, err := sanitizeMediaTarget(item.URL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	if err := m.ensureRunning(); err != nil {
		return err
	}

	if err := m.set("pause", true); err != nil {
		return err
	}
	if err := m.set("force-media-title", sanitizeTitle(item.Name)); err != nil {
		return err
	}

	_, err = m.sendCommand([]any{"loadfile", target, "replace"})
	return err
}

func (m *MPV) Play() error {
	return m.set("pause", false)
}

func (m *MPV) Pause() error {
	return m.set("pause", true)
}

// Stop unloads the current file. A player that was never started has nothing to stop.
func (m *MPV) Stop() error {
	if !m.running() {
		return nil
	}
	_, err := m.sendCommand([]any{"stop"})
	return err
}

func (m *MPV) Seek(position time.Duration) error {
	_, err := m.sendCommand([]any{"seek", position.Seconds(), "absolute"})
	return err
}

func (m *MPV) SetRate(rate float64) error {
	return m.set("speed", rate)
}

func (m *MPV) SetVolume(volume int) error {
	return m.set("volume", volume)
}

func (m *MPV) SetMuted(muted bool) error {
	return m.set("mute", muted)
}

// Close quits mpv, waiting briefly before killing it, and closes the event channel.
func (m *MPV) Close() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.listener != nil {
		m.listener.Stop()
	}

	if m.cmd != nil {
		_, _ = m.sendCommand([]any{"quit"})

		select {
		case <-m.exited:
		case <-time.After(quitTimeout):
			_ = killProcess(m.cmd)
			<-m.exited
		}

		_ = os.Remove(m.socketPath)
	}

	close(m.events)
	return nil
}

func (m *MPV) running() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.cmd == nil {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
		return true
	}
}

// ensureRunning starts mpv, or restarts it when the user closed its window.
func (m *MPV) ensureRunning() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.closed {
		return fmt.Errorf("player closed")
	}

	if m.cmd != nil {
		select {
		case <-m.exited:
			if m.listener != nil {
				m.listener.Stop()
			}
			_ = os.Remove(m.socketPath)
		default:
			return nil
		}
	}

	m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s.sock", constant.App, uuid.NewString()[:8]))
	m.cmd = exec.Command(m.binary, arguments(m.socketPath)...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		m.cmd = nil
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	m.exited = exited
	cmd := m.cmd
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			m.logger.Warn("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.listener = newListener(m.socketPath, m.events, m.logger)
	if err := m.listener.Start(); err != nil {
		return err
	}

	return nil
}

// arguments leaves everything else to the user's mpv.conf.
func arguments(socket string) []string {
	return []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", socket),
		fmt.Sprintf("--title=%s", constant.App),
		"--force-window=yes",
		"--idle=yes",
		"--keep-open=yes",
	}
}

func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) set(property string, value any) error {
	_, err := m.sendCommand([]any{"set_property", property, value})
	return err
}

// sanitizeMediaTarget keeps a reference from being read as an mpv flag.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "file":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
