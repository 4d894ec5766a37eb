package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FFmpegDevice captures a microphone through ffmpeg, emitting raw s16le PCM.
type FFmpegDevice struct {
	InputFormat string // pulse, alsa, avfoundation, dshow
	InputDevice string // e.g. default, ":default", "audio=Microphone"
	ChunkSize   int    // bytes per delivered chunk
}

// CheckFFmpeg reports ErrDevice when ffmpeg is not installed.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg not found in PATH", ErrDevice)
	}
	return nil
}

// Args builds the ffmpeg command line for the given constraints.
func (d *FFmpegDevice) Args(c Constraints) []string {
	input := d.InputDevice
	if input == "" {
		input = "default"
	}
	if d.InputFormat == "avfoundation" && !strings.HasPrefix(input, ":") {
		input = ":" + input
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if d.InputFormat != "" {
		args = append(args, "-f", d.InputFormat)
	}
	args = append(args, "-i", input)

	// Echo cancellation has no ffmpeg filter; the other two map onto
	// denoise and dynamic normalization.
	var filters []string
	if c.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	if c.AutoGainControl {
		filters = append(filters, "dynaudnorm")
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	args = append(args,
		"-ac", strconv.Itoa(c.Channels),
		"-ar", strconv.Itoa(c.SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	return args
}

// Open implements Device.
func (d *FFmpegDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := CheckFFmpeg(); err != nil {
		return nil, err
	}

	cmd := exec.Command("ffmpeg", d.Args(c)...)
	// Keep a terminal Ctrl+C away from ffmpeg; Close decides when it stops.
	detachProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	chunkSize := d.ChunkSize
	if chunkSize <= 0 {
		// ~100 ms of audio per chunk
		chunkSize = c.SampleRate * c.Channels * 2 / 10
	}

	s := &ffmpegStream{
		cmd:    cmd,
		stderr: stderr,
		chunks: make(chan []byte, 64),
		exited: make(chan struct{}),
	}
	go s.read(stdout, chunkSize)
	return s, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	chunks chan []byte
	exited chan struct{}

	mu        sync.Mutex
	closing   bool
	closeOnce sync.Once
	err       error
}

func (s *ffmpegStream) read(r io.Reader, chunkSize int) {
	defer close(s.chunks)

	for {
		buf := make([]byte, chunkSize)
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			s.chunks <- buf[:n]
		}
		if err != nil {
			break
		}
	}

	waitErr := s.cmd.Wait()
	close(s.exited)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closing && waitErr != nil {
		s.err = classifyFFmpegError(s.stderr.String(), waitErr)
	}
}

func (s *ffmpegStream) Chunks() <-chan []byte { return s.chunks }

func (s *ffmpegStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close asks ffmpeg to stop with SIGINT so it flushes buffered audio,
// and kills it if it does not exit promptly.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		if s.cmd.Process == nil {
			return
		}
		_ = s.cmd.Process.Signal(os.Interrupt)
		select {
		case <-s.exited:
		case <-time.After(3 * time.Second):
			_ = s.cmd.Process.Kill()
		}
	})
	return nil
}

func classifyFFmpegError(stderr string, err error) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "operation not permitted"):
		return fmt.Errorf("%w: %s", ErrPermission, strings.TrimSpace(stderr))
	case strings.Contains(msg, "no such file or directory"),
		strings.Contains(msg, "no such device"),
		strings.Contains(msg, "input/output error"),
		strings.Contains(msg, "cannot open audio device"):
		return fmt.Errorf("%w: %s", ErrDevice, strings.TrimSpace(stderr))
	}
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitedOnInterrupt(exitErr.ProcessState) {
		return nil
	}
	return fmt.Errorf("ffmpeg exited: %v: %s", err, strings.TrimSpace(stderr))
}
