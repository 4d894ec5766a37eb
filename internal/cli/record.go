package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicenav/voice-gateway/internal/audio"
	"github.com/voicenav/voice-gateway/internal/capture"
	"github.com/voicenav/voice-gateway/internal/config"
	"github.com/voicenav/voice-gateway/internal/output"
	"github.com/voicenav/voice-gateway/internal/transcription"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var open bool
	var maxDuration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice command and act on it",
		Long:  "Record from the microphone until Enter is pressed (or Ctrl+C), transcribe the recording and open the resulting URL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			transcriber, err := newTranscriber(deps.Config)
			if err != nil {
				return err
			}

			session := capture.NewSession(capture.Options{
				Device: &capture.FFmpegDevice{
					InputFormat: deps.Config.InputFormat,
					InputDevice: deps.Config.InputDevice,
				},
				Decoder:     audio.PCM16Decoder{SampleRate: audio.WAVSampleRate, Channels: audio.WAVChannels},
				Transcriber: transcription.Instrument(transcriber, deps.Logger),
				Logger:      deps.Logger,
			})
			defer session.Release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			openBrowser := open || deps.Config.OpenBrowser
			return runRecording(ctx, session, transcriber.Name(), cmd.InOrStdin(), maxDuration, formatter, func(text string) error {
				action := deps.Interpreter.Interpret(text)
				formatter.Action(action)
				if openBrowser {
					return OpenURL(action.URL)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&open, "open", "o", false, "Open the resulting URL in the default browser")
	cmd.Flags().DurationVar(&maxDuration, "max", 30*time.Second, "Stop automatically after this long")

	return cmd
}

// recordingError renders a failed recording as a user-facing status line.
type recordingError struct{ err error }

func (e *recordingError) Error() string { return output.Status(e.err) }
func (e *recordingError) Unwrap() error { return e.err }

// Below this RMS level the microphone most likely captured nothing.
const silentLevel = 0.001

// runRecording drives one start/stop cycle. Recording ends on a line from
// in, on ctx cancellation or after max.
func runRecording(ctx context.Context, session *capture.Session, provider string, in io.Reader, max time.Duration, formatter *output.Formatter, onText func(string) error) error {
	if err := session.Start(ctx); err != nil {
		return &recordingError{err: err}
	}
	started := time.Now()
	formatter.RecordingStarted()

	enter := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(in).ReadString('\n')
		close(enter)
	}()

	var timeout <-chan time.Time
	if max > 0 {
		timer := time.NewTimer(max)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-enter:
	case <-ctx.Done():
	case <-timeout:
		formatter.Info("Maximum recording length reached")
	}

	if err := session.LastError(); err != nil && session.State() == capture.StateIdle {
		return &recordingError{err: err}
	}

	formatter.RecordingStopped(time.Since(started))

	// A fresh context: the signal context may already be cancelled.
	stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	formatter.Transcribing(provider)
	result, err := session.Stop(stopCtx)
	if err != nil {
		return &recordingError{err: err}
	}

	if result.Level < silentLevel {
		formatter.Warning("Recording was nearly silent, check the input device")
	}
	formatter.Transcript(result.Text)
	return onText(result.Text)
}

func newTranscriber(cfg *config.CLIConfig) (transcription.Transcriber, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderAssemblyAI:
		if cfg.AssemblyKey == "" {
			return nil, errors.New("assemblyai_api_key is required for the assemblyai provider")
		}
		return transcription.NewAssemblyAI(transcription.AssemblyAIConfig{
			APIKey:       cfg.AssemblyKey,
			LanguageCode: cfg.Language,
		})
	case config.ProviderLocal, "":
		return transcription.NewSingleShot(transcription.SingleShotConfig{
			Endpoint: strings.TrimRight(cfg.ServerURL, "/") + "/stop_recording",
		})
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
