package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/audio"
	"github.com/voicenav/voice-gateway/internal/capture"
	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/store"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamMaxMessage   = 1 << 20
)

var upgrader = websocket.Upgrader{
	// Origins are enforced by the CORS allow-list on the HTTP routes; the
	// capture stream carries no cookies.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// StreamMessage is a control frame on the capture stream. Audio itself
// travels as binary frames of 16-bit little-endian mono PCM at 44.1 kHz.
type StreamMessage struct {
	Event   string          `json:"event"`
	Session string          `json:"session,omitempty"`
	Text    string          `json:"text,omitempty"`
	Message string          `json:"message,omitempty"`
	Action  *command.Action `json:"action,omitempty"`
}

// captureConn is one WebSocket client driving one capture session.
type captureConn struct {
	conn    *websocket.Conn
	device  *capture.PushDevice
	session *capture.Session
	api     *API
	logger  zerolog.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func (a *API) handleCaptureStream(c *gin.Context) {
	logger := requestLogger(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamMaxMessage)

	device := capture.NewPushDevice(0)
	session := capture.NewSession(capture.Options{
		Device:      device,
		Decoder:     audio.PCM16Decoder{SampleRate: audio.WAVSampleRate, Channels: audio.WAVChannels},
		Transcriber: a.transcriber,
		Logger:      logger,
	})

	cc := &captureConn{
		conn:    conn,
		device:  device,
		session: session,
		api:     a,
		logger:  logger.With().Str("session_id", session.ID()).Logger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cc.logger.Info().Msg("Capture stream connected")
	cc.readLoop(ctx)

	cancel()
	session.Release()
	cc.wg.Wait()
	cc.logger.Info().Msg("Capture stream closed")
}

func (cc *captureConn) readLoop(ctx context.Context) {
	for {
		kind, data, err := cc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cc.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			cc.device.Fail(err)
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if !cc.device.Push(data) {
				cc.sendError(capture.ErrNoActiveRecording)
				continue
			}
			observability.RecordAudioBytes("capture", len(data))

		case websocket.TextMessage:
			var msg StreamMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				cc.sendError(errors.New("invalid control message"))
				continue
			}
			cc.handleControl(ctx, msg)
		}
	}
}

func (cc *captureConn) handleControl(ctx context.Context, msg StreamMessage) {
	switch msg.Event {
	case "start":
		if err := cc.session.Start(ctx); err != nil {
			cc.sendError(err)
			return
		}
		cc.send(StreamMessage{Event: "started", Session: cc.session.ID()})

	case "stop":
		// Stop blocks on the provider; keep reading so the client can
		// still close the connection.
		cc.wg.Add(1)
		go func() {
			defer cc.wg.Done()
			cc.finish(ctx)
		}()

	default:
		cc.sendError(errors.New("unknown event " + msg.Event))
	}
}

func (cc *captureConn) finish(ctx context.Context) {
	result, err := cc.session.Stop(ctx)
	if err != nil {
		cc.logger.Warn().Err(err).Msg("Capture finalization failed")
		cc.sendError(err)
		return
	}

	if _, err := cc.api.store.SaveTranscription(ctx, result.Text, store.Metadata{
		Duration:         result.Duration.Seconds(),
		FileSize:         int64(len(result.WAV)),
		OriginalFilename: "recording.wav",
	}); err != nil {
		cc.logger.Error().Err(err).Msg("Failed to persist streamed transcription")
	}

	action := cc.api.interpreter.Interpret(result.Text)
	cc.send(StreamMessage{Event: "transcript", Text: result.Text, Action: &action})
}

func (cc *captureConn) sendError(err error) {
	cc.send(StreamMessage{Event: "error", Message: err.Error()})
}

func (cc *captureConn) send(msg StreamMessage) {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()

	_ = cc.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := cc.conn.WriteJSON(msg); err != nil {
		cc.logger.Debug().Err(err).Str("event", msg.Event).Msg("Failed to write stream message")
	}
}
