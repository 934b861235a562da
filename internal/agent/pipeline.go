// Package agent runs the per-utterance pipeline: audio in, one spoken
// confirmation out. At most one utterance is in flight per session.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"voicecart/internal/dispatch"
	"voicecart/internal/logging"
	"voicecart/internal/nlu"
	"voicecart/internal/transcribe"
)

// ErrBusy is returned when an utterance is submitted while a previous
// pipeline is still running.
var ErrBusy = errors.New("an utterance is already being processed")

// noAudioMessage is shown when a recording produced no bytes. Checked
// before any gateway is called.
const noAudioMessage = "No audio recorded. Please try again."

// PageContext carries the ambient navigation state at the moment an
// utterance is submitted.
type PageContext struct {
	CurrentProductID string
}

// ProductIDFromPath derives the ambient product id from a navigation
// path of the form /products/{id}. Anything else yields no context.
func ProductIDFromPath(path string) string {
	const prefix = "/products/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// Reply is the pipeline's answer for one utterance.
type Reply struct {
	// Transcript is the recognized utterance text; empty for text input.
	Transcript string

	// Message is the confirmation to speak/display.
	Message string
}

// Pipeline wires the transcription gateway, the interpreter, and the
// dispatcher into one utterance processor.
type Pipeline struct {
	transcriber transcribe.Transcriber
	interpreter *nlu.Interpreter
	dispatcher  *dispatch.Dispatcher

	// 0 = idle, 1 = an utterance is in flight
	inFlight atomic.Int32
}

// New creates a pipeline. The transcriber may be nil when only text
// input is used.
func New(t transcribe.Transcriber, i *nlu.Interpreter, d *dispatch.Dispatcher) *Pipeline {
	return &Pipeline{transcriber: t, interpreter: i, dispatcher: d}
}

// Busy reports whether an utterance is currently being processed.
func (p *Pipeline) Busy() bool {
	return p.inFlight.Load() == 1
}

// ProcessAudio runs the full pipeline on a recorded clip. Gateway
// failures reset the pipeline to idle and come back with an apology
// framing so the caller can display them verbatim and let the user
// retry immediately.
func (p *Pipeline) ProcessAudio(ctx context.Context, audio []byte, filename, mimeType string, page PageContext) (Reply, error) {
	if len(audio) == 0 {
		return Reply{Message: noAudioMessage}, nil
	}
	if p.transcriber == nil {
		return Reply{}, errors.New("no transcriber configured")
	}
	if !p.inFlight.CompareAndSwap(0, 1) {
		return Reply{}, ErrBusy
	}
	defer p.inFlight.Store(0)

	reqID := uuid.NewString()[:8]
	log := logging.WithRequestID(logging.CategorySession, reqID)
	log.Info("Pipeline start: %d audio bytes (%s), context id=%q", len(audio), mimeType, page.CurrentProductID)

	transcript, err := p.transcriber.Transcribe(ctx, audio, filename, mimeType)
	if err != nil {
		log.Error("Transcription failed: %v", err)
		return Reply{Message: apology(err)}, err
	}
	if transcript == "" {
		log.Info("Silent clip")
		return Reply{Message: noAudioMessage}, nil
	}

	reply, err := p.run(ctx, log, transcript, page)
	reply.Transcript = transcript
	return reply, err
}

// ProcessText runs the pipeline on already-transcribed text, for typed
// input and tests.
func (p *Pipeline) ProcessText(ctx context.Context, text string, page PageContext) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Message: noAudioMessage}, nil
	}
	if !p.inFlight.CompareAndSwap(0, 1) {
		return Reply{}, ErrBusy
	}
	defer p.inFlight.Store(0)

	reqID := uuid.NewString()[:8]
	log := logging.WithRequestID(logging.CategorySession, reqID)
	log.Info("Pipeline start (text): %q, context id=%q", text, page.CurrentProductID)

	return p.run(ctx, log, text, page)
}

func (p *Pipeline) run(ctx context.Context, log *logging.RequestLogger, text string, page PageContext) (Reply, error) {
	pi, err := p.interpreter.Interpret(ctx, text, page.CurrentProductID)
	if err != nil {
		log.Error("Classification failed: %v", err)
		return Reply{Message: apology(err)}, err
	}

	result := p.dispatcher.Dispatch(pi)
	log.Info("Pipeline done: intent=%s reply=%q", pi.Intent, result.Message)
	return Reply{Message: result.Message}, nil
}

// apology wraps a gateway failure in the framing the user hears.
func apology(err error) string {
	return fmt.Sprintf("Sorry, I ran into an issue: %s", err.Error())
}
