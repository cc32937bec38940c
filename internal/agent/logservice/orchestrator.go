// Package logservice wires the agent's log pipeline together (C12): the
// per-request assembly of C1 decode -> C2 strip -> C3/C5 detect -> C4 parse
// -> C6 group -> C7 filter, driven off one runtime log stream.
package logservice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docktail/fleet/internal/agent/ansi"
	"github.com/docktail/fleet/internal/agent/filter"
	"github.com/docktail/fleet/internal/agent/grouper"
	"github.com/docktail/fleet/internal/agent/logdecode"
	"github.com/docktail/fleet/internal/agent/logformat"
	"github.com/docktail/fleet/internal/agent/metrics"
	"github.com/docktail/fleet/internal/agent/parser"
	"github.com/docktail/fleet/internal/agent/runtime"
	"github.com/docktail/fleet/internal/shared/apierrors"
	"github.com/docktail/fleet/internal/shared/model"
)

// timerTick is the serving loop's multiline timeout poll interval.
const timerTick = 150 * time.Millisecond

// streamableLogDrivers are the only log drivers that support time-travel
// (since/until).
var streamableLogDrivers = map[string]bool{
	"json-file": true,
	"journald":  true,
	"local":     true,
}

// StreamLogsRequest is one client's stream_logs call.
type StreamLogsRequest struct {
	ContainerID string
	Follow      bool
	Pattern     string
	FilterMode  filter.Mode
	SinceSecs   *int64
	UntilSecs   *int64
	Tail        string
}

// Orchestrator owns the shared pieces (runtime, parser cache, metrics) that
// every stream_logs call uses; per-call state (grouper, sequence, filter)
// is built fresh for each request.
type Orchestrator struct {
	rt    runtime.Runtime
	cache *parser.Cache
	mx    *metrics.Metrics
	log   *logrus.Entry

	multiline func(containerName string, labels map[string]string) grouper.Config
}

// New builds an Orchestrator. multilineFor resolves the grouper config for
// one container, typically config.Config.Resolve adapted to grouper.Config.
func New(rt runtime.Runtime, cache *parser.Cache, mx *metrics.Metrics, log *logrus.Entry, multilineFor func(string, map[string]string) grouper.Config) *Orchestrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{rt: rt, cache: cache, mx: mx, log: log, multiline: multilineFor}
}

// StreamLogs runs one client request to completion, calling emit for every
// entry the pipeline produces. It returns when the stream ends, the upstream
// runtime stream errors, or ctx is cancelled.
func (o *Orchestrator) StreamLogs(ctx context.Context, req StreamLogsRequest, emit func(model.GroupedLogEntry) error) error {
	if req.ContainerID == "" {
		return apierrors.New(apierrors.KindInvalidArgument, "container id must not be empty")
	}

	var f *filter.Filter
	if req.Pattern != "" {
		var err error
		f, err = filter.New(req.Pattern, req.FilterMode)
		if err != nil {
			return apierrors.Wrap(apierrors.KindInvalidArgument, "invalid filter pattern", err)
		}
	}

	info, err := o.rt.InspectContainer(ctx, req.ContainerID)
	if err != nil {
		return apierrors.Wrap(apierrors.KindContainerNotFound, "inspect container", err)
	}

	if (req.SinceSecs != nil || req.UntilSecs != nil) && !streamableLogDrivers[info.LogDriver] {
		return apierrors.New(apierrors.KindUnsupportedLogDriver,
			fmt.Sprintf("log driver %q does not support since/until", info.LogDriver))
	}

	opts := runtime.LogOptions{
		Follow:     req.Follow,
		Stdout:     true,
		Stderr:     true,
		Timestamps: true,
		Tail:       req.Tail,
	}
	if req.SinceSecs != nil {
		opts.Since = clampToI32Seconds(*req.SinceSecs, o.log)
	}
	if req.UntilSecs != nil {
		opts.Until = clampToI32Seconds(*req.UntilSecs, o.log)
	}

	rc, err := o.rt.ContainerLogs(ctx, req.ContainerID, opts)
	if err != nil {
		return apierrors.Wrap(apierrors.KindConnectionFailed, "open log stream", err)
	}
	defer rc.Close()

	g := grouper.New(o.multiline(info.Name, info.Labels))

	return o.pump(ctx, req.ContainerID, rc, info.Labels, f, g, emit)
}

func (o *Orchestrator) pump(ctx context.Context, containerID string, rc io.ReadCloser, labels map[string]string, f *filter.Filter, g *grouper.Grouper, emit func(model.GroupedLogEntry) error) error {
	lines := make(chan []byte, 64)
	readErrs := make(chan error, 1)

	go func() {
		defer close(lines)
		br := bufio.NewReader(rc)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				cp := make([]byte, len(line))
				copy(cp, line)
				lines <- cp
			}
			if err != nil {
				if err != io.EOF {
					readErrs <- err
				}
				return
			}
		}
	}()

	// Tearing down the upstream stream promptly on cancellation means
	// unblocking the reader goroutine's blocking Read by closing rc as
	// soon as ctx is done.
	go func() {
		<-ctx.Done()
		rc.Close()
	}()

	ticker := time.NewTicker(timerTick)
	defer ticker.Stop()

	var seq uint64
	firstLine := true
	detectedFormat := model.FormatUnknown

	flushAll := func() error {
		if entry := g.Flush(); entry != nil {
			return emit(*entry)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			_ = flushAll()
			return ctx.Err()

		case <-ticker.C:
			if entry := g.CheckTimeout(time.Now()); entry != nil {
				if err := emit(*entry); err != nil {
					return err
				}
			}

		case line, ok := <-lines:
			if !ok {
				if err := <-readErrs; err != nil {
					_ = flushAll()
					return apierrors.Wrap(apierrors.KindConnectionFailed, "log stream read failed", err)
				}
				return flushAll()
			}

			tsNanos, content := logdecode.Decode(line, nil)
			stripped := ansi.Strip(content)

			if firstLine {
				detectedFormat = o.detectFormat(containerID, labels, stripped)
				firstLine = false
			}

			parseStart := time.Now()
			parsed, perr := parser.Parse(detectedFormat, stripped)
			if o.mx != nil && perr == nil {
				o.mx.RecordParse(detectedFormat, uint64(time.Since(parseStart)))
			} else if o.mx != nil {
				kind := metrics.ErrorGeneric
				if pe, ok := perr.(*parser.ParseError); ok && pe.Kind == parser.ErrLineTooLarge {
					kind = metrics.ErrorTooLarge
				} else if ok && pe.Kind == parser.ErrNonUTF8 {
					kind = metrics.ErrorNonUTF8
				}
				o.mx.RecordError(kind)
			}

			norm := model.NormalizedLogEntry{
				ContainerID:    containerID,
				TimestampNanos: tsNanos,
				Stream:         model.StreamStdout,
				Format:         detectedFormat,
				Parsed:         parsed,
				Sequence:       seq,
			}
			seq++

			for _, out := range g.Process(norm) {
				if f != nil && !f.ShouldInclude(out.Parsed.Raw) {
					continue
				}
				if err := emit(out); err != nil {
					return err
				}
			}
		}
	}
}

func (o *Orchestrator) detectFormat(containerID string, labels map[string]string, firstLine []byte) model.LogFormat {
	if v, ok := labels[logformat.LabelFormat]; ok && v != "" {
		f := logformat.FromLabel(v)
		o.cache.SetFormat(containerID, f)
		return f
	}
	if cached, ok := o.cache.GetFormat(containerID); ok {
		return cached
	}
	detected := logformat.Detect(firstLine)
	o.cache.SetFormat(containerID, detected)
	return detected
}

// clampToI32Seconds clamps a second-precision epoch to the runtime's i32
// range (the year-2038 limitation), warning when it does.
func clampToI32Seconds(v int64, log *logrus.Entry) string {
	const maxI32 = math.MaxInt32
	const minI32 = math.MinInt32
	clamped := v
	if v > maxI32 {
		clamped = maxI32
	} else if v < minI32 {
		clamped = minI32
	}
	if clamped != v {
		log.WithFields(logrus.Fields{"requested": v, "clamped": clamped}).
			Warn("since/until clamped to runtime's i32 range")
	}
	return fmt.Sprintf("%d", clamped)
}
