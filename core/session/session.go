// Package session runs one beatmap editing session. All editor state is owned
// by a single goroutine; external calls and async completions are closures
// processed in FIFO order from one inbox.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"BeatStudio/config"
	"BeatStudio/core/audio"
	"BeatStudio/core/editor"
	"BeatStudio/core/editorerr"
	"BeatStudio/core/playback"
	"BeatStudio/core/scrubber"
	"BeatStudio/core/songapi"
	"BeatStudio/core/tempo"
	"BeatStudio/core/timeline"
	"BeatStudio/core/waveform"
	"BeatStudio/logger"
	"BeatStudio/model"
)

// ErrClosed is returned by calls on a closed session.
var ErrClosed = errors.New("session closed")

const (
	inboxSize       = 256
	maxWarnings     = 20
	maxSFXJumpMs    = 1000 // larger forward jumps are seeks, not playback
	defaultViewPx   = 1200
	defaultScrubber = 800
)

// AudioLoader fetches and decodes song audio.
type AudioLoader interface {
	Load(ctx context.Context, token audio.LoadToken, url string) (*audio.Buffer, error)
}

// Deps are the session's collaborators.
type Deps struct {
	Songs  songapi.SongSource
	Audio  AudioLoader
	Tempo  tempo.Estimator
	Assets audio.Fetcher // existing beatmap files, by URL or object key
}

// Options are the editor constants.
type Options struct {
	PixelsPerMs float64
	ZoomMin     float64
	ZoomMax     float64
	Layout      editor.Layout
	Snap        editor.SnapConfig
	MinHoldMs   float64
	SFXURL      string
	ViewWidthPx float64
}

// OptionsFromConfig 从配置构建会话参数
func OptionsFromConfig(cfg *config.Config) Options {
	layout := editor.DefaultLayout()
	layout.LaneCount = cfg.LaneCount
	layout.LaneHeightPx = cfg.LaneHeightPx
	return Options{
		PixelsPerMs: cfg.PixelsPerMs,
		ZoomMin:     cfg.ZoomMin,
		ZoomMax:     cfg.ZoomMax,
		Layout:      layout,
		Snap:        editor.SnapConfig{Enabled: true, Division: cfg.SnapDivision},
		MinHoldMs:   cfg.MinHoldDurationMs,
		SFXURL:      cfg.SFXURL,
		ViewWidthPx: defaultViewPx,
	}
}

// Session 编辑会话
type Session struct {
	ID string

	deps Deps
	opts Options
	log  *logger.Scoped

	inbox     chan func()
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	jobsMu   sync.Mutex
	jobsCond *sync.Cond
	jobs     int

	lastActive atomic.Int64

	subMu   sync.RWMutex
	subs    map[int]func(Event)
	nextSub int

	// Everything below is owned by the loop goroutine.
	song       *model.Song
	difficulty string
	beatmapID  int64
	gen        uint64
	token      audio.LoadToken
	loadCtx    context.Context
	loadCancel context.CancelFunc
	buffer     *audio.Buffer
	loadErr    error
	bpm        float64
	offsetMs   float64
	tempoSrc   string
	tracker    *tempo.Tracker
	viewport   *timeline.Viewport
	wave       *waveform.Renderer
	scrub      *scrubber.Scrubber
	surface    *editor.Surface
	media      *playback.RemoteElement
	player     *playback.Controller
	sfx        bool
	scrollX    float64
	viewWidth  float64
	waveDrag   bool
	seeking    bool // set while a seek updates the player
	warnings   []Notification
}

// New creates a session. Run must be started for it to process calls.
func New(id string, deps Deps, opts Options) *Session {
	if opts.PixelsPerMs <= 0 {
		opts.PixelsPerMs = 0.2
	}
	if opts.ZoomMin <= 0 {
		opts.ZoomMin = 0.25
	}
	if opts.ZoomMax < opts.ZoomMin {
		opts.ZoomMax = opts.ZoomMin
	}
	if opts.ViewWidthPx <= 0 {
		opts.ViewWidthPx = defaultViewPx
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		deps:      deps,
		opts:      opts,
		log:       logger.With(logger.String("sessionId", id)),
		inbox:     make(chan func(), inboxSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[int]func(Event)),
		tracker:   tempo.NewTracker(),
		viewport:  timeline.NewViewport(opts.PixelsPerMs),
		wave:      waveform.NewRenderer(),
		scrub:     scrubber.New(defaultScrubber),
		viewWidth: opts.ViewWidthPx,
		tempoSrc:  TempoNominal,
	}
	s.jobsCond = sync.NewCond(&s.jobsMu)
	s.touch()

	s.surface = editor.NewSurface(s.viewport, opts.Layout, opts.Snap, opts.MinHoldMs)
	s.media = playback.NewRemoteElement(func(cmd playback.Command) bool {
		return s.emit(MsgTypeMedia, cmd) > 0
	})
	s.player = playback.NewController(s.media)

	s.viewport.Subscribe(func(snap timeline.Snapshot) {
		s.emit(MsgTypeViewport, snap)
		s.emitFrame()
	})
	s.surface.OnChange(func(notes []model.Note) {
		s.emit(MsgTypeNotes, notes)
	})
	s.player.OnChange(s.onPlayback)
	return s
}

// Run processes the inbox until Close. It returns after in-flight work has
// been cancelled.
func (s *Session) Run() {
	defer s.shutdown()
	s.log.Info("编辑会话启动")
	for {
		select {
		case fn := <-s.inbox:
			s.step(fn)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) step(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("会话处理异常", logger.Any("panic", r))
		}
	}()
	fn()
}

func (s *Session) shutdown() {
	if s.loadCancel != nil {
		s.loadCancel()
	}
	close(s.done)
	s.log.Info("编辑会话结束")
}

// Close cancels in-flight work and stops the loop. It is safe to call more
// than once and waits for the loop to exit.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

// Done is closed when the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// LastActive is the time of the last external call.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixNano()) }

// call runs fn on the loop and waits for it.
func (s *Session) call(fn func() error) error {
	s.touch()
	errc := make(chan error, 1)
	select {
	case s.inbox <- func() { errc <- fn() }:
	case <-s.done:
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	}
}

// post enqueues fn from a background job. It is dropped once the session
// has closed.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

// spawn runs job in its own goroutine and tracks it for Settle.
func (s *Session) spawn(name string, job func()) {
	s.jobsMu.Lock()
	s.jobs++
	s.jobsMu.Unlock()

	go func() {
		defer func() {
			s.jobsMu.Lock()
			s.jobs--
			s.jobsCond.Broadcast()
			s.jobsMu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("后台任务异常", logger.String("job", name), logger.Any("panic", r))
			}
		}()
		job()
	}()
}

// Settle blocks until no background job is running and every completion
// they posted has been applied.
func (s *Session) Settle() error {
	for {
		s.jobsMu.Lock()
		for s.jobs > 0 {
			s.jobsCond.Wait()
		}
		s.jobsMu.Unlock()

		if err := s.call(func() error { return nil }); err != nil {
			return err
		}

		s.jobsMu.Lock()
		idle := s.jobs == 0
		s.jobsMu.Unlock()
		if idle {
			return nil
		}
	}
}

// Subscribe registers fn for every emitted event. fn runs on the loop and
// must not block or call back into the session.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *Session) SubscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}

func (s *Session) emit(t MessageType, data interface{}) int {
	s.subMu.RLock()
	subs := make([]func(Event), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.subMu.RUnlock()

	ev := Event{Type: t, Data: data}
	for _, fn := range subs {
		fn(ev)
	}
	return len(subs)
}

// ---------- song lifecycle ----------

// SelectSong resolves id through the song sources and loads it.
func (s *Session) SelectSong(ctx context.Context, id string) (*model.Song, error) {
	if s.deps.Songs == nil {
		return nil, editorerr.New(editorerr.KindNotFound, "no song source configured", "No song source is configured.")
	}
	song, err := s.deps.Songs.GetSong(ctx, id)
	if err != nil {
		s.call(func() error {
			s.notifyErr(err, false)
			return nil
		})
		return nil, err
	}
	return song, s.LoadSong(*song)
}

// LoadSong switches to song. Any in-flight load or detection for the
// previous song is cancelled and its results will be discarded.
func (s *Session) LoadSong(song model.Song) error {
	return s.call(func() error {
		s.applySong(song)
		return nil
	})
}

// RetryLoad reloads the current song's audio.
func (s *Session) RetryLoad() error {
	return s.call(func() error {
		if s.song == nil {
			return errNoSong()
		}
		s.applySong(*s.song)
		return nil
	})
}

func (s *Session) applySong(song model.Song) {
	s.abandonInFlight()

	s.gen++
	s.token = audio.LoadToken{SongID: song.ID, Generation: s.gen}
	s.song = &song
	s.difficulty, s.beatmapID = "", 0
	s.buffer, s.loadErr = nil, nil
	s.warnings = nil
	s.waveDrag = false

	s.player.Reset()
	s.surface.SetNotes(nil)
	s.setTempo(song.BPM, 0, TempoNominal)
	s.viewport.SetDuration(song.DurationMs())
	s.player.SetDuration(song.DurationMs())
	s.wave.SetLoading()

	s.log.Info("切换歌曲",
		logger.String("songId", song.ID),
		logger.Uint64("generation", s.gen),
		logger.Float64("bpm", song.BPM))
	if !song.BPMDeclared {
		s.notify(LevelWarning, string(editorerr.KindDetection),
			fmt.Sprintf("This song declares no tempo; using the nominal %.0f BPM until detection finishes.", song.BPM))
	}

	s.media.Load(song.AudioURL)
	s.startLoad(audioSource(&song))
	s.emitState()
}

// audioSource prefers the HTTP URL and falls back to the object key.
func audioSource(song *model.Song) string {
	if song.AudioURL != "" {
		return song.AudioURL
	}
	if song.AudioKey != "" {
		return audio.ObjectScheme + song.AudioKey
	}
	return ""
}

func (s *Session) abandonInFlight() {
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	if s.song != nil {
		s.tracker.Abandon(s.song.ID)
	}
}

func (s *Session) startLoad(url string) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.loadCtx, s.loadCancel = ctx, cancel
	token := s.token

	if url == "" || s.deps.Audio == nil {
		err := editorerr.New(editorerr.KindNetwork, "song has no audio source", "This song has no audio file.")
		s.finishLoad(token, nil, err)
		return
	}

	s.spawn("audio-load", func() {
		buf, err := s.deps.Audio.Load(ctx, token, url)
		s.post(func() { s.finishLoad(token, buf, err) })
	})
}

func (s *Session) finishLoad(token audio.LoadToken, buf *audio.Buffer, err error) {
	if token != s.token {
		s.log.Debug("丢弃过期的音频加载结果",
			logger.String("songId", token.SongID), logger.Uint64("generation", token.Generation))
		return
	}
	if err != nil {
		if errors.Is(err, editorerr.ErrCanceled) {
			return
		}
		s.loadErr = err
		s.wave.SetError(err)
		s.log.Warn("音频加载失败", logger.String("songId", token.SongID), logger.ErrorField(err))
		s.notifyErr(err, false)
		s.emitFrame()
		return
	}

	s.buffer = buf
	s.wave.SetBuffer(buf)
	ms := buf.DurationSeconds * 1000
	s.song.Duration = buf.DurationSeconds
	s.viewport.SetDuration(ms)
	s.player.SetDuration(ms)
	s.emitFrame()
	s.startDetection(token, buf)
}

func (s *Session) startDetection(token audio.LoadToken, buf *audio.Buffer) {
	id := token.SongID
	if r, ok := s.tracker.Result(id); ok {
		src := TempoDetected
		if s.tracker.Status(id) == tempo.StatusFailed {
			src = TempoFallback
		}
		s.setTempo(r.BPM, r.OffsetMs, src)
		return
	}
	if s.deps.Tempo == nil || !s.tracker.Begin(id) {
		return
	}

	ctx := s.loadCtx
	s.emitTempo()
	s.spawn("tempo-detect", func() {
		r, err := s.detect(ctx, buf)
		s.post(func() { s.finishDetection(token, r, err) })
	})
}

func (s *Session) detect(ctx context.Context, buf *audio.Buffer) (r tempo.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = editorerr.New(editorerr.KindDetection, fmt.Sprintf("tempo detector panic: %v", p),
				"Tempo detection failed.")
		}
	}()
	return s.deps.Tempo.Detect(ctx, buf)
}

func (s *Session) finishDetection(token audio.LoadToken, r tempo.Result, err error) {
	if token != s.token {
		s.log.Debug("丢弃过期的节拍检测结果", logger.String("songId", token.SongID))
		return
	}
	id := token.SongID
	if errors.Is(err, editorerr.ErrCanceled) || errors.Is(err, context.Canceled) {
		s.tracker.Abandon(id)
		return
	}
	if err != nil {
		fallback := tempo.Result{BPM: s.song.BPM}
		s.tracker.Fail(id, fallback)
		s.log.Warn("节拍检测失败，使用名义BPM",
			logger.String("songId", id), logger.Float64("bpm", fallback.BPM), logger.ErrorField(err))
		s.setTempo(fallback.BPM, 0, TempoFallback)
		msg := editorerr.Message(err)
		if !editorerr.Is(err, editorerr.KindDetection) {
			msg = "Tempo detection failed."
		}
		s.notify(LevelWarning, string(editorerr.KindDetection),
			fmt.Sprintf("%s Using %.0f BPM.", msg, fallback.BPM))
		return
	}

	s.tracker.Done(id, r)
	s.log.Info("节拍检测完成",
		logger.String("songId", id), logger.Float64("bpm", r.BPM), logger.Float64("offsetMs", r.OffsetMs))
	s.setTempo(r.BPM, r.OffsetMs, TempoDetected)
}

func (s *Session) setTempo(bpm, offsetMs float64, src string) {
	s.bpm, s.offsetMs, s.tempoSrc = bpm, offsetMs, src
	s.surface.SetTempo(bpm, offsetMs)
	s.emitTempo()
}

func (s *Session) tempoData() TempoData {
	st := tempo.StatusNotStarted
	if s.song != nil {
		st = s.tracker.Status(s.song.ID)
	}
	return TempoData{BPM: s.bpm, OffsetMs: s.offsetMs, Source: s.tempoSrc, Status: st}
}

// ---------- notifications ----------

func (s *Session) notify(level Level, kind, msg string) {
	n := Notification{Level: level, Kind: kind, Message: msg, At: time.Now()}
	s.warnings = append(s.warnings, n)
	if len(s.warnings) > maxWarnings {
		s.warnings = s.warnings[len(s.warnings)-maxWarnings:]
	}
	s.emit(MsgTypeNotification, n)
}

func (s *Session) notifyErr(err error, resetFile bool) {
	level := LevelError
	if editorerr.Is(err, editorerr.KindDetection) {
		level = LevelWarning
	}
	n := Notification{
		Level:          level,
		Kind:           string(editorerr.KindOf(err)),
		Message:        editorerr.Message(err),
		ResetFileInput: resetFile,
		At:             time.Now(),
	}
	s.warnings = append(s.warnings, n)
	if len(s.warnings) > maxWarnings {
		s.warnings = s.warnings[len(s.warnings)-maxWarnings:]
	}
	s.emit(MsgTypeNotification, n)
}

func errNoSong() error {
	return editorerr.New(editorerr.KindInvalid, "no song selected", "Select a song first.")
}

// ---------- rendering ----------

func (s *Session) emitTempo() { s.emit(MsgTypeTempo, s.tempoData()) }

func (s *Session) frame() FrameData {
	snap := s.viewport.Snapshot()
	ps := s.player.State()
	f := FrameData{
		Waveform: s.wave.Render(snap, ps.CurrentTimeMs, s.scrollX, int(s.viewWidth)),
		Scrubber: s.scrub.Render(ps.CurrentTimeMs, ps.DurationMs),
	}
	if p, ok := s.surface.Preview(); ok {
		f.Preview = &p
	}
	return f
}

func (s *Session) emitFrame() {
	if s.SubscriberCount() == 0 {
		return
	}
	s.emit(MsgTypeFrame, s.frame())
}

func (s *Session) state() State {
	st := State{
		SessionID:   s.ID,
		Difficulty:  s.difficulty,
		BeatmapID:   s.beatmapID,
		Generation:  s.gen,
		Notes:       s.surface.Notes(),
		Playback:    s.player.State(),
		Viewport:    s.viewport.Snapshot(),
		Tempo:       s.tempoData(),
		Waveform:    s.wave.State(),
		Snap:        s.surface.Snap(),
		Tool:        s.surface.Tool(),
		SFXEnabled:  s.sfx,
		SFXURL:      s.opts.SFXURL,
		HasAudio:    s.buffer != nil,
		ScrollX:     s.scrollX,
		ViewWidthPx: s.viewWidth,
	}
	if s.song != nil {
		song := *s.song
		st.Song = &song
	}
	if s.loadErr != nil {
		st.LoadError = editorerr.Message(s.loadErr)
	}
	if len(s.warnings) > 0 {
		st.Warnings = append([]Notification(nil), s.warnings...)
	}
	return st
}

func (s *Session) emitState() { s.emit(MsgTypeState, s.state()) }

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() (State, error) {
	var st State
	err := s.call(func() error {
		st = s.state()
		return nil
	})
	return st, err
}

// Redraw re-emits the full state and a frame.
func (s *Session) Redraw() error {
	return s.call(func() error {
		s.emitState()
		s.emitFrame()
		return nil
	})
}

// Buffer returns the decoded audio of the current song, if loaded.
func (s *Session) Buffer() (*audio.Buffer, error) {
	var buf *audio.Buffer
	err := s.call(func() error {
		buf = s.buffer
		return nil
	})
	return buf, err
}
