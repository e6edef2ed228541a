package session

import (
	"context"
	"errors"
	"fmt"

	"BeatStudio/core/audio"
	"BeatStudio/core/beatmap"
	"BeatStudio/core/editor"
	"BeatStudio/core/editorerr"
	"BeatStudio/core/playback"
	"BeatStudio/core/timeline"
	"BeatStudio/core/waveform"
	"BeatStudio/logger"
	"BeatStudio/model"
)

// ---------- difficulty ----------

// SelectDifficulty selects a difficulty of the current song. When the song
// lists an existing beatmap for it, that file is fetched and imported.
func (s *Session) SelectDifficulty(name string) error {
	return s.call(func() error {
		if s.song == nil {
			return errNoSong()
		}
		s.difficulty, s.beatmapID = name, 0
		existing, ok := s.song.FindBeatmap(name)
		if ok {
			s.beatmapID = existing.BeatmapID
		}
		s.emitState()

		src := existing.BeatmapAssetURL
		if src == "" && existing.BeatmapAssetKey != "" {
			src = audio.ObjectScheme + existing.BeatmapAssetKey
		}
		if !ok || src == "" || s.deps.Assets == nil {
			return nil
		}

		token, ctx := s.token, s.loadCtx
		s.spawn("beatmap-fetch", func() {
			data, err := s.deps.Assets.Fetch(ctx, src)
			s.post(func() { s.finishBeatmapFetch(token, name, data, err) })
		})
		return nil
	})
}

func (s *Session) finishBeatmapFetch(token audio.LoadToken, name string, data []byte, err error) {
	if token != s.token || name != s.difficulty {
		return
	}
	if err != nil {
		if s.loadCtx != nil && s.loadCtx.Err() != nil {
			return
		}
		s.log.Warn("谱面文件下载失败", logger.String("difficulty", name), logger.ErrorField(err))
		s.notifyErr(editorerr.Wrap(err, editorerr.KindNetwork,
			"The saved beatmap for this difficulty could not be downloaded."), false)
		return
	}
	if err := s.applyImport(data); err != nil {
		s.notifyErr(err, false)
	}
}

// ---------- viewport ----------

// SetZoom clamps factor to the configured range and returns the applied zoom.
func (s *Session) SetZoom(factor float64) (float64, error) {
	var applied float64
	err := s.call(func() error {
		applied = timeline.ClampZoom(factor, s.opts.ZoomMin, s.opts.ZoomMax)
		return s.viewport.SetZoom(applied)
	})
	return applied, err
}

// SetView records the client's scroll position and visible width.
func (s *Session) SetView(scrollX, widthPx, scrubberPx float64) error {
	return s.call(func() error {
		if scrollX < 0 {
			scrollX = 0
		}
		s.scrollX = scrollX
		if widthPx > 0 {
			s.viewWidth = widthPx
		}
		if scrubberPx > 0 {
			s.scrub.SetWidth(scrubberPx)
		}
		s.emitFrame()
		return nil
	})
}

// ---------- playback ----------

// TogglePlay starts or pauses playback.
func (s *Session) TogglePlay() error {
	return s.call(s.togglePlay)
}

func (s *Session) togglePlay() error {
	if s.song == nil {
		return errNoSong()
	}
	if err := s.player.TogglePlay(); err != nil {
		s.log.Warn("播放失败", logger.ErrorField(err))
		s.notifyErr(err, false)
		return err
	}
	return nil
}

// PlayRejected reports that the client's media element refused to play.
func (s *Session) PlayRejected(reason string) error {
	return s.call(func() error {
		err := s.player.HandlePlayRejected(errors.New(reason))
		s.log.Warn("客户端拒绝播放", logger.String("reason", reason))
		s.notifyErr(err, false)
		return nil
	})
}

// Stop pauses and rewinds.
func (s *Session) Stop() error {
	return s.call(func() error {
		s.player.Stop()
		return nil
	})
}

// Seek clamps ms to the song and returns the applied position.
func (s *Session) Seek(ms float64) (float64, error) {
	var applied float64
	err := s.call(func() error {
		applied = s.seek(ms)
		return nil
	})
	return applied, err
}

// seek moves the playhead without firing hit sounds for the skipped notes.
func (s *Session) seek(ms float64) float64 {
	s.seeking = true
	defer func() { s.seeking = false }()
	return s.player.Seek(ms)
}

// SetVolume clamps v to [0, 1].
func (s *Session) SetVolume(v float64) error {
	return s.call(func() error {
		s.player.SetVolume(v)
		return nil
	})
}

// HandleMedia applies an event from the client's media element.
func (s *Session) HandleMedia(ev playback.Event) error {
	return s.call(func() error {
		s.media.Observe(ev)
		s.player.HandleEvent(ev)
		return nil
	})
}

// HandleKey toggles playback on space unless the key went to a text field.
// It reports whether the key was consumed.
func (s *Session) HandleKey(k KeyEvent) (bool, error) {
	if !k.IsSpace() || k.InTextInput() {
		return false, nil
	}
	err := s.call(s.togglePlay)
	if editorerr.Is(err, editorerr.KindPlayback) {
		return true, nil
	}
	return true, err
}

func (s *Session) onPlayback(prev, next playback.State) {
	if s.sfx && !s.seeking && next.IsPlaying && prev.IsPlaying {
		s.emitCrossed(prev.CurrentTimeMs, next.CurrentTimeMs)
	}
	s.emit(MsgTypePlayback, next)
	s.emitFrame()
}

// emitCrossed sends an sfx event for every note start in (from, to].
func (s *Session) emitCrossed(from, to float64) {
	if to <= from || to-from > maxSFXJumpMs {
		return
	}
	for _, n := range s.surface.Notes() {
		if n.Time > to {
			break
		}
		if n.Time > from {
			s.emit(MsgTypeSFX, SFXData{URL: s.opts.SFXURL, NoteID: n.ID, Lane: n.Lane})
		}
	}
}

// SetSFX turns hit sounds on or off.
func (s *Session) SetSFX(enabled bool) error {
	return s.call(func() error {
		s.sfx = enabled
		s.emitState()
		return nil
	})
}

// ---------- pointer ----------

// Pointer routes a pointer event to the surface, waveform or scrubber.
func (s *Session) Pointer(ev PointerEvent) error {
	return s.call(func() error {
		switch ev.Target {
		case TargetSurface:
			return s.surfacePointer(ev)
		case TargetWaveform:
			s.waveformPointer(ev)
		case TargetScrubber:
			s.scrubberPointer(ev)
		default:
			return editorerr.New(editorerr.KindInvalid, "unknown pointer target "+string(ev.Target),
				"Unknown pointer target.")
		}
		return nil
	})
}

func (s *Session) surfacePointer(ev PointerEvent) error {
	if s.song == nil {
		return errNoSong()
	}
	x := ev.X + s.scrollX
	var err error
	switch ev.Phase {
	case "down":
		_, err = s.surface.PointerDown(x, ev.Y, editor.Button(ev.Button))
	case "move":
		if _, ok := s.surface.PointerMove(x, ev.Y); ok {
			s.emitFrame()
		}
	case "up":
		err = s.surface.PointerUp(x, ev.Y)
		s.emitFrame()
	case "cancel":
		s.surface.Cancel()
		s.emitFrame()
	}
	if err != nil {
		s.notifyErr(err, false)
		s.emitFrame()
	}
	return err
}

func (s *Session) waveformPointer(ev PointerEvent) {
	if s.wave.State() != waveform.StateReady {
		return
	}
	switch ev.Phase {
	case "down":
		s.waveDrag = true
	case "move":
		if !s.waveDrag {
			return
		}
	case "up":
		if !s.waveDrag {
			return
		}
		s.waveDrag = false
	default:
		s.waveDrag = false
		return
	}
	s.seek(waveform.PointerSeek(s.viewport.Snapshot(), s.scrollX, ev.X))
}

func (s *Session) scrubberPointer(ev PointerEvent) {
	ps := s.player.State()
	s.scrub.Render(ps.CurrentTimeMs, ps.DurationMs)

	var (
		ms float64
		ok bool
	)
	switch ev.Phase {
	case "down":
		ms, ok = s.scrub.PointerDown(ev.X)
	case "move":
		ms, ok = s.scrub.PointerMove(ev.X)
	case "up", "cancel":
		ms, ok = s.scrub.PointerUp(ev.X)
	}
	if ok {
		s.seek(ms)
	}
}

// ---------- notes ----------

// SetSnap changes snapping.
func (s *Session) SetSnap(cfg editor.SnapConfig) error {
	return s.call(func() error {
		if err := s.surface.SetSnap(cfg); err != nil {
			return err
		}
		s.emitState()
		return nil
	})
}

// SetTool selects the type of newly placed notes.
func (s *Session) SetTool(t model.NoteType) error {
	return s.call(func() error {
		if err := s.surface.SetTool(t); err != nil {
			return err
		}
		s.emitState()
		return nil
	})
}

// AddNote places a note at ms on lane with the surface's snapping applied.
func (s *Session) AddNote(ms float64, lane int, typ model.NoteType) (model.Note, error) {
	var n model.Note
	err := s.call(func() error {
		if s.song == nil {
			return errNoSong()
		}
		var err error
		n, err = s.surface.AddNote(ms, lane, typ)
		return err
	})
	return n, err
}

// DeleteNote removes a note by id.
func (s *Session) DeleteNote(id string) error {
	return s.call(func() error { return s.surface.DeleteNote(id) })
}

// ChangeNoteType switches a note between tap and hold.
func (s *Session) ChangeNoteType(id string, typ model.NoteType) error {
	return s.call(func() error { return s.surface.ChangeType(id, typ) })
}

// Notes returns the committed note list.
func (s *Session) Notes() ([]model.Note, error) {
	var notes []model.Note
	err := s.call(func() error {
		notes = s.surface.Notes()
		return nil
	})
	return notes, err
}

// ---------- import / export ----------

// Import replaces the note list with the content of data. A rejected file
// leaves the notes untouched and tells the client to reset its file input.
func (s *Session) Import(data []byte) (int, error) {
	var count int
	err := s.call(func() error {
		if s.song == nil {
			return errNoSong()
		}
		if err := s.applyImport(data); err != nil {
			s.log.Warn("谱面导入被拒绝", logger.ErrorField(err))
			s.notifyErr(err, true)
			return err
		}
		count = len(s.surface.Notes())
		return nil
	})
	return count, err
}

func (s *Session) applyImport(data []byte) error {
	imp, err := beatmap.Import(data)
	if err != nil {
		return err
	}
	s.surface.SetNotes(imp.Notes)
	if imp.OffsetMs != nil {
		s.setTempo(s.bpm, *imp.OffsetMs, TempoImported)
	}
	if imp.BeatmapID != 0 && s.beatmapID == 0 && sameDifficulty(imp.Difficulty, s.difficulty) {
		s.beatmapID = imp.BeatmapID
	}
	s.log.Info("谱面导入成功", logger.Int("notes", len(imp.Notes)))
	s.notify(LevelInfo, "", fmt.Sprintf("Imported %d notes.", len(imp.Notes)))
	return nil
}

// sameDifficulty compares difficulty names, an empty name meaning the default.
func sameDifficulty(a, b string) bool {
	if a == "" {
		a = beatmap.DefaultDifficulty
	}
	if b == "" {
		b = beatmap.DefaultDifficulty
	}
	return a == b
}

// Export serialises the note list. It returns the JSON document and its
// download file name.
func (s *Session) Export() ([]byte, string, error) {
	var (
		data []byte
		name string
	)
	err := s.call(func() error {
		opts, err := s.exportOptions()
		if err != nil {
			return err
		}
		data, name, err = beatmap.Export(s.surface.Notes(), opts)
		return err
	})
	return data, name, err
}

// ExportFile returns the export document as a struct, used for persistence.
func (s *Session) ExportFile() (model.BeatmapFile, error) {
	var f model.BeatmapFile
	err := s.call(func() error {
		opts, err := s.exportOptions()
		if err != nil {
			return err
		}
		f = beatmap.Build(s.surface.Notes(), opts)
		return nil
	})
	return f, err
}

// Tempo returns the tempo in effect.
func (s *Session) Tempo() (TempoData, error) {
	var t TempoData
	err := s.call(func() error {
		t = s.tempoData()
		return nil
	})
	return t, err
}

// SetBeatmapID records the id assigned by persistence so later exports
// update the same beatmap.
func (s *Session) SetBeatmapID(id int64) error {
	return s.call(func() error {
		s.beatmapID = id
		return nil
	})
}

func (s *Session) exportOptions() (beatmap.ExportOptions, error) {
	if s.song == nil {
		return beatmap.ExportOptions{}, errNoSong()
	}
	return beatmap.ExportOptions{
		SongID:     s.song.ID,
		SongTitle:  s.song.Title,
		Difficulty: s.difficulty,
		BeatmapID:  s.beatmapID,
	}, nil
}

// WaitIdle is Settle bounded by ctx.
func (s *Session) WaitIdle(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.Settle() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
