package songapi

import (
	"strconv"

	"BeatStudio/logger"
	"BeatStudio/model"
)

// Duration sources reported by DeriveDuration.
const (
	DurationFromAudio    = "audio_duration"
	DurationFromReff     = "reff_end"
	DurationFromFallback = "fallback"
)

// DeriveDuration picks the working song length in seconds: audio_duration if
// positive, else reff_end when it lies after reff_start, else fallbackSec.
// Both non-primary cases log a warning.
func DeriveDuration(d *model.SongDetail, fallbackSec float64) (float64, string) {
	if d.AudioDuration != nil && *d.AudioDuration > 0 {
		return *d.AudioDuration, DurationFromAudio
	}
	if d.ReffEnd != nil {
		start := 0.0
		if d.ReffStart != nil {
			start = *d.ReffStart
		}
		if *d.ReffEnd > start {
			logger.Warn("歌曲缺少audio_duration，使用reff_end作为时长",
				logger.Int64("songId", d.SongID), logger.Float64("reffEnd", *d.ReffEnd))
			return *d.ReffEnd, DurationFromReff
		}
	}
	logger.Warn("歌曲时长不可用，使用默认时长",
		logger.Int64("songId", d.SongID), logger.Float64("fallbackSec", fallbackSec))
	return fallbackSec, DurationFromFallback
}

// Defaults are the configured values used when a song lacks its own.
type Defaults struct {
	NominalBPM          float64
	FallbackDurationSec float64
}

// ToSong converts a backend detail into an editor song. A missing bpm falls
// back to the configured nominal tempo with a warning.
func ToSong(d *model.SongDetail, def Defaults) *model.Song {
	dur, _ := DeriveDuration(d, def.FallbackDurationSec)
	s := &model.Song{
		ID:       strconv.FormatInt(d.SongID, 10),
		Title:    d.SongTitle,
		Duration: dur,
		AudioURL: d.AudioURL,
		AudioKey: d.AudioKey,
		Beatmaps: d.Beatmaps,
	}
	if d.BPM != nil && *d.BPM > 0 {
		s.BPM, s.BPMDeclared = *d.BPM, true
	} else {
		logger.Warn("歌曲未声明BPM，使用配置的名义BPM",
			logger.String("songId", s.ID), logger.Float64("nominalBpm", def.NominalBPM))
		s.BPM = def.NominalBPM
	}
	return s
}
