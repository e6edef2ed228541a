package beatmap

import (
	"encoding/json"
	"fmt"
	"math"

	"BeatStudio/core/editorerr"
	"BeatStudio/model"
)

// Imported is the content of an accepted import file.
type Imported struct {
	Notes      []model.Note
	OffsetMs   *float64 // set when the file carried a beat offset
	Difficulty string   // export schema only
	BeatmapID  int64    // export schema only
}

// Import parses and validates data. It accepts the editor's notes document
// and the engine schema written by Export. Any invalid entry rejects the
// whole file.
func Import(data []byte) (*Imported, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, invalid("not a JSON object: "+err.Error(), "The file is not a valid beatmap JSON document.")
	}

	if raw, ok := doc["notes"]; ok {
		return importNotes(doc, raw)
	}
	if raw, ok := doc["beatmap"]; ok {
		return importBeatmap(raw)
	}
	return nil, invalid("missing notes array", "The file has no \"notes\" list.")
}

func importNotes(doc map[string]any, raw any) (*Imported, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, invalid("notes is not an array", "\"notes\" must be a list.")
	}

	out := &Imported{Notes: make([]model.Note, 0, len(list))}
	for i, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, invalidAt(i, "is not an object")
		}

		typ, _ := obj["type"].(string)
		nt := model.NoteType(typ)
		if !nt.Valid() {
			return nil, invalidAt(i, "has an unknown type")
		}
		t, ok := number(obj, "time")
		if !ok || t < 0 {
			return nil, invalidAt(i, "has no valid time")
		}

		lane := 0
		for _, key := range []string{"lane", "column"} {
			if _, present := obj[key]; !present {
				continue
			}
			v, ok := number(obj, key)
			if !ok || v < 0 || v != math.Trunc(v) {
				return nil, invalidAt(i, "has an invalid "+key)
			}
			lane = int(v)
			break
		}

		n := model.Note{ID: fmt.Sprintf("imported-%d", i), Type: nt, Time: t, Lane: lane}
		if _, present := obj["duration"]; present {
			d, ok := number(obj, "duration")
			if !ok {
				return nil, invalidAt(i, "has an invalid duration")
			}
			if nt == model.NoteHold {
				n.Duration = d
			}
		}
		if nt == model.NoteHold && n.Duration <= 0 {
			return nil, invalidAt(i, "is a hold without a positive duration")
		}
		out.Notes = append(out.Notes, n)
	}

	for _, key := range []string{"offset", "offsetMs"} {
		if _, present := doc[key]; !present {
			continue
		}
		v, ok := number(doc, key)
		if !ok {
			return nil, invalid(key+" is not numeric", "The beat offset must be a number.")
		}
		out.OffsetMs = &v
		break
	}
	return out, nil
}

func importBeatmap(raw any) (*Imported, error) {
	bm, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid("beatmap is not an object", "\"beatmap\" must be an object.")
	}
	list, ok := bm["items"].([]any)
	if !ok {
		return nil, invalid("beatmap.items missing", "The beatmap has no \"items\" list.")
	}

	out := &Imported{Notes: make([]model.Note, 0, len(list))}
	out.Difficulty, _ = bm["difficulty"].(string)
	if id, ok := number(bm, "id"); ok {
		out.BeatmapID = int64(id)
	}

	for i, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, invalidAt(i, "is not an object")
		}
		bt, ok := number(obj, "button_type")
		if !ok || (bt != model.ButtonTap && bt != model.ButtonHold) {
			return nil, invalidAt(i, "has an unknown button_type")
		}
		sec, ok := number(obj, "button_time")
		if !ok || sec < 0 {
			return nil, invalidAt(i, "has no valid button_time")
		}
		dir := 0.0
		if _, present := obj["button_direction"]; present {
			dir, ok = number(obj, "button_direction")
			if !ok || dir < 0 || dir != math.Trunc(dir) {
				return nil, invalidAt(i, "has an invalid button_direction")
			}
		}

		n := model.Note{
			ID:   fmt.Sprintf("imported-%d", i),
			Type: model.NoteTap,
			Time: math.Round(sec*1000*1000) / 1000,
			Lane: int(dir),
		}
		if bt == model.ButtonHold {
			d, ok := number(obj, "button_duration")
			if !ok || d <= 0 {
				return nil, invalidAt(i, "is a hold without a positive button_duration")
			}
			n.Type, n.Duration = model.NoteHold, d
		}
		out.Notes = append(out.Notes, n)
	}
	return out, nil
}

func number(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func invalid(internal, userMsg string) error {
	return editorerr.New(editorerr.KindValidation, "import: "+internal, "Import rejected. "+userMsg)
}

func invalidAt(i int, what string) error {
	msg := fmt.Sprintf("Note %d %s.", i, what)
	return invalid(msg, msg)
}
