// Package taskmeta encodes structured task metadata into the provider's
// free-text notes field behind a fixed marker. The task provider has no
// extended-property storage, so assignment and category ride along as a
// trailing JSON payload. This is an isolated workaround: callers only see
// Encode/Decode/Update, so the codec can be swapped out wholesale if the
// provider ever grows native metadata.
package taskmeta

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Marker separates human-authored notes from the JSON payload.
const Marker = "--- familycal:metadata ---"

// Metadata is the string-valued bag carried behind the marker. Well-known
// keys below; arbitrary extension keys are preserved.
type Metadata map[string]string

// Well-known metadata keys.
const (
	KeyAssignedTo      = "assignedTo"
	KeyAssignedToEmail = "assignedToEmail"
	KeyCategory        = "category"
	KeyOriginalListID  = "originalListId"
)

// Encode appends metadata to notes behind the marker. Any pre-existing
// marker payload is stripped first, so repeated encodes never accumulate
// duplicate payloads. Empty metadata yields the bare trimmed notes.
func Encode(notes string, meta Metadata) string {
	clean, _ := Decode(notes)
	if len(meta) == 0 {
		return clean
	}

	// json.Marshal sorts map keys, so equal metadata always produces
	// byte-identical output.
	payload, err := json.Marshal(meta)
	if err != nil {
		// A map[string]string cannot fail to marshal; keep the notes usable
		// regardless.
		slog.Warn("taskmeta: failed to marshal metadata", "error", err)
		return clean
	}

	if clean == "" {
		return Marker + "\n" + string(payload)
	}
	return clean + "\n\n" + Marker + "\n" + string(payload)
}

// Decode splits notes into the human-authored part and the metadata payload.
// Text without the marker comes back trimmed with empty metadata. Malformed
// JSON after the marker degrades to the original trimmed text with empty
// metadata rather than failing the read.
func Decode(notes string) (string, Metadata) {
	trimmed := strings.TrimSpace(notes)

	idx := strings.LastIndex(trimmed, Marker)
	if idx < 0 {
		return trimmed, Metadata{}
	}

	human := strings.TrimSpace(trimmed[:idx])
	payload := strings.TrimSpace(trimmed[idx+len(Marker):])

	var meta Metadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		slog.Warn("taskmeta: malformed metadata payload, ignoring", "error", err)
		return trimmed, Metadata{}
	}
	if meta == nil {
		meta = Metadata{}
	}
	return human, meta
}

// Update shallow-merges partial over the metadata already present in notes
// and re-encodes. Keys in partial override, keys not mentioned are
// preserved, and a key set to the empty string removes the entry.
func Update(notes string, partial Metadata) string {
	human, meta := Decode(notes)
	for k, v := range partial {
		if v == "" {
			delete(meta, k)
			continue
		}
		meta[k] = v
	}
	return Encode(human, meta)
}
