package taskmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	meta := Metadata{
		KeyAssignedTo: "mom",
		KeyCategory:   "chores",
	}

	encoded := Encode("Buy milk\n", meta)

	notes, decoded := Decode(encoded)
	assert.Equal(t, "Buy milk", notes)
	assert.Equal(t, meta, decoded)
}

func TestEncodeIdempotent(t *testing.T) {
	meta := Metadata{KeyAssignedTo: "dad", KeyCategory: "errand"}

	once := Encode("Pick up dry cleaning", meta)
	twice := Encode(once, meta)

	assert.Equal(t, once, twice, "re-encoding must not duplicate the marker payload")
}

func TestEncodeEmptyMetadata(t *testing.T) {
	assert.Equal(t, "Just notes", Encode("  Just notes  ", nil))
	assert.Equal(t, "Just notes", Encode("Just notes", Metadata{}))
}

func TestEncodeEmptyNotes(t *testing.T) {
	encoded := Encode("", Metadata{KeyCategory: "school"})

	notes, meta := Decode(encoded)
	assert.Empty(t, notes)
	assert.Equal(t, Metadata{KeyCategory: "school"}, meta)
}

func TestDecodeWithoutMarker(t *testing.T) {
	notes, meta := Decode("  plain text notes\n")
	assert.Equal(t, "plain text notes", notes)
	assert.Empty(t, meta)
}

func TestDecodeMalformedPayload(t *testing.T) {
	raw := "Call the dentist\n\n" + Marker + "\n{not json"

	notes, meta := Decode(raw)
	assert.Equal(t, raw, notes, "malformed payload degrades to the full trimmed text")
	assert.Empty(t, meta)
}

func TestDecodeEmpty(t *testing.T) {
	notes, meta := Decode("")
	assert.Empty(t, notes)
	require.NotNil(t, meta)
	assert.Empty(t, meta)
}

func TestUpdateMergesAndPreserves(t *testing.T) {
	start := Encode("Homework", Metadata{
		KeyAssignedTo: "kid1",
		KeyCategory:   "school",
	})

	updated := Update(start, Metadata{KeyAssignedTo: "kid2"})

	notes, meta := Decode(updated)
	assert.Equal(t, "Homework", notes)
	assert.Equal(t, "kid2", meta[KeyAssignedTo], "mentioned keys override")
	assert.Equal(t, "school", meta[KeyCategory], "unmentioned keys are preserved")
}

func TestUpdateRemovesEmptyValues(t *testing.T) {
	start := Encode("Homework", Metadata{KeyAssignedTo: "kid1"})

	updated := Update(start, Metadata{KeyAssignedTo: ""})

	_, meta := Decode(updated)
	assert.NotContains(t, meta, KeyAssignedTo)
}

func TestRepeatedUpdateStaysStable(t *testing.T) {
	notes := "Weekly shop"
	meta := Metadata{KeyAssignedTo: "mom"}

	a := Update(notes, meta)
	b := Update(a, meta)
	c := Update(b, meta)

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}
