package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_TwoBlocks(t *testing.T) {
	text := "[filament: PLA Red]\nfilament_type=PLA\n[printer: MK3]\nnozzle_diameter=0.4"

	blocks := Blocks(text)
	require.Len(t, blocks, 2)

	assert.Equal(t, Block{ProfileType: "filament", ProfileName: "PLA Red", Content: "filament_type=PLA"}, blocks[0])
	assert.Equal(t, Block{ProfileType: "printer", ProfileName: "MK3", Content: "nozzle_diameter=0.4"}, blocks[1])
}

func TestSplit_NoHeaders(t *testing.T) {
	inputs := []string{
		"",
		"layer_height = 0.2\nperimeters = 2",
		"# [print: not a header]\nlayer_height = 0.2",
		"[presets]\nprint = 0.20mm",
		"value = [a: b] inline",
	}
	for _, in := range inputs {
		assert.Empty(t, Blocks(in), "input %q", in)
		assert.False(t, IsBundle(in), "input %q", in)
	}
}

func TestSplit_TrimsTypeNameAndContent(t *testing.T) {
	text := "[ print :  0.20mm QUALITY @MK3 ]\r\n\r\n  layer_height = 0.2\r\n\r\n"

	blocks := Blocks(text)
	require.Len(t, blocks, 1)
	assert.Equal(t, "print", blocks[0].ProfileType)
	assert.Equal(t, "0.20mm QUALITY @MK3", blocks[0].ProfileName)
	assert.Equal(t, "layer_height = 0.2", blocks[0].Content)
}

func TestSplit_MultiWordTypes(t *testing.T) {
	text := "[physical_printer: Office MK4]\nprint_host = 10.0.0.5\n[sla material: Tough Resin]\nexposure_time = 6"

	blocks := Blocks(text)
	require.Len(t, blocks, 2)
	assert.Equal(t, "physical_printer", blocks[0].ProfileType)
	assert.Equal(t, "sla material", blocks[1].ProfileType)
	assert.Equal(t, "Tough Resin", blocks[1].ProfileName)
}

func TestSplit_NonProfileSectionEndsBlock(t *testing.T) {
	text := "[filament: PETG]\ntemperature = 240\n\n[presets]\nprint = 0.20mm\nfilament = PETG"

	blocks := Blocks(text)
	require.Len(t, blocks, 1)
	assert.Equal(t, "temperature = 240", blocks[0].Content)
}

func TestSplit_EmptyBlock(t *testing.T) {
	text := "[print: Empty]\n[filament: PLA]\ntemperature = 210"

	blocks := Blocks(text)
	require.Len(t, blocks, 2)
	assert.Equal(t, "", blocks[0].Content)
	assert.Equal(t, "temperature = 210", blocks[1].Content)
}

func TestSplit_StopsWhenConsumerStops(t *testing.T) {
	text := "[print: A]\na = 1\n[print: B]\nb = 2\n[print: C]\nc = 3"

	var names []string
	for b := range Split(text) {
		names = append(names, b.ProfileName)
		if len(names) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"A", "B"}, names)
}
