package poster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAdID(t *testing.T) {
	assert.Equal(t, "a2094588123",
		ParseAdID("https://www.marktplaats.nl/v/tuin/a2094588123-onderplaat"))
	assert.Equal(t, "", ParseAdID("https://www.marktplaats.nl/v/tuin/onderplaat"))
	assert.Equal(t, "", ParseAdID(""))
}

func TestParseStatsText(t *testing.T) {
	text := `Onderplaat 3mm
Sinds 29 aug. '26
12x bekeken
3x bewaard
Advertentienummer: 2094588123`

	stats := ParseStatsText(text)
	assert.Equal(t, 12, stats.Views)
	assert.Equal(t, 3, stats.Saves)
	assert.Equal(t, "29 aug. '26", stats.PostedAt)
}

func TestParseStatsTextCaseInsensitive(t *testing.T) {
	stats := ParseStatsText("7X Bekeken en 2X Bewaard, sinds vandaag")
	assert.Equal(t, 7, stats.Views)
	assert.Equal(t, 2, stats.Saves)
	assert.Equal(t, "vandaag", stats.PostedAt)
}

func TestParseStatsTextMissingCounters(t *testing.T) {
	stats := ParseStatsText("een pagina zonder tellers")
	assert.Zero(t, stats.Views)
	assert.Zero(t, stats.Saves)
	assert.Empty(t, stats.PostedAt)
}
