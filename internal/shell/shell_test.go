package shell

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadless(t *testing.T) {
	h := NewHeadless()
	assert.False(t, h.InForeground())

	require.NoError(t, h.EnterForeground(301, "Internet blocker is running"))
	assert.True(t, h.InForeground())

	h.PresentStatus("Blocking internet for 2 apps")
	assert.Equal(t, "Blocking internet for 2 apps", h.Status())

	h.LeaveForeground()
	h.LeaveForeground()
	assert.False(t, h.InForeground())
}

func TestTrayNotReady(t *testing.T) {
	tr := NewTray()
	assert.ErrorIs(t, tr.EnterForeground(301, "running"), ErrTrayNotReady)

	tr.PresentStatus("Internet blocker stopped")
	tr.LeaveForeground()
}

func TestIcon(t *testing.T) {
	for _, active := range []bool{false, true} {
		img, err := png.Decode(bytes.NewReader(Icon(active)))
		require.NoError(t, err)
		assert.Equal(t, 32, img.Bounds().Dx())
	}
	assert.NotEqual(t, Icon(false), Icon(true))
}
