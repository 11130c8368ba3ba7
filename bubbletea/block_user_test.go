package bubbletea_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driplabs/drip"
	bt "github.com/driplabs/drip/bubbletea"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(drip.DefaultTheme())
	b := bt.NewUserMessageBlock("how do channels work?", styles)

	view := b.View(80)
	assert.Contains(t, view, "> ")
	assert.Contains(t, view, "how do channels work?")
}

func TestUserMessageBlock_IgnoresToggle(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(drip.DefaultTheme())
	b := bt.NewUserMessageBlock("hi", styles)

	updated, cmd := b.Update(bt.ToggleMsg{})
	assert.Same(t, b, updated)
	assert.Nil(t, cmd)
}
