package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"Heal", "heal", true},
		{"  Heal ", "HEAL", true},
		{"Éclair", "éCLAIR", true},
		{"Heal", "Heal Self", false},
		{"", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.same, SameName(tt.a, tt.b))
		})
	}
}

func TestSortNames_CaseInsensitive(t *testing.T) {
	names := []string{"beta", "Alpha", "gamma", "alpha", "Beta"}
	SortNames(names)
	assert.Equal(t, []string{"Alpha", "alpha", "Beta", "beta", "gamma"}, names)
}

func TestSortSlots(t *testing.T) {
	list := []Slot{{Name: "zap"}, {Name: "Bless"}, {Name: "attack"}}
	SortSlots(list)
	assert.Equal(t, "attack", list[0].Name)
	assert.Equal(t, "Bless", list[1].Name)
	assert.Equal(t, "zap", list[2].Name)
}

func TestSlotClone_Independent(t *testing.T) {
	s := Slot{Name: "a", PlayersCanRun: Bool(true)}
	c := s.Clone()
	*c.PlayersCanRun = false
	assert.True(t, *s.PlayersCanRun, "clone must not share the PlayersCanRun pointer")
}
