package service

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Summer Special", "summer-special"},
		{"Caterer's Menu!!", "caterers-menu"},
		{"  Brunch   &  Drinks ", "brunch-drinks"},
		{"Kids--Menu", "kids-menu"},
		{"-Dessert-", "dessert"},
		{"Happy_Hour", "happyhour"},
		{"Menu\t2024\nWinter", "menu-2024-winter"},
		{"Summer\u00a0Special", "summer-special"},
		{"Summer\vSpecial", "summer-special"},
		{"Tea\u3000Time\u2028Menu", "tea-time-menu"},
		{"\uFEFFBrunch", "brunch"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Slugify(got), "重复生成应保持不变")
		})
	}
}

func TestTitleFromSlug(t *testing.T) {
	assert.Equal(t, "Summer Special", TitleFromSlug("summer-special"))
	assert.Equal(t, "Christmas", TitleFromSlug("christmas"))
	assert.Equal(t, "Menu 2024", TitleFromSlug("menu-2024"))
	assert.Equal(t, "Test Menu", TitleFromSlug("test--menu"))
	assert.Equal(t, "", TitleFromSlug(""))

	// 存储目录名不一定是 ASCII
	title := TitleFromSlug("ñandu-menu")
	assert.Equal(t, "Ñandu Menu", title)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, "Éclair Äpfel", TitleFromSlug("éclair-äpfel"))
}
