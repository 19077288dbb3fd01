package models

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My Cool Project!", "my-cool-project"},
		{"  Day_42: AI   Bot ", "day-42-ai-bot"},
		{"Hello World", "hello-world"},
		{"already-a-slug", "already-a-slug"},
		{"--Leading and trailing--", "leading-and-trailing"},
		{"a - b -- c", "a-b-c"},
		{"snake_case__title", "snake-case-title"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
		{"Café déjà vu", "caf-dj-vu"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, MakeSlug(tt.title))
		})
	}
}

func TestMakeSlug_Alphabet(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9-]*$`)
	titles := []string{
		"Day 1: Hello, World!",
		"  ___  ",
		"100% Go & Rust <3",
		"Ünïcödé — dashes – everywhere",
		"emoji 🚀 launch",
		"MiXeD CaSe 123",
		"trailing---",
	}
	for _, title := range titles {
		got := MakeSlug(title)
		assert.Regexp(t, valid, got, title)
		if got != "" {
			assert.True(t, IsValidSlug(got), "%q -> %q", title, got)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	assert.Equal(t, "hello-world", UniqueSlug("hello-world", 2, false))
	assert.Equal(t, "hello-world-day-2", UniqueSlug("hello-world", 2, true))
	assert.Equal(t, "untitled", UniqueSlug("", 7, false))
	assert.Equal(t, "untitled-day-7", UniqueSlug("", 7, true))
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("day-42-ai-bot"))
	assert.False(t, IsValidSlug(""))
	assert.False(t, IsValidSlug("-lead"))
	assert.False(t, IsValidSlug("trail-"))
	assert.False(t, IsValidSlug("dou--ble"))
	assert.False(t, IsValidSlug("Upper"))
}

func TestProjectString(t *testing.T) {
	p := Project{DayNumber: 3, Title: "Chatbot"}
	assert.Equal(t, "Project Day 3: Chatbot", p.String())
	assert.False(t, p.HasImage())
}
