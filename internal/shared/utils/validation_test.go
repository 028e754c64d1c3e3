package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"numeric", "42", false},
		{"slug", "user_42-a", false},
		{"empty", "", true},
		{"traversal", "../etc", true},
		{"slash", "a/b", true},
		{"too long", strings.Repeat("a", MaxIDLength+1), true},
		{"null byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateGroupIDs(t *testing.T) {
	assert.NoError(t, ValidateGroupIDs(nil))
	assert.NoError(t, ValidateGroupIDs([]string{"120363025246125486@g.us", "g1"}))
	assert.Error(t, ValidateGroupIDs([]string{"g1", ""}))
	assert.Error(t, ValidateGroupIDs([]string{"g1 g2"}))
	assert.Error(t, ValidateGroupIDs(make([]string, MaxGroupCount+1)))
}
