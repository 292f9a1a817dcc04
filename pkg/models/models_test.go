package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserProfileValidate(t *testing.T) {
	valid := UserProfile{UserID: 1, Name: "Анна", Height: 170, Weight: 60, Age: 28, Goal: "похудеть"}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name    string
		mutate  func(p *UserProfile)
		wantErr error
	}{
		{"empty name", func(p *UserProfile) { p.Name = "" }, ErrEmptyName},
		{"zero height", func(p *UserProfile) { p.Height = 0 }, ErrInvalidHeight},
		{"negative weight", func(p *UserProfile) { p.Weight = -1 }, ErrInvalidWeight},
		{"zero age", func(p *UserProfile) { p.Age = 0 }, ErrInvalidAge},
		{"empty goal", func(p *UserProfile) { p.Goal = "" }, ErrEmptyGoal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			assert.ErrorIs(t, p.Validate(), tc.wantErr)
		})
	}
}
