package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectCourseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"chalk"},
			want: []string{"chalk"},
		},
		{
			name: "direct course id first token",
			in:   []string{"chalk", "course-abc123"},
			want: []string{"chalk", "--course", "course-abc123"},
		},
		{
			name: "direct course id after value flag",
			in:   []string{"chalk", "--config", "./chalk.yaml", "course-abc123"},
			want: []string{"chalk", "--config", "./chalk.yaml", "--course", "course-abc123"},
		},
		{
			name: "direct course id after equals flag",
			in:   []string{"chalk", "--config=./chalk.yaml", "course-abc123"},
			want: []string{"chalk", "--config=./chalk.yaml", "--course", "course-abc123"},
		},
		{
			name: "direct course id after bool flag",
			in:   []string{"chalk", "--drafts", "course-abc123"},
			want: []string{"chalk", "--drafts", "--course", "course-abc123"},
		},
		{
			name: "subcommand untouched",
			in:   []string{"chalk", "projects", "list"},
			want: []string{"chalk", "projects", "list"},
		},
		{
			name: "course id after double dash",
			in:   []string{"chalk", "--", "course-abc123"},
			want: []string{"chalk", "--", "--course", "course-abc123"},
		},
		{
			name: "bare prefix is not an id",
			in:   []string{"chalk", "course-"},
			want: []string{"chalk", "course-"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectCourseArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectCourseArgs(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
