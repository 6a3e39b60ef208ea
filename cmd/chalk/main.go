package main

import (
	"os"
	"strings"

	"chalk-cli/internal/cli"
)

func isCourseID(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "course-") {
		return false
	}
	// Keep it permissive; IDs are server-assigned but users may paste variants.
	return len(s) > len("course-")
}

func rewriteDirectCourseArgs(argv []string) []string {
	// Convenience: `chalk <course-id>` works like `chalk --course <course-id>`,
	// opening the editor on that course.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv
	// before parsing. Users often pass persistent flags first (e.g.
	// `chalk --config ... course-abc`), so we find the first positional token,
	// not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	// Minimal persistent-flag awareness. Unknown flags are skipped without
	// consuming a value, to avoid accidentally swallowing the course id.
	valueFlags := map[string]bool{
		"--config": true,
		"--course": true,
		"--format": true,
	}
	boolFlags := map[string]bool{
		"--pretty":  true,
		"--offline": true,
		"--drafts":  true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isCourseID(argv[i+1]) {
				out := make([]string, 0, len(argv)+1)
				out = append(out, argv[:i+1]...)
				out = append(out, "--course")
				out = append(out, argv[i+1:]...)
				return out
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++ // skip value if present
				continue
			}
			continue
		}

		// First positional token.
		if isCourseID(a) {
			out := make([]string, 0, len(argv)+1)
			out = append(out, argv[:i]...)
			out = append(out, "--course")
			out = append(out, argv[i:]...)
			return out
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectCourseArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
